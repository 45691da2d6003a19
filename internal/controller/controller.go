package controller

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mesworks/floortimer/internal/store"
	"github.com/mesworks/floortimer/internal/timecalc"
	"github.com/mesworks/floortimer/internal/timer"
)

// Controller owns the session state machine: Idle -> Running <-> Paused ->
// Stopped. Commands for the same worker are serialized through a per-user
// mutex so duplicate network retries and multi-tab clients resolve
// deterministically; the store's transactional check-and-create backs the
// single-active-timer invariant underneath.
type Controller struct {
	store *store.Store

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

func New(st *store.Store) *Controller {
	return &Controller{
		store: st,
		users: make(map[string]*sync.Mutex),
	}
}

func (c *Controller) userLock(userID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.users[userID]
	if !ok {
		m = &sync.Mutex{}
		c.users[userID] = m
	}
	return m
}

// Start creates a Running session for the worker. Fails with Conflict if the
// worker already has a non-terminal session anywhere on the floor.
func (c *Controller) Start(userID string, wctx timer.WorkContext, now time.Time) (*timer.Session, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user id", timer.ErrInvalidState)
	}
	if err := wctx.Validate(); err != nil {
		return nil, err
	}

	lock := c.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	sess := &timer.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Workflow:  wctx.Workflow,
		RefID:     wctx.RefID,
		OrderID:   wctx.OrderID,
		State:     timer.StateRunning,
		StartedAt: now,
	}
	if err := c.store.CreateSessionExclusive(sess); err != nil {
		return nil, err
	}
	log.Printf("session %s started for %s on %s %s", sess.ID, userID, wctx.Workflow, wctx.RefID)
	return sess, nil
}

// StartSeeded re-opens timed work from a recovery snapshot: the new session
// begins Running with the snapshot's elapsed minutes already committed. When
// the snapshot's source session is still open for this worker it is adopted
// in place rather than duplicated; any other active session is a Conflict.
func (c *Controller) StartSeeded(userID string, wctx timer.WorkContext, seed timer.SeededStart, now time.Time) (*timer.Session, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if err := wctx.Validate(); err != nil {
		return nil, err
	}

	lock := c.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	active, err := c.store.ActiveSession(userID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		if active.ID != seed.AdoptSessionID {
			return nil, fmt.Errorf("%w: user %s already has an active timer", timer.ErrConflict, userID)
		}
		active.State = timer.StateRunning
		active.StartedAt = now
		active.AccumulatedMinutes = seed.AccumulatedMinutes
		active.ItemsProcessed = seed.ItemsProcessed
		active.OrdersProcessed = seed.OrdersProcessed
		if err := c.store.SaveSession(active); err != nil {
			return nil, err
		}
		log.Printf("session %s re-adopted for %s with %.2fm committed", active.ID, userID, seed.AccumulatedMinutes)
		return active, nil
	}

	sess := &timer.Session{
		ID:                 uuid.NewString(),
		UserID:             userID,
		Workflow:           wctx.Workflow,
		RefID:              wctx.RefID,
		OrderID:            wctx.OrderID,
		State:              timer.StateRunning,
		StartedAt:          now,
		AccumulatedMinutes: seed.AccumulatedMinutes,
		ItemsProcessed:     seed.ItemsProcessed,
		OrdersProcessed:    seed.OrdersProcessed,
	}
	if err := c.store.CreateSessionExclusive(sess); err != nil {
		return nil, err
	}
	log.Printf("session %s restored for %s with %.2fm committed", sess.ID, userID, seed.AccumulatedMinutes)
	return sess, nil
}

// Pause freezes the current running phase into accumulated minutes. Legal
// only from Running; a duplicate pause is rejected, not absorbed, so a stale
// retry can never double-commit a phase.
func (c *Controller) Pause(sessionID string, now time.Time) (*timer.Session, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return c.withSession(sessionID, func(sess *timer.Session) error {
		if sess.State != timer.StateRunning {
			return fmt.Errorf("%w: cannot pause session %s in state %s", timer.ErrInvalidState, sess.ID, sess.State)
		}
		delta, err := timecalc.RunningDelta(sess, now)
		if err != nil {
			log.Printf("clamped pause accrual for session %s: %v", sess.ID, err)
		}
		sess.AccumulatedMinutes += delta
		sess.State = timer.StatePaused
		return c.store.SaveSession(sess)
	})
}

// Resume restarts accrual. Legal only from Paused.
func (c *Controller) Resume(sessionID string, now time.Time) (*timer.Session, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return c.withSession(sessionID, func(sess *timer.Session) error {
		if sess.State != timer.StatePaused {
			return fmt.Errorf("%w: cannot resume session %s in state %s", timer.ErrInvalidState, sess.ID, sess.State)
		}
		sess.StartedAt = now
		sess.State = timer.StateRunning
		return c.store.SaveSession(sess)
	})
}

// Stop finalizes the session and emits its immutable log. The counters passed
// in overwrite the session's running counters as the authoritative final
// values (negative means "keep what the session has"). Stop is idempotent
// against replay: stopping an already-Stopped session returns the original
// log as a no-op success, because network retries are expected.
func (c *Controller) Stop(sessionID string, items, orders int, now time.Time) (*timer.Log, error) {
	return c.stop(sessionID, items, orders, timer.ActionStopped, now)
}

// StopForced is the limit guard's terminal action: same as Stop but recorded
// as auto_stopped and keeping the session's own counters.
func (c *Controller) StopForced(sessionID string, now time.Time) (*timer.Log, error) {
	return c.stop(sessionID, -1, -1, timer.ActionAutoStopped, now)
}

func (c *Controller) stop(sessionID string, items, orders int, action string, now time.Time) (*timer.Log, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	sess, err := c.store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	lock := c.userLock(sess.UserID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock; a concurrent command may have won.
	sess, err = c.store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	if sess.State == timer.StateStopped {
		entry, err := c.store.LogBySession(sessionID)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, fmt.Errorf("%w: stopped session %s has no log", timer.ErrDataIntegrity, sessionID)
		}
		return entry, nil
	}

	elapsed, err := timecalc.Elapsed(sess, now)
	if err != nil {
		log.Printf("clamped final elapsed for session %s: %v", sess.ID, err)
	}
	if items >= 0 {
		sess.ItemsProcessed = items
	}
	if orders >= 0 {
		sess.OrdersProcessed = orders
	}
	started := sess.StartedAt
	sess.AccumulatedMinutes = elapsed
	sess.State = timer.StateStopped

	sid := sess.ID
	entry := &timer.Log{
		ID:              uuid.NewString(),
		SessionID:       &sid,
		UserID:          sess.UserID,
		Workflow:        sess.Workflow,
		RefID:           sess.RefID,
		OrderID:         sess.OrderID,
		DurationMinutes: timecalc.RoundMinutes(elapsed),
		ItemsProcessed:  sess.ItemsProcessed,
		OrdersProcessed: sess.OrdersProcessed,
		StartedAt:       started,
		CompletedAt:     now,
		Action:          action,
	}
	if err := c.store.StopSession(sess, entry); err != nil {
		return nil, err
	}
	log.Printf("session %s stopped (%s): %.2fm, %d items", sess.ID, action, entry.DurationMinutes, entry.ItemsProcessed)
	return entry, nil
}

// UpdateCounters records worker-entered progress. Legal while Running or
// Paused. Counters are monotonic: a decreasing update means a stale client
// and is rejected so fresher progress is never overwritten.
func (c *Controller) UpdateCounters(sessionID string, items, orders int, now time.Time) (*timer.Session, error) {
	return c.withSession(sessionID, func(sess *timer.Session) error {
		if sess.State == timer.StateStopped {
			return fmt.Errorf("%w: cannot update counters on stopped session %s", timer.ErrInvalidState, sess.ID)
		}
		if items < 0 {
			items = sess.ItemsProcessed
		}
		if orders < 0 {
			orders = sess.OrdersProcessed
		}
		if items < sess.ItemsProcessed || orders < sess.OrdersProcessed {
			log.Printf("rejected counter regression on session %s: items %d->%d, orders %d->%d",
				sess.ID, sess.ItemsProcessed, items, sess.OrdersProcessed, orders)
			return fmt.Errorf("%w: counters cannot decrease (items %d, orders %d)", timer.ErrConflict,
				sess.ItemsProcessed, sess.OrdersProcessed)
		}
		sess.ItemsProcessed = items
		sess.OrdersProcessed = orders
		return c.store.SaveSession(sess)
	})
}

// Active returns the worker's current non-terminal session, or nil.
func (c *Controller) Active(userID string) (*timer.Session, error) {
	return c.store.ActiveSession(userID)
}

// withSession runs fn on a session under its owner's lock and returns the
// mutated session.
func (c *Controller) withSession(sessionID string, fn func(*timer.Session) error) (*timer.Session, error) {
	sess, err := c.store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	lock := c.userLock(sess.UserID)
	lock.Lock()
	defer lock.Unlock()

	sess, err = c.store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	return sess, nil
}
