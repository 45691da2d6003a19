package guard

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mesworks/floortimer/internal/config"
	"github.com/mesworks/floortimer/internal/controller"
	"github.com/mesworks/floortimer/internal/store"
	"github.com/mesworks/floortimer/internal/timecalc"
	"github.com/mesworks/floortimer/internal/timer"
)

// Guard enforces the daily safety hour cap. It runs on a fixed cadence,
// recomputes every worker's day total from logs plus the live session, and
// drives the warning -> countdown -> forced-stop protocol. The countdown
// deadline lives in the store, so the failsafe fires even if every client
// disconnected or the daemon restarted mid-countdown.
type Guard struct {
	store *store.Store
	ctrl  *controller.Controller
	cfg   *config.Manager
}

func New(st *store.Store, ctrl *controller.Controller, cfg *config.Manager) *Guard {
	return &Guard{store: st, ctrl: ctrl, cfg: cfg}
}

// Run starts the periodic evaluator and blocks until the context is done.
func (g *Guard) Run(ctx context.Context) error {
	cur := g.cfg.Current()
	interval := cur.EvalInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("limit guard started, evaluating every %s", interval)

	// Evaluate immediately on start so a restart mid-countdown does not grant
	// extra time.
	g.Sweep(time.Now().UTC())

	for {
		select {
		case <-ctx.Done():
			log.Println("limit guard shutting down")
			return nil
		case <-ticker.C:
			g.Sweep(time.Now().UTC())
		}
	}
}

// Sweep is one evaluation cycle. Safe to call concurrently with commands; it
// only goes through the controller and the store.
func (g *Guard) Sweep(now time.Time) {
	g.enforceExpired(now)
	g.openWarnings(now)

	if err := g.store.Heartbeat(now); err != nil {
		log.Printf("failed to stamp heartbeat: %v", err)
	}
}

// enforceExpired fires the failsafe for every countdown that ran out. A
// failed stop leaves the warning unresolved so the next sweep retries; the
// forced path is never suppressed by a downstream error.
func (g *Guard) enforceExpired(now time.Time) {
	expired, err := g.store.ExpiredUnresolvedWarnings(now)
	if err != nil {
		log.Printf("failed to list expired warnings: %v", err)
		return
	}
	for i := range expired {
		w := &expired[i]
		if err := g.enforce(w, timer.ResolutionForced, now); err != nil {
			log.Printf("forced stop for %s failed, will retry: %v", w.UserID, err)
		}
	}
}

// openWarnings opens a countdown for every worker over the cap with no
// warning yet today.
func (g *Guard) openWarnings(now time.Time) {
	cfg := g.cfg.Current()
	day := timecalc.Day(now)

	users, err := g.candidates(now)
	if err != nil {
		log.Printf("failed to list guard candidates: %v", err)
		return
	}

	for _, userID := range users {
		minutes, err := g.DailyMinutes(userID, now)
		if err != nil {
			log.Printf("failed to compute daily minutes for %s: %v", userID, err)
			continue
		}
		limitMinutes := cfg.LimitFor(userID) * 60
		if minutes <= limitMinutes {
			continue
		}

		existing, err := g.store.WarningForDay(userID, day)
		if err != nil {
			log.Printf("failed to read warning for %s: %v", userID, err)
			continue
		}
		if existing != nil {
			// Countdown already live, or the worker acknowledged today.
			continue
		}

		w := &timer.LimitWarning{
			ID:       uuid.NewString(),
			UserID:   userID,
			Day:      day,
			OpenedAt: now,
			Deadline: now.Add(cfg.WarningGrace()),
		}
		if err := g.store.CreateWarning(w); err != nil {
			log.Printf("failed to open warning for %s: %v", userID, err)
			continue
		}
		log.Printf("limit warning opened for %s: %.1fm worked, cap %.0fm, forced stop at %s",
			userID, minutes, limitMinutes, w.Deadline.Format(time.RFC3339))
	}
}

// candidates are workers who could be over the cap right now: anyone with an
// open session plus anyone who completed work today.
func (g *Guard) candidates(now time.Time) ([]string, error) {
	open, err := g.store.AllOpenSessions()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var users []string
	for _, s := range open {
		if !seen[s.UserID] {
			seen[s.UserID] = true
			users = append(users, s.UserID)
		}
	}
	logged, err := g.store.UserIDsWithLogsBetween(timecalc.StartOfDay(now), timecalc.EndOfDay(now))
	if err != nil {
		return nil, err
	}
	for _, id := range logged {
		if !seen[id] {
			seen[id] = true
			users = append(users, id)
		}
	}
	return users, nil
}

// DailyMinutes is the worker's day total: finished logs plus the live elapsed
// time of the current session. Always computed fresh, never cached.
func (g *Guard) DailyMinutes(userID string, now time.Time) (float64, error) {
	return g.DailyMinutesOn(userID, now, now)
}

// DailyMinutesOn totals a worker's minutes for any calendar day. The live
// session only counts when the requested day is today.
func (g *Guard) DailyMinutesOn(userID string, date, now time.Time) (float64, error) {
	total, err := g.store.SumLogMinutes(store.LogFilter{
		UserID: userID,
		From:   timecalc.StartOfDay(date),
		To:     timecalc.EndOfDay(date),
	})
	if err != nil {
		return 0, err
	}
	if !timecalc.SameDay(date, now) {
		return total, nil
	}
	sess, err := g.ctrl.Active(userID)
	if err != nil {
		return 0, err
	}
	if sess != nil {
		live, err := timecalc.Elapsed(sess, now)
		if err != nil {
			log.Printf("clamped live elapsed for %s: %v", userID, err)
		}
		total += live
	}
	return total, nil
}

// ActiveWarning returns the worker's live countdown for today, or nil.
func (g *Guard) ActiveWarning(userID string, now time.Time) (*timer.LimitWarning, error) {
	w, err := g.store.WarningForDay(userID, timecalc.Day(now))
	if err != nil {
		return nil, err
	}
	if w == nil || w.Resolved() {
		return nil, nil
	}
	return w, nil
}

// Acknowledge resolves a live countdown. "continue" suppresses the guard for
// the rest of the day; "stop" stops the worker's session and marks them
// logged out. Repeating the same resolution is a no-op success; anything
// ambiguous is rejected so the safe outcome never flips to "continue".
func (g *Guard) Acknowledge(userID, resolution string, now time.Time) (*timer.LimitWarning, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if resolution != timer.ResolutionContinue && resolution != timer.ResolutionStop {
		return nil, fmt.Errorf("%w: unknown resolution %q", timer.ErrInvalidState, resolution)
	}

	w, err := g.store.WarningForDay(userID, timecalc.Day(now))
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("%w: no limit warning open for %s today", timer.ErrNotFound, userID)
	}
	if w.Resolved() {
		if w.Resolution == resolution {
			return w, nil
		}
		return nil, fmt.Errorf("%w: warning already resolved as %s", timer.ErrInvalidState, w.Resolution)
	}

	if err := g.enforce(w, resolution, now); err != nil {
		return nil, err
	}
	return w, nil
}

// enforce applies a resolution: for stop and forced it stops the active
// session first, then records the resolution. The warning resolves only once
// the session is confirmed terminal.
func (g *Guard) enforce(w *timer.LimitWarning, resolution string, now time.Time) error {
	if resolution != timer.ResolutionContinue {
		sess, err := g.ctrl.Active(w.UserID)
		if err != nil {
			return err
		}
		if sess != nil {
			if resolution == timer.ResolutionForced {
				_, err = g.ctrl.StopForced(sess.ID, now)
			} else {
				_, err = g.ctrl.Stop(sess.ID, -1, -1, now)
			}
			if err != nil {
				return fmt.Errorf("failed to stop session %s: %w", sess.ID, err)
			}
		}
	}

	w.Resolution = resolution
	w.ResolvedAt = &now
	w.LoggedOut = resolution != timer.ResolutionContinue
	if err := g.store.SaveWarning(w); err != nil {
		return err
	}
	log.Printf("limit warning for %s resolved: %s (logged_out=%v)", w.UserID, resolution, w.LoggedOut)
	return nil
}
