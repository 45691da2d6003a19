package recovery

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mesworks/floortimer/internal/controller"
	"github.com/mesworks/floortimer/internal/store"
	"github.com/mesworks/floortimer/internal/timecalc"
	"github.com/mesworks/floortimer/internal/timer"
)

// Manager implements the save/recover protocol: a logout (or crash) must not
// silently destroy unbilled labor time, and a stale recovered session must
// not resurrect indefinitely. Snapshots are durability checkpoints consumed
// exactly once, by restore or by discard.
type Manager struct {
	store *store.Store
	ctrl  *controller.Controller
}

func New(st *store.Store, ctrl *controller.Controller) *Manager {
	return &Manager{store: st, ctrl: ctrl}
}

// SaveAll checkpoints every open session the worker owns, one snapshot per
// workflow, and returns the count saved. The sessions themselves are left
// as-is; save is a checkpoint, not a stop.
func (m *Manager) SaveAll(userID string, now time.Time) (int, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	sessions, err := m.store.OpenSessions(userID)
	if err != nil {
		return 0, err
	}
	saved := 0
	for i := range sessions {
		if err := m.snapshot(&sessions[i], now); err != nil {
			return saved, err
		}
		saved++
	}
	if saved > 0 {
		log.Printf("saved %d open session(s) for %s", saved, userID)
	}
	return saved, nil
}

func (m *Manager) snapshot(sess *timer.Session, asOf time.Time) error {
	elapsed, err := timecalc.Elapsed(sess, asOf)
	if err != nil {
		log.Printf("clamped snapshot elapsed for session %s: %v", sess.ID, err)
	}
	snap := &timer.RecoverySnapshot{
		SaveID:          uuid.NewString(),
		UserID:          sess.UserID,
		SessionID:       sess.ID,
		Workflow:        sess.Workflow,
		RefID:           sess.RefID,
		OrderID:         sess.OrderID,
		ElapsedMinutes:  timecalc.RoundMinutes(elapsed),
		ItemsProcessed:  sess.ItemsProcessed,
		OrdersProcessed: sess.OrdersProcessed,
		SavedAt:         asOf,
	}
	return m.store.UpsertSnapshot(snap)
}

// Check returns the worker's pending snapshots, at most one per workflow,
// without side effects. Called at next login to offer restore-or-discard.
func (m *Manager) Check(userID string) ([]timer.RecoverySnapshot, error) {
	return m.store.SnapshotsForUser(userID)
}

// Restore re-opens a Running session seeded with the snapshot's elapsed
// minutes and consumes the snapshot. Fails with Conflict if the worker
// already has a different active session.
func (m *Manager) Restore(saveID string, now time.Time) (*timer.Session, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	snap, err := m.store.GetSnapshot(saveID)
	if err != nil {
		return nil, err
	}

	sess, err := m.ctrl.StartSeeded(snap.UserID, snap.Context(), timer.SeededStart{
		AccumulatedMinutes: snap.ElapsedMinutes,
		ItemsProcessed:     snap.ItemsProcessed,
		OrdersProcessed:    snap.OrdersProcessed,
		AdoptSessionID:     snap.SessionID,
	}, now)
	if err != nil {
		return nil, err
	}

	if err := m.store.DeleteSnapshot(saveID); err != nil && !errors.Is(err, timer.ErrNotFound) {
		return nil, fmt.Errorf("restored session %s but failed to consume snapshot: %w", sess.ID, err)
	}
	log.Printf("snapshot %s restored into session %s for %s", saveID, sess.ID, snap.UserID)
	return sess, nil
}

// Discard consumes a snapshot without restoring it. Irreversible: the
// checkpointed time is forfeited, and the snapshot's source session, if it is
// still open, is removed so it cannot block a fresh start.
func (m *Manager) Discard(saveID string) error {
	snap, err := m.store.GetSnapshot(saveID)
	if err != nil {
		return err
	}
	if err := m.store.DeleteSnapshot(saveID); err != nil {
		return err
	}
	m.dropSource(snap)
	log.Printf("snapshot %s discarded for %s", saveID, snap.UserID)
	return nil
}

// DiscardAll discards every pending snapshot for the worker.
func (m *Manager) DiscardAll(userID string) (int, error) {
	snaps, err := m.store.SnapshotsForUser(userID)
	if err != nil {
		return 0, err
	}
	for i := range snaps {
		if err := m.Discard(snaps[i].SaveID); err != nil && !errors.Is(err, timer.ErrNotFound) {
			return i, err
		}
	}
	return len(snaps), nil
}

func (m *Manager) dropSource(snap *timer.RecoverySnapshot) {
	if snap.SessionID == "" {
		return
	}
	sess, err := m.store.GetSession(snap.SessionID)
	if err != nil || sess.IsTerminal() {
		return
	}
	if err := m.store.DeleteSession(sess.ID); err != nil {
		log.Printf("failed to drop discarded session %s: %v", sess.ID, err)
	}
}

// CrashSweep runs at daemon startup. Sessions that were Running when the
// daemon last heartbeated are frozen as of that heartbeat and checkpointed,
// so downtime never inflates anyone's hours and in-flight work is offered
// for restore at next login, exactly as if the worker had logged out.
func (m *Manager) CrashSweep(now time.Time) error {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	lastBeat, err := m.store.LastHeartbeat()
	if err != nil {
		if errors.Is(err, timer.ErrDataIntegrity) {
			log.Printf("ignoring unreadable heartbeat: %v", err)
			return nil
		}
		return err
	}
	if lastBeat.IsZero() {
		return nil
	}

	open, err := m.store.AllOpenSessions()
	if err != nil {
		return err
	}
	swept := 0
	for i := range open {
		sess := &open[i]
		if sess.State == timer.StateRunning {
			elapsed, err := timecalc.Elapsed(sess, lastBeat)
			if err != nil {
				log.Printf("clamped crash-sweep elapsed for session %s: %v", sess.ID, err)
			}
			sess.AccumulatedMinutes = elapsed
			sess.State = timer.StatePaused
			if err := m.store.SaveSession(sess); err != nil {
				return err
			}
		}
		if err := m.snapshot(sess, lastBeat); err != nil {
			return err
		}
		swept++
	}
	if swept > 0 {
		log.Printf("crash sweep checkpointed %d session(s) as of %s", swept, lastBeat.Format(time.RFC3339))
	}
	return nil
}
