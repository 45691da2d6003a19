package guard

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesworks/floortimer/internal/config"
	"github.com/mesworks/floortimer/internal/controller"
	"github.com/mesworks/floortimer/internal/store"
	"github.com/mesworks/floortimer/internal/timecalc"
	"github.com/mesworks/floortimer/internal/timer"
)

var t0 = time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)

type fixture struct {
	store *store.Store
	ctrl  *controller.Controller
	guard *Guard
}

func newFixture(t *testing.T, limitHours float64) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "floortimer.db"))
	require.NoError(t, err)
	ctrl := controller.New(st)
	cfg := config.NewStaticManager(config.Config{DailyLimitHours: limitHours})
	return &fixture{store: st, ctrl: ctrl, guard: New(st, ctrl, cfg)}
}

func (f *fixture) addLog(t *testing.T, userID string, minutes float64, completedAt time.Time) {
	t.Helper()
	require.NoError(t, f.store.CreateLog(&timer.Log{
		ID:              uuid.NewString(),
		UserID:          userID,
		Workflow:        timer.WorkflowProduction,
		RefID:           "cut",
		DurationMinutes: minutes,
		StartedAt:       completedAt.Add(-time.Duration(minutes) * time.Minute),
		CompletedAt:     completedAt,
		Action:          timer.ActionStopped,
	}))
}

func TestDailyMinutes(t *testing.T) {
	f := newFixture(t, 8)
	f.addLog(t, "alice", 120, t0)
	f.addLog(t, "alice", 60, t0.Add(-24*time.Hour)) // yesterday, excluded

	_, err := f.ctrl.Start("alice", timer.WorkContext{Workflow: timer.WorkflowProduction, RefID: "cut"}, t0.Add(time.Hour))
	require.NoError(t, err)

	minutes, err := f.guard.DailyMinutes("alice", t0.Add(90*time.Minute))
	require.NoError(t, err)
	assert.InDelta(t, 150, minutes, 1e-9)
}

func TestSweep_OpensWarningOnBreach(t *testing.T) {
	f := newFixture(t, 8)
	f.addLog(t, "alice", 8.5*60, t0) // over the cap
	f.addLog(t, "bob", 4*60, t0)     // well under

	now := t0.Add(time.Minute)
	f.guard.Sweep(now)

	w, err := f.store.WarningForDay("alice", timecalc.Day(now))
	require.NoError(t, err)
	require.NotNil(t, w, "breach must open a warning")
	assert.False(t, w.Resolved())
	assert.True(t, w.Deadline.Equal(now.Add(15*time.Minute)))

	w, err = f.store.WarningForDay("bob", timecalc.Day(now))
	require.NoError(t, err)
	assert.Nil(t, w)

	// A second sweep does not stack a duplicate countdown.
	f.guard.Sweep(now.Add(time.Minute))
	live, err := f.guard.ActiveWarning("alice", now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, live.Deadline.Equal(now.Add(15*time.Minute)))
}

// A worker at 7.9 hours who keeps a session running must trip the guard
// within one evaluation cycle of crossing the cap, not at stop time.
func TestSweep_LiveSessionCrossesLimit(t *testing.T) {
	f := newFixture(t, 8)
	f.addLog(t, "alice", 7.9*60, t0)

	_, err := f.ctrl.Start("alice", timer.WorkContext{Workflow: timer.WorkflowProduction, RefID: "cut"}, t0)
	require.NoError(t, err)

	f.guard.Sweep(t0.Add(5 * time.Minute)) // 7.98h, still under
	w, err := f.store.WarningForDay("alice", timecalc.Day(t0))
	require.NoError(t, err)
	assert.Nil(t, w)

	f.guard.Sweep(t0.Add(20 * time.Minute)) // 8.23h, crossed
	w, err = f.store.WarningForDay("alice", timecalc.Day(t0))
	require.NoError(t, err)
	require.NotNil(t, w)
}

// The failsafe: no resolution inside the window stops the session and marks
// the worker logged out, client or no client.
func TestSweep_ForcedStopAfterDeadline(t *testing.T) {
	f := newFixture(t, 8)
	f.addLog(t, "alice", 8.5*60, t0)
	sess, err := f.ctrl.Start("alice", timer.WorkContext{Workflow: timer.WorkflowProduction, RefID: "cut"}, t0)
	require.NoError(t, err)

	f.guard.Sweep(t0.Add(time.Minute))
	f.guard.Sweep(t0.Add(10 * time.Minute)) // countdown still live
	got, err := f.ctrl.Active("alice")
	require.NoError(t, err)
	require.NotNil(t, got)

	f.guard.Sweep(t0.Add(17 * time.Minute)) // past the 15m deadline

	got, err = f.ctrl.Active("alice")
	require.NoError(t, err)
	assert.Nil(t, got, "forced stop must terminate the session")

	entry, err := f.store.LogBySession(sess.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, timer.ActionAutoStopped, entry.Action)

	w, err := f.store.WarningForDay("alice", timecalc.Day(t0))
	require.NoError(t, err)
	assert.Equal(t, timer.ResolutionForced, w.Resolution)
	assert.True(t, w.LoggedOut)
}

func TestAcknowledge_Continue(t *testing.T) {
	f := newFixture(t, 8)
	f.addLog(t, "alice", 8.5*60, t0)
	_, err := f.ctrl.Start("alice", timer.WorkContext{Workflow: timer.WorkflowProduction, RefID: "cut"}, t0)
	require.NoError(t, err)

	f.guard.Sweep(t0.Add(time.Minute))

	w, err := f.guard.Acknowledge("alice", timer.ResolutionContinue, t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.False(t, w.LoggedOut)

	// The session keeps running and the guard stays quiet for the day.
	got, err := f.ctrl.Active("alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, timer.StateRunning, got.State)

	f.guard.Sweep(t0.Add(30 * time.Minute))
	live, err := f.guard.ActiveWarning("alice", t0.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Nil(t, live)

	// Acknowledging again with the same answer is a harmless replay; flipping
	// the answer is not.
	_, err = f.guard.Acknowledge("alice", timer.ResolutionContinue, t0.Add(31*time.Minute))
	require.NoError(t, err)
	_, err = f.guard.Acknowledge("alice", timer.ResolutionStop, t0.Add(32*time.Minute))
	assert.ErrorIs(t, err, timer.ErrInvalidState)
}

func TestAcknowledge_Stop(t *testing.T) {
	f := newFixture(t, 8)
	f.addLog(t, "alice", 8.5*60, t0)
	sess, err := f.ctrl.Start("alice", timer.WorkContext{Workflow: timer.WorkflowProduction, RefID: "cut"}, t0)
	require.NoError(t, err)

	f.guard.Sweep(t0.Add(time.Minute))

	w, err := f.guard.Acknowledge("alice", timer.ResolutionStop, t0.Add(5*time.Minute))
	require.NoError(t, err)
	assert.True(t, w.LoggedOut)

	entry, err := f.store.LogBySession(sess.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, timer.ActionStopped, entry.Action, "a worker-elected stop is a normal stop")
}

func TestAcknowledge_Validation(t *testing.T) {
	f := newFixture(t, 8)

	_, err := f.guard.Acknowledge("alice", timer.ResolutionContinue, t0)
	assert.ErrorIs(t, err, timer.ErrNotFound)

	_, err = f.guard.Acknowledge("alice", "snooze", t0)
	assert.ErrorIs(t, err, timer.ErrInvalidState)
}

func TestGuard_RearmsAtDayRollover(t *testing.T) {
	f := newFixture(t, 8)
	f.addLog(t, "alice", 8.5*60, t0)

	f.guard.Sweep(t0.Add(time.Minute))
	_, err := f.guard.Acknowledge("alice", timer.ResolutionContinue, t0.Add(2*time.Minute))
	require.NoError(t, err)

	// Next day: yesterday's hours and acknowledgement no longer apply.
	nextDay := t0.Add(24 * time.Hour)
	f.guard.Sweep(nextDay)
	w, err := f.store.WarningForDay("alice", timecalc.Day(nextDay))
	require.NoError(t, err)
	assert.Nil(t, w, "yesterday's logs must not trip today's guard")

	f.addLog(t, "alice", 9*60, nextDay)
	f.guard.Sweep(nextDay.Add(time.Minute))
	w, err = f.store.WarningForDay("alice", timecalc.Day(nextDay))
	require.NoError(t, err)
	require.NotNil(t, w, "guard re-arms for a fresh breach")
}

func TestGuard_PerWorkerLimitOverride(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "floortimer.db"))
	require.NoError(t, err)
	ctrl := controller.New(st)
	ten := 10.0
	cfg := config.NewStaticManager(config.Config{
		DailyLimitHours: 8,
		Workers:         map[string]config.WorkerConfig{"alice": {DailyLimitHours: &ten}},
	})
	g := New(st, ctrl, cfg)

	require.NoError(t, st.CreateLog(&timer.Log{
		ID: uuid.NewString(), UserID: "alice", Workflow: timer.WorkflowProduction,
		RefID: "cut", DurationMinutes: 9 * 60, CompletedAt: t0, Action: timer.ActionStopped,
	}))

	g.Sweep(t0.Add(time.Minute))
	w, err := st.WarningForDay("alice", timecalc.Day(t0))
	require.NoError(t, err)
	assert.Nil(t, w, "9h is under alice's 10h override")
}
