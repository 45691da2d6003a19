package report

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
	"github.com/mesworks/floortimer/internal/timer"
)

var t0 = time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)

type fixture struct {
	store *store.Store
	agg   *Aggregator
}

func newFixture(t *testing.T, cfg config.Config) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "floortimer.db"))
	require.NoError(t, err)
	return &fixture{store: st, agg: New(st, config.NewStaticManager(cfg))}
}

func (f *fixture) addLog(t *testing.T, l timer.Log) string {
	t.Helper()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Action == "" {
		l.Action = timer.ActionStopped
	}
	if l.StartedAt.IsZero() {
		l.StartedAt = l.CompletedAt.Add(-time.Duration(l.DurationMinutes) * time.Minute)
	}
	require.NoError(t, f.store.CreateLog(&l))
	return l.ID
}

func TestByUserDate(t *testing.T) {
	f := newFixture(t, config.Config{HourlyRate: 20})

	f.addLog(t, timer.Log{UserID: "alice", Workflow: timer.WorkflowProduction, RefID: "cut", DurationMinutes: 60, ItemsProcessed: 10, CompletedAt: t0})
	f.addLog(t, timer.Log{UserID: "alice", Workflow: timer.WorkflowFulfillment, RefID: "pack", DurationMinutes: 30, ItemsProcessed: 5, OrdersProcessed: 2, CompletedAt: t0.Add(2 * time.Hour)})
	f.addLog(t, timer.Log{UserID: "alice", Workflow: timer.WorkflowProduction, RefID: "cut", DurationMinutes: 45, ItemsProcessed: 9, CompletedAt: t0.Add(24 * time.Hour)})
	f.addLog(t, timer.Log{UserID: "bob", Workflow: timer.WorkflowProduction, RefID: "cut", DurationMinutes: 15, CompletedAt: t0})

	rollups, err := f.agg.ByUserDate("alice", t0.Add(-time.Hour), t0.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, rollups, 2, "one group per worker per day")

	day1 := rollups[0]
	assert.Equal(t, "alice/2026-08-28", day1.Key)
	assert.Equal(t, 2, day1.Entries)
	assert.Equal(t, 90.0, day1.Minutes)
	assert.Equal(t, 15, day1.Items)
	assert.Equal(t, 2, day1.Orders)
	assert.InDelta(t, 10, day1.ItemsPerHour, 1e-9)
	assert.InDelta(t, 30, day1.LaborCost, 1e-9)

	day2 := rollups[1]
	assert.Equal(t, "alice/2026-08-29", day2.Key)
	assert.Equal(t, 45.0, day2.Minutes)
	assert.InDelta(t, 12, day2.ItemsPerHour, 1e-9)
}

func TestByUserDate_ZeroMinutesGuard(t *testing.T) {
	f := newFixture(t, config.Config{HourlyRate: 20})

	// A corrected entry can end up with zero minutes but nonzero items. The
	// rate ratio must report 0, never a division blowup.
	f.addLog(t, timer.Log{UserID: "alice", Workflow: timer.WorkflowProduction, RefID: "cut", DurationMinutes: 0, ItemsProcessed: 4, CompletedAt: t0})

	rollups, err := f.agg.ByUserDate("alice", t0.Add(-time.Hour), t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rollups, 1)
	assert.Equal(t, 0.0, rollups[0].ItemsPerHour)
	assert.Equal(t, 0.0, rollups[0].LaborCost)
}

func TestByStage(t *testing.T) {
	f := newFixture(t, config.Config{HourlyRate: 20})

	f.addLog(t, timer.Log{UserID: "alice", Workflow: timer.WorkflowProduction, RefID: "cut", DurationMinutes: 60, ItemsProcessed: 6, CompletedAt: t0})
	f.addLog(t, timer.Log{UserID: "bob", Workflow: timer.WorkflowProduction, RefID: "cut", DurationMinutes: 30, ItemsProcessed: 4, CompletedAt: t0.Add(time.Hour)})
	f.addLog(t, timer.Log{UserID: "alice", Workflow: timer.WorkflowProduction, RefID: "weld", DurationMinutes: 20, CompletedAt: t0})
	f.addLog(t, timer.Log{UserID: "alice", Workflow: timer.WorkflowFulfillment, RefID: "pack", DurationMinutes: 40, CompletedAt: t0})

	rollups, err := f.agg.ByStage(timer.WorkflowProduction, t0.Add(-time.Hour), t0.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, rollups, 2)

	cut := rollups[0]
	assert.Equal(t, "cut", cut.Key)
	assert.Equal(t, 90.0, cut.Minutes, "stage totals pool all workers")
	assert.Equal(t, 10, cut.Items)
	assert.Equal(t, "weld", rollups[1].Key)
}

func TestByBatch(t *testing.T) {
	f := newFixture(t, config.Config{HourlyRate: 20})

	f.addLog(t, timer.Log{UserID: "alice", Workflow: timer.WorkflowBatch, RefID: "batch-7", DurationMinutes: 50, ItemsProcessed: 100, CompletedAt: t0})
	f.addLog(t, timer.Log{UserID: "alice", Workflow: timer.WorkflowProduction, RefID: "cut", DurationMinutes: 60, CompletedAt: t0})

	rollups, err := f.agg.ByBatch(t0.Add(-time.Hour), t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rollups, 1)
	assert.Equal(t, "batch-7", rollups[0].Key)
	assert.InDelta(t, 120, rollups[0].ItemsPerHour, 1e-9)
}

func TestByOrder(t *testing.T) {
	f := newFixture(t, config.Config{HourlyRate: 20})

	f.addLog(t, timer.Log{UserID: "alice", Workflow: timer.WorkflowProduction, RefID: "cut", OrderID: "o1", DurationMinutes: 90, ItemsProcessed: 6, CompletedAt: t0})
	f.addLog(t, timer.Log{UserID: "bob", Workflow: timer.WorkflowFulfillment, RefID: "pack", OrderID: "o1", DurationMinutes: 30, ItemsProcessed: 6, OrdersProcessed: 1, CompletedAt: t0.Add(time.Hour)})
	f.addLog(t, timer.Log{UserID: "alice", Workflow: timer.WorkflowProduction, RefID: "cut", OrderID: "o2", DurationMinutes: 10, CompletedAt: t0})

	got, err := f.agg.ByOrder("o1", 800)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Entries)
	assert.Equal(t, 120.0, got.Minutes)
	assert.InDelta(t, 40, got.LaborCost, 1e-9) // 2h at 20/h
	assert.InDelta(t, 40.0/12, got.CostPerItem, 1e-9)
	assert.InDelta(t, 5, got.CostPercentOfOrder, 1e-9)
}

func TestByOrder_ZeroGuards(t *testing.T) {
	f := newFixture(t, config.Config{HourlyRate: 20})

	f.addLog(t, timer.Log{UserID: "alice", Workflow: timer.WorkflowProduction, RefID: "cut", OrderID: "o1", DurationMinutes: 60, CompletedAt: t0})

	// Unknown order total and zero items: both ratios report 0.
	got, err := f.agg.ByOrder("o1", 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.CostPerItem)
	assert.Equal(t, 0.0, got.CostPercentOfOrder)

	empty, err := f.agg.ByOrder("no-such-order", 500)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Entries)
	assert.Equal(t, 0.0, empty.ItemsPerHour)
	assert.Equal(t, 0.0, empty.CostPercentOfOrder)
}

func TestLaborCost_PerWorkerRate(t *testing.T) {
	thirty := 30.0
	f := newFixture(t, config.Config{
		HourlyRate: 20,
		Workers:    map[string]config.WorkerConfig{"bob": {HourlyRate: &thirty}},
	})

	f.addLog(t, timer.Log{UserID: "alice", Workflow: timer.WorkflowProduction, RefID: "cut", OrderID: "o1", DurationMinutes: 60, CompletedAt: t0})
	f.addLog(t, timer.Log{UserID: "bob", Workflow: timer.WorkflowProduction, RefID: "cut", OrderID: "o1", DurationMinutes: 60, CompletedAt: t0})

	got, err := f.agg.ByOrder("o1", 0)
	require.NoError(t, err)
	assert.InDelta(t, 50, got.LaborCost, 1e-9, "each entry is costed at its worker's rate")
}

// Reports are never cached: an administrative correction is visible on the
// very next aggregation.
func TestCorrectionReflectedImmediately(t *testing.T) {
	f := newFixture(t, config.Config{HourlyRate: 20})
	ctrl := controller.New(f.store)

	id := f.addLog(t, timer.Log{UserID: "alice", Workflow: timer.WorkflowProduction, RefID: "cut", DurationMinutes: 60, ItemsProcessed: 10, CompletedAt: t0})

	before, err := f.agg.ByUserDate("alice", t0.Add(-time.Hour), t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, before, 1)
	assert.Equal(t, 60.0, before[0].Minutes)

	fixed := 45.0
	_, err = ctrl.CorrectLog(id, controller.LogCorrection{DurationMinutes: &fixed}, controller.RoleAdmin, t0.Add(2*time.Hour))
	require.NoError(t, err)

	after, err := f.agg.ByUserDate("alice", t0.Add(-time.Hour), t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, 45.0, after[0].Minutes)
	assert.InDelta(t, 15, after[0].LaborCost, 1e-9)
}
