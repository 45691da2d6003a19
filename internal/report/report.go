package report

import (
	"sort"
	"time"

	"github.com/mesworks/floortimer/internal/config"
	"github.com/mesworks/floortimer/internal/store"
	"github.com/mesworks/floortimer/internal/timecalc"
	"github.com/mesworks/floortimer/internal/timer"
)

// Aggregator produces read-only rollups over finalized logs. Every report is
// re-derived from the log table on each call, so an administrative correction
// shows up on the very next aggregation. All ratios are zero-guarded; a group
// with no minutes reports 0, never NaN or Inf.
type Aggregator struct {
	store *store.Store
	cfg   *config.Manager
}

func New(st *store.Store, cfg *config.Manager) *Aggregator {
	return &Aggregator{store: st, cfg: cfg}
}

// Rollup is one aggregation group.
type Rollup struct {
	Key          string         `json:"key"`
	UserID       string         `json:"user_id,omitempty"`
	Day          string         `json:"day,omitempty"`
	Workflow     timer.Workflow `json:"workflow,omitempty"`
	RefID        string         `json:"ref_id,omitempty"`
	OrderID      string         `json:"order_id,omitempty"`
	Entries      int            `json:"entries"`
	Minutes      float64        `json:"minutes"`
	Items        int            `json:"items"`
	Orders       int            `json:"orders"`
	ItemsPerHour float64        `json:"items_per_hour"`
	LaborCost    float64        `json:"labor_cost"`
}

// OrderRollup extends a Rollup with order-scoped cost ratios.
type OrderRollup struct {
	Rollup
	CostPerItem        float64 `json:"cost_per_item"`
	CostPercentOfOrder float64 `json:"cost_percent_of_order"`
}

func (a *Aggregator) add(r *Rollup, l *timer.Log) {
	cur := a.cfg.Current()
	rate := cur.RateFor(l.UserID)
	r.Entries++
	r.Minutes += l.DurationMinutes
	r.Items += l.ItemsProcessed
	r.Orders += l.OrdersProcessed
	r.LaborCost += l.DurationMinutes / 60 * rate
}

func (r *Rollup) finalize() {
	if r.Minutes > 0 {
		r.ItemsPerHour = float64(r.Items) / (r.Minutes / 60)
	}
	r.Minutes = timecalc.RoundMinutes(r.Minutes)
}

// ByUserDate groups logs by worker and UTC day.
func (a *Aggregator) ByUserDate(userID string, from, to time.Time) ([]Rollup, error) {
	logs, err := a.store.Logs(store.LogFilter{UserID: userID, From: from, To: to})
	if err != nil {
		return nil, err
	}
	groups := make(map[string]*Rollup)
	for i := range logs {
		l := &logs[i]
		day := timecalc.Day(l.CompletedAt)
		key := l.UserID + "/" + day
		r, ok := groups[key]
		if !ok {
			r = &Rollup{Key: key, UserID: l.UserID, Day: day}
			groups[key] = r
		}
		a.add(r, l)
	}
	return collect(groups), nil
}

// ByStage groups logs of one workflow by stage (or batch) reference.
func (a *Aggregator) ByStage(workflow timer.Workflow, from, to time.Time) ([]Rollup, error) {
	logs, err := a.store.Logs(store.LogFilter{Workflow: workflow, From: from, To: to})
	if err != nil {
		return nil, err
	}
	groups := make(map[string]*Rollup)
	for i := range logs {
		l := &logs[i]
		r, ok := groups[l.RefID]
		if !ok {
			r = &Rollup{Key: l.RefID, Workflow: workflow, RefID: l.RefID}
			groups[l.RefID] = r
		}
		a.add(r, l)
	}
	return collect(groups), nil
}

// ByBatch groups batch-workflow logs by batch id.
func (a *Aggregator) ByBatch(from, to time.Time) ([]Rollup, error) {
	return a.ByStage(timer.WorkflowBatch, from, to)
}

// ByOrder rolls up all labor booked against one order. orderTotal is the
// order's sale value, supplied by the caller since order economics live
// outside the timer core; pass 0 when unknown and the percent reports 0.
func (a *Aggregator) ByOrder(orderID string, orderTotal float64) (OrderRollup, error) {
	logs, err := a.store.Logs(store.LogFilter{OrderID: orderID})
	if err != nil {
		return OrderRollup{}, err
	}
	r := Rollup{Key: orderID, OrderID: orderID}
	for i := range logs {
		a.add(&r, &logs[i])
	}
	r.finalize()

	out := OrderRollup{Rollup: r}
	if r.Items > 0 {
		out.CostPerItem = r.LaborCost / float64(r.Items)
	}
	if orderTotal > 0 {
		out.CostPercentOfOrder = r.LaborCost / orderTotal * 100
	}
	return out, nil
}

func collect(groups map[string]*Rollup) []Rollup {
	out := make([]Rollup, 0, len(groups))
	for _, r := range groups {
		r.finalize()
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
