package timer

import (
	"fmt"
	"time"
)

// Workflow identifies which kind of floor work a session is timed against.
type Workflow string

const (
	WorkflowProduction  Workflow = "production"
	WorkflowFulfillment Workflow = "fulfillment"
	WorkflowBatch       Workflow = "batch"
)

func (w Workflow) Valid() bool {
	switch w {
	case WorkflowProduction, WorkflowFulfillment, WorkflowBatch:
		return true
	}
	return false
}

// State is the lifecycle state of a Session. Stopped is terminal.
type State string

const (
	StateRunning State = "running"
	StatePaused  State = "paused"
	StateStopped State = "stopped"
)

// WorkContext is the tagged reference a session is timed against: exactly one
// production-stage, fulfillment-stage, or batch id, plus an optional order id
// for grouping. The ids are opaque foreign keys owned by the dashboard domain.
type WorkContext struct {
	Workflow Workflow `json:"workflow"`
	RefID    string   `json:"ref_id"`
	OrderID  string   `json:"order_id,omitempty"`
}

func (c WorkContext) Validate() error {
	if !c.Workflow.Valid() {
		return fmt.Errorf("%w: unknown workflow %q", ErrInvalidState, c.Workflow)
	}
	if c.RefID == "" {
		return fmt.Errorf("%w: missing stage or batch reference", ErrInvalidState)
	}
	return nil
}

// Session is the mutable, currently-open unit of timed work. At most one
// non-terminal Session may exist per user at any instant.
type Session struct {
	ID                 string    `json:"session_id" gorm:"primaryKey;column:id"`
	UserID             string    `json:"user_id" gorm:"index;not null"`
	Workflow           Workflow  `json:"workflow" gorm:"index"`
	RefID              string    `json:"ref_id"`
	OrderID            string    `json:"order_id"`
	State              State     `json:"state" gorm:"index"`
	StartedAt          time.Time `json:"started_at"`
	AccumulatedMinutes float64   `json:"accumulated_minutes"`
	ItemsProcessed     int       `json:"items_processed"`
	OrdersProcessed    int       `json:"orders_processed"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (s *Session) Context() WorkContext {
	return WorkContext{Workflow: s.Workflow, RefID: s.RefID, OrderID: s.OrderID}
}

func (s *Session) IsTerminal() bool {
	return s.State == StateStopped
}

// Terminal actions recorded on a Log.
const (
	ActionStopped     = "stopped"
	ActionAutoStopped = "auto_stopped"
	ActionManual      = "manual"
)

// Log is the immutable record emitted exactly once when a Session stops.
// Administrative correction may later adjust duration, items, or notes, but a
// log never re-opens into a session.
type Log struct {
	ID              string     `json:"log_id" gorm:"primaryKey;column:id"`
	SessionID       *string    `json:"session_id,omitempty" gorm:"uniqueIndex"`
	UserID          string     `json:"user_id" gorm:"index;not null"`
	Workflow        Workflow   `json:"workflow" gorm:"index"`
	RefID           string     `json:"ref_id" gorm:"index"`
	OrderID         string     `json:"order_id" gorm:"index"`
	DurationMinutes float64    `json:"duration_minutes"`
	ItemsProcessed  int        `json:"items_processed"`
	OrdersProcessed int        `json:"orders_processed"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     time.Time  `json:"completed_at" gorm:"index"`
	Action          string     `json:"action"`
	ManualEntry     bool       `json:"manual_entry"`
	EditedAt        *time.Time `json:"edited_at,omitempty"`
	AdminNotes      string     `json:"admin_notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// SeededStart carries the restored starting point for a session re-opened
// from a recovery snapshot.
type SeededStart struct {
	AccumulatedMinutes float64
	ItemsProcessed     int
	OrdersProcessed    int
	// AdoptSessionID names the snapshot's source session; when it is still the
	// worker's active session it is reset in place instead of duplicated.
	AdoptSessionID string
}

// RecoverySnapshot checkpoints an open session so it survives logout or a
// daemon crash. One-shot: consumed by restore or discard. At most one per
// workflow per user.
type RecoverySnapshot struct {
	SaveID          string    `json:"save_id" gorm:"primaryKey;column:id"`
	UserID          string    `json:"user_id" gorm:"index;not null"`
	SessionID       string    `json:"session_id"`
	Workflow        Workflow  `json:"workflow"`
	RefID           string    `json:"ref_id"`
	OrderID         string    `json:"order_id"`
	ElapsedMinutes  float64   `json:"elapsed_minutes"`
	ItemsProcessed  int       `json:"items_processed"`
	OrdersProcessed int       `json:"orders_processed"`
	SavedAt         time.Time `json:"saved_at"`
}

func (s *RecoverySnapshot) Context() WorkContext {
	return WorkContext{Workflow: s.Workflow, RefID: s.RefID, OrderID: s.OrderID}
}

// Warning resolutions.
const (
	ResolutionContinue = "continue"
	ResolutionStop     = "stop"
	ResolutionForced   = "forced"
)

// LimitWarning is the acknowledgement record for a daily-limit breach: one per
// user per UTC day. While Resolution is empty the countdown is live and
// Deadline is the server-anchored instant the forced stop fires.
type LimitWarning struct {
	ID         string     `json:"id" gorm:"primaryKey"`
	UserID     string     `json:"user_id" gorm:"index;not null"`
	Day        string     `json:"day" gorm:"index"` // UTC calendar date, 2006-01-02
	OpenedAt   time.Time  `json:"opened_at"`
	Deadline   time.Time  `json:"deadline"`
	Resolution string     `json:"resolution"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	LoggedOut  bool       `json:"logged_out"`
}

func (w *LimitWarning) Resolved() bool {
	return w.Resolution != ""
}
