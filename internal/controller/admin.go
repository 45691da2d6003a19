package controller

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/mesworks/floortimer/internal/timecalc"
	"github.com/mesworks/floortimer/internal/timer"
)

// RoleAdmin is required for log corrections and manual entries.
const RoleAdmin = "admin"

// LogCorrection carries the fields an administrator may adjust on a finalized
// log. Nil fields are left untouched. A correction never re-opens a session.
type LogCorrection struct {
	DurationMinutes *float64
	ItemsProcessed  *int
	AdminNotes      *string
}

// CorrectLog applies an administrative correction and stamps edited_at.
func (c *Controller) CorrectLog(logID string, corr LogCorrection, role string, now time.Time) (*timer.Log, error) {
	if role != RoleAdmin {
		return nil, fmt.Errorf("%w: log correction requires the %s role", timer.ErrPermissionDenied, RoleAdmin)
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	entry, err := c.store.GetLog(logID)
	if err != nil {
		return nil, err
	}
	if corr.DurationMinutes != nil {
		d := *corr.DurationMinutes
		if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return nil, fmt.Errorf("%w: corrected duration %v is not a valid minute count", timer.ErrInvalidState, d)
		}
		entry.DurationMinutes = timecalc.RoundMinutes(d)
	}
	if corr.ItemsProcessed != nil {
		if *corr.ItemsProcessed < 0 {
			return nil, fmt.Errorf("%w: corrected items %d is negative", timer.ErrInvalidState, *corr.ItemsProcessed)
		}
		entry.ItemsProcessed = *corr.ItemsProcessed
	}
	if corr.AdminNotes != nil {
		entry.AdminNotes = *corr.AdminNotes
	}
	entry.EditedAt = &now
	if err := c.store.SaveLog(entry); err != nil {
		return nil, err
	}
	log.Printf("log %s corrected by admin", entry.ID)
	return entry, nil
}

// AddManualLog books a log for a session that was never timed, e.g. a worker
// who forgot to start the clock. Manual entries carry no session and are
// flagged as such for reporting.
func (c *Controller) AddManualLog(userID string, wctx timer.WorkContext, durationMinutes float64, items, orders int, startedAt, completedAt time.Time, role string) (*timer.Log, error) {
	if role != RoleAdmin {
		return nil, fmt.Errorf("%w: manual entry requires the %s role", timer.ErrPermissionDenied, RoleAdmin)
	}
	if err := wctx.Validate(); err != nil {
		return nil, err
	}
	if durationMinutes < 0 || math.IsNaN(durationMinutes) || math.IsInf(durationMinutes, 0) {
		return nil, fmt.Errorf("%w: manual duration %v is not a valid minute count", timer.ErrInvalidState, durationMinutes)
	}
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}
	if startedAt.IsZero() {
		startedAt = completedAt.Add(-time.Duration(durationMinutes * float64(time.Minute)))
	}
	if items < 0 {
		items = 0
	}
	if orders < 0 {
		orders = 0
	}

	entry := &timer.Log{
		ID:              uuid.NewString(),
		UserID:          userID,
		Workflow:        wctx.Workflow,
		RefID:           wctx.RefID,
		OrderID:         wctx.OrderID,
		DurationMinutes: timecalc.RoundMinutes(durationMinutes),
		ItemsProcessed:  items,
		OrdersProcessed: orders,
		StartedAt:       startedAt,
		CompletedAt:     completedAt,
		Action:          timer.ActionManual,
		ManualEntry:     true,
	}
	if err := c.store.CreateLog(entry); err != nil {
		return nil, err
	}
	log.Printf("manual log %s booked for %s: %.2fm", entry.ID, userID, entry.DurationMinutes)
	return entry, nil
}
