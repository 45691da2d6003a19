package api

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mesworks/floortimer/internal/controller"
	"github.com/mesworks/floortimer/internal/timecalc"
	"github.com/mesworks/floortimer/internal/timer"
)

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "time": time.Now().UTC()})
}

type startRequest struct {
	UserID   string `json:"user_id"`
	Workflow string `json:"workflow"`
	RefID    string `json:"ref_id"`
	OrderID  string `json:"order_id"`
}

func (s *Server) handleStart(c *fiber.Ctx) error {
	var req startRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fmt.Errorf("%w: %v", timer.ErrInvalidState, err))
	}
	sess, err := s.ctrl.Start(req.UserID, timer.WorkContext{
		Workflow: timer.Workflow(req.Workflow),
		RefID:    req.RefID,
		OrderID:  req.OrderID,
	}, time.Time{})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sess)
}

func (s *Server) handlePause(c *fiber.Ctx) error {
	sess, err := s.ctrl.Pause(c.Params("id"), time.Time{})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(sess)
}

func (s *Server) handleResume(c *fiber.Ctx) error {
	sess, err := s.ctrl.Resume(c.Params("id"), time.Time{})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(sess)
}

type countersRequest struct {
	ItemsProcessed  *int `json:"items_processed"`
	OrdersProcessed *int `json:"orders_processed"`
}

func (r countersRequest) values() (int, int) {
	items, orders := -1, -1
	if r.ItemsProcessed != nil {
		items = *r.ItemsProcessed
	}
	if r.OrdersProcessed != nil {
		orders = *r.OrdersProcessed
	}
	return items, orders
}

func (s *Server) handleStop(c *fiber.Ctx) error {
	var req countersRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fail(c, fmt.Errorf("%w: %v", timer.ErrInvalidState, err))
		}
	}
	items, orders := req.values()
	entry, err := s.ctrl.Stop(c.Params("id"), items, orders, time.Time{})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(entry)
}

func (s *Server) handleCounters(c *fiber.Ctx) error {
	var req countersRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fmt.Errorf("%w: %v", timer.ErrInvalidState, err))
	}
	items, orders := req.values()
	sess, err := s.ctrl.UpdateCounters(c.Params("id"), items, orders, time.Time{})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(sess)
}

func (s *Server) handleActive(c *fiber.Ctx) error {
	sess, err := s.ctrl.Active(c.Params("user"))
	if err != nil {
		return fail(c, err)
	}
	if sess == nil {
		return c.Status(fiber.StatusNoContent).Send(nil)
	}
	now := time.Now().UTC()
	elapsed, _ := timecalc.Elapsed(sess, now)
	return c.JSON(fiber.Map{
		"session":         sess,
		"elapsed_minutes": timecalc.RoundMinutes(elapsed),
		"as_of":           now,
	})
}

func (s *Server) handleDailyHours(c *fiber.Ctx) error {
	now := time.Now().UTC()
	date := now
	if q := c.Query("date"); q != "" {
		parsed, err := time.Parse("2006-01-02", q)
		if err != nil {
			return fail(c, fmt.Errorf("%w: bad date %q", timer.ErrInvalidState, q))
		}
		date = parsed
	}
	minutes, err := s.guard.DailyMinutesOn(c.Params("user"), date, now)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"user_id": c.Params("user"),
		"day":     timecalc.Day(date),
		"minutes": timecalc.RoundMinutes(minutes),
		"hours":   math.Round(minutes/60*100) / 100,
	})
}

func (s *Server) handleWarning(c *fiber.Ctx) error {
	now := time.Now().UTC()
	w, err := s.guard.ActiveWarning(c.Params("user"), now)
	if err != nil {
		return fail(c, err)
	}
	if w == nil {
		return c.Status(fiber.StatusNoContent).Send(nil)
	}
	remaining := w.Deadline.Sub(now).Seconds()
	if remaining < 0 {
		remaining = 0
	}
	return c.JSON(fiber.Map{
		"warning":           w,
		"seconds_remaining": int(remaining),
	})
}

type ackRequest struct {
	UserID     string `json:"user_id"`
	Resolution string `json:"resolution"`
}

func (s *Server) handleAcknowledge(c *fiber.Ctx) error {
	var req ackRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fmt.Errorf("%w: %v", timer.ErrInvalidState, err))
	}
	w, err := s.guard.Acknowledge(req.UserID, req.Resolution, time.Time{})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(w)
}

func (s *Server) handleSaveAll(c *fiber.Ctx) error {
	count, err := s.rec.SaveAll(c.Params("user"), time.Time{})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"saved": count})
}

func (s *Server) handleRecoveryCheck(c *fiber.Ctx) error {
	snaps, err := s.rec.Check(c.Params("user"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"snapshots": snaps})
}

func (s *Server) handleRestore(c *fiber.Ctx) error {
	sess, err := s.rec.Restore(c.Params("id"), time.Time{})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(sess)
}

func (s *Server) handleDiscard(c *fiber.Ctx) error {
	if err := s.rec.Discard(c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusNoContent).Send(nil)
}

func (s *Server) handleDiscardAll(c *fiber.Ctx) error {
	count, err := s.rec.DiscardAll(c.Params("user"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"discarded": count})
}

type manualLogRequest struct {
	UserID          string  `json:"user_id"`
	Workflow        string  `json:"workflow"`
	RefID           string  `json:"ref_id"`
	OrderID         string  `json:"order_id"`
	DurationMinutes float64 `json:"duration_minutes"`
	ItemsProcessed  int     `json:"items_processed"`
	OrdersProcessed int     `json:"orders_processed"`
	StartedAt       string  `json:"started_at"`
	CompletedAt     string  `json:"completed_at"`
}

func (s *Server) handleManualLog(c *fiber.Ctx) error {
	var req manualLogRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fmt.Errorf("%w: %v", timer.ErrInvalidState, err))
	}
	started, err := parseOptionalTime(req.StartedAt)
	if err != nil {
		return fail(c, err)
	}
	completed, err := parseOptionalTime(req.CompletedAt)
	if err != nil {
		return fail(c, err)
	}
	entry, err := s.ctrl.AddManualLog(req.UserID, timer.WorkContext{
		Workflow: timer.Workflow(req.Workflow),
		RefID:    req.RefID,
		OrderID:  req.OrderID,
	}, req.DurationMinutes, req.ItemsProcessed, req.OrdersProcessed, started, completed, c.Get("X-Role"))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

type correctionRequest struct {
	DurationMinutes *float64 `json:"duration_minutes"`
	ItemsProcessed  *int     `json:"items_processed"`
	AdminNotes      *string  `json:"admin_notes"`
}

func (s *Server) handleCorrectLog(c *fiber.Ctx) error {
	var req correctionRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fmt.Errorf("%w: %v", timer.ErrInvalidState, err))
	}
	entry, err := s.ctrl.CorrectLog(c.Params("id"), controller.LogCorrection{
		DurationMinutes: req.DurationMinutes,
		ItemsProcessed:  req.ItemsProcessed,
		AdminNotes:      req.AdminNotes,
	}, c.Get("X-Role"), time.Time{})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(entry)
}

func (s *Server) handleReportUserDate(c *fiber.Ctx) error {
	from, to, err := parseRange(c)
	if err != nil {
		return fail(c, err)
	}
	rollups, err := s.rep.ByUserDate(c.Query("user"), from, to)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"rollups": rollups})
}

func (s *Server) handleReportStage(c *fiber.Ctx) error {
	from, to, err := parseRange(c)
	if err != nil {
		return fail(c, err)
	}
	workflow := timer.Workflow(c.Query("workflow", string(timer.WorkflowProduction)))
	if !workflow.Valid() {
		return fail(c, fmt.Errorf("%w: unknown workflow %q", timer.ErrInvalidState, workflow))
	}
	rollups, err := s.rep.ByStage(workflow, from, to)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"rollups": rollups})
}

func (s *Server) handleReportBatch(c *fiber.Ctx) error {
	from, to, err := parseRange(c)
	if err != nil {
		return fail(c, err)
	}
	rollups, err := s.rep.ByBatch(from, to)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"rollups": rollups})
}

func (s *Server) handleReportOrder(c *fiber.Ctx) error {
	var orderTotal float64
	if q := c.Query("order_total"); q != "" {
		parsed, err := strconv.ParseFloat(q, 64)
		if err != nil {
			return fail(c, fmt.Errorf("%w: bad order_total %q", timer.ErrInvalidState, q))
		}
		orderTotal = parsed
	}
	rollup, err := s.rep.ByOrder(c.Params("id"), orderTotal)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(rollup)
}

func parseOptionalTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad timestamp %q", timer.ErrInvalidState, v)
	}
	return t.UTC(), nil
}

func parseRange(c *fiber.Ctx) (time.Time, time.Time, error) {
	var from, to time.Time
	if q := c.Query("from"); q != "" {
		parsed, err := time.Parse("2006-01-02", q)
		if err != nil {
			return from, to, fmt.Errorf("%w: bad from date %q", timer.ErrInvalidState, q)
		}
		from = timecalc.StartOfDay(parsed)
	}
	if q := c.Query("to"); q != "" {
		parsed, err := time.Parse("2006-01-02", q)
		if err != nil {
			return from, to, fmt.Errorf("%w: bad to date %q", timer.ErrInvalidState, q)
		}
		to = timecalc.EndOfDay(parsed)
	}
	return from, to, nil
}
