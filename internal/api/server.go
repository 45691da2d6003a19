package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberRecover "github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/mesworks/floortimer/internal/controller"
	"github.com/mesworks/floortimer/internal/guard"
	"github.com/mesworks/floortimer/internal/recovery"
	"github.com/mesworks/floortimer/internal/report"
	"github.com/mesworks/floortimer/internal/timer"
)

// Server exposes the timer core's command and query surface over HTTP. Auth
// is upstream: a resolved user id arrives in request bodies or paths and the
// caller's role in the X-Role header.
type Server struct {
	app   *fiber.App
	ctrl  *controller.Controller
	guard *guard.Guard
	rec   *recovery.Manager
	rep   *report.Aggregator
}

func New(ctrl *controller.Controller, g *guard.Guard, rec *recovery.Manager, rep *report.Aggregator) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "floortimer",
		DisableStartupMessage: true,
	})
	app.Use(fiberRecover.New())
	app.Use(cors.New())

	s := &Server{app: app, ctrl: ctrl, guard: g, rec: rec, rep: rep}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.app.Group("/api")

	api.Get("/status", s.handleStatus)

	api.Post("/timers/start", s.handleStart)
	api.Post("/timers/:id/pause", s.handlePause)
	api.Post("/timers/:id/resume", s.handleResume)
	api.Post("/timers/:id/stop", s.handleStop)
	api.Post("/timers/:id/counters", s.handleCounters)
	api.Get("/timers/active/:user", s.handleActive)

	api.Get("/hours/:user", s.handleDailyHours)
	api.Get("/limit/warning/:user", s.handleWarning)
	api.Post("/limit/ack", s.handleAcknowledge)

	api.Post("/recovery/save/:user", s.handleSaveAll)
	api.Get("/recovery/check/:user", s.handleRecoveryCheck)
	api.Post("/recovery/restore/:id", s.handleRestore)
	api.Delete("/recovery/user/:user", s.handleDiscardAll)
	api.Delete("/recovery/:id", s.handleDiscard)

	api.Post("/logs/manual", s.handleManualLog)
	api.Patch("/logs/:id", s.handleCorrectLog)

	api.Get("/reports/user-date", s.handleReportUserDate)
	api.Get("/reports/stage", s.handleReportStage)
	api.Get("/reports/batch", s.handleReportBatch)
	api.Get("/reports/order/:id", s.handleReportOrder)
}

// App exposes the fiber app for in-process testing.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// fail maps the core error taxonomy onto HTTP statuses. Conflicts keep their
// message so the floor UI can show "you already have an active timer" instead
// of a generic failure.
func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, timer.ErrConflict):
		status = fiber.StatusConflict
	case errors.Is(err, timer.ErrInvalidState):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, timer.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, timer.ErrPermissionDenied):
		status = fiber.StatusForbidden
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
