package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/campus-support/internal/api/http/handlers"
	"github.com/spec-kit/campus-support/internal/auth"
	"github.com/spec-kit/campus-support/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Tickets         *handlers.TicketsHandler
	EscalationRules *handlers.EscalationRulesHandler
	Sweep           *handlers.SweepHandler
	AuthMiddleware  *auth.AuthMiddleware
	Metrics         *observability.Metrics
	CronSecret      string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	internal := app.Group("/internal", auth.RequireCronSecret(cfg.CronSecret))
	internal.Post("/cron/escalations", cfg.Sweep.Run)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	tickets.Patch("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/escalate", cfg.Tickets.Escalate)
	tickets.Post("/:id/tat-extensions", cfg.Tickets.ExtendTAT)
	tickets.Post("/:id/reopen", cfg.Tickets.Reopen)
	tickets.Post("/:id/feedback", cfg.Tickets.SubmitFeedback)

	rules := app.Group("/escalation-rules", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	rules.Get("/", cfg.EscalationRules.List)
	rules.Post("/", cfg.EscalationRules.Create)
	rules.Put("/:id", cfg.EscalationRules.Update)
	rules.Delete("/:id", cfg.EscalationRules.Deactivate)
}
