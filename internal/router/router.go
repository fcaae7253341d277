package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/habitloop/habitloop-api/internal/config"
	"github.com/habitloop/habitloop-api/internal/handler"
	"github.com/habitloop/habitloop-api/internal/middleware"
	"github.com/habitloop/habitloop-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	CheckInHandler    *handler.CheckInHandler
	ValidationHandler *handler.ValidationHandler
	FeedbackHandler   *handler.FeedbackHandler
	InsightHandler    *handler.InsightHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Check-ins
	if deps.CheckInHandler != nil {
		checkins := api.Group("/checkins", jwtMiddleware)
		deps.CheckInHandler.Register(checkins)
	}

	// AI validation; model calls are expensive, so the group is rate limited.
	if deps.ValidationHandler != nil {
		ai := api.Group("/ai", jwtMiddleware, middleware.RateLimit("ai", 30, time.Minute))
		deps.ValidationHandler.Register(ai)

		admin := ai.Group("/admin", middleware.RequireRole("admin"))
		deps.ValidationHandler.RegisterAdmin(admin)
	}

	// Feedback on AI outcomes
	if deps.FeedbackHandler != nil {
		feedback := api.Group("/ai/feedback", jwtMiddleware)
		deps.FeedbackHandler.Register(feedback)
	}

	// Weekly insights
	if deps.InsightHandler != nil {
		insights := api.Group("/insights", jwtMiddleware)
		deps.InsightHandler.Register(insights)
	}
}
