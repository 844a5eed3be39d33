package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/interview-sim-api/internal/config"
	"github.com/noah-isme/interview-sim-api/internal/handler"
	"github.com/noah-isme/interview-sim-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	InterviewHandler  *handler.InterviewHandler
	AudioHandler      *handler.AudioHandler
	SessionMiddleware fiber.Handler
	RateLimiter       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	sessionMiddleware := passthrough(deps.SessionMiddleware)
	rateLimiter := passthrough(deps.RateLimiter)

	if deps.InterviewHandler != nil {
		interviewGroup := api.Group("/interview", sessionMiddleware, rateLimiter)
		deps.InterviewHandler.Register(interviewGroup)
	}

	if deps.AudioHandler != nil {
		audioGroup := api.Group("/audio", sessionMiddleware, rateLimiter)
		deps.AudioHandler.Register(audioGroup)
	}
}

func passthrough(h fiber.Handler) fiber.Handler {
	if h != nil {
		return h
	}
	return func(c *fiber.Ctx) error { return c.Next() }
}
