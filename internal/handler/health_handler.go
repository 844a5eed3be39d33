package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/interview-sim-api/internal/config"
	"github.com/noah-isme/interview-sim-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status          string    `json:"status"`
	Timestamp       time.Time `json:"timestamp"`
	Service         string    `json:"service"`
	Environment     string    `json:"environment"`
	ChatConfigured  bool      `json:"chat_configured"`
	AudioConfigured bool      `json:"audio_storage_configured"`
}

// HealthCheck returns a handler that reports application health information.
func HealthCheck(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:          "ok",
			Timestamp:       time.Now().UTC(),
			Service:         cfg.AppName,
			Environment:     cfg.AppEnv,
			ChatConfigured:  cfg.ShapesAPIKey != "",
			AudioConfigured: cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "",
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
