package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// HealthHandler exposes liveness/readiness probes.
type HealthHandler struct{}

// NewHealthHandler constructs handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Live GET /health/live.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready GET /health/ready.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
