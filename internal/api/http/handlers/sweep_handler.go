package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-support/internal/service"
)

// SweepHandler lets the external scheduler trigger the escalation sweep.
type SweepHandler struct {
	sweep *service.SweepService
}

// NewSweepHandler constructs handler.
func NewSweepHandler(sweep *service.SweepService) *SweepHandler {
	return &SweepHandler{sweep: sweep}
}

// Run POST /internal/cron/escalations.
func (h *SweepHandler) Run(c *fiber.Ctx) error {
	report, err := h.sweep.RunEscalationSweep(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}
