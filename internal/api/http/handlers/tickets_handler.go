package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-support/internal/api/dto"
	"github.com/spec-kit/campus-support/internal/auth"
	"github.com/spec-kit/campus-support/internal/service"
	"github.com/spec-kit/campus-support/internal/tat"
	apperrors "github.com/spec-kit/campus-support/pkg/util/errorutil"
)

// TicketsHandler exposes ticket TAT and escalation endpoints.
type TicketsHandler struct {
	tickets     *service.TicketService
	escalations *service.EscalationService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, escalations *service.EscalationService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, escalations: escalations}
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}
	ticket, err := h.tickets.UpdateTicketStatus(c.UserContext(), c.Params("id"), req.Status, principal.UserID, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Escalate POST /tickets/:id/escalate.
func (h *TicketsHandler) Escalate(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.EscalateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	ticket, err := h.escalations.EscalateManually(c.UserContext(), c.Params("id"), principal.UserID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ExtendTAT POST /tickets/:id/tat-extensions.
func (h *TicketsHandler) ExtendTAT(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ExtendTATRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	hours, err := extensionHours(req)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.ExtendTAT(c.UserContext(), c.Params("id"), principal.UserID, hours, req.Reason)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Reopen POST /tickets/:id/reopen.
func (h *TicketsHandler) Reopen(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ReopenRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	ticket, err := h.tickets.ReopenTicket(c.UserContext(), c.Params("id"), principal.UserID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// SubmitFeedback POST /tickets/:id/feedback.
func (h *TicketsHandler) SubmitFeedback(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	feedback, err := h.tickets.SubmitFeedback(c.UserContext(), c.Params("id"), principal.UserID, req.Rating, req.Text)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewFeedbackResponse(feedback)})
}

func extensionHours(req dto.ExtendTATRequest) (float64, error) {
	if req.Hours != nil {
		return *req.Hours, nil
	}
	if strings.TrimSpace(req.TAT) == "" {
		return 0, apperrors.NewValidationError("hours or tat required", nil)
	}
	hours, err := tat.ParseTAT(req.TAT)
	if err != nil {
		return 0, apperrors.NewValidationError(err.Error(), map[string]any{"tat": req.TAT})
	}
	return hours, nil
}

func requirePrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.UserID == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}
