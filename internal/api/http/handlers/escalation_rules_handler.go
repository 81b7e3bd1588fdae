package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-support/internal/api/dto"
	"github.com/spec-kit/campus-support/internal/repository"
	"github.com/spec-kit/campus-support/internal/service"
	apperrors "github.com/spec-kit/campus-support/pkg/util/errorutil"
)

// EscalationRulesHandler exposes rule administration endpoints.
type EscalationRulesHandler struct {
	rules *service.RuleService
}

// NewEscalationRulesHandler constructs handler.
func NewEscalationRulesHandler(rules *service.RuleService) *EscalationRulesHandler {
	return &EscalationRulesHandler{rules: rules}
}

// List GET /escalation-rules.
func (h *EscalationRulesHandler) List(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	filter, err := parseRuleQuery(c)
	if err != nil {
		return err
	}
	rules, err := h.rules.ListRules(c.UserContext(), principal.UserID, filter)
	if err != nil {
		return err
	}
	items := make([]dto.RuleResponse, 0, len(rules))
	for i := range rules {
		items = append(items, dto.NewRuleResponse(&rules[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create POST /escalation-rules.
func (h *EscalationRulesHandler) Create(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.RuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	rule, err := h.rules.CreateRule(c.UserContext(), principal.UserID, ruleInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewRuleResponse(rule)})
}

// Update PUT /escalation-rules/:id.
func (h *EscalationRulesHandler) Update(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.RuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	rule, err := h.rules.UpdateRule(c.UserContext(), principal.UserID, c.Params("id"), ruleInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRuleResponse(rule)})
}

// Deactivate DELETE /escalation-rules/:id.
func (h *EscalationRulesHandler) Deactivate(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	rule, err := h.rules.DeactivateRule(c.UserContext(), principal.UserID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRuleResponse(rule)})
}

func ruleInput(req dto.RuleRequest) service.RuleInput {
	return service.RuleInput{
		DomainID:         req.DomainID,
		ScopeID:          req.ScopeID,
		Level:            req.Level,
		EscalateToUserID: req.EscalateToUserID,
		IsActive:         req.IsActive,
	}
}

func parseRuleQuery(c *fiber.Ctx) (repository.RuleFilter, error) {
	filter := repository.RuleFilter{
		Limit:  c.QueryInt("limit", 100),
		Offset: c.QueryInt("offset", 0),
	}
	if v := c.Query("domain_id"); v != "" {
		filter.DomainID = &v
	}
	if v := c.Query("scope_id"); v != "" {
		filter.ScopeID = &v
	}
	if v := c.Query("level"); v != "" {
		level, err := strconv.Atoi(v)
		if err != nil {
			return filter, apperrors.NewValidationError("level must be an integer", map[string]any{"level": v})
		}
		filter.Level = &level
	}
	filter.ActiveOnly = c.QueryBool("active", false)
	return filter, nil
}
