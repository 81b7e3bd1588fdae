package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/campus-support/internal/domain"
	"github.com/spec-kit/campus-support/internal/repository"
	apperrors "github.com/spec-kit/campus-support/pkg/util/errorutil"
)

// RuleInput is the editable part of an escalation rule.
type RuleInput struct {
	DomainID         *string
	ScopeID          *string
	Level            int
	EscalateToUserID *string
	IsActive         *bool
}

// RuleService manages escalation rules. All operations require an admin.
type RuleService struct {
	uow    repository.UnitOfWork
	roles  RoleResolver
	logger *zap.Logger
}

// NewRuleService constructs the service.
func NewRuleService(uow repository.UnitOfWork, roles RoleResolver, logger *zap.Logger) *RuleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleService{uow: uow, roles: roles, logger: logger}
}

// ListRules returns rules matching filter ordered by level.
func (s *RuleService) ListRules(ctx context.Context, userID string, filter repository.RuleFilter) ([]domain.EscalationRule, error) {
	if err := s.requireAdmin(ctx, userID); err != nil {
		return nil, err
	}
	rules, err := s.uow.Repositories().Rules.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return rules, nil
}

// CreateRule adds a rule. A rule for the same domain, scope and level is a
// conflict.
func (s *RuleService) CreateRule(ctx context.Context, userID string, input RuleInput) (*domain.EscalationRule, error) {
	if err := s.requireAdmin(ctx, userID); err != nil {
		return nil, err
	}
	if err := validateRuleInput(input); err != nil {
		return nil, err
	}
	rule := &domain.EscalationRule{
		DomainID:         input.DomainID,
		ScopeID:          input.ScopeID,
		Level:            input.Level,
		EscalateToUserID: input.EscalateToUserID,
		IsActive:         true,
	}
	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
	}
	if err := s.uow.Repositories().Rules.Create(ctx, rule); err != nil {
		return nil, mapRuleError(err)
	}
	s.logger.Info("escalation rule created", zap.String("rule_id", rule.ID), zap.Int("level", rule.Level))
	return rule, nil
}

// UpdateRule replaces the editable fields of a rule.
func (s *RuleService) UpdateRule(ctx context.Context, userID, ruleID string, input RuleInput) (*domain.EscalationRule, error) {
	if err := s.requireAdmin(ctx, userID); err != nil {
		return nil, err
	}
	if err := validateRuleInput(input); err != nil {
		return nil, err
	}
	var updated *domain.EscalationRule
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		rule, err := repos.Rules.GetByID(ctx, ruleID)
		if err != nil {
			return err
		}
		rule.DomainID = input.DomainID
		rule.ScopeID = input.ScopeID
		rule.Level = input.Level
		rule.EscalateToUserID = input.EscalateToUserID
		if input.IsActive != nil {
			rule.IsActive = *input.IsActive
		}
		if err := repos.Rules.Update(ctx, rule); err != nil {
			return err
		}
		updated = rule
		return nil
	})
	if err != nil {
		return nil, mapRuleError(err)
	}
	return updated, nil
}

// DeactivateRule switches a rule off without deleting it.
func (s *RuleService) DeactivateRule(ctx context.Context, userID, ruleID string) (*domain.EscalationRule, error) {
	if err := s.requireAdmin(ctx, userID); err != nil {
		return nil, err
	}
	var updated *domain.EscalationRule
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		rule, err := repos.Rules.GetByID(ctx, ruleID)
		if err != nil {
			return err
		}
		rule.IsActive = false
		if err := repos.Rules.Update(ctx, rule); err != nil {
			return err
		}
		updated = rule
		return nil
	})
	if err != nil {
		return nil, mapRuleError(err)
	}
	return updated, nil
}

func (s *RuleService) requireAdmin(ctx context.Context, userID string) error {
	role, err := s.roles.GetUserRole(ctx, userID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !role.IsAdmin() {
		return apperrors.NewForbidden("only admins can manage escalation rules")
	}
	return nil
}

func validateRuleInput(input RuleInput) error {
	if input.Level < 1 {
		return apperrors.NewValidationError("level must be at least 1", map[string]any{"level": input.Level})
	}
	return nil
}

func mapRuleError(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperrors.NewConflict("an escalation rule already exists for this domain, scope and level", nil)
	}
	return apperrors.MapError(err)
}
