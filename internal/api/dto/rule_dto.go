package dto

import (
	"time"

	"github.com/spec-kit/campus-support/internal/domain"
)

// RuleRequest payload for creating or replacing an escalation rule.
type RuleRequest struct {
	DomainID         *string `json:"domain_id"`
	ScopeID          *string `json:"scope_id"`
	Level            int     `json:"level"`
	EscalateToUserID *string `json:"escalate_to_user_id"`
	IsActive         *bool   `json:"is_active"`
}

// RuleResponse describes an escalation rule.
type RuleResponse struct {
	ID               string    `json:"id"`
	DomainID         *string   `json:"domain_id"`
	ScopeID          *string   `json:"scope_id"`
	Level            int       `json:"level"`
	EscalateToUserID *string   `json:"escalate_to_user_id"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewRuleResponse maps a rule.
func NewRuleResponse(r *domain.EscalationRule) RuleResponse {
	return RuleResponse{
		ID:               r.ID,
		DomainID:         r.DomainID,
		ScopeID:          r.ScopeID,
		Level:            r.Level,
		EscalateToUserID: r.EscalateToUserID,
		IsActive:         r.IsActive,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}
