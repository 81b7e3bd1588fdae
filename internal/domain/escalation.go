package domain

import "time"

// EscalationRule maps a (domain, scope, level) tuple to the owner a ticket is
// handed to when it reaches that level. Nil DomainID or ScopeID match any.
type EscalationRule struct {
	ID               string
	DomainID         *string
	ScopeID          *string
	Level            int
	EscalateToUserID *string
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// EscalationTrigger names what caused an escalation.
type EscalationTrigger string

const (
	TriggerAcknowledgementBreach EscalationTrigger = "ack_breach"
	TriggerResolutionBreach      EscalationTrigger = "resolution_breach"
	TriggerTATExtension          EscalationTrigger = "tat_extension"
	TriggerReopen                EscalationTrigger = "reopen"
	TriggerNegativeFeedback      EscalationTrigger = "negative_feedback"
	TriggerManual                EscalationTrigger = "manual"
)
