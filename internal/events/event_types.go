package events

import (
	"time"

	"github.com/spec-kit/campus-support/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketEscalated     EventType = "escalated"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTATExtended         EventType = "tat_extended"
	EventTicketReopened      EventType = "ticket_reopened"
	EventFeedbackSubmitted   EventType = "feedback_submitted"
)

// Actor identifies who caused an event. A nil UserID means the system (for
// example the periodic sweep).
type Actor struct {
	UserID *string `json:"user_id,omitempty"`
	System bool    `json:"system,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"event"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	Level             int                      `json:"level"`
	PreviousLevel     int                      `json:"previous_level"`
	Reason            string                   `json:"reason"`
	Trigger           domain.EscalationTrigger `json:"trigger"`
	RuleID            *string                  `json:"rule_id,omitempty"`
	EscalatedToUserID *string                  `json:"escalated_to_user_id,omitempty"`
	PreviousOwnerID   *string                  `json:"previous_owner_id,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TATExtendedPayload payload.
type TATExtendedPayload struct {
	Hours           float64    `json:"hours"`
	Reason          string     `json:"reason"`
	ExtensionCount  int        `json:"extension_count"`
	ResolutionDueAt *time.Time `json:"resolution_due_at,omitempty"`
}

// TicketReopenedPayload payload.
type TicketReopenedPayload struct {
	Reason      string `json:"reason"`
	ReopenCount int    `json:"reopen_count"`
}

// FeedbackSubmittedPayload payload.
type FeedbackSubmittedPayload struct {
	FeedbackID string `json:"feedback_id"`
	Rating     int    `json:"rating"`
}
