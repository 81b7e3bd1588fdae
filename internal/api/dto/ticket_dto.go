package dto

import (
	"time"

	"github.com/spec-kit/campus-support/internal/domain"
)

// UpdateStatusRequest payload for PATCH /tickets/:id/status.
type UpdateStatusRequest struct {
	Status  domain.TicketStatus `json:"status"`
	Comment string              `json:"comment"`
}

// EscalateRequest payload for POST /tickets/:id/escalate.
type EscalateRequest struct {
	Reason string `json:"reason"`
}

// ExtendTATRequest payload for POST /tickets/:id/tat-extensions. Either
// Hours or a TAT string such as "2 days" must be given.
type ExtendTATRequest struct {
	Hours  *float64 `json:"hours"`
	TAT    string   `json:"tat"`
	Reason string   `json:"reason"`
}

// ReopenRequest payload for POST /tickets/:id/reopen.
type ReopenRequest struct {
	Reason string `json:"reason"`
}

// FeedbackRequest payload for POST /tickets/:id/feedback.
type FeedbackRequest struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

// TATPauseResponse describes a frozen resolution clock.
type TATPauseResponse struct {
	PausedAt       time.Time           `json:"paused_at"`
	RemainingHours float64             `json:"remaining_hours"`
	PausedFrom     domain.TicketStatus `json:"paused_from"`
}

// TicketResponse is the TAT view of a ticket.
type TicketResponse struct {
	ID                   string              `json:"id"`
	Title                string              `json:"title"`
	Status               domain.TicketStatus `json:"status"`
	CategoryID           string              `json:"category_id"`
	ScopeID              *string             `json:"scope_id"`
	CreatedBy            string              `json:"created_by"`
	AssignedTo           *string             `json:"assigned_to"`
	EscalationLevel      int                 `json:"escalation_level"`
	TATExtensions        int                 `json:"tat_extensions"`
	ReopenCount          int                 `json:"reopen_count"`
	AcknowledgementDueAt *time.Time          `json:"acknowledgement_due_at"`
	ResolutionDueAt      *time.Time          `json:"resolution_due_at"`
	AcknowledgedAt       *time.Time          `json:"acknowledged_at"`
	ResolvedAt           *time.Time          `json:"resolved_at"`
	ClosedAt             *time.Time          `json:"closed_at"`
	EscalatedAt          *time.Time          `json:"escalated_at"`
	TATPause             *TATPauseResponse   `json:"tat_pause,omitempty"`
	PreviousAssignedTo   []string            `json:"previous_assigned_to,omitempty"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// FeedbackResponse describes stored feedback.
type FeedbackResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:                   t.ID,
		Title:                t.Title,
		Status:               t.Status,
		CategoryID:           t.CategoryID,
		ScopeID:              t.ScopeID,
		CreatedBy:            t.CreatedBy,
		AssignedTo:           t.AssignedTo,
		EscalationLevel:      t.EscalationLevel,
		TATExtensions:        t.TATExtensions,
		ReopenCount:          t.ReopenCount,
		AcknowledgementDueAt: t.AcknowledgementDueAt,
		ResolutionDueAt:      t.ResolutionDueAt,
		AcknowledgedAt:       t.AcknowledgedAt,
		ResolvedAt:           t.ResolvedAt,
		ClosedAt:             t.ClosedAt,
		EscalatedAt:          t.EscalatedAt,
		PreviousAssignedTo:   t.Metadata.PreviousAssignedTo,
		UpdatedAt:            t.UpdatedAt,
	}
	if p := t.Metadata.TATPause; p != nil {
		resp.TATPause = &TATPauseResponse{PausedAt: p.PausedAt, RemainingHours: p.RemainingHours, PausedFrom: p.PausedFrom}
	}
	return resp
}

// NewFeedbackResponse maps feedback.
func NewFeedbackResponse(f *domain.Feedback) FeedbackResponse {
	return FeedbackResponse{ID: f.ID, TicketID: f.TicketID, Rating: f.Rating, Text: f.Text, CreatedAt: f.CreatedAt}
}
