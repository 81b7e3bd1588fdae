package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen                    TicketStatus = "open"
	TicketStatusAcknowledged            TicketStatus = "acknowledged"
	TicketStatusInProgress              TicketStatus = "in_progress"
	TicketStatusAwaitingStudentResponse TicketStatus = "awaiting_student_response"
	TicketStatusResolved                TicketStatus = "resolved"
	TicketStatusClosed                  TicketStatus = "closed"
	TicketStatusReopened                TicketStatus = "reopened"
	TicketStatusCancelled               TicketStatus = "cancelled"
)

// IsValid reports whether s is a known status.
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusAcknowledged, TicketStatusInProgress,
		TicketStatusAwaitingStudentResponse, TicketStatusResolved, TicketStatusClosed,
		TicketStatusReopened, TicketStatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether the ticket is still being worked on.
func (s TicketStatus) IsActive() bool {
	switch s {
	case TicketStatusResolved, TicketStatusClosed, TicketStatusCancelled:
		return false
	}
	return s.IsValid()
}

// Ticket is the aggregate for support requests, reduced to the fields the
// TAT and escalation workflows touch.
type Ticket struct {
	ID                   string
	Title                string
	Status               TicketStatus
	CategoryID           string
	ScopeID              *string
	CreatedBy            string
	AssignedTo           *string
	EscalationLevel      int
	TATExtensions        int
	ReopenCount          int
	AcknowledgementDueAt *time.Time
	ResolutionDueAt      *time.Time
	AcknowledgedAt       *time.Time
	ResolvedAt           *time.Time
	ClosedAt             *time.Time
	EscalatedAt          *time.Time
	Metadata             Metadata
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsPaused reports whether the resolution clock is frozen.
func (t *Ticket) IsPaused() bool {
	return t.Metadata.TATPause != nil
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	c := *t
	c.ScopeID = cloneString(t.ScopeID)
	c.AssignedTo = cloneString(t.AssignedTo)
	c.AcknowledgementDueAt = cloneTime(t.AcknowledgementDueAt)
	c.ResolutionDueAt = cloneTime(t.ResolutionDueAt)
	c.AcknowledgedAt = cloneTime(t.AcknowledgedAt)
	c.ResolvedAt = cloneTime(t.ResolvedAt)
	c.ClosedAt = cloneTime(t.ClosedAt)
	c.EscalatedAt = cloneTime(t.EscalatedAt)
	c.Metadata = t.Metadata.Clone()
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// AcknowledgementBreached reports whether the acknowledgement deadline has
// passed without the ticket being picked up. Tickets waiting on the
// requester are exempt.
func (t *Ticket) AcknowledgementBreached(now time.Time) bool {
	if !t.Status.IsActive() || t.Status == TicketStatusAwaitingStudentResponse {
		return false
	}
	return t.AcknowledgedAt == nil && t.AcknowledgementDueAt != nil && t.AcknowledgementDueAt.Before(now)
}

// ResolutionBreached reports whether the resolution deadline has passed on
// an unresolved ticket. Tickets waiting on the requester are exempt.
func (t *Ticket) ResolutionBreached(now time.Time) bool {
	if !t.Status.IsActive() || t.Status == TicketStatusAwaitingStudentResponse {
		return false
	}
	return t.ResolutionDueAt != nil && t.ResolutionDueAt.Before(now)
}
