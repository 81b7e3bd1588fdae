package domain

import "time"

// ActivityAction captures what an activity entry records.
type ActivityAction string

const (
	ActivityEscalated         ActivityAction = "escalated"
	ActivityStatusChanged     ActivityAction = "status_changed"
	ActivityTATExtended       ActivityAction = "tat_extended"
	ActivityReopened          ActivityAction = "reopened"
	ActivityFeedbackSubmitted ActivityAction = "feedback_submitted"
)

// TicketActivity is an immutable audit trail entry. Escalation entries fill
// the level, rule and destination fields; other actions use Details.
type TicketActivity struct {
	ID                string
	TicketID          string
	UserID            *string
	Action            ActivityAction
	Reason            string
	EscalationLevel   *int
	PreviousLevel     *int
	EscalatedToUserID *string
	RuleID            *string
	Details           map[string]any
	CreatedAt         time.Time
}
