package repository

import (
	"context"

	"github.com/spec-kit/campus-support/internal/domain"
)

// TicketActivityRepository stores audit entries. Entries are never updated
// or deleted.
type TicketActivityRepository interface {
	Create(ctx context.Context, activity *domain.TicketActivity) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketActivity, error)
}

type ticketActivityRepository struct {
	db DBTX
}

// NewTicketActivityRepository builds repository.
func NewTicketActivityRepository(db DBTX) TicketActivityRepository {
	return &ticketActivityRepository{db: db}
}

func (r *ticketActivityRepository) Create(ctx context.Context, activity *domain.TicketActivity) error {
	details := activity.Details
	if details == nil {
		details = map[string]any{}
	}
	const query = `
        INSERT INTO ticket_activities (ticket_id, user_id, action, reason, escalation_level, previous_level,
            escalated_to_user_id, rule_id, details)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		activity.TicketID,
		activity.UserID,
		activity.Action,
		activity.Reason,
		activity.EscalationLevel,
		activity.PreviousLevel,
		activity.EscalatedToUserID,
		activity.RuleID,
		details,
	).Scan(&activity.ID, &activity.CreatedAt)
}

func (r *ticketActivityRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketActivity, error) {
	const query = `
        SELECT id, ticket_id, user_id, action, reason, escalation_level, previous_level,
               escalated_to_user_id, rule_id, details, created_at
        FROM ticket_activities WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketActivity
	for rows.Next() {
		var activity domain.TicketActivity
		if err := rows.Scan(
			&activity.ID,
			&activity.TicketID,
			&activity.UserID,
			&activity.Action,
			&activity.Reason,
			&activity.EscalationLevel,
			&activity.PreviousLevel,
			&activity.EscalatedToUserID,
			&activity.RuleID,
			&activity.Details,
			&activity.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, activity)
	}
	return result, rows.Err()
}
