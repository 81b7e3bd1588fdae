package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/campus-support/internal/domain"
)

// TicketRepository encapsulates ticket persistence for the TAT workflows.
type TicketRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) error
	// ListBreachCandidates returns active, unpaused tickets whose
	// acknowledgement or resolution deadline is before now, ordered by id
	// and starting after afterID. An empty afterID starts from the first.
	ListBreachCandidates(ctx context.Context, now time.Time, afterID string, limit int) ([]domain.Ticket, error)
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `id, title, status, category_id, scope_id, created_by, assigned_to,
               escalation_level, tat_extensions, reopen_count,
               acknowledgement_due_at, resolution_due_at, acknowledged_at, resolved_at, closed_at, escalated_at,
               metadata, created_at, updated_at`

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	metadata, err := json.Marshal(ticket.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	const query = `
        UPDATE tickets SET status=$1, assigned_to=$2, escalation_level=$3, tat_extensions=$4, reopen_count=$5,
            acknowledgement_due_at=$6, resolution_due_at=$7, acknowledged_at=$8, resolved_at=$9, closed_at=$10,
            escalated_at=$11, metadata=$12, updated_at=NOW()
        WHERE id=$13
        RETURNING updated_at`
	err = r.db.QueryRow(ctx, query,
		ticket.Status,
		ticket.AssignedTo,
		ticket.EscalationLevel,
		ticket.TATExtensions,
		ticket.ReopenCount,
		ticket.AcknowledgementDueAt,
		ticket.ResolutionDueAt,
		ticket.AcknowledgedAt,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.EscalatedAt,
		metadata,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
	return err
}

func (r *ticketRepository) ListBreachCandidates(ctx context.Context, now time.Time, afterID string, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 500
	}
	var after *string
	if afterID != "" {
		after = &afterID
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE status NOT IN ($1, $2, $3, $4)
          AND ((acknowledgement_due_at < $5 AND acknowledged_at IS NULL) OR resolution_due_at < $5)
          AND ($7::uuid IS NULL OR id > $7::uuid)
        ORDER BY id
        LIMIT $6`
	rows, err := r.db.Query(ctx, query,
		domain.TicketStatusResolved,
		domain.TicketStatusClosed,
		domain.TicketStatusCancelled,
		domain.TicketStatusAwaitingStudentResponse,
		now,
		limit,
		after,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	return scanTicket(r.db.QueryRow(ctx, query, arg))
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket   domain.Ticket
		metadata []byte
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Status,
		&ticket.CategoryID,
		&ticket.ScopeID,
		&ticket.CreatedBy,
		&ticket.AssignedTo,
		&ticket.EscalationLevel,
		&ticket.TATExtensions,
		&ticket.ReopenCount,
		&ticket.AcknowledgementDueAt,
		&ticket.ResolutionDueAt,
		&ticket.AcknowledgedAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.EscalatedAt,
		&metadata,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &ticket.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for ticket %s: %w", ticket.ID, err)
		}
	}
	return &ticket, nil
}
