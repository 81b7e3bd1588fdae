package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/campus-support/internal/domain"
)

// RuleFilter narrows rule listings.
type RuleFilter struct {
	DomainID   *string
	ScopeID    *string
	Level      *int
	ActiveOnly bool
	Limit      int
	Offset     int
}

// EscalationRuleRepository manages escalation rules.
type EscalationRuleRepository interface {
	Create(ctx context.Context, rule *domain.EscalationRule) error
	Update(ctx context.Context, rule *domain.EscalationRule) error
	GetByID(ctx context.Context, id string) (*domain.EscalationRule, error)
	List(ctx context.Context, filter RuleFilter) ([]domain.EscalationRule, error)
	// ListActiveCandidates returns active rules at level whose domain and
	// scope are either null or equal to the given values.
	ListActiveCandidates(ctx context.Context, domainID string, scopeID *string, level int) ([]domain.EscalationRule, error)
}

type escalationRuleRepository struct {
	db DBTX
}

// NewEscalationRuleRepository builds the repository.
func NewEscalationRuleRepository(db DBTX) EscalationRuleRepository {
	return &escalationRuleRepository{db: db}
}

const ruleColumns = `id, domain_id, scope_id, level, escalate_to_user_id, is_active, created_at, updated_at`

func (r *escalationRuleRepository) Create(ctx context.Context, rule *domain.EscalationRule) error {
	const query = `
        INSERT INTO escalation_rules (domain_id, scope_id, level, escalate_to_user_id, is_active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		rule.DomainID,
		rule.ScopeID,
		rule.Level,
		rule.EscalateToUserID,
		rule.IsActive,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
	return translateError(err)
}

func (r *escalationRuleRepository) Update(ctx context.Context, rule *domain.EscalationRule) error {
	const query = `
        UPDATE escalation_rules SET domain_id=$1, scope_id=$2, level=$3, escalate_to_user_id=$4,
            is_active=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	err := r.db.QueryRow(ctx, query,
		rule.DomainID,
		rule.ScopeID,
		rule.Level,
		rule.EscalateToUserID,
		rule.IsActive,
		rule.ID,
	).Scan(&rule.UpdatedAt)
	return translateError(err)
}

func (r *escalationRuleRepository) GetByID(ctx context.Context, id string) (*domain.EscalationRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM escalation_rules WHERE id=$1`
	return scanRule(r.db.QueryRow(ctx, query, id))
}

func (r *escalationRuleRepository) List(ctx context.Context, filter RuleFilter) ([]domain.EscalationRule, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.DomainID != nil {
		args = append(args, *filter.DomainID)
		clauses = append(clauses, fmt.Sprintf("domain_id=$%d", len(args)))
	}
	if filter.ScopeID != nil {
		args = append(args, *filter.ScopeID)
		clauses = append(clauses, fmt.Sprintf("scope_id=$%d", len(args)))
	}
	if filter.Level != nil {
		args = append(args, *filter.Level)
		clauses = append(clauses, fmt.Sprintf("level=$%d", len(args)))
	}
	if filter.ActiveOnly {
		clauses = append(clauses, "is_active = TRUE")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM escalation_rules WHERE %s ORDER BY level ASC, created_at ASC LIMIT %d OFFSET %d`,
		ruleColumns, strings.Join(clauses, " AND "), limit, offset)
	return r.queryRules(ctx, query, args...)
}

func (r *escalationRuleRepository) ListActiveCandidates(ctx context.Context, domainID string, scopeID *string, level int) ([]domain.EscalationRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM escalation_rules
        WHERE is_active = TRUE AND level=$1
          AND (domain_id IS NULL OR domain_id=$2)
          AND (scope_id IS NULL OR scope_id=$3)
        ORDER BY level ASC, id ASC`
	return r.queryRules(ctx, query, level, domainID, scopeID)
}

func (r *escalationRuleRepository) queryRules(ctx context.Context, query string, args ...any) ([]domain.EscalationRule, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.EscalationRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rule)
	}
	return result, rows.Err()
}

func scanRule(row pgx.Row) (*domain.EscalationRule, error) {
	var rule domain.EscalationRule
	if err := row.Scan(
		&rule.ID,
		&rule.DomainID,
		&rule.ScopeID,
		&rule.Level,
		&rule.EscalateToUserID,
		&rule.IsActive,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &rule, nil
}
