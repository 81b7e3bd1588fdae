package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicate is returned when an insert or update violates a uniqueness
// constraint.
var ErrDuplicate = errors.New("duplicate record")

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories bundles every repository bound to the same connection or
// transaction.
type Repositories struct {
	Tickets    TicketRepository
	Activities TicketActivityRepository
	Rules      EscalationRuleRepository
	Categories CategoryRepository
	Feedback   FeedbackRepository
	Users      UserRepository
}

// UnitOfWork runs a set of repository calls atomically.
type UnitOfWork interface {
	// Repositories returns repositories outside any transaction.
	Repositories() Repositories
	// WithinTx commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// Store is the Postgres-backed UnitOfWork.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore builds a store over pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// NewRepositories binds all repositories to db.
func NewRepositories(db DBTX) Repositories {
	return Repositories{
		Tickets:    NewTicketRepository(db),
		Activities: NewTicketActivityRepository(db),
		Rules:      NewEscalationRuleRepository(db),
		Categories: NewCategoryRepository(db),
		Feedback:   NewFeedbackRepository(db),
		Users:      NewUserRepository(db),
	}
}

func (s *Store) Repositories() Repositories {
	return NewRepositories(s.pool)
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewRepositories(tx))
	})
}

func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}
