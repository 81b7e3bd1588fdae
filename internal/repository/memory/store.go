// Package memory provides an in-process repository.UnitOfWork for tests and
// local tooling. Transactions are serialized by a single mutex and rolled
// back by restoring a snapshot.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/campus-support/internal/domain"
	"github.com/spec-kit/campus-support/internal/repository"
)

// Store implements repository.UnitOfWork in memory.
type Store struct {
	mu     sync.Mutex
	state  *state
	seq    int
	now    func() time.Time
	faults map[string]error
}

type state struct {
	tickets    map[string]*domain.Ticket
	rules      map[string]*domain.EscalationRule
	categories map[string]*domain.Category
	feedback   map[string]*domain.Feedback
	users      map[string]*domain.User
	activities []domain.TicketActivity
}

// Operation names accepted by FailOn.
const (
	OpTicketUpdate   = "tickets.update"
	OpActivityCreate = "activities.create"
	OpCategoryGet    = "categories.get"
	OpRuleCandidates = "rules.candidates"
	OpFeedbackCreate = "feedback.create"
)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		state: &state{
			tickets:    map[string]*domain.Ticket{},
			rules:      map[string]*domain.EscalationRule{},
			categories: map[string]*domain.Category{},
			feedback:   map[string]*domain.Feedback{},
			users:      map[string]*domain.User{},
		},
		now:    time.Now,
		faults: map[string]error{},
	}
}

// SetClock overrides the timestamps assigned to created rows.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailOn makes the named operation return err until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// PutTicket seeds or replaces a ticket.
func (s *Store) PutTicket(ticket *domain.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.tickets[ticket.ID] = ticket.Clone()
}

// PutCategory seeds or replaces a category.
func (s *Store) PutCategory(category *domain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *category
	s.state.categories[c.ID] = &c
}

// PutUser seeds or replaces a user.
func (s *Store) PutUser(user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	s.state.users[u.ID] = &u
}

// PutRule seeds or replaces a rule without uniqueness checks.
func (s *Store) PutRule(rule *domain.EscalationRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := *rule
	s.state.rules[r.ID] = &r
}

// Ticket returns a copy of the stored ticket, or nil.
func (s *Store) Ticket(id string) *domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.tickets[id].Clone()
}

// Activities returns the audit entries recorded for a ticket.
func (s *Store) Activities(ticketID string) []domain.TicketActivity {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.TicketActivity
	for _, a := range s.state.activities {
		if a.TicketID == ticketID {
			out = append(out, a)
		}
	}
	return out
}

// Repositories returns repositories that lock the store per call.
func (s *Store) Repositories() repository.Repositories {
	return s.repos(false)
}

// WithinTx runs fn with exclusive access and discards its writes on error.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.state.clone()
	seq := s.seq
	if err := fn(ctx, s.repos(true)); err != nil {
		s.state = snapshot
		s.seq = seq
		return err
	}
	return nil
}

func (s *Store) repos(inTx bool) repository.Repositories {
	return repository.Repositories{
		Tickets:    &ticketRepo{s: s, inTx: inTx},
		Activities: &activityRepo{s: s, inTx: inTx},
		Rules:      &ruleRepo{s: s, inTx: inTx},
		Categories: &categoryRepo{s: s, inTx: inTx},
		Feedback:   &feedbackRepo{s: s, inTx: inTx},
		Users:      &userRepo{s: s, inTx: inTx},
	}
}

// run executes fn under the store lock unless the caller already holds it.
func (s *Store) run(inTx bool, op string, fn func() error) error {
	if !inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	if err := s.faults[op]; err != nil && op != "" {
		return err
	}
	return fn()
}

func (s *Store) nextID(prefix string) string {
	s.seq++
	return prefix + "-" + strconv.Itoa(s.seq)
}

func (st *state) clone() *state {
	c := &state{
		tickets:    make(map[string]*domain.Ticket, len(st.tickets)),
		rules:      make(map[string]*domain.EscalationRule, len(st.rules)),
		categories: make(map[string]*domain.Category, len(st.categories)),
		feedback:   make(map[string]*domain.Feedback, len(st.feedback)),
		users:      make(map[string]*domain.User, len(st.users)),
		activities: append([]domain.TicketActivity(nil), st.activities...),
	}
	for k, v := range st.tickets {
		c.tickets[k] = v.Clone()
	}
	for k, v := range st.rules {
		r := *v
		c.rules[k] = &r
	}
	for k, v := range st.categories {
		cat := *v
		c.categories[k] = &cat
	}
	for k, v := range st.feedback {
		f := *v
		c.feedback[k] = &f
	}
	for k, v := range st.users {
		u := *v
		c.users[k] = &u
	}
	return c
}

type ticketRepo struct {
	s    *Store
	inTx bool
}

func (r *ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.s.run(r.inTx, "", func() error {
		t, ok := r.s.state.tickets[id]
		if !ok {
			return fmt.Errorf("ticket %s: %w", id, pgx.ErrNoRows)
		}
		out = t.Clone()
		return nil
	})
	return out, err
}

func (r *ticketRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	return r.s.run(r.inTx, OpTicketUpdate, func() error {
		if _, ok := r.s.state.tickets[ticket.ID]; !ok {
			return fmt.Errorf("ticket %s: %w", ticket.ID, pgx.ErrNoRows)
		}
		ticket.UpdatedAt = r.s.now()
		r.s.state.tickets[ticket.ID] = ticket.Clone()
		return nil
	})
}

func (r *ticketRepo) ListBreachCandidates(_ context.Context, now time.Time, afterID string, limit int) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.s.run(r.inTx, "", func() error {
		for _, t := range r.s.state.tickets {
			if afterID != "" && t.ID <= afterID {
				continue
			}
			if t.AcknowledgementBreached(now) || t.ResolutionBreached(now) {
				out = append(out, *t.Clone())
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

type activityRepo struct {
	s    *Store
	inTx bool
}

func (r *activityRepo) Create(_ context.Context, activity *domain.TicketActivity) error {
	return r.s.run(r.inTx, OpActivityCreate, func() error {
		activity.ID = r.s.nextID("act")
		activity.CreatedAt = r.s.now()
		r.s.state.activities = append(r.s.state.activities, *activity)
		return nil
	})
}

func (r *activityRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketActivity, error) {
	var out []domain.TicketActivity
	err := r.s.run(r.inTx, "", func() error {
		for _, a := range r.s.state.activities {
			if a.TicketID == ticketID {
				out = append(out, a)
			}
		}
		return nil
	})
	return out, err
}

type ruleRepo struct {
	s    *Store
	inTx bool
}

func (r *ruleRepo) Create(_ context.Context, rule *domain.EscalationRule) error {
	return r.s.run(r.inTx, "", func() error {
		if r.s.duplicateRule(rule) {
			return repository.ErrDuplicate
		}
		rule.ID = r.s.nextID("rule")
		rule.CreatedAt = r.s.now()
		rule.UpdatedAt = rule.CreatedAt
		c := *rule
		r.s.state.rules[rule.ID] = &c
		return nil
	})
}

func (r *ruleRepo) Update(_ context.Context, rule *domain.EscalationRule) error {
	return r.s.run(r.inTx, "", func() error {
		if _, ok := r.s.state.rules[rule.ID]; !ok {
			return fmt.Errorf("rule %s: %w", rule.ID, pgx.ErrNoRows)
		}
		if r.s.duplicateRule(rule) {
			return repository.ErrDuplicate
		}
		rule.UpdatedAt = r.s.now()
		c := *rule
		r.s.state.rules[rule.ID] = &c
		return nil
	})
}

func (r *ruleRepo) GetByID(_ context.Context, id string) (*domain.EscalationRule, error) {
	var out *domain.EscalationRule
	err := r.s.run(r.inTx, "", func() error {
		rule, ok := r.s.state.rules[id]
		if !ok {
			return fmt.Errorf("rule %s: %w", id, pgx.ErrNoRows)
		}
		c := *rule
		out = &c
		return nil
	})
	return out, err
}

func (r *ruleRepo) List(_ context.Context, filter repository.RuleFilter) ([]domain.EscalationRule, error) {
	var out []domain.EscalationRule
	err := r.s.run(r.inTx, "", func() error {
		for _, rule := range r.s.state.rules {
			if filter.DomainID != nil && !equalPtr(rule.DomainID, filter.DomainID) {
				continue
			}
			if filter.ScopeID != nil && !equalPtr(rule.ScopeID, filter.ScopeID) {
				continue
			}
			if filter.Level != nil && rule.Level != *filter.Level {
				continue
			}
			if filter.ActiveOnly && !rule.IsActive {
				continue
			}
			out = append(out, *rule)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r *ruleRepo) ListActiveCandidates(_ context.Context, domainID string, scopeID *string, level int) ([]domain.EscalationRule, error) {
	var out []domain.EscalationRule
	err := r.s.run(r.inTx, OpRuleCandidates, func() error {
		for _, rule := range r.s.state.rules {
			if !rule.IsActive || rule.Level != level {
				continue
			}
			if rule.DomainID != nil && *rule.DomainID != domainID {
				continue
			}
			if rule.ScopeID != nil && (scopeID == nil || *rule.ScopeID != *scopeID) {
				continue
			}
			out = append(out, *rule)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (s *Store) duplicateRule(rule *domain.EscalationRule) bool {
	for id, existing := range s.state.rules {
		if id == rule.ID {
			continue
		}
		if existing.Level == rule.Level && equalPtr(existing.DomainID, rule.DomainID) && equalPtr(existing.ScopeID, rule.ScopeID) {
			return true
		}
	}
	return false
}

type categoryRepo struct {
	s    *Store
	inTx bool
}

func (r *categoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	var out *domain.Category
	err := r.s.run(r.inTx, OpCategoryGet, func() error {
		c, ok := r.s.state.categories[id]
		if !ok {
			return fmt.Errorf("category %s: %w", id, pgx.ErrNoRows)
		}
		cat := *c
		out = &cat
		return nil
	})
	return out, err
}

func (r *categoryRepo) ListActive(_ context.Context) ([]domain.Category, error) {
	var out []domain.Category
	err := r.s.run(r.inTx, OpCategoryGet, func() error {
		for _, c := range r.s.state.categories {
			if c.IsActive {
				out = append(out, *c)
			}
		}
		return nil
	})
	return out, err
}

type feedbackRepo struct {
	s    *Store
	inTx bool
}

func (r *feedbackRepo) Create(_ context.Context, feedback *domain.Feedback) error {
	return r.s.run(r.inTx, OpFeedbackCreate, func() error {
		if _, exists := r.s.state.feedback[feedback.TicketID]; exists {
			return repository.ErrDuplicate
		}
		feedback.ID = r.s.nextID("fb")
		feedback.CreatedAt = r.s.now()
		c := *feedback
		r.s.state.feedback[feedback.TicketID] = &c
		return nil
	})
}

func (r *feedbackRepo) GetByTicket(_ context.Context, ticketID string) (*domain.Feedback, error) {
	var out *domain.Feedback
	err := r.s.run(r.inTx, "", func() error {
		f, ok := r.s.state.feedback[ticketID]
		if !ok {
			return fmt.Errorf("feedback for %s: %w", ticketID, pgx.ErrNoRows)
		}
		c := *f
		out = &c
		return nil
	})
	return out, err
}

type userRepo struct {
	s    *Store
	inTx bool
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.s.run(r.inTx, "", func() error {
		u, ok := r.s.state.users[id]
		if !ok {
			return fmt.Errorf("user %s: %w", id, pgx.ErrNoRows)
		}
		c := *u
		out = &c
		return nil
	})
	return out, err
}

func (r *userRepo) GetRole(ctx context.Context, id string) (domain.Role, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
