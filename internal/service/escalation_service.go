package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-support/internal/domain"
	"github.com/spec-kit/campus-support/internal/events"
	"github.com/spec-kit/campus-support/internal/observability"
	"github.com/spec-kit/campus-support/internal/repository"
	"github.com/spec-kit/campus-support/internal/tat"
	apperrors "github.com/spec-kit/campus-support/pkg/util/errorutil"
)

// ErrEscalationNotNeeded is returned when the locked ticket no longer meets
// the condition that triggered the escalation.
var ErrEscalationNotNeeded = errors.New("escalation no longer needed")

// errDomainUnresolved marks tickets whose category domain cannot be found.
var errDomainUnresolved = errors.New("ticket domain unresolved")

// EscalationRequest describes one escalation attempt.
type EscalationRequest struct {
	TicketID string
	Reason   string
	Trigger  domain.EscalationTrigger
	ActorID  *string
	// Precondition is evaluated against the locked row. A non-nil error
	// aborts the escalation without writes.
	Precondition func(ticket *domain.Ticket, now time.Time) error
}

// escalationOutcome carries what must be published once the transaction
// commits.
type escalationOutcome struct {
	ticket  *domain.Ticket
	trigger domain.EscalationTrigger
	actorID *string
	payload events.TicketEscalatedPayload
}

// EscalationService applies escalations to tickets.
type EscalationService struct {
	uow        repository.UnitOfWork
	calendar   *tat.Calendar
	categories *CategoryLookup
	roles      RoleResolver
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// EscalationDependencies bundles collaborators for the escalation service.
type EscalationDependencies struct {
	UnitOfWork repository.UnitOfWork
	Calendar   *tat.Calendar
	Categories *CategoryLookup
	Roles      RoleResolver
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewEscalationService constructs the service.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	calendar := deps.Calendar
	if calendar == nil {
		calendar = tat.NewCalendar(nil, nil)
	}
	return &EscalationService{
		uow:        deps.UnitOfWork,
		calendar:   calendar,
		categories: deps.Categories,
		roles:      deps.Roles,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// Escalate bumps the ticket one level in its own transaction and publishes
// the escalation after commit.
func (s *EscalationService) Escalate(ctx context.Context, req EscalationRequest) (*domain.Ticket, error) {
	var outcome *escalationOutcome
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		ticket, err := repos.Tickets.GetByIDForUpdate(ctx, req.TicketID)
		if err != nil {
			return err
		}
		outcome, err = s.escalateLocked(ctx, repos, ticket, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, outcome)
	return outcome.ticket, nil
}

// EscalateManually lets staff push an active ticket to the next level.
func (s *EscalationService) EscalateManually(ctx context.Context, ticketID, userID, reason string) (*domain.Ticket, error) {
	role, err := s.roles.GetUserRole(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !isStaffRole(role) {
		return nil, apperrors.NewForbidden("only admins and committee members can escalate tickets")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = reasonManualDefault
	}
	ticket, err := s.Escalate(ctx, EscalationRequest{
		TicketID: ticketID,
		Reason:   reason,
		Trigger:  domain.TriggerManual,
		ActorID:  &userID,
		Precondition: func(t *domain.Ticket, _ time.Time) error {
			if !t.Status.IsActive() {
				return apperrors.NewValidationError("cannot escalate a ticket that is "+string(t.Status), map[string]any{"status": t.Status})
			}
			return nil
		},
	})
	if err != nil {
		if errors.Is(err, errDomainUnresolved) {
			return nil, apperrors.NewValidationError("ticket category has no resolvable domain", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// escalateLocked applies the escalation to a ticket already locked inside
// the transaction that repos is bound to, and persists it.
func (s *EscalationService) escalateLocked(ctx context.Context, repos repository.Repositories, ticket *domain.Ticket, req EscalationRequest) (*escalationOutcome, error) {
	now := s.calendar.Now()
	if req.Precondition != nil {
		if err := req.Precondition(ticket, now); err != nil {
			return nil, err
		}
	}

	category, err := s.categories.Get(ctx, repos.Categories, ticket.CategoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("escalation aborted: category not found",
				zap.String("ticket_id", ticket.ID),
				zap.String("category_id", ticket.CategoryID))
			return nil, fmt.Errorf("category %s: %w", ticket.CategoryID, errDomainUnresolved)
		}
		return nil, fmt.Errorf("load category %s: %w", ticket.CategoryID, err)
	}
	if category.DomainID == "" {
		s.logger.Warn("escalation aborted: category has no domain",
			zap.String("ticket_id", ticket.ID),
			zap.String("category_id", ticket.CategoryID))
		return nil, fmt.Errorf("category %s: %w", ticket.CategoryID, errDomainUnresolved)
	}

	previousLevel := ticket.EscalationLevel
	nextLevel := previousLevel + 1
	rule, err := NewRuleMatcher(repos.Rules).FindRule(ctx, category.DomainID, ticket.ScopeID, nextLevel)
	if err != nil {
		return nil, err
	}

	s.applyDeadlineRelief(ticket)

	reason := req.Reason
	previousOwner := ticket.AssignedTo
	var ruleID, escalatedTo *string
	switch {
	case rule == nil:
		reason += noMatchingRuleSuffix
	case rule.EscalateToUserID != nil:
		if ticket.AssignedTo != nil {
			ticket.Metadata.PreviousAssignedTo = append(ticket.Metadata.PreviousAssignedTo, *ticket.AssignedTo)
		}
		to := *rule.EscalateToUserID
		ticket.AssignedTo = &to
		escalatedTo = &to
	}
	if rule != nil {
		id := rule.ID
		ruleID = &id
	}

	ticket.EscalationLevel = nextLevel
	ticket.EscalatedAt = &now
	if err := repos.Tickets.Update(ctx, ticket); err != nil {
		return nil, fmt.Errorf("update ticket: %w", err)
	}

	activity := &domain.TicketActivity{
		TicketID:          ticket.ID,
		UserID:            req.ActorID,
		Action:            domain.ActivityEscalated,
		Reason:            reason,
		EscalationLevel:   &nextLevel,
		PreviousLevel:     &previousLevel,
		EscalatedToUserID: escalatedTo,
		RuleID:            ruleID,
		Details:           map[string]any{"trigger": string(req.Trigger)},
	}
	if err := repos.Activities.Create(ctx, activity); err != nil {
		return nil, fmt.Errorf("record escalation activity: %w", err)
	}

	return &escalationOutcome{
		ticket:  ticket.Clone(),
		trigger: req.Trigger,
		actorID: req.ActorID,
		payload: events.TicketEscalatedPayload{
			Level:             nextLevel,
			PreviousLevel:     previousLevel,
			Reason:            reason,
			Trigger:           req.Trigger,
			RuleID:            ruleID,
			EscalatedToUserID: escalatedTo,
			PreviousOwnerID:   previousOwner,
		},
	}, nil
}

// applyDeadlineRelief pushes both deadlines out by the escalation bonus. A
// paused ticket banks the resolution bonus in its pause so resuming honours
// it.
func (s *EscalationService) applyDeadlineRelief(ticket *domain.Ticket) {
	if ticket.AcknowledgementDueAt != nil {
		due := s.calendar.AddBusinessHours(*ticket.AcknowledgementDueAt, escalationBonusHours)
		ticket.AcknowledgementDueAt = &due
	}
	if pause := ticket.Metadata.TATPause; pause != nil {
		pause.RemainingHours += escalationBonusHours
		return
	}
	if ticket.ResolutionDueAt != nil {
		due := s.calendar.AddBusinessHours(*ticket.ResolutionDueAt, escalationBonusHours)
		ticket.ResolutionDueAt = &due
	}
}

func (s *EscalationService) publish(ctx context.Context, outcome *escalationOutcome) {
	if outcome == nil {
		return
	}
	s.metrics.RecordEscalation(outcome.trigger)
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketEscalated,
		TicketID:  outcome.ticket.ID,
		Actor:     actorFor(outcome.actorID),
		Timestamp: s.calendar.Now(),
		Payload:   outcome.payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Error("publish escalation event",
			zap.String("ticket_id", outcome.ticket.ID),
			zap.Int("level", outcome.payload.Level),
			zap.Error(err))
	}
}

func actorFor(userID *string) events.Actor {
	if userID == nil {
		return events.Actor{System: true}
	}
	id := *userID
	return events.Actor{UserID: &id}
}
