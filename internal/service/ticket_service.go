package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-support/internal/domain"
	"github.com/spec-kit/campus-support/internal/events"
	"github.com/spec-kit/campus-support/internal/repository"
	"github.com/spec-kit/campus-support/internal/tat"
	apperrors "github.com/spec-kit/campus-support/pkg/util/errorutil"
)

// TicketService coordinates ticket status, TAT and feedback workflows.
type TicketService struct {
	uow         repository.UnitOfWork
	calendar    *tat.Calendar
	categories  *CategoryLookup
	escalations *EscalationService
	roles       RoleResolver
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	UnitOfWork  repository.UnitOfWork
	Calendar    *tat.Calendar
	Categories  *CategoryLookup
	Escalations *EscalationService
	Roles       RoleResolver
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	calendar := deps.Calendar
	if calendar == nil {
		calendar = tat.NewCalendar(nil, nil)
	}
	return &TicketService{
		uow:         deps.UnitOfWork,
		calendar:    calendar,
		categories:  deps.Categories,
		escalations: deps.Escalations,
		roles:       deps.Roles,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
	}
}

// UpdateTicketStatus moves a ticket through the status machine, pausing the
// resolution clock while the requester is being waited on.
func (s *TicketService) UpdateTicketStatus(ctx context.Context, ticketID string, newStatus domain.TicketStatus, userID, comment string) (*domain.Ticket, error) {
	if !newStatus.IsValid() {
		return nil, apperrors.NewValidationError("unknown status "+string(newStatus), nil)
	}
	if newStatus == domain.TicketStatusReopened {
		return s.ReopenTicket(ctx, ticketID, userID, comment)
	}
	role, err := s.roles.GetUserRole(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	var (
		updated   *domain.Ticket
		oldStatus domain.TicketStatus
	)
	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		ticket, err := repos.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if !isStaffRole(role) && !(ticket.CreatedBy == userID && newStatus == domain.TicketStatusCancelled) {
			return apperrors.NewForbidden("not allowed to change the status of this ticket")
		}
		if err := checkTransition(ticket.Status, newStatus); err != nil {
			return err
		}

		oldStatus = ticket.Status
		s.applyStatus(ticket, newStatus)
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		if err := repos.Activities.Create(ctx, &domain.TicketActivity{
			TicketID: ticket.ID,
			UserID:   &userID,
			Action:   domain.ActivityStatusChanged,
			Reason:   comment,
			Details:  map[string]any{"from": string(oldStatus), "to": string(newStatus)},
		}); err != nil {
			return err
		}
		updated = ticket
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: updated.ID,
		Actor:    actorFor(&userID),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Comment:   comment,
		},
	})
	return updated, nil
}

// applyStatus sets the new status and the timestamps and pause state that go
// with it.
func (s *TicketService) applyStatus(ticket *domain.Ticket, next domain.TicketStatus) {
	now := s.calendar.Now()
	prev := ticket.Status

	if prev == domain.TicketStatusOpen && ticket.AcknowledgedAt == nil {
		ticket.AcknowledgedAt = &now
	}
	if prev == domain.TicketStatusAwaitingStudentResponse && next != prev {
		s.resumeClock(ticket, now)
	}
	if next == domain.TicketStatusAwaitingStudentResponse && prev != next {
		s.pauseClock(ticket, now, prev)
	}
	switch next {
	case domain.TicketStatusResolved:
		ticket.ResolvedAt = &now
	case domain.TicketStatusClosed:
		ticket.ClosedAt = &now
	}
	ticket.Status = next
}

func (s *TicketService) pauseClock(ticket *domain.Ticket, now time.Time, from domain.TicketStatus) {
	if ticket.ResolutionDueAt == nil {
		return
	}
	ticket.Metadata.TATPause = &domain.TATPause{
		PausedAt:       now,
		RemainingHours: float64(s.calendar.RemainingBusinessHours(now, *ticket.ResolutionDueAt)),
		PausedFrom:     from,
	}
}

func (s *TicketService) resumeClock(ticket *domain.Ticket, now time.Time) {
	pause := ticket.Metadata.TATPause
	if pause == nil {
		return
	}
	due := s.calendar.AddBusinessHours(now, pause.RemainingHours)
	ticket.ResolutionDueAt = &due
	ticket.Metadata.TATPause = nil
}

// ReopenTicket reopens a resolved or closed ticket with a fresh resolution
// window. The third reopen escalates.
func (s *TicketService) ReopenTicket(ctx context.Context, ticketID, userID, reason string) (*domain.Ticket, error) {
	role, err := s.roles.GetUserRole(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	reason = strings.TrimSpace(reason)

	var (
		updated   *domain.Ticket
		oldStatus domain.TicketStatus
		escalated *escalationOutcome
	)
	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		ticket, err := repos.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if !isStaffRole(role) && ticket.CreatedBy != userID {
			return apperrors.NewForbidden("only the requester or staff can reopen this ticket")
		}
		if err := checkTransition(ticket.Status, domain.TicketStatusReopened); err != nil {
			return err
		}
		category, err := s.categories.Get(ctx, repos.Categories, ticket.CategoryID)
		if err != nil {
			return err
		}

		now := s.calendar.Now()
		oldStatus = ticket.Status
		due := s.calendar.AddBusinessHours(now, category.SLAHours)
		ticket.Status = domain.TicketStatusReopened
		ticket.ResolvedAt = nil
		ticket.ClosedAt = nil
		ticket.ReopenCount++
		ticket.ResolutionDueAt = &due
		ticket.Metadata.TATPause = nil
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		if err := repos.Activities.Create(ctx, &domain.TicketActivity{
			TicketID: ticket.ID,
			UserID:   &userID,
			Action:   domain.ActivityReopened,
			Reason:   reason,
			Details: map[string]any{
				"from":         string(oldStatus),
				"reopen_count": ticket.ReopenCount,
			},
		}); err != nil {
			return err
		}

		if triggerReason, ok := reopenTriggerReason(ticket.ReopenCount); ok {
			escalated, err = s.escalateInTx(ctx, repos, ticket, EscalationRequest{
				TicketID: ticket.ID,
				Reason:   triggerReason,
				Trigger:  domain.TriggerReopen,
				ActorID:  &userID,
			})
			if err != nil {
				return err
			}
		}
		updated = ticket
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketReopened,
		TicketID: updated.ID,
		Actor:    actorFor(&userID),
		Payload:  events.TicketReopenedPayload{Reason: reason, ReopenCount: updated.ReopenCount},
	})
	s.escalations.publish(ctx, escalated)
	return updated, nil
}

// ExtendTAT grants extra resolution hours. Extensions number 3, 5 and 7
// escalate.
func (s *TicketService) ExtendTAT(ctx context.Context, ticketID, userID string, hours float64, reason string) (*domain.Ticket, error) {
	if hours <= 0 || math.IsNaN(hours) {
		return nil, apperrors.NewValidationError("extension hours must be positive", map[string]any{"hours": hours})
	}
	if hours > tat.MaxHours {
		return nil, apperrors.NewValidationError("extension hours exceed the maximum", map[string]any{"hours": hours, "max": tat.MaxHours})
	}
	role, err := s.roles.GetUserRole(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !role.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins can extend TAT")
	}
	reason = strings.TrimSpace(reason)

	var (
		updated   *domain.Ticket
		escalated *escalationOutcome
	)
	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		ticket, err := repos.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if !ticket.Status.IsActive() {
			return apperrors.NewValidationError("cannot extend TAT of a ticket that is "+string(ticket.Status), nil)
		}

		if pause := ticket.Metadata.TATPause; pause != nil {
			pause.RemainingHours += hours
		} else {
			now := s.calendar.Now()
			base := now
			if ticket.ResolutionDueAt != nil && ticket.ResolutionDueAt.After(now) {
				base = *ticket.ResolutionDueAt
			}
			due := s.calendar.AddBusinessHours(base, hours)
			ticket.ResolutionDueAt = &due
		}
		ticket.TATExtensions++
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		details := map[string]any{
			"hours":           hours,
			"extension_count": ticket.TATExtensions,
		}
		if ticket.ResolutionDueAt != nil {
			details["resolution_due_at"] = ticket.ResolutionDueAt.Format(time.RFC3339)
		}
		if err := repos.Activities.Create(ctx, &domain.TicketActivity{
			TicketID: ticket.ID,
			UserID:   &userID,
			Action:   domain.ActivityTATExtended,
			Reason:   reason,
			Details:  details,
		}); err != nil {
			return err
		}

		if triggerReason, ok := extensionTriggerReason(ticket.TATExtensions); ok {
			escalated, err = s.escalateInTx(ctx, repos, ticket, EscalationRequest{
				TicketID: ticket.ID,
				Reason:   triggerReason,
				Trigger:  domain.TriggerTATExtension,
				ActorID:  &userID,
			})
			if err != nil {
				return err
			}
		}
		updated = ticket
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTATExtended,
		TicketID: updated.ID,
		Actor:    actorFor(&userID),
		Payload: events.TATExtendedPayload{
			Hours:           hours,
			Reason:          reason,
			ExtensionCount:  updated.TATExtensions,
			ResolutionDueAt: updated.ResolutionDueAt,
		},
	})
	s.escalations.publish(ctx, escalated)
	return updated, nil
}

// SubmitFeedback records the requester's rating of a finished ticket. Ratings
// of two stars or fewer escalate.
func (s *TicketService) SubmitFeedback(ctx context.Context, ticketID, userID string, rating int, text string) (*domain.Feedback, error) {
	if rating < 1 || rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", map[string]any{"rating": rating})
	}

	var (
		feedback  *domain.Feedback
		escalated *escalationOutcome
	)
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		ticket, err := repos.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if ticket.CreatedBy != userID {
			return apperrors.NewForbidden("only the requester can rate this ticket")
		}
		if ticket.Status != domain.TicketStatusResolved && ticket.Status != domain.TicketStatusClosed {
			return apperrors.NewValidationError("feedback is only accepted for resolved or closed tickets", map[string]any{"status": ticket.Status})
		}

		feedback = &domain.Feedback{
			TicketID: ticket.ID,
			UserID:   userID,
			Rating:   rating,
			Text:     strings.TrimSpace(text),
		}
		if err := repos.Feedback.Create(ctx, feedback); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperrors.NewConflict("feedback already submitted for this ticket", map[string]any{"ticket_id": ticket.ID})
			}
			return err
		}
		if err := repos.Activities.Create(ctx, &domain.TicketActivity{
			TicketID: ticket.ID,
			UserID:   &userID,
			Action:   domain.ActivityFeedbackSubmitted,
			Details:  map[string]any{"rating": rating},
		}); err != nil {
			return err
		}

		if triggerReason, ok := feedbackTriggerReason(rating); ok {
			escalated, err = s.escalateInTx(ctx, repos, ticket, EscalationRequest{
				TicketID: ticket.ID,
				Reason:   triggerReason,
				Trigger:  domain.TriggerNegativeFeedback,
				ActorID:  &userID,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventFeedbackSubmitted,
		TicketID: feedback.TicketID,
		Actor:    actorFor(&userID),
		Payload:  events.FeedbackSubmittedPayload{FeedbackID: feedback.ID, Rating: rating},
	})
	s.escalations.publish(ctx, escalated)
	return feedback, nil
}

// escalateInTx runs a synchronous trigger inside the caller's transaction. A
// ticket without a resolvable domain keeps the originating change and is not
// escalated.
func (s *TicketService) escalateInTx(ctx context.Context, repos repository.Repositories, ticket *domain.Ticket, req EscalationRequest) (*escalationOutcome, error) {
	outcome, err := s.escalations.escalateLocked(ctx, repos, ticket, req)
	if errors.Is(err, errDomainUnresolved) {
		s.logger.Warn("skipping escalation trigger",
			zap.String("ticket_id", ticket.ID),
			zap.String("trigger", string(req.Trigger)),
			zap.Error(err))
		return nil, nil
	}
	return outcome, err
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.calendar.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Error("publish event",
			zap.String("event", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}
