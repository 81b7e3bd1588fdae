package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/campus-support/internal/domain"
	"github.com/spec-kit/campus-support/internal/events"
	"github.com/spec-kit/campus-support/internal/repository/memory"
	apperrors "github.com/spec-kit/campus-support/pkg/util/errorutil"
)

func TestEscalateManually_ReassignsToRuleOwner(t *testing.T) {
	f := newFixture(t, fridayAt(12))
	f.store.PutRule(&domain.EscalationRule{ID: "rule-l1", DomainID: ptr(domainID), Level: 1, EscalateToUserID: ptr(leadID), IsActive: true})
	seeded := f.seedTicket(t, "t-1", nil)

	ticket, err := f.escalations.EscalateManually(context.Background(), "t-1", adminID, "student complaint")
	require.NoError(t, err)

	assert.Equal(t, 1, ticket.EscalationLevel)
	assert.Equal(t, leadID, *ticket.AssignedTo)
	assert.Equal(t, []string{staffID}, ticket.Metadata.PreviousAssignedTo)
	assert.Equal(t, fridayAt(12), *ticket.EscalatedAt)
	assert.Equal(t, f.calendar.AddBusinessHours(*seeded.ResolutionDueAt, 48), *ticket.ResolutionDueAt)
	assert.Equal(t, f.calendar.AddBusinessHours(*seeded.AcknowledgementDueAt, 48), *ticket.AcknowledgementDueAt)

	activities := f.escalationActivities("t-1")
	require.Len(t, activities, 1)
	assert.Equal(t, "student complaint", activities[0].Reason)
	assert.Equal(t, 1, *activities[0].EscalationLevel)
	assert.Equal(t, 0, *activities[0].PreviousLevel)
	assert.Equal(t, "rule-l1", *activities[0].RuleID)
	assert.Equal(t, leadID, *activities[0].EscalatedToUserID)

	published := f.events(events.EventTicketEscalated)
	require.Len(t, published, 1)
	payload := published[0].Payload.(events.TicketEscalatedPayload)
	assert.Equal(t, domain.TriggerManual, payload.Trigger)
	assert.Equal(t, staffID, *payload.PreviousOwnerID)
}

func TestEscalateManually_NoRuleKeepsOwner(t *testing.T) {
	f := newFixture(t, fridayAt(12))
	f.seedTicket(t, "t-1", nil)

	ticket, err := f.escalations.EscalateManually(context.Background(), "t-1", committeeID, "")
	require.NoError(t, err)

	assert.Equal(t, 1, ticket.EscalationLevel)
	assert.Equal(t, staffID, *ticket.AssignedTo)
	assert.Empty(t, ticket.Metadata.PreviousAssignedTo)

	activities := f.escalationActivities("t-1")
	require.Len(t, activities, 1)
	assert.Equal(t, "Manually escalated (no matching escalation rule found)", activities[0].Reason)
	assert.Nil(t, activities[0].RuleID)
}

func TestEscalateManually_LevelsIncreaseByOne(t *testing.T) {
	f := newFixture(t, fridayAt(12))
	f.seedTicket(t, "t-1", nil)

	for want := 1; want <= 3; want++ {
		ticket, err := f.escalations.EscalateManually(context.Background(), "t-1", adminID, "")
		require.NoError(t, err)
		assert.Equal(t, want, ticket.EscalationLevel)
	}
	activities := f.escalationActivities("t-1")
	require.Len(t, activities, 3)
	for i, a := range activities {
		assert.Equal(t, i, *a.PreviousLevel)
		assert.Equal(t, i+1, *a.EscalationLevel)
	}
}

func TestEscalateManually_Rejections(t *testing.T) {
	f := newFixture(t, fridayAt(12))
	f.seedTicket(t, "t-open", nil)
	f.seedTicket(t, "t-closed", func(tk *domain.Ticket) { tk.Status = domain.TicketStatusClosed })

	_, err := f.escalations.EscalateManually(context.Background(), "t-open", studentID, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = f.escalations.EscalateManually(context.Background(), "t-closed", adminID, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.escalations.EscalateManually(context.Background(), "missing", adminID, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = f.escalations.EscalateManually(context.Background(), "t-open", "ghost", "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	assert.Equal(t, 0, f.store.Ticket("t-open").EscalationLevel)
	assert.Equal(t, 0, f.store.Ticket("t-closed").EscalationLevel)
}

func TestEscalateManually_UnresolvableCategory(t *testing.T) {
	f := newFixture(t, fridayAt(12))
	f.seedTicket(t, "t-1", func(tk *domain.Ticket) { tk.CategoryID = "cat-missing" })

	_, err := f.escalations.EscalateManually(context.Background(), "t-1", adminID, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	assert.Equal(t, 0, f.store.Ticket("t-1").EscalationLevel)
	assert.Empty(t, f.store.Activities("t-1"))
}

func TestEscalate_PausedTicketBanksBonus(t *testing.T) {
	f := newFixture(t, fridayAt(12))
	seeded := f.seedTicket(t, "t-1", func(tk *domain.Ticket) {
		tk.Status = domain.TicketStatusAwaitingStudentResponse
		tk.Metadata.TATPause = &domain.TATPause{
			PausedAt:       fridayAt(12),
			RemainingHours: 10,
			PausedFrom:     domain.TicketStatusInProgress,
		}
	})

	ticket, err := f.escalations.EscalateManually(context.Background(), "t-1", adminID, "")
	require.NoError(t, err)

	require.NotNil(t, ticket.Metadata.TATPause)
	assert.Equal(t, 58.0, ticket.Metadata.TATPause.RemainingHours)
	assert.Equal(t, *seeded.ResolutionDueAt, *ticket.ResolutionDueAt)
}

func TestEscalate_RollsBackWhenActivityFails(t *testing.T) {
	f := newFixture(t, fridayAt(12))
	f.store.PutRule(&domain.EscalationRule{ID: "rule-l1", Level: 1, EscalateToUserID: ptr(leadID), IsActive: true})
	seeded := f.seedTicket(t, "t-1", nil)
	f.store.FailOn(memory.OpActivityCreate, errors.New("disk full"))

	_, err := f.escalations.EscalateManually(context.Background(), "t-1", adminID, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))

	stored := f.store.Ticket("t-1")
	assert.Equal(t, 0, stored.EscalationLevel)
	assert.Equal(t, staffID, *stored.AssignedTo)
	assert.Equal(t, *seeded.ResolutionDueAt, *stored.ResolutionDueAt)
	assert.Empty(t, f.events(events.EventTicketEscalated))
}

func TestEscalate_PublishFailureDoesNotFail(t *testing.T) {
	f := newFixture(t, fridayAt(12))
	f.seedTicket(t, "t-1", nil)
	f.dispatcher.Subscribe(events.EventTicketEscalated, func(context.Context, events.Event) error {
		return errors.New("queue down")
	})

	ticket, err := f.escalations.EscalateManually(context.Background(), "t-1", adminID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, ticket.EscalationLevel)
	assert.Equal(t, 1, f.store.Ticket("t-1").EscalationLevel)
}

func TestEscalate_PreconditionNotMet(t *testing.T) {
	f := newFixture(t, fridayAt(12))
	f.seedTicket(t, "t-1", nil)

	_, err := f.escalations.Escalate(context.Background(), EscalationRequest{
		TicketID: "t-1",
		Reason:   reasonResolutionBreach,
		Trigger:  domain.TriggerResolutionBreach,
		Precondition: func(*domain.Ticket, time.Time) error {
			return ErrEscalationNotNeeded
		},
	})
	assert.ErrorIs(t, err, ErrEscalationNotNeeded)
	assert.Empty(t, f.store.Activities("t-1"))
}
