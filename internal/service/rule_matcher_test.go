package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/campus-support/internal/domain"
	"github.com/spec-kit/campus-support/internal/repository/memory"
)

func TestRuleMatcher_PrefersMostSpecific(t *testing.T) {
	store := memory.NewStore()
	store.PutRule(&domain.EscalationRule{ID: "r-global", Level: 1, EscalateToUserID: ptr("global"), IsActive: true})
	store.PutRule(&domain.EscalationRule{ID: "r-scope", ScopeID: ptr("s-1"), Level: 1, EscalateToUserID: ptr("scope"), IsActive: true})
	store.PutRule(&domain.EscalationRule{ID: "r-domain", DomainID: ptr("dom-1"), Level: 1, EscalateToUserID: ptr("domain"), IsActive: true})
	store.PutRule(&domain.EscalationRule{ID: "r-both", DomainID: ptr("dom-1"), ScopeID: ptr("s-1"), Level: 1, EscalateToUserID: ptr("both"), IsActive: true})
	matcher := NewRuleMatcher(store.Repositories().Rules)

	tests := []struct {
		name     string
		domainID string
		scopeID  *string
		want     string
	}{
		{name: "domain and scope", domainID: "dom-1", scopeID: ptr("s-1"), want: "r-both"},
		{name: "domain only", domainID: "dom-1", want: "r-domain"},
		{name: "scope only", domainID: "dom-2", scopeID: ptr("s-1"), want: "r-scope"},
		{name: "global fallback", domainID: "dom-2", scopeID: ptr("s-9"), want: "r-global"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := matcher.FindRule(context.Background(), tt.domainID, tt.scopeID, 1)
			require.NoError(t, err)
			require.NotNil(t, rule)
			assert.Equal(t, tt.want, rule.ID)
		})
	}
}

func TestRuleMatcher_NoMatch(t *testing.T) {
	store := memory.NewStore()
	store.PutRule(&domain.EscalationRule{ID: "r-inactive", Level: 1, IsActive: false})
	store.PutRule(&domain.EscalationRule{ID: "r-level2", Level: 2, IsActive: true})
	store.PutRule(&domain.EscalationRule{ID: "r-other", DomainID: ptr("dom-2"), Level: 1, IsActive: true})

	rule, err := NewRuleMatcher(store.Repositories().Rules).FindRule(context.Background(), "dom-1", nil, 1)
	require.NoError(t, err)
	assert.Nil(t, rule)
}

func TestRuleMatcher_TiesBrokenByID(t *testing.T) {
	store := memory.NewStore()
	store.PutRule(&domain.EscalationRule{ID: "r-b", DomainID: ptr("dom-1"), Level: 1, IsActive: true})
	store.PutRule(&domain.EscalationRule{ID: "r-a", DomainID: ptr("dom-1"), Level: 1, IsActive: true})

	rule, err := NewRuleMatcher(store.Repositories().Rules).FindRule(context.Background(), "dom-1", nil, 1)
	require.NoError(t, err)
	assert.Equal(t, "r-a", rule.ID)
}

func TestTriggerReasons(t *testing.T) {
	for count := 1; count <= 8; count++ {
		reason, ok := extensionTriggerReason(count)
		switch count {
		case 3, 5, 7:
			assert.True(t, ok, "extension %d", count)
			assert.Contains(t, reason, "extension #")
		default:
			assert.False(t, ok, "extension %d", count)
		}
	}

	_, ok := reopenTriggerReason(2)
	assert.False(t, ok)
	reason, ok := reopenTriggerReason(3)
	assert.True(t, ok)
	assert.Equal(t, "Repeated reopening (3rd time)", reason)
	_, ok = reopenTriggerReason(4)
	assert.False(t, ok)

	reason, ok = feedbackTriggerReason(1)
	assert.True(t, ok)
	assert.Equal(t, "Negative feedback (1 star)", reason)
	reason, ok = feedbackTriggerReason(2)
	assert.True(t, ok)
	assert.Equal(t, "Negative feedback (2 stars)", reason)
	_, ok = feedbackTriggerReason(3)
	assert.False(t, ok)
}

func TestBreachTrigger_AcknowledgementFirst(t *testing.T) {
	now := fridayAt(12)
	ticket := &domain.Ticket{
		Status:               domain.TicketStatusOpen,
		AcknowledgementDueAt: ptr(fridayAt(9)),
		ResolutionDueAt:      ptr(fridayAt(10)),
	}
	trigger, reason, ok := breachTrigger(ticket, now)
	require.True(t, ok)
	assert.Equal(t, domain.TriggerAcknowledgementBreach, trigger)
	assert.Equal(t, reasonAcknowledgementBreach, reason)

	ticket.AcknowledgedAt = ptr(fridayAt(9))
	trigger, _, ok = breachTrigger(ticket, now)
	require.True(t, ok)
	assert.Equal(t, domain.TriggerResolutionBreach, trigger)

	ticket.Status = domain.TicketStatusAwaitingStudentResponse
	_, _, ok = breachTrigger(ticket, now)
	assert.False(t, ok)
}

func TestCategoryLookup_CachesUntilInvalidated(t *testing.T) {
	store := memory.NewStore()
	store.PutCategory(&domain.Category{ID: "c-1", DomainID: "dom-1", SLAHours: 48, IsActive: true})
	lookup := NewCategoryLookup()
	repo := store.Repositories().Categories

	first, err := lookup.Get(context.Background(), repo, "c-1")
	require.NoError(t, err)
	assert.Equal(t, 48.0, first.SLAHours)

	store.PutCategory(&domain.Category{ID: "c-1", DomainID: "dom-1", SLAHours: 24, IsActive: true})
	cached, err := lookup.Get(context.Background(), repo, "c-1")
	require.NoError(t, err)
	assert.Equal(t, 48.0, cached.SLAHours)

	lookup.Invalidate("c-1")
	fresh, err := lookup.Get(context.Background(), repo, "c-1")
	require.NoError(t, err)
	assert.Equal(t, 24.0, fresh.SLAHours)
}
