package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/campus-support/internal/domain"
	"github.com/spec-kit/campus-support/internal/events"
	"github.com/spec-kit/campus-support/internal/repository/memory"
	"github.com/spec-kit/campus-support/internal/tat"
)

const (
	adminID     = "admin-1"
	committeeID = "committee-1"
	studentID   = "student-1"
	otherID     = "student-2"
	staffID     = "staff-1"
	leadID      = "lead-1"
	categoryID  = "cat-1"
	domainID    = "dom-1"
)

// fridayAt returns a time on Friday 2025-01-03 in UTC.
func fridayAt(hour int) time.Time {
	return time.Date(2025, 1, 3, hour, 0, 0, 0, time.UTC)
}

func at(day, hour int) time.Time {
	return time.Date(2025, 1, day, hour, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T {
	return &v
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	store       *memory.Store
	clock       *testClock
	calendar    *tat.Calendar
	dispatcher  events.Dispatcher
	escalations *EscalationService
	tickets     *TicketService
	rules       *RuleService

	mu        sync.Mutex
	published []events.Event
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	clock := &testClock{now: now}
	store := memory.NewStore()
	store.SetClock(clock.Now)
	calendar := tat.NewCalendar(time.UTC, clock.Now)

	store.PutCategory(&domain.Category{ID: categoryID, Name: "Hostel", DomainID: domainID, SLAHours: 48, IsActive: true})
	for id, role := range map[string]domain.Role{
		adminID:     domain.RoleAdmin,
		committeeID: domain.RoleCommittee,
		studentID:   domain.RoleStudent,
		otherID:     domain.RoleStudent,
	} {
		store.PutUser(&domain.User{ID: id, Role: role})
	}

	f := &fixture{
		store:      store,
		clock:      clock,
		calendar:   calendar,
		dispatcher: events.NewInMemoryDispatcher(),
	}
	for _, eventType := range []events.EventType{
		events.EventTicketEscalated, events.EventTicketStatusChanged, events.EventTATExtended,
		events.EventTicketReopened, events.EventFeedbackSubmitted,
	} {
		f.dispatcher.Subscribe(eventType, func(_ context.Context, event events.Event) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.published = append(f.published, event)
			return nil
		})
	}

	roles := NewUserRoleResolver(store.Repositories().Users)
	f.escalations = NewEscalationService(EscalationDependencies{
		UnitOfWork: store,
		Calendar:   calendar,
		Categories: NewCategoryLookup(),
		Roles:      roles,
		Dispatcher: f.dispatcher,
	})
	f.tickets = NewTicketService(TicketDependencies{
		UnitOfWork:  store,
		Calendar:    calendar,
		Categories:  NewCategoryLookup(),
		Escalations: f.escalations,
		Roles:       roles,
		Dispatcher:  f.dispatcher,
	})
	f.rules = NewRuleService(store, roles, nil)
	return f
}

// seedTicket stores an in-progress ticket created at Friday 11:00 with a 48
// hour SLA, owned by staff-1.
func (f *fixture) seedTicket(t *testing.T, id string, mutate func(*domain.Ticket)) *domain.Ticket {
	t.Helper()
	created := fridayAt(11)
	deadlines := f.calendar.CalculateDeadlines(48, created)
	ticket := &domain.Ticket{
		ID:                   id,
		Title:                "Broken heater",
		Status:               domain.TicketStatusInProgress,
		CategoryID:           categoryID,
		CreatedBy:            studentID,
		AssignedTo:           ptr(staffID),
		AcknowledgementDueAt: &deadlines.AcknowledgementDueAt,
		ResolutionDueAt:      &deadlines.ResolutionDueAt,
		AcknowledgedAt:       ptr(created),
		CreatedAt:            created,
	}
	if mutate != nil {
		mutate(ticket)
	}
	f.store.PutTicket(ticket)
	stored := f.store.Ticket(id)
	require.NotNil(t, stored)
	return stored
}

func (f *fixture) events(eventType events.EventType) []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []events.Event
	for _, e := range f.published {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (f *fixture) escalationActivities(ticketID string) []domain.TicketActivity {
	var out []domain.TicketActivity
	for _, a := range f.store.Activities(ticketID) {
		if a.Action == domain.ActivityEscalated {
			out = append(out, a)
		}
	}
	return out
}
