package app

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/campus-support/internal/config"
	"github.com/spec-kit/campus-support/internal/domain"
	"github.com/spec-kit/campus-support/internal/events"
	"github.com/spec-kit/campus-support/internal/repository/memory"
	"github.com/spec-kit/campus-support/internal/tat"
)

type listQueue struct {
	mu    sync.Mutex
	items map[string][][]byte
}

func (q *listQueue) Enqueue(_ context.Context, key string, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.items == nil {
		q.items = map[string][][]byte{}
	}
	q.items[key] = append(q.items[key], payload)
	return nil
}

func TestNewServices_SweepEnqueuesEscalation(t *testing.T) {
	now := time.Date(2025, time.January, 3, 11, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	store.SetClock(func() time.Time { return now })
	store.PutCategory(&domain.Category{ID: "cat-1", Name: "Hostel", DomainID: "dom-1", SLAHours: 48, IsActive: true})
	store.PutTicket(&domain.Ticket{
		ID:                   "t-1",
		Title:                "Broken heater",
		Status:               domain.TicketStatusOpen,
		CategoryID:           "cat-1",
		CreatedBy:            "student-1",
		AcknowledgementDueAt: ptr(now.Add(-time.Hour)),
		ResolutionDueAt:      ptr(now.Add(24 * time.Hour)),
		CreatedAt:            now.Add(-2 * time.Hour),
	})

	cfg := &config.Config{Notification: config.NotificationConfig{QueueKey: "notifications:tickets"}}
	queue := &listQueue{}
	svc := NewServices(cfg, nil, tat.NewCalendar(time.UTC, func() time.Time { return now }), Backends{
		UnitOfWork: store,
		Queue:      queue,
	})

	assert.Equal(t, 1, svc.Dispatcher.Subscribers(events.EventTicketEscalated))

	report, err := svc.Sweep.RunEscalationSweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Escalated)

	payloads := queue.items["notifications:tickets"]
	require.Len(t, payloads, 1)
	var event map[string]any
	require.NoError(t, json.Unmarshal(payloads[0], &event))
	assert.Equal(t, string(events.EventTicketEscalated), event["event"])
	assert.Equal(t, "t-1", event["ticket_id"])
}

func ptr[T any](v T) *T {
	return &v
}
