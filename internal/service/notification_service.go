package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/campus-support/internal/config"
	"github.com/spec-kit/campus-support/internal/events"
)

// NotificationQueue accepts serialized notifications for an external sender.
type NotificationQueue interface {
	Enqueue(ctx context.Context, key string, payload []byte) error
}

// NotificationService hands domain events to the notification queue.
type NotificationService struct {
	dispatcher events.Dispatcher
	queue      NotificationQueue
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service. A nil queue only logs.
func NewNotificationService(dispatcher events.Dispatcher, queue NotificationQueue, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		queue:      queue,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketEscalated, n.handleTicketEscalated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketUpdated)
	n.dispatcher.Subscribe(events.EventTATExtended, n.handleTicketUpdated)
	n.dispatcher.Subscribe(events.EventTicketReopened, n.handleTicketUpdated)
	n.dispatcher.Subscribe(events.EventFeedbackSubmitted, n.handleTicketUpdated)
}

func (n *NotificationService) handleTicketEscalated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketEscalated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.logEmailHandoff(event)
	n.logWebhookHandoff(event)
	return n.enqueue(ctx, event)
}

func (n *NotificationService) handleTicketUpdated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketUpdated",
		zap.String("event", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	n.logWebhookHandoff(event)
	return n.enqueue(ctx, event)
}

func (n *NotificationService) enqueue(ctx context.Context, event events.Event) error {
	if n.queue == nil || strings.TrimSpace(n.cfg.QueueKey) == "" {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	ctx, cancel := context.WithTimeout(ctx, n.cfg.EnqueueTimeout())
	defer cancel()
	if err := n.queue.Enqueue(ctx, n.cfg.QueueKey, body); err != nil {
		return fmt.Errorf("enqueue %s event: %w", event.Type, err)
	}
	return nil
}

func (n *NotificationService) logEmailHandoff(event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("email notification queued",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) logWebhookHandoff(event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("webhook notification queued",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
