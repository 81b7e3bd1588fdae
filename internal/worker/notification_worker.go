package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/campus-support/internal/events"
	"github.com/spec-kit/campus-support/internal/service"
)

// StartNotificationWorker subscribes the notification service to ticket
// events. Events are handed to the Redis queue synchronously on publish.
func StartNotificationWorker(notificationService *service.NotificationService, dispatcher events.Dispatcher, logger *zap.Logger) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
	if logger != nil && dispatcher != nil {
		logger.Info("notification handlers registered",
			zap.Int("escalated", dispatcher.Subscribers(events.EventTicketEscalated)),
			zap.Int("status_changed", dispatcher.Subscribers(events.EventTicketStatusChanged)),
		)
	}
}
