package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/events"
)

// NotificationService forwards domain events to an outbound sink so
// connected clients can refresh.
type NotificationService struct {
	dispatcher events.Dispatcher
	sink       events.Sink
	logger     *zap.Logger
}

// NewNotificationService creates the service. sink may be nil, in which case
// events are only logged.
func NewNotificationService(dispatcher events.Dispatcher, sink events.Sink, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		sink:       sink,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.forward)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.forward)
	n.dispatcher.Subscribe(events.EventTicketDeactivated, n.forward)
	n.dispatcher.Subscribe(events.EventMessageAdded, n.forward)
}

// forward never fails the publishing request: a sink error is logged only.
func (n *NotificationService) forward(ctx context.Context, event events.Event) error {
	n.logger.Debug("ticket event",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_id", event.ID))
	if n.sink == nil {
		return nil
	}
	if err := n.sink.Send(ctx, event); err != nil {
		n.logger.Warn("forward event failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
	return nil
}
