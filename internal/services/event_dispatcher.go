package services

import (
	"context"

	"ridepulse/pkg/logger"
)

type eventDispatcher struct {
	publisher RealtimePublisher
	consumers []EventConsumer
	logger    *logger.Logger
}

func NewEventDispatcher(publisher RealtimePublisher, log *logger.Logger, consumers ...EventConsumer) EventDispatcher {
	return &eventDispatcher{
		publisher: publisher,
		consumers: consumers,
		logger:    log,
	}
}

// Dispatch fans committed events out to the realtime channel and internal
// consumers. The ride state is already the source of truth at this point, so
// nothing here is allowed to fail the caller.
func (d *eventDispatcher) Dispatch(ctx context.Context, events ...Event) {
	for _, event := range events {
		switch event.Scope {
		case ScopeAccount:
			if d.publisher == nil {
				continue
			}
			if !d.publisher.EmitToAccount(event.Account, event.Name, event.Payload) {
				d.logger.WithFields(map[string]interface{}{
					"event":   event.Name,
					"account": event.Account.Hex(),
				}).Debug("Recipient not connected, event dropped")
			}
		case ScopeRoom:
			if d.publisher != nil {
				d.publisher.EmitToRoom(event.Room, event.Name, event.Payload)
			}
		case ScopeGlobal:
			if d.publisher != nil {
				d.publisher.EmitGlobal(event.Name, event.Payload)
			}
		case ScopeInternal:
			for _, consumer := range d.consumers {
				consumer.Consume(ctx, event)
			}
		}
	}
}
