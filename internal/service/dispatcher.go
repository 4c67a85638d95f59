package service

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/devconnect/realtime-service/internal/domain/event"
)

// TopicEvents is the in-process bus topic carrying every scoped event from
// the mutation services to the fanout engine.
const TopicEvents = "realtime.events"

// Publisher is the high-level contract for outgoing events. Services stay
// agnostic of the transport implementation, and tests can substitute a
// synchronous fake.
type Publisher interface {
	Publish(ctx context.Context, ev event.Eventer, scope event.Scope) error
}

// eventDispatcher publishes scoped events to the message bus.
type eventDispatcher struct {
	publisher message.Publisher
}

func NewEventDispatcher(pub message.Publisher) Publisher {
	return &eventDispatcher{publisher: pub}
}

func (d *eventDispatcher) Publish(ctx context.Context, ev event.Eventer, scope event.Scope) error {
	if ev == nil {
		return fmt.Errorf("event dispatcher: cannot publish nil event")
	}

	payload, err := event.Encode(ev, scope)
	if err != nil {
		return fmt.Errorf("event dispatcher: encode failure: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := d.publisher.Publish(TopicEvents, msg); err != nil {
		return fmt.Errorf("event dispatcher: publishing %s: %w", ev.GetKind(), err)
	}
	return nil
}
