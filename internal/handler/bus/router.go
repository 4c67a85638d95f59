package bus

import (
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/devconnect/realtime-service/internal/domain/event"
	"github.com/devconnect/realtime-service/internal/domain/registry"
	wsmarshaller "github.com/devconnect/realtime-service/internal/handler/marshaller/ws"
	"github.com/devconnect/realtime-service/internal/service"
)

// EventHandler consumes the in-process event stream and fans messages
// out to connected sessions through the hub.
type EventHandler struct {
	hub    registry.Hubber
	logger *slog.Logger
}

func NewEventHandler(hub registry.Hubber, logger *slog.Logger) *EventHandler {
	return &EventHandler{hub: hub, logger: logger}
}

func NewWatermillRouter(logger *slog.Logger) (*message.Router, error) {
	return message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
}

// RegisterHandlers wires every consumed topic into the router.
func (h *EventHandler) RegisterHandlers(router *message.Router, subscriber message.Subscriber) error {
	configs := []struct {
		name    string
		topic   string
		handler message.NoPublishHandlerFunc
	}{
		{"ON_DOMAIN_EVENT", service.TopicEvents, h.OnDomainEvent},

		// Add new stream listeners here by following this table-driven pattern.
	}

	for _, c := range configs {
		router.AddNoPublisherHandler(c.name, c.topic, subscriber, c.handler).AddMiddleware(
			TraceIDMiddleware,
			LoggingMiddleware(h.logger),
			NewRetryMiddleware().Middleware,
			middleware.Timeout(time.Second*30),
		)
	}

	h.logger.Info("event pipeline ready", "topic", service.TopicEvents)
	return nil
}

// OnDomainEvent decodes an event envelope, pre-marshals the wire form
// once, and hands the event plus its delivery scope to the hub.
func (h *EventHandler) OnDomainEvent(msg *message.Message) error {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("panic recovered",
				"err", r,
				"stack", string(debug.Stack()),
				"msg_id", msg.UUID)
		}
	}()

	ev, scope, err := event.Decode(msg.Payload)
	if err != nil {
		// ACK: a malformed envelope will never decode on retry.
		h.logger.Error("event decode failed", "err", err, "msg_id", msg.UUID)
		return nil
	}

	wire, err := wsmarshaller.MarshalEvent(ev)
	if err != nil {
		h.logger.Error("event marshal failed", "err", err, "event_id", ev.GetID())
		return nil
	}
	ev.SetCached(wire)

	h.hub.Deliver(ev, scope)
	return nil
}
