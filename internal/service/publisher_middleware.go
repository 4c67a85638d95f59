package service

import (
	"context"
	"log/slog"

	"github.com/devconnect/realtime-service/internal/domain/event"
)

// publisherMiddleware wraps a Publisher with structured logging: every event
// leaving a service is visible at debug level with its kind and scope.
type publisherMiddleware struct {
	next   Publisher
	logger *slog.Logger
}

func (m *publisherMiddleware) Publish(ctx context.Context, ev event.Eventer, scope event.Scope) error {
	err := m.next.Publish(ctx, ev, scope)
	if err != nil {
		m.logger.Error("event publish failed",
			"kind", ev.GetKind(),
			"event_id", ev.GetID(),
			"error", err,
		)
		return err
	}
	m.logger.Debug("event published",
		"kind", ev.GetKind(),
		"event_id", ev.GetID(),
		"scope", scope.Kind,
	)
	return nil
}
