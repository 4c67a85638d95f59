package service

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx"

	"github.com/devconnect/realtime-service/config"
	"github.com/devconnect/realtime-service/internal/domain/registry"
	"github.com/devconnect/realtime-service/internal/store"
)

var Module = fx.Module(
	"service",

	fx.Provide(
		NewHistoryCache,

		func(pub message.Publisher) Publisher {
			return NewEventDispatcher(pub)
		},

		fx.Annotate(
			func(hub registry.Hubber, publisher Publisher, cfg *config.Config, logger *slog.Logger) *DeliveryService {
				return NewDeliveryService(hub, publisher, cfg.Hub.SessionBuffer, logger)
			},
			fx.As(new(Deliverer)),
		),
		fx.Annotate(
			NewAuthorEnricher,
			fx.As(new(Enricher)),
		),
		fx.Annotate(
			func(s store.Store, publisher Publisher, enricher Enricher, history *HistoryCache, cfg *config.Config) *ChatService {
				return NewChatService(s, publisher, enricher, history, cfg.Chat.HistoryLimit)
			},
			fx.As(new(Chatter)),
		),
		fx.Annotate(
			NewModerationService,
			fx.As(new(Moderator)),
		),
		fx.Annotate(
			NewFeedService,
			fx.As(new(Feeder)),
		),
	),

	// Intercept the publisher to add cross-cutting logging.
	fx.Decorate(func(orig Publisher, logger *slog.Logger) Publisher {
		return &publisherMiddleware{
			next:   orig,
			logger: logger,
		}
	}),
)
