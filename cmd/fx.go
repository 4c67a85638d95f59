package cmd

import (
	"log/slog"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/devconnect/realtime-service/config"
	httpsrv "github.com/devconnect/realtime-service/infra/server/http"
	"github.com/devconnect/realtime-service/internal/auth"
	"github.com/devconnect/realtime-service/internal/domain/registry"
	"github.com/devconnect/realtime-service/internal/handler/bus"
	"github.com/devconnect/realtime-service/internal/handler/httpapi"
	"github.com/devconnect/realtime-service/internal/handler/lp"
	"github.com/devconnect/realtime-service/internal/handler/ws"
	"github.com/devconnect/realtime-service/internal/service"
	"github.com/devconnect/realtime-service/internal/store"
)

func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvidePubSub,
			AsPublisher,
			AsSubscriber,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger}
		}),
		store.Module,
		auth.Module,
		registry.Module,
		service.Module,
		bus.Module,
		ws.Module,
		lp.Module,
		httpapi.Module,
		httpsrv.Module,
	)
}
