package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"

	"github.com/devconnect/realtime-service/config"
	"github.com/devconnect/realtime-service/internal/handler/httpapi"
	"github.com/devconnect/realtime-service/internal/handler/lp"
	"github.com/devconnect/realtime-service/internal/handler/ws"
)

// NewServer assembles the single HTTP listener: REST under /api, the
// WebSocket upgrade endpoint and the long-polling fallback.
func NewServer(cfg *config.Config, api *httpapi.APIHandler, wsHandler *ws.WSHandler, lpHandler *lp.LPHandler) *http.Server {
	mux := chi.NewRouter()
	mux.Mount("/api", api.Routes())
	mux.Handle("/ws", wsHandler)
	mux.Mount("/poll", lpHandler.Routes())

	return &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

var Module = fx.Module("http-server",
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func run(lc fx.Lifecycle, shutdowner fx.Shutdowner, srv *http.Server, cfg *config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				logger.Info("http server listening", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server failed", "error", err)
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
