package store

import (
	"fmt"
	"log/slog"

	"go.uber.org/fx"

	"github.com/devconnect/realtime-service/config"
)

var Module = fx.Module("store",
	fx.Provide(
		fx.Annotate(
			NewFromConfig,
			fx.As(new(Store)),
		),
	),
	fx.Invoke(func(lc fx.Lifecycle, s Store) {
		lc.Append(fx.StopHook(s.Close))
	}),
)

// NewFromConfig builds the configured backend wrapped in the circuit breaker.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Breaker, error) {
	var (
		backend Store
		err     error
	)
	switch cfg.Store.Driver {
	case "memory":
		backend = NewMemory()
	case "sqlite", "":
		backend, err = OpenSQLite(cfg.Store.Path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("store opened", "driver", cfg.Store.Driver, "path", cfg.Store.Path)
	return NewBreaker(backend), nil
}
