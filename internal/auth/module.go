package auth

import (
	"go.uber.org/fx"

	"github.com/devconnect/realtime-service/config"
	"github.com/devconnect/realtime-service/internal/store"
)

var Module = fx.Module("auth",
	fx.Provide(
		func(cfg *config.Config, s store.Store) *Resolver {
			return NewResolver(cfg.Auth.Secret, s)
		},
	),
)
