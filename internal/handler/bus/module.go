package bus

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx"
)

var Module = fx.Module("bus-handler",
	fx.Provide(
		NewEventHandler,
		NewWatermillRouter,
	),

	fx.Invoke(registerAndRun),
)

func registerAndRun(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	router *message.Router,
	handler *EventHandler,
	subscriber message.Subscriber,
) error {
	if err := handler.RegisterHandlers(router, subscriber); err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := router.Run(context.Background()); err != nil {
					handler.logger.Error("event router stopped", "err", err)
					_ = shutdowner.Shutdown()
				}
			}()

			// Block startup until handlers are consuming, so no event
			// published during boot is lost.
			select {
			case <-router.Running():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
		OnStop: func(context.Context) error {
			return router.Close()
		},
	})
	return nil
}
