package cmd

import (
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/devconnect/realtime-service/config"
)

// ProvideLogger builds the root structured logger. The level handle lives in
// the config so a file change can retune verbosity at runtime.
func ProvideLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Level,
	})).With("service", ServiceName)
}

// ProvidePubSub builds the in-process event stream shared by the publisher
// side (services) and the consumer side (fanout router).
func ProvidePubSub(logger *slog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, watermill.NewSlogLogger(logger))
}

func AsPublisher(ps *gochannel.GoChannel) message.Publisher { return ps }

func AsSubscriber(ps *gochannel.GoChannel) message.Subscriber { return ps }
