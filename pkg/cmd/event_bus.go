package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/claimflow/claimflow/pkg/channels/gochannel"
	"github.com/claimflow/claimflow/pkg/channels/kafka"
	"github.com/claimflow/claimflow/pkg/eventbus"
)

// NewEventBus creates an event bus for the given provider. The in-process
// gochannel is the default; kafka requires KAFKA_BROKERS.
func NewEventBus(provider, serviceName string, logger *slog.Logger) (eventbus.EventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka channel: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create gochannel channel: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %q", provider)
	}
}
