package deno

import (
	"strconv"

	"github.com/ygrebnov/errorc"
)

// DefaultChannelCapacity is the per-direction capacity of a worker's message
// channel unless overridden with WithChannelCapacity. Sends park once the
// direction holds this many undelivered messages.
const DefaultChannelCapacity = 64

// config holds per-worker construction settings.
type config struct {
	// ChannelCapacity bounds each direction of the message channel.
	// Default: DefaultChannelCapacity.
	ChannelCapacity int
}

func defaultConfig() config {
	return config{ChannelCapacity: DefaultChannelCapacity}
}

func validateConfig(cfg *config) error {
	if cfg.ChannelCapacity <= 0 {
		return errorc.With(ErrInvalidConfig,
			errorc.String("channel_capacity", strconv.Itoa(cfg.ChannelCapacity)))
	}
	return nil
}

// Option configures a Worker at construction time.
type Option func(*config) error

// WithChannelCapacity bounds each message-channel direction to n messages
// (must be > 0).
func WithChannelCapacity(n int) Option {
	return func(cfg *config) error {
		if n <= 0 {
			return errorc.With(ErrInvalidConfig,
				errorc.String("channel_capacity", strconv.Itoa(n)))
		}
		cfg.ChannelCapacity = n
		return nil
	}
}
