package discord

import (
	"time"

	"github.com/okian/catanbot/pkg/logger"
)

// Option configures a Bot.
type Option func(*options)

type options struct {
	timeout time.Duration
	logger  logger.Logger
}

func newOptions(opts []Option) options {
	o := options{timeout: defaultInteractionTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("discord")
	}
	return o
}

// WithLogger sets the bot logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithInteractionTimeout bounds the handling of one interaction.
func WithInteractionTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}
