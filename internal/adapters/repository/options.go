package repository

import (
	"time"

	"github.com/okian/catanbot/pkg/logger"
)

const defaultRetryMaxElapsed = 10 * time.Second

type options struct {
	logger     logger.Logger
	templates  []string
	maxElapsed time.Duration
}

// Option configures a backend.
type Option func(*options)

func newOptions(name string, opts []Option) options {
	o := options{maxElapsed: defaultRetryMaxElapsed}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named(name)
	}
	return o
}

// WithLogger sets the backend logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTeasingTemplates seeds the teasing templates of backends that do not
// store their own.
func WithTeasingTemplates(templates []string) Option {
	return func(o *options) {
		o.templates = append([]string(nil), templates...)
	}
}

// WithRetryMaxElapsed bounds how long reads are retried.
func WithRetryMaxElapsed(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.maxElapsed = d
		}
	}
}
