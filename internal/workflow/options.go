package workflow

import (
	"github.com/okian/catanbot/pkg/clock"
	"github.com/okian/catanbot/pkg/logger"
)

// Option configures a GameEntry.
type Option func(*GameEntry)

// WithClock sets the clock used for game timestamps.
func WithClock(c clock.Clock) Option {
	return func(g *GameEntry) {
		if c != nil {
			g.clock = c
		}
	}
}

// WithLogger sets the workflow logger.
func WithLogger(l logger.Logger) Option {
	return func(g *GameEntry) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithScoringChannel restricts /endgame to one channel. Empty allows any.
func WithScoringChannel(id string) Option {
	return func(g *GameEntry) {
		g.scoringChannel = id
	}
}
