// Package tease picks playful messages aimed at another player.
package tease

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
)

// Placeholder is replaced by the target's mention.
const Placeholder = "{player}"

var (
	// ErrNoTemplates means the source returned nothing usable.
	ErrNoTemplates = errors.New("no teasing templates")
	// ErrSelfTarget rejects teasing oneself.
	ErrSelfTarget = errors.New("cannot tease yourself")
)

// Source supplies templates.
type Source interface {
	TeasingTemplates(ctx context.Context) ([]string, error)
}

// Selector picks a random template from a Source.
type Selector struct {
	source Source

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Selector.
type Option func(*Selector)

// WithRand sets the random source, mostly for tests.
func WithRand(rng *rand.Rand) Option {
	return func(s *Selector) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// NewSelector creates a Selector over source.
func NewSelector(source Source, opts ...Option) *Selector {
	s := &Selector{
		source: source,
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec // not security sensitive
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compose returns the message sent when sender teases target, both given
// as mentions or display names.
func (s *Selector) Compose(ctx context.Context, target, sender string) (string, error) {
	tmpl, err := s.Pick(ctx)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(tmpl, Placeholder, target) + "\n\n*— " + sender + "*", nil
}

// Pick returns one non-blank template chosen uniformly at random.
func (s *Selector) Pick(ctx context.Context) (string, error) {
	all, err := s.source.TeasingTemplates(ctx)
	if err != nil {
		return "", err
	}

	templates := all[:0:0]
	for _, t := range all {
		if strings.TrimSpace(t) != "" {
			templates = append(templates, t)
		}
	}
	if len(templates) == 0 {
		return "", ErrNoTemplates
	}

	s.mu.Lock()
	i := s.rng.IntN(len(templates))
	s.mu.Unlock()
	return templates[i], nil
}

// Static is a Source backed by a fixed list.
type Static []string

// TeasingTemplates returns the list.
func (s Static) TeasingTemplates(context.Context) ([]string, error) {
	return s, nil
}
