package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/okian/catanbot/internal/domain/model"
	"github.com/okian/catanbot/internal/domain/types"
	"github.com/okian/catanbot/pkg/logger"
	"github.com/okian/catanbot/pkg/metrics"
)

const retryInitialInterval = 200 * time.Millisecond

// Retrying wraps a Store so idempotent reads are retried with exponential
// backoff. Appends pass straight through.
type Retrying struct {
	Store
	maxElapsed time.Duration
	logger     logger.Logger
}

// NewRetrying wraps inner.
func NewRetrying(inner Store, opts ...Option) *Retrying {
	o := newOptions("retrying_store", opts)
	return &Retrying{Store: inner, maxElapsed: o.maxElapsed, logger: o.logger}
}

// CountGames delegates to the wrapped store when it can count games.
func (r *Retrying) CountGames(ctx context.Context) (int, error) {
	c, ok := r.Store.(GameCounter)
	if !ok {
		return 0, ErrUnsupported
	}
	return retryRead(ctx, r, "count_games", func() (int, error) {
		return c.CountGames(ctx)
	})
}

// Append is never retried; a duplicate row is worse than a lost one.
func (r *Retrying) Append(ctx context.Context, g model.GameRecord) error {
	return r.Store.Append(ctx, g)
}

func (r *Retrying) TopN(ctx context.Context, n int) ([]types.RankedPlayer, error) {
	return retryRead(ctx, r, "top", func() ([]types.RankedPlayer, error) {
		return r.Store.TopN(ctx, n)
	})
}

func (r *Retrying) Rank(ctx context.Context, player string) (types.RankedPlayer, error) {
	return retryRead(ctx, r, "rank", func() (types.RankedPlayer, error) {
		return r.Store.Rank(ctx, player)
	})
}

func (r *Retrying) TeasingTemplates(ctx context.Context) ([]string, error) {
	return retryRead(ctx, r, "teasing", func() ([]string, error) {
		return r.Store.TeasingTemplates(ctx)
	})
}

func retryRead[T any](ctx context.Context, r *Retrying, kind string, read func() (T, error)) (T, error) {
	metrics.RecordRankingQuery(kind)

	bo := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(retryInitialInterval),
		backoff.WithMaxElapsedTime(r.maxElapsed),
	)
	var out T
	op := func() error {
		v, err := read()
		if err != nil {
			if isPermanent(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		out = v
		return nil
	}
	notify := func(err error, wait time.Duration) {
		metrics.RecordReadRetry()
		r.logger.Warn(ctx, "read failed, retrying",
			logger.String("kind", kind),
			logger.Duration("wait", wait),
			logger.Error(err),
		)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notify); err != nil {
		if !errors.Is(err, ErrNotFound) {
			metrics.RecordRankingError(kind)
		}
		var zero T
		return zero, err
	}
	return out, nil
}

func isPermanent(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidLimit) ||
		errors.Is(err, ErrNotConfigured) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
