package repository

import (
	"context"
	"fmt"

	"github.com/okian/catanbot/internal/domain/model"
	"github.com/okian/catanbot/internal/domain/types"
)

// Unavailable is used when the configured backend could not be opened.
// Every call fails with ErrNotConfigured wrapping the cause, so the bot
// still starts and tells users storage is down.
type Unavailable struct {
	Cause error
}

var _ Store = Unavailable{}

func (u Unavailable) err() error {
	if u.Cause == nil {
		return ErrNotConfigured
	}
	return fmt.Errorf("%w: %w", ErrNotConfigured, u.Cause)
}

func (u Unavailable) Append(context.Context, model.GameRecord) error {
	return u.err()
}

func (u Unavailable) TopN(context.Context, int) ([]types.RankedPlayer, error) {
	return nil, u.err()
}

func (u Unavailable) Rank(context.Context, string) (types.RankedPlayer, error) {
	return types.RankedPlayer{}, u.err()
}

func (u Unavailable) TeasingTemplates(context.Context) ([]string, error) {
	return nil, u.err()
}

func (u Unavailable) Close() error { return nil }
