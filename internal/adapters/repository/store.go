// Package repository holds the result ledger and ranking backends:
// an in-memory treap, SQLite and Google Sheets.
package repository

import (
	"context"

	"github.com/okian/catanbot/internal/domain/model"
	"github.com/okian/catanbot/internal/domain/types"
)

// Ledger durably records finished games. Append is not retried by callers.
type Ledger interface {
	Append(ctx context.Context, game model.GameRecord) error
}

// RankingReader answers league ranking queries.
type RankingReader interface {
	// TopN returns at most n players, best first.
	TopN(ctx context.Context, n int) ([]types.RankedPlayer, error)
	// Rank returns one player's standing or ErrNotFound.
	Rank(ctx context.Context, player string) (types.RankedPlayer, error)
}

// TeasingSource supplies /roast templates.
type TeasingSource interface {
	TeasingTemplates(ctx context.Context) ([]string, error)
}

// GameCounter reports how many games a backend holds.
type GameCounter interface {
	CountGames(ctx context.Context) (int, error)
}

// Store is what a backend provides.
type Store interface {
	Ledger
	RankingReader
	TeasingSource
	Close() error
}
