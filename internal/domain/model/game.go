// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/catanbot/internal/domain/types"
	"github.com/okian/catanbot/internal/domain/ui"
)

// MaxPlayers is the number of player slots in a recorded game.
const MaxPlayers = 6

// GameRecord is a finished game ready to be written to the ledger.
type GameRecord struct {
	ID          int64 // epoch milliseconds at completion
	SessionID   string
	PlayedAt    time.Time
	LoggedBy    types.Player
	WinnerScore int
	// Scores are ordered by score, highest first.
	Scores []types.ScoreEntry
}

// PlayerCount returns the number of players in the game.
func (g GameRecord) PlayerCount() int {
	return len(g.Scores)
}

// RecordJob is queued by the final workflow step and consumed by workers.
type RecordJob struct {
	Game       GameRecord
	Origin     ui.InteractionRef
	EnqueuedAt time.Time
}
