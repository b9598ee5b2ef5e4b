// Package session keeps in-flight game-entry sessions in memory and guards
// every step against unknown, finished or foreign sessions.
package session

import (
	"slices"
	"time"

	"github.com/okian/catanbot/internal/domain/types"
)

// Session is one game-result entry in progress.
type Session struct {
	ID        string
	OwnerID   string
	CreatedAt time.Time
	Completed bool

	// DeclaredPlayerCount is chosen first; Players must match it once set.
	DeclaredPlayerCount int
	// Players are in selection order. Later steps refer to them by index.
	Players []types.Player

	// Winner and WinnerScore are set together once the winner's score is
	// accepted.
	HasWinner   bool
	Winner      int
	WinnerScore int
}

// PlayersSet reports whether the player list has been filled.
func (s Session) PlayersSet() bool {
	return len(s.Players) > 0
}

// ValidIndex reports whether i addresses a selected player.
func (s Session) ValidIndex(i int) bool {
	return i >= 0 && i < len(s.Players)
}

// Remaining returns the indexes of every player except the winner, in
// selection order.
func (s Session) Remaining(winner int) []int {
	out := make([]int, 0, len(s.Players))
	for i := range s.Players {
		if i != winner {
			out = append(out, i)
		}
	}
	return out
}

func (s Session) clone() Session {
	s.Players = slices.Clone(s.Players)
	return s
}
