package simulate

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/catanbot/internal/domain/stepid"
	"github.com/okian/catanbot/internal/domain/types"
)

// Score ranges of generated games. The winner always beats everyone else.
const (
	loserMinVP  = 2
	loserMaxVP  = 9
	winnerMinVP = 10
	winnerMaxVP = 14
)

// Game is one generated game. Scores[i] belongs to Players[i].
type Game struct {
	Owner   types.Player
	Players []types.Player
	Scores  []int
	Winner  int
}

// NewPool creates n players with random IDs and stable names.
func NewPool(n int) []types.Player {
	pool := make([]types.Player, n)
	for i := range pool {
		pool[i] = types.Player{ID: uuid.NewString(), Name: fmt.Sprintf("player-%02d", i+1)}
	}
	return pool
}

// Generate draws n games from pool. pool must hold at least the minimum
// number of players per game.
func Generate(rng *rand.Rand, pool []types.Player, n int) []Game {
	maxPlayers := min(stepid.MaxPlayers, len(pool))
	games := make([]Game, n)
	for i := range games {
		count := stepid.MinPlayers + rng.IntN(maxPlayers-stepid.MinPlayers+1)
		picked := rng.Perm(len(pool))[:count]

		g := Game{
			Players: make([]types.Player, count),
			Scores:  make([]int, count),
			Winner:  rng.IntN(count),
		}
		for j, idx := range picked {
			g.Players[j] = pool[idx]
			g.Scores[j] = loserMinVP + rng.IntN(loserMaxVP-loserMinVP+1)
		}
		g.Scores[g.Winner] = winnerMinVP + rng.IntN(winnerMaxVP-winnerMinVP+1)
		// Whoever logs the game is usually one of the players.
		g.Owner = g.Players[rng.IntN(count)]
		games[i] = g
	}
	return games
}
