package repository

import (
	"time"

	"github.com/okian/catanbot/internal/domain/model"
	"github.com/okian/catanbot/internal/domain/types"
	"github.com/okian/catanbot/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var playedAt = time.Date(2025, 3, 14, 21, 30, 0, 0, time.UTC)

// game builds a record from alternating name/score pairs, highest first.
func game(session string, pairs ...any) model.GameRecord {
	g := model.GameRecord{
		ID:        playedAt.UnixMilli(),
		SessionID: session,
		PlayedAt:  playedAt,
		LoggedBy:  types.Player{ID: "u-logger", Name: "logger"},
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		name := pairs[i].(string)
		g.Scores = append(g.Scores, types.ScoreEntry{
			Player: types.Player{ID: "id-" + name, Name: name},
			Score:  pairs[i+1].(int),
		})
	}
	if len(g.Scores) > 0 {
		g.WinnerScore = g.Scores[0].Score
	}
	return g
}
