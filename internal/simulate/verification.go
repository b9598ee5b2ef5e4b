package simulate

import (
	"fmt"
	"sort"

	"github.com/okian/catanbot/internal/domain/types"
)

// Expected computes the league table for games independently of any
// store: total VP per player name, dense ranks on equal totals.
func Expected(games []Game) []types.RankedPlayer {
	byName := make(map[string]*types.RankedPlayer)
	for _, g := range games {
		for i, p := range g.Players {
			row, ok := byName[p.Name]
			if !ok {
				row = &types.RankedPlayer{Player: p.Name}
				byName[p.Name] = row
			}
			row.Points += float64(g.Scores[i])
			row.Games++
		}
	}

	rows := make([]types.RankedPlayer, 0, len(byName))
	for _, r := range byName {
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].Player < rows[j].Player
	})

	rank := 0
	for i := range rows {
		if i == 0 || rows[i].Points != rows[i-1].Points {
			rank++
		}
		rows[i].Rank = rank
	}
	return rows
}

// Verify compares a league table row by row.
func Verify(expected, actual []types.RankedPlayer) error {
	if len(expected) != len(actual) {
		return fmt.Errorf("%w: %d rows, want %d", ErrMismatch, len(actual), len(expected))
	}
	for i := range expected {
		if expected[i] != actual[i] {
			return fmt.Errorf("%w: row %d is %+v, want %+v", ErrMismatch, i+1, actual[i], expected[i])
		}
	}
	return nil
}
