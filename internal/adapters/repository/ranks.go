package repository

import (
	"sort"

	"github.com/okian/catanbot/internal/domain/types"
)

// sortRanking orders rows by points desc, then player asc.
func sortRanking(rows []types.RankedPlayer) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].Player < rows[j].Player
	})
}

// assignRanksWithTies gives equal points the same rank; the next distinct
// value takes the next consecutive rank. rows must already be sorted.
func assignRanksWithTies(rows []types.RankedPlayer) {
	rank := 0
	for i := range rows {
		if i == 0 || rows[i].Points != rows[i-1].Points {
			rank++
		}
		rows[i].Rank = rank
	}
}
