// Package summary renders recorded games and rankings as chat messages.
package summary

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/okian/catanbot/internal/domain/model"
	"github.com/okian/catanbot/internal/domain/types"
	"github.com/okian/catanbot/internal/domain/ui"
)

const (
	dateLayout = "Monday, January 2, 2006"
	rankColor  = 0x0099ff
)

var (
	gameMedals   = []string{"🥇", "🥈", "🥉"}
	gameFallback = "🐑"
	ladderMedal  = "🎯"
)

func medal(i int, fallback string) string {
	if i < len(gameMedals) {
		return gameMedals[i]
	}
	return fallback
}

// Game renders the public summary of a recorded game.
func Game(g model.GameRecord, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	var b strings.Builder
	b.WriteString("🎲 **Catan Game Summary**\n\n")
	fmt.Fprintf(&b, "📅 **Date**: %s\n", g.PlayedAt.In(loc).Format(dateLayout))
	fmt.Fprintf(&b, "👥 **Players**: %d\n\n", g.PlayerCount())
	b.WriteString("**Final Rankings**:\n")
	for i, e := range g.Scores {
		fmt.Fprintf(&b, "    %s **%s**: %d points\n", medal(i, gameFallback), e.Player.Name, e.Score)
	}
	if len(g.Scores) > 0 {
		fmt.Fprintf(&b, "\nCongratulations %s! 🎉", g.Scores[0].Player.Name)
	}
	return b.String()
}

// Ladder renders the top of the league ranking.
func Ladder(rows []types.RankedPlayer) string {
	if len(rows) == 0 {
		return "❌ No ranking data available yet. Play some games first!"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏆 **Catan League Leaderboard - Top %d**\n\n", len(rows))
	for i, r := range rows {
		fmt.Fprintf(&b, "%s **#%d %s**\n", medal(i, ladderMedal), r.Rank, r.Player)
		fmt.Fprintf(&b, "   ⭐ %s points • 🎲 %d games\n\n", Points(r.Points), r.Games)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Rank renders a single player's standing as an embed.
func Rank(r types.RankedPlayer) *ui.Embed {
	return &ui.Embed{
		Title: "🏆 Your Catan Ranking",
		Color: rankColor,
		Fields: []ui.EmbedField{
			{Name: "👤 Player", Value: r.Player},
			{Name: "🏆 Rank", Value: "#" + strconv.Itoa(r.Rank)},
			{Name: "⭐ Points", Value: Points(r.Points)},
			{Name: "🎲 Games Played", Value: strconv.Itoa(r.Games)},
		},
		Footer: "Catan League Rankings",
	}
}

// Points formats points without trailing zeros.
func Points(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
