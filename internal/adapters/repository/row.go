package repository

import (
	"strconv"

	"github.com/okian/catanbot/internal/domain/model"
)

// Header is the column layout of one recorded game.
var Header = func() []string {
	h := []string{"Game_id", "Game_date", "Game_nb_players", "Game_VP", "Logged_by"}
	for i := 1; i <= model.MaxPlayers; i++ {
		n := strconv.Itoa(i)
		h = append(h, "Player_"+n+"_Discord", "Player_"+n+"_VP")
	}
	return h
}()

// dateLayout is the ISO date written to Game_date.
const dateLayout = "2006-01-02"

// Row renders g in Header order. Unused player slots are empty strings.
func Row(g model.GameRecord) []any {
	row := make([]any, 0, len(Header))
	row = append(row,
		g.ID,
		g.PlayedAt.UTC().Format(dateLayout),
		g.PlayerCount(),
		g.WinnerScore,
		g.LoggedBy.Name,
	)
	for i := 0; i < model.MaxPlayers; i++ {
		if i < len(g.Scores) {
			row = append(row, g.Scores[i].Player.Name, g.Scores[i].Score)
			continue
		}
		row = append(row, "", "")
	}
	return row
}
