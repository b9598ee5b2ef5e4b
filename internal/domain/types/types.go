// Package types contains common types used across the application.
package types

// Player identifies a chat user taking part in a game.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Mention renders the platform mention for the player.
func (p Player) Mention() string {
	return "<@" + p.ID + ">"
}

// ScoreEntry is one player's final victory points.
type ScoreEntry struct {
	Player Player `json:"player"`
	Score  int    `json:"score"`
}

// RankedPlayer is a row of the league ranking.
type RankedPlayer struct {
	Rank   int     `json:"rank"`
	Player string  `json:"player"`
	Points float64 `json:"points"`
	Games  int     `json:"games"`
}
