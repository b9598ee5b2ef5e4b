// Package simulate plays random Catan games through the bot exactly as
// Discord would deliver them and checks the resulting league table.
package simulate

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	Games   int    // Number of games to play
	Players int    // Size of the player pool games draw from
	Workers int    // Number of games played concurrently
	Seed    uint64 // Random seed; 0 picks one

	// Storage is "memory" or "sqlite". SQLite needs a path to a fresh file.
	Storage    string
	SQLitePath string

	// Wait bounds how long recorded games may take to be persisted.
	Wait    time.Duration
	Verbose bool
}

// Stats holds run statistics.
type Stats struct {
	GamesGenerated     int
	GamesSubmitted     int
	GamesRejected      int
	GamesRecorded      int
	GamesFailed        int
	SummariesPublished int
	PlayersRanked      int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
