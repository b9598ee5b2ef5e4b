// Package config defines the bot configuration and how it is loaded.
package config

import (
	"fmt"
	"time"
)

// Storage backends.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageSheets = "sheets"
)

const (
	minLadderSize = 1
	maxLadderSize = 25
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr is the health/metrics HTTP listen address.
	Addr string `koanf:"addr"`

	DiscordToken         string `koanf:"discord_token"`
	GuildID              string `koanf:"guild_id"`
	ScoringChannelID     string `koanf:"scoring_channel_id"`
	LeaderboardChannelID string `koanf:"leaderboard_channel_id"`

	// SessionTTL bounds how long a game-entry session stays reachable.
	SessionTTL time.Duration `koanf:"session_ttl"`
	// SweepInterval is how often expired sessions are purged.
	SweepInterval time.Duration `koanf:"sweep_interval"`

	// DedupeSize bounds the remembered interaction IDs.
	DedupeSize int `koanf:"dedupe_size"`
	// QueueSize bounds pending record jobs.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of persistence workers.
	WorkerCount int `koanf:"worker_count"`

	// LadderSize is the number of players shown by /ladder.
	LadderSize int `koanf:"ladder_size"`
	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// Storage selects the result backend: memory, sqlite or sheets.
	Storage    string `koanf:"storage"`
	SQLitePath string `koanf:"sqlite_path"`

	SheetID           string `koanf:"sheet_id"`
	SheetScoresTab    string `koanf:"sheet_scores_tab"`
	SheetRankingRange string `koanf:"sheet_ranking_range"`
	// SheetLookupInput is the cell a player name is written to for /myrank.
	SheetLookupInput string `koanf:"sheet_lookup_input"`
	// SheetLookupResult is the row range holding the computed lookup.
	SheetLookupResult string `koanf:"sheet_lookup_result"`
	SheetTeasingRange string `koanf:"sheet_teasing_range"`

	// Service account credentials, as a file path or inline JSON.
	GoogleCredentialsFile string `koanf:"google_credentials_file"`
	GoogleCredentialsJSON string `koanf:"google_credentials_json"`

	// ReadRetryMaxElapsed bounds retries of idempotent backend reads.
	ReadRetryMaxElapsed time.Duration `koanf:"read_retry_max_elapsed"`

	// TeasingTemplates are used when the backend has no teasing source.
	TeasingTemplates []string `koanf:"teasing_templates"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":3000",
		SessionTTL:          30 * time.Minute,
		SweepInterval:       time.Minute,
		DedupeSize:          10_000,
		QueueSize:           256,
		WorkerCount:         2,
		LadderSize:          5,
		MaxLeaderboardLimit: 100,
		Storage:             StorageMemory,
		SQLitePath:          "catanbot.db",
		SheetScoresTab:      "Endgames_scores_FROM BOT",
		SheetRankingRange:   "Ranking!A2:D",
		SheetLookupInput:    "Lookup!A1",
		SheetLookupResult:   "Lookup!A2:D2",
		SheetTeasingRange:   "Teasing!A2:A",
		ReadRetryMaxElapsed: 10 * time.Second,
		TeasingTemplates: []string{
			"{player} builds roads to nowhere.",
			"{player} still thinks sheep are a strategy.",
			"{player} has never met a robber they liked.",
		},
	}
}

// Validate checks the values every command needs.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.SessionTTL <= 0:
		return fmt.Errorf("%w: session_ttl must be positive", ErrInvalidConfig)
	case c.SweepInterval <= 0:
		return fmt.Errorf("%w: sweep_interval must be positive", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be at least 1", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be at least 1", ErrInvalidConfig)
	case c.LadderSize < minLadderSize || c.LadderSize > maxLadderSize:
		return fmt.Errorf("%w: ladder_size must be within 1..%d", ErrInvalidConfig, maxLadderSize)
	}

	switch c.Storage {
	case StorageMemory:
	case StorageSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite_path is required for sqlite storage", ErrInvalidConfig)
		}
	case StorageSheets:
		if c.SheetID == "" {
			return fmt.Errorf("%w: sheet_id is required for sheets storage", ErrInvalidConfig)
		}
		if c.GoogleCredentialsFile == "" && c.GoogleCredentialsJSON == "" {
			return fmt.Errorf("%w: google credentials are required for sheets storage", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage %q", ErrInvalidConfig, c.Storage)
	}
	return nil
}

// ValidateDiscord checks the values needed to talk to Discord.
func (c *Config) ValidateDiscord() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("%w: discord_token must be set", ErrInvalidConfig)
	}
	if c.ScoringChannelID == "" {
		return fmt.Errorf("%w: scoring_channel_id must be set", ErrInvalidConfig)
	}
	if c.LeaderboardChannelID == "" {
		return fmt.Errorf("%w: leaderboard_channel_id must be set", ErrInvalidConfig)
	}
	return nil
}
