package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/catanbot/internal/domain/model"
	"github.com/okian/catanbot/internal/domain/types"
	"github.com/okian/catanbot/pkg/logger"
	"github.com/okian/catanbot/pkg/metrics"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS games (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	game_ms     INTEGER NOT NULL,
	session_id  TEXT    NOT NULL UNIQUE,
	played_on   TEXT    NOT NULL,
	nb_players  INTEGER NOT NULL,
	winner_vp   INTEGER NOT NULL,
	logged_by   TEXT    NOT NULL
);
CREATE TABLE IF NOT EXISTS game_players (
	game_id     INTEGER NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	player_id   TEXT    NOT NULL,
	player_name TEXT    NOT NULL,
	vp          INTEGER NOT NULL,
	PRIMARY KEY (game_id, position)
);
CREATE INDEX IF NOT EXISTS game_players_name ON game_players(player_name);
CREATE TABLE IF NOT EXISTS teasing_templates (
	template TEXT PRIMARY KEY
);`

const standingsQuery = `
SELECT player_name, SUM(vp) AS points, COUNT(*) AS games
  FROM game_players
 GROUP BY player_name
 ORDER BY points DESC, player_name ASC`

// SQLiteStore persists games in a local SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens path, creates the schema and seeds teasing templates
// given through WithTeasingTemplates. Existing templates are kept.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", ErrNotConfigured)
	}
	o := newOptions("sqlite_store", opts)

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer keeps appends serialized without SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	for _, t := range o.templates {
		if _, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO teasing_templates (template) VALUES (?)`, t); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("seed teasing templates: %w", err)
		}
	}
	return &SQLiteStore{db: db, logger: o.logger}, nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append writes the game and its player rows in one transaction.
func (s *SQLiteStore) Append(ctx context.Context, g model.GameRecord) (err error) {
	start := time.Now()
	defer func() { metrics.RecordPersistenceLatency(float64(time.Since(start).Milliseconds())) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrPersist, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO games (game_ms, session_id, played_on, nb_players, winner_vp, logged_by)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID,
		g.SessionID,
		g.PlayedAt.UTC().Format(dateLayout),
		g.PlayerCount(),
		g.WinnerScore,
		g.LoggedBy.Name,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: session %s", ErrDuplicateGame, g.SessionID)
		}
		return fmt.Errorf("%w: insert game: %w", ErrPersist, err)
	}
	gameID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: game id: %w", ErrPersist, err)
	}
	for i, e := range g.Scores {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO game_players (game_id, position, player_id, player_name, vp) VALUES (?, ?, ?, ?, ?)`,
			gameID, i+1, e.Player.ID, e.Player.Name, e.Score,
		); err != nil {
			return fmt.Errorf("%w: insert player: %w", ErrPersist, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrPersist, err)
	}
	s.logger.Debug(ctx, "game appended",
		logger.String("session_id", g.SessionID),
		logger.Int64("row_id", gameID),
	)
	return nil
}

func (s *SQLiteStore) standings(ctx context.Context) ([]types.RankedPlayer, error) {
	rows, err := s.db.QueryContext(ctx, standingsQuery)
	if err != nil {
		return nil, fmt.Errorf("query standings: %w", err)
	}
	defer rows.Close()

	var out []types.RankedPlayer
	for rows.Next() {
		var (
			r      types.RankedPlayer
			points int64
		)
		if err := rows.Scan(&r.Player, &points, &r.Games); err != nil {
			return nil, fmt.Errorf("scan standings: %w", err)
		}
		r.Points = float64(points)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate standings: %w", err)
	}
	assignRanksWithTies(out)
	return out, nil
}

// TopN returns the n best players.
func (s *SQLiteStore) TopN(ctx context.Context, n int) ([]types.RankedPlayer, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	all, err := s.standings(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

// Rank returns one player's standing.
func (s *SQLiteStore) Rank(ctx context.Context, player string) (types.RankedPlayer, error) {
	all, err := s.standings(ctx)
	if err != nil {
		return types.RankedPlayer{}, err
	}
	for _, r := range all {
		if r.Player == player {
			return r, nil
		}
	}
	return types.RankedPlayer{}, ErrNotFound
}

// CountGames returns the number of stored games.
func (s *SQLiteStore) CountGames(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM games`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count games: %w", err)
	}
	return n, nil
}

// TeasingTemplates returns the stored templates in insertion order.
func (s *SQLiteStore) TeasingTemplates(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT template FROM teasing_templates ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query teasing templates: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan teasing template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
