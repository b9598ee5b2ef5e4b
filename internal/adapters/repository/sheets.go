package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/okian/catanbot/internal/domain/model"
	"github.com/okian/catanbot/internal/domain/types"
	"github.com/okian/catanbot/pkg/logger"
	"github.com/okian/catanbot/pkg/metrics"
)

// ValuesAPI is the subset of the Sheets values resource the store needs.
type ValuesAPI interface {
	Append(ctx context.Context, rng string, rows [][]any) error
	Get(ctx context.Context, rng string) ([][]any, error)
	Update(ctx context.Context, rng string, rows [][]any) error
}

// SheetsLayout names the ranges the store reads and writes.
type SheetsLayout struct {
	ScoresTab    string // e.g. "Endgames_scores_FROM BOT"
	RankingRange string // rank, player, points, games
	LookupInput  string // cell the player name is written to
	LookupResult string // one row computed from LookupInput
	TeasingRange string // one template per row
}

// SheetsStore keeps the ledger in a spreadsheet whose formulas compute
// the ranking.
type SheetsStore struct {
	api    ValuesAPI
	layout SheetsLayout
	logger logger.Logger

	// lookupMu serializes the write-then-read on the lookup cells.
	lookupMu sync.Mutex
}

var _ Store = (*SheetsStore)(nil)

// NewSheetsStore builds a store over api.
func NewSheetsStore(api ValuesAPI, layout SheetsLayout, opts ...Option) *SheetsStore {
	o := newOptions("sheets_store", opts)
	return &SheetsStore{api: api, layout: layout, logger: o.logger}
}

// Append adds one row to the scores tab.
func (s *SheetsStore) Append(ctx context.Context, g model.GameRecord) error {
	start := time.Now()
	defer func() { metrics.RecordPersistenceLatency(float64(time.Since(start).Milliseconds())) }()

	rng := fmt.Sprintf("'%s'!A1", s.layout.ScoresTab)
	if err := s.api.Append(ctx, rng, [][]any{Row(g)}); err != nil {
		return fmt.Errorf("%w: append row: %w", ErrPersist, err)
	}
	s.logger.Debug(ctx, "game row appended", logger.String("session_id", g.SessionID))
	return nil
}

// TopN reads the ranking range and returns at most n rows.
func (s *SheetsStore) TopN(ctx context.Context, n int) ([]types.RankedPlayer, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	rows, err := s.api.Get(ctx, s.layout.RankingRange)
	if err != nil {
		return nil, fmt.Errorf("read ranking: %w", err)
	}
	out := make([]types.RankedPlayer, 0, min(n, len(rows)))
	for _, row := range rows {
		if len(out) == n {
			break
		}
		r, ok := parseRankRow(row)
		if !ok {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Rank writes player into the lookup cell and reads the computed row.
func (s *SheetsStore) Rank(ctx context.Context, player string) (types.RankedPlayer, error) {
	s.lookupMu.Lock()
	defer s.lookupMu.Unlock()

	if err := s.api.Update(ctx, s.layout.LookupInput, [][]any{{player}}); err != nil {
		return types.RankedPlayer{}, fmt.Errorf("write lookup: %w", err)
	}
	rows, err := s.api.Get(ctx, s.layout.LookupResult)
	if err != nil {
		return types.RankedPlayer{}, fmt.Errorf("read lookup: %w", err)
	}
	if len(rows) == 0 {
		return types.RankedPlayer{}, ErrNotFound
	}
	r, ok := parseRankRow(rows[0])
	if !ok {
		return types.RankedPlayer{}, ErrNotFound
	}
	return r, nil
}

// TeasingTemplates reads the teasing range, skipping blank cells.
func (s *SheetsStore) TeasingTemplates(ctx context.Context) ([]string, error) {
	rows, err := s.api.Get(ctx, s.layout.TeasingRange)
	if err != nil {
		return nil, fmt.Errorf("read teasing: %w", err)
	}
	var out []string
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		if t := strings.TrimSpace(cell(row, 0)); t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}

// Close is a no-op.
func (s *SheetsStore) Close() error { return nil }

func cell(row []any, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}

// parseRankRow reads rank, player, points, games. Formula errors such as
// #N/A and blank players are rejected.
func parseRankRow(row []any) (types.RankedPlayer, bool) {
	player := cell(row, 1)
	if player == "" || strings.HasPrefix(player, "#") {
		return types.RankedPlayer{}, false
	}
	rank, err := strconv.Atoi(cell(row, 0))
	if err != nil {
		return types.RankedPlayer{}, false
	}
	points, err := strconv.ParseFloat(strings.ReplaceAll(cell(row, 2), ",", "."), 64)
	if err != nil {
		return types.RankedPlayer{}, false
	}
	games, err := strconv.Atoi(cell(row, 3))
	if err != nil {
		games = 0
	}
	return types.RankedPlayer{Rank: rank, Player: player, Points: points, Games: games}, true
}

// serviceValues adapts sheets.Service to ValuesAPI.
type serviceValues struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetID string
}

// NewSheetsValues connects to the Sheets API for one spreadsheet. Either a
// credentials file or inline credentials JSON must be given.
func NewSheetsValues(ctx context.Context, spreadsheetID, credentialsFile, credentialsJSON string) (ValuesAPI, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("%w: sheet id is required", ErrNotConfigured)
	}
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	switch {
	case credentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	case credentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	default:
		return nil, fmt.Errorf("%w: google credentials are required", ErrNotConfigured)
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &serviceValues{values: svc.Spreadsheets.Values, spreadsheetID: spreadsheetID}, nil
}

func (v *serviceValues) Append(ctx context.Context, rng string, rows [][]any) error {
	_, err := v.values.Append(v.spreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func (v *serviceValues) Get(ctx context.Context, rng string) ([][]any, error) {
	resp, err := v.values.Get(v.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (v *serviceValues) Update(ctx context.Context, rng string, rows [][]any) error {
	_, err := v.values.Update(v.spreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}
