// Package scoring parses victory points and orders a finished game.
package scoring

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/okian/catanbot/internal/domain/types"
)

// Bounds of a single player's victory points.
const (
	MinScore = 0
	MaxScore = 99
)

// ErrInvalidScore is returned when a score is not an integer within bounds.
var ErrInvalidScore = errors.New("invalid score")

// ParseScore converts user input into victory points.
func ParseScore(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidScore)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a whole number", ErrInvalidScore, raw)
	}
	if err := ValidateScore(n); err != nil {
		return 0, err
	}
	return n, nil
}

// ValidateScore checks that n lies within [MinScore, MaxScore].
func ValidateScore(n int) error {
	if n < MinScore || n > MaxScore {
		return fmt.Errorf("%w: %d is outside %d..%d", ErrInvalidScore, n, MinScore, MaxScore)
	}
	return nil
}

// Rank returns entries ordered by score, highest first. Entries with equal
// scores keep their input order. The input slice is not modified.
func Rank(entries []types.ScoreEntry) []types.ScoreEntry {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b types.ScoreEntry) int {
		return b.Score - a.Score
	})
	return out
}
