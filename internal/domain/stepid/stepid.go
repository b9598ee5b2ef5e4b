// Package stepid encodes workflow step payloads into the short identifiers
// attached to buttons, menus and forms, and decodes them when the user acts.
//
// Grammar: <tag>:<param>:...:<sessionID>. Parameters are integers only;
// players are referenced by their index in the session, never by name.
package stepid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/catanbot/internal/domain/scoring"
)

const (
	// Sep separates tokens. It never occurs in integers or session IDs.
	Sep = ":"

	// MaxLen is the longest identifier the chat platform accepts.
	MaxLen = 100

	MinPlayers = 2
	MaxPlayers = 6

	maxSessionIDLen = 64
)

// ErrMalformed is returned for identifiers that cannot be trusted.
var ErrMalformed = errors.New("malformed step identifier")

// Step names a workflow step.
type Step int

const (
	StepChooseCount Step = iota + 1
	StepSelectPlayers
	StepChooseWinner
	StepWinnerScore
	StepContinueScores
	StepRemainingScores
)

var tags = map[Step]string{
	StepChooseCount:     "count",
	StepSelectPlayers:   "players",
	StepChooseWinner:    "winner",
	StepWinnerScore:     "wscore",
	StepContinueScores:  "next",
	StepRemainingScores: "rest",
}

// String returns the wire tag, also used as a metrics label.
func (s Step) String() string {
	if t, ok := tags[s]; ok {
		return t
	}
	return "unknown"
}

// Payload is one of the step variants below.
type Payload interface {
	Step() Step
	Session() string
	params() []int
}

// ChooseCount is a player-count button.
type ChooseCount struct {
	SessionID string
	Count     int
}

// SelectPlayers is the user-select menu for Count players.
type SelectPlayers struct {
	SessionID string
	Count     int
}

// ChooseWinner is a winner button.
type ChooseWinner struct {
	SessionID string
	Winner    int
}

// WinnerScore is the winner's score form.
type WinnerScore struct {
	SessionID string
	Winner    int
}

// ContinueScores is the button leading to the remaining scores form.
type ContinueScores struct {
	SessionID   string
	Winner      int
	WinnerScore int
}

// RemainingScores is the form collecting every other player's score.
type RemainingScores struct {
	SessionID   string
	Winner      int
	WinnerScore int
}

func (p ChooseCount) Step() Step     { return StepChooseCount }
func (p SelectPlayers) Step() Step   { return StepSelectPlayers }
func (p ChooseWinner) Step() Step    { return StepChooseWinner }
func (p WinnerScore) Step() Step     { return StepWinnerScore }
func (p ContinueScores) Step() Step  { return StepContinueScores }
func (p RemainingScores) Step() Step { return StepRemainingScores }

func (p ChooseCount) Session() string     { return p.SessionID }
func (p SelectPlayers) Session() string   { return p.SessionID }
func (p ChooseWinner) Session() string    { return p.SessionID }
func (p WinnerScore) Session() string     { return p.SessionID }
func (p ContinueScores) Session() string  { return p.SessionID }
func (p RemainingScores) Session() string { return p.SessionID }

func (p ChooseCount) params() []int     { return []int{p.Count} }
func (p SelectPlayers) params() []int   { return []int{p.Count} }
func (p ChooseWinner) params() []int    { return []int{p.Winner} }
func (p WinnerScore) params() []int     { return []int{p.Winner} }
func (p ContinueScores) params() []int  { return []int{p.Winner, p.WinnerScore} }
func (p RemainingScores) params() []int { return []int{p.Winner, p.WinnerScore} }

// Encode renders p. It panics on payloads that Decode would reject, since
// those can only come from a programming error.
func Encode(p Payload) string {
	if err := validate(p); err != nil {
		panic(err)
	}
	parts := []string{p.Step().String()}
	for _, v := range p.params() {
		parts = append(parts, strconv.Itoa(v))
	}
	parts = append(parts, p.Session())
	return strings.Join(parts, Sep)
}

// Decode parses and validates an identifier.
func Decode(raw string) (Payload, error) {
	if raw == "" || len(raw) > MaxLen {
		return nil, fmt.Errorf("%w: length %d", ErrMalformed, len(raw))
	}
	parts := strings.Split(raw, Sep)
	if len(parts) < 3 {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}

	tag, sid, rawParams := parts[0], parts[len(parts)-1], parts[1:len(parts)-1]
	nums := make([]int, len(rawParams))
	for i, s := range rawParams {
		n, err := strconv.Atoi(s)
		if err != nil || strconv.Itoa(n) != s {
			return nil, fmt.Errorf("%w: parameter %q", ErrMalformed, s)
		}
		nums[i] = n
	}

	var p Payload
	switch {
	case tag == StepChooseCount.String() && len(nums) == 1:
		p = ChooseCount{SessionID: sid, Count: nums[0]}
	case tag == StepSelectPlayers.String() && len(nums) == 1:
		p = SelectPlayers{SessionID: sid, Count: nums[0]}
	case tag == StepChooseWinner.String() && len(nums) == 1:
		p = ChooseWinner{SessionID: sid, Winner: nums[0]}
	case tag == StepWinnerScore.String() && len(nums) == 1:
		p = WinnerScore{SessionID: sid, Winner: nums[0]}
	case tag == StepContinueScores.String() && len(nums) == 2:
		p = ContinueScores{SessionID: sid, Winner: nums[0], WinnerScore: nums[1]}
	case tag == StepRemainingScores.String() && len(nums) == 2:
		p = RemainingScores{SessionID: sid, Winner: nums[0], WinnerScore: nums[1]}
	default:
		return nil, fmt.Errorf("%w: unknown tag or arity in %q", ErrMalformed, raw)
	}

	if err := validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

func validate(p Payload) error {
	if err := validSessionID(p.Session()); err != nil {
		return err
	}
	switch v := p.(type) {
	case ChooseCount:
		return validCount(v.Count)
	case SelectPlayers:
		return validCount(v.Count)
	case ChooseWinner:
		return validIndex(v.Winner)
	case WinnerScore:
		return validIndex(v.Winner)
	case ContinueScores:
		return errors.Join(validIndex(v.Winner), validScore(v.WinnerScore))
	case RemainingScores:
		return errors.Join(validIndex(v.Winner), validScore(v.WinnerScore))
	default:
		return fmt.Errorf("%w: unsupported payload %T", ErrMalformed, p)
	}
}

func validCount(n int) error {
	if n < MinPlayers || n > MaxPlayers {
		return fmt.Errorf("%w: player count %d", ErrMalformed, n)
	}
	return nil
}

func validIndex(i int) error {
	if i < 0 || i >= MaxPlayers {
		return fmt.Errorf("%w: player index %d", ErrMalformed, i)
	}
	return nil
}

func validScore(n int) error {
	if err := scoring.ValidateScore(n); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return nil
}

func validSessionID(id string) error {
	if id == "" || len(id) > maxSessionIDLen {
		return fmt.Errorf("%w: session id length %d", ErrMalformed, len(id))
	}
	for _, r := range id {
		ok := r == '-' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !ok {
			return fmt.Errorf("%w: session id %q", ErrMalformed, id)
		}
	}
	return nil
}

// Form field identifiers.
const (
	FieldWinnerScore = "score"
	fieldScorePrefix = "score" + Sep
)

// ScoreField names the form field holding the score of player index i.
func ScoreField(i int) string {
	return fieldScorePrefix + strconv.Itoa(i)
}

// ParseScoreField returns the player index of a ScoreField identifier.
func ParseScoreField(id string) (int, error) {
	rest, ok := strings.CutPrefix(id, fieldScorePrefix)
	if !ok {
		return 0, fmt.Errorf("%w: field %q", ErrMalformed, id)
	}
	i, err := strconv.Atoi(rest)
	if err != nil || strconv.Itoa(i) != rest {
		return 0, fmt.Errorf("%w: field %q", ErrMalformed, id)
	}
	if err := validIndex(i); err != nil {
		return 0, err
	}
	return i, nil
}
