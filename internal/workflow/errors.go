package workflow

import (
	"errors"
	"fmt"
)

// Validation and persistence errors raised by the game-entry steps.
var (
	ErrWrongChannel      = errors.New("command used outside the scoring channel")
	ErrSelectionCount    = errors.New("selected player count does not match")
	ErrDuplicatePlayer   = errors.New("player selected twice")
	ErrPlayersAlreadySet = errors.New("players already selected")
	ErrWinnerAlreadySet  = errors.New("winner already recorded")
	ErrStaleForm         = errors.New("form does not match the session")
	ErrMissingField      = errors.New("form field missing")
	ErrQueueFull         = errors.New("record queue rejected the game")
)

// WrongChannelError carries the channel /endgame must be used in.
type WrongChannelError struct {
	ChannelID string
}

func (e *WrongChannelError) Error() string {
	return fmt.Sprintf("%v: want <#%s>", ErrWrongChannel, e.ChannelID)
}

func (e *WrongChannelError) Is(target error) bool { return target == ErrWrongChannel }

// SelectionCountError reports how many players were expected.
type SelectionCountError struct {
	Want, Got int
}

func (e *SelectionCountError) Error() string {
	return fmt.Sprintf("%v: got %d, want %d", ErrSelectionCount, e.Got, e.Want)
}

func (e *SelectionCountError) Is(target error) bool { return target == ErrSelectionCount }
