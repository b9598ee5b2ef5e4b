package simulate

import "errors"

var (
	// ErrUnexpectedReply means the bot answered a step without the
	// controls the next step needs.
	ErrUnexpectedReply = errors.New("unexpected reply")
	// ErrMismatch means the league table differs from the expected one.
	ErrMismatch = errors.New("ranking mismatch")
	// ErrPending means recorded games are still being persisted.
	ErrPending = errors.New("games still pending")
)
