package session

import "errors"

// Guard rejections, in the order they are checked.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionCompleted = errors.New("session already completed")
	ErrOwnerMismatch    = errors.New("session owned by another user")
)

// ErrIDCollision means the ID generator kept returning IDs already in use.
var ErrIDCollision = errors.New("session id collision")

// Reason maps a guard error to a short label for metrics and logs.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return "not_found"
	case errors.Is(err, ErrSessionCompleted):
		return "completed"
	case errors.Is(err, ErrOwnerMismatch):
		return "owner_mismatch"
	default:
		return "other"
	}
}
