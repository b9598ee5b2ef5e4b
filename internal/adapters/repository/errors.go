package repository

import "errors"

// Sentinel kinds for backend errors.
var (
	ErrNotFound      = errors.New("player not found")
	ErrInvalidLimit  = errors.New("invalid ranking limit")
	ErrPersist       = errors.New("persist game failed")
	ErrDuplicateGame = errors.New("game already recorded")
	ErrUnsupported   = errors.New("operation not supported by backend")
	// ErrNotConfigured means the backend is missing credentials or IDs.
	ErrNotConfigured = errors.New("storage backend not configured")
)
