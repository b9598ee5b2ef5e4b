package router

import "errors"

// ErrUnknownInteraction is returned for commands or controls the bot does
// not handle.
var ErrUnknownInteraction = errors.New("unknown interaction")
