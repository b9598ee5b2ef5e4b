package discord

import "errors"

var (
	// ErrUnsupported marks interaction types the bot ignores.
	ErrUnsupported = errors.New("unsupported interaction")
	// ErrNoActor means the interaction carried no user.
	ErrNoActor = errors.New("interaction has no user")
	// ErrNoApplication means the application ID is unknown.
	ErrNoApplication = errors.New("application id is not set")
	// ErrNoToken means no bot token was configured.
	ErrNoToken = errors.New("discord token is not set")
)
