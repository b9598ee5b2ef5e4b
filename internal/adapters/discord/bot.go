package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/okian/catanbot/internal/router"
	"github.com/okian/catanbot/pkg/logger"
)

const defaultInteractionTimeout = 30 * time.Second

// Handler processes decoded interactions.
type Handler interface {
	Handle(ctx context.Context, in router.Interaction, resp router.Responder)
}

// Bot owns the gateway connection and feeds interactions to a Handler.
type Bot struct {
	session *discordgo.Session
	handler Handler
	timeout time.Duration
	logger  logger.Logger

	mu     sync.Mutex
	base   context.Context
	remove func()
}

// NewBot creates a bot for token. The connection is opened by Open.
func NewBot(token string, opts ...Option) (*Bot, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds

	o := newOptions(opts)
	return &Bot{
		session: s,
		timeout: o.timeout,
		logger:  o.logger,
		base:    context.Background(),
	}, nil
}

// API exposes the REST client for publishers and notifiers.
func (b *Bot) API() API {
	return b.session
}

// Open connects to the gateway. Interactions are passed to h under ctx
// until Close is called.
func (b *Bot) Open(ctx context.Context, h Handler) error {
	b.mu.Lock()
	b.base = ctx
	b.handler = h
	b.remove = b.session.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		b.dispatch(s, ic.Interaction)
	})
	b.mu.Unlock()

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	b.logger.Info(ctx, "connected to discord", logger.String("app_id", b.AppID()))
	return nil
}

// AppID returns the application ID once connected.
func (b *Bot) AppID() string {
	if b.session.State == nil || b.session.State.User == nil {
		return ""
	}
	return b.session.State.User.ID
}

// ApplicationID returns the application ID, asking the REST API when the
// gateway is not connected. A bot user shares its application's ID.
func (b *Bot) ApplicationID(ctx context.Context) (string, error) {
	if id := b.AppID(); id != "" {
		return id, nil
	}
	u, err := b.session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("discord current user: %w", err)
	}
	return u.ID, nil
}

// Close detaches the handler and closes the gateway connection.
func (b *Bot) Close() error {
	b.mu.Lock()
	if b.remove != nil {
		b.remove()
		b.remove = nil
	}
	b.mu.Unlock()
	return b.session.Close()
}

func (b *Bot) dispatch(api API, i *discordgo.Interaction) {
	in, err := Convert(i)
	if err != nil {
		if errors.Is(err, ErrUnsupported) {
			b.logger.Debug(context.Background(), "ignored interaction", logger.Error(err))
			return
		}
		b.logger.Warn(context.Background(), "undecodable interaction",
			logger.String("interaction_id", i.ID), logger.Error(err))
		return
	}

	b.mu.Lock()
	base, h := b.base, b.handler
	b.mu.Unlock()

	ctx, cancel := context.WithTimeout(base, b.timeout)
	defer cancel()
	h.Handle(ctx, in, NewResponder(api, i))
}
