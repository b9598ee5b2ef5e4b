package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/okian/catanbot/internal/domain/ui"
	"github.com/okian/catanbot/internal/router"
)

// Responder answers one interaction.
type Responder struct {
	api API
	i   *discordgo.Interaction
}

var _ router.Responder = (*Responder)(nil)

// NewResponder binds a responder to an interaction.
func NewResponder(api API, i *discordgo.Interaction) *Responder {
	return &Responder{api: api, i: i}
}

// Respond sends the primary response.
func (r *Responder) Respond(ctx context.Context, reply ui.Reply) error {
	return r.api.InteractionRespond(r.i, Response(reply), discordgo.WithContext(ctx))
}

// Edit replaces the primary response.
func (r *Responder) Edit(ctx context.Context, reply ui.Reply) error {
	_, err := r.api.InteractionResponseEdit(r.i, Edit(reply), discordgo.WithContext(ctx))
	return err
}

// Delete removes the primary response.
func (r *Responder) Delete(ctx context.Context) error {
	return r.api.InteractionResponseDelete(r.i, discordgo.WithContext(ctx))
}

// FollowUp posts an extra message on the interaction.
func (r *Responder) FollowUp(ctx context.Context, reply ui.Reply) error {
	_, err := r.api.FollowupMessageCreate(r.i, true, FollowUp(reply), discordgo.WithContext(ctx))
	return err
}
