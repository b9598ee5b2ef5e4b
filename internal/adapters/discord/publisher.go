package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/okian/catanbot/internal/domain/ui"
)

// ChannelPublisher posts game summaries to a fixed channel.
type ChannelPublisher struct {
	api       API
	channelID string
}

// NewChannelPublisher creates a publisher for channelID.
func NewChannelPublisher(api API, channelID string) *ChannelPublisher {
	return &ChannelPublisher{api: api, channelID: channelID}
}

// PublishSummary posts content to the channel.
func (p *ChannelPublisher) PublishSummary(ctx context.Context, content string) error {
	_, err := p.api.ChannelMessageSend(p.channelID, content, discordgo.WithContext(ctx))
	return err
}

// Notifier answers interactions after their primary response, using only
// the application ID and token the interaction carried.
type Notifier struct {
	api API
}

// NewNotifier creates a Notifier.
func NewNotifier(api API) *Notifier {
	return &Notifier{api: api}
}

// FollowUp sends reply as a follow-up of the referenced interaction.
func (n *Notifier) FollowUp(ctx context.Context, ref ui.InteractionRef, reply ui.Reply) error {
	i := &discordgo.Interaction{AppID: ref.AppID, Token: ref.Token}
	_, err := n.api.FollowupMessageCreate(i, true, FollowUp(reply), discordgo.WithContext(ctx))
	return err
}
