package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/okian/catanbot/internal/domain/ui"
)

// Discord allows at most five buttons per action row.
const buttonsPerRow = 5

var buttonStyles = map[ui.Style]discordgo.ButtonStyle{
	ui.StylePrimary:   discordgo.PrimaryButton,
	ui.StyleSecondary: discordgo.SecondaryButton,
	ui.StyleSuccess:   discordgo.SuccessButton,
}

// Response renders a primary response. A reply with a form opens a modal.
func Response(r ui.Reply) *discordgo.InteractionResponse {
	if r.Form != nil {
		return &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseModal,
			Data: &discordgo.InteractionResponseData{
				CustomID:   r.Form.CustomID,
				Title:      r.Form.Title,
				Components: formRows(r.Form.Fields),
			},
		}
	}
	data := &discordgo.InteractionResponseData{
		Content:    r.Content,
		Components: components(r),
		Embeds:     embeds(r),
	}
	if r.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}
}

// Edit renders a replacement of the primary response. Components are
// always sent so stale controls disappear.
func Edit(r ui.Reply) *discordgo.WebhookEdit {
	content := r.Content
	comps := components(r)
	if comps == nil {
		comps = []discordgo.MessageComponent{}
	}
	embs := embeds(r)
	if embs == nil {
		embs = []*discordgo.MessageEmbed{}
	}
	return &discordgo.WebhookEdit{Content: &content, Components: &comps, Embeds: &embs}
}

// FollowUp renders an extra message.
func FollowUp(r ui.Reply) *discordgo.WebhookParams {
	p := &discordgo.WebhookParams{
		Content:    r.Content,
		Components: components(r),
		Embeds:     embeds(r),
	}
	if r.Ephemeral {
		p.Flags = discordgo.MessageFlagsEphemeral
	}
	return p
}

func components(r ui.Reply) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	for start := 0; start < len(r.Buttons); start += buttonsPerRow {
		end := min(start+buttonsPerRow, len(r.Buttons))
		row := discordgo.ActionsRow{}
		for _, b := range r.Buttons[start:end] {
			row.Components = append(row.Components, discordgo.Button{
				Label:    b.Label,
				Style:    buttonStyles[b.Style],
				CustomID: b.CustomID,
			})
		}
		rows = append(rows, row)
	}
	if s := r.UserSelect; s != nil {
		minValues := s.Count
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.UserSelectMenu,
				CustomID:    s.CustomID,
				Placeholder: s.Placeholder,
				MinValues:   &minValues,
				MaxValues:   s.Count,
			},
		}})
	}
	return rows
}

func formRows(fields []ui.Field) []discordgo.MessageComponent {
	rows := make([]discordgo.MessageComponent, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    f.CustomID,
				Label:       f.Label,
				Style:       discordgo.TextInputShort,
				Placeholder: f.Placeholder,
				Required:    true,
				MaxLength:   f.MaxLength,
			},
		}})
	}
	return rows
}

func embeds(r ui.Reply) []*discordgo.MessageEmbed {
	if r.Embed == nil {
		return nil
	}
	e := &discordgo.MessageEmbed{
		Title:     r.Embed.Title,
		Color:     r.Embed.Color,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	for _, f := range r.Embed.Fields {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if r.Embed.Footer != "" {
		e.Footer = &discordgo.MessageEmbedFooter{Text: r.Embed.Footer}
	}
	return []*discordgo.MessageEmbed{e}
}
