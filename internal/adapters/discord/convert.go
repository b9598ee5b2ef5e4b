package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/okian/catanbot/internal/domain/types"
	"github.com/okian/catanbot/internal/domain/ui"
	"github.com/okian/catanbot/internal/router"
)

const optionTarget = "target"

// Convert maps a discordgo interaction to a router interaction.
func Convert(i *discordgo.Interaction) (router.Interaction, error) {
	user := actor(i)
	if user == nil {
		return router.Interaction{}, ErrNoActor
	}
	in := router.Interaction{
		ID:        i.ID,
		ChannelID: i.ChannelID,
		Actor:     player(user),
		Ref:       ui.InteractionRef{AppID: i.AppID, Token: i.Token},
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		in.Kind = router.KindCommand
		in.Command = data.Name
		for _, opt := range data.Options {
			if opt.Name != optionTarget || opt.Type != discordgo.ApplicationCommandOptionUser {
				continue
			}
			id, _ := opt.Value.(string)
			target := types.Player{ID: id}
			if data.Resolved != nil {
				if u, ok := data.Resolved.Users[id]; ok {
					target = player(u)
				}
			}
			in.Target = &target
		}

	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		in.Kind = router.KindComponent
		in.CustomID = data.CustomID
		if data.ComponentType == discordgo.UserSelectMenuComponent {
			in.Values = make([]types.Player, 0, len(data.Values))
			for _, id := range data.Values {
				p := types.Player{ID: id}
				if u, ok := data.Resolved.Users[id]; ok {
					p = player(u)
				}
				in.Values = append(in.Values, p)
			}
		}

	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		in.Kind = router.KindForm
		in.CustomID = data.CustomID
		in.Fields = make(map[string]string)
		collectInputs(data.Components, in.Fields)

	default:
		return router.Interaction{}, fmt.Errorf("%w: type %d", ErrUnsupported, i.Type)
	}
	return in, nil
}

func actor(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func player(u *discordgo.User) types.Player {
	return types.Player{ID: u.ID, Name: u.Username}
}

func collectInputs(components []discordgo.MessageComponent, out map[string]string) {
	for _, c := range components {
		switch v := c.(type) {
		case *discordgo.ActionsRow:
			collectInputs(v.Components, out)
		case discordgo.ActionsRow:
			collectInputs(v.Components, out)
		case *discordgo.TextInput:
			out[v.CustomID] = v.Value
		case discordgo.TextInput:
			out[v.CustomID] = v.Value
		}
	}
}
