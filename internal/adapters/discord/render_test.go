package discord

import (
	"strconv"
	"testing"

	"github.com/bwmarrin/discordgo"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/catanbot/internal/domain/ui"
)

func TestResponse(t *testing.T) {
	Convey("Given a reply with seven buttons", t, func() {
		var buttons []ui.Button
		for n := range 7 {
			buttons = append(buttons, ui.Button{Label: strconv.Itoa(n), CustomID: "b" + strconv.Itoa(n), Style: ui.StyleSuccess})
		}
		resp := Response(ui.Reply{Content: "pick", Buttons: buttons})

		Convey("Then it is a public channel message", func() {
			So(resp.Type, ShouldEqual, discordgo.InteractionResponseChannelMessageWithSource)
			So(resp.Data.Content, ShouldEqual, "pick")
			So(resp.Data.Flags, ShouldEqual, discordgo.MessageFlags(0))
		})

		Convey("Then buttons wrap into rows of five", func() {
			So(len(resp.Data.Components), ShouldEqual, 2)
			first := resp.Data.Components[0].(discordgo.ActionsRow)
			second := resp.Data.Components[1].(discordgo.ActionsRow)
			So(len(first.Components), ShouldEqual, buttonsPerRow)
			So(len(second.Components), ShouldEqual, 2)

			b := second.Components[1].(discordgo.Button)
			So(b.CustomID, ShouldEqual, "b6")
			So(b.Style, ShouldEqual, discordgo.SuccessButton)
		})
	})

	Convey("Given an ephemeral reply with a user select", t, func() {
		resp := Response(ui.Reply{
			Content:    "who played?",
			Ephemeral:  true,
			UserSelect: &ui.UserSelect{CustomID: "sel", Placeholder: "Select 4 players", Count: 4},
		})

		Convey("Then the menu requires exactly the requested count", func() {
			So(resp.Data.Flags, ShouldEqual, discordgo.MessageFlagsEphemeral)
			So(len(resp.Data.Components), ShouldEqual, 1)
			menu := resp.Data.Components[0].(discordgo.ActionsRow).Components[0].(discordgo.SelectMenu)
			So(menu.MenuType, ShouldEqual, discordgo.UserSelectMenu)
			So(menu.CustomID, ShouldEqual, "sel")
			So(menu.MinValues, ShouldNotBeNil)
			So(*menu.MinValues, ShouldEqual, 4)
			So(menu.MaxValues, ShouldEqual, 4)
		})
	})

	Convey("Given a reply carrying a form", t, func() {
		resp := Response(ui.Reply{Form: &ui.Form{
			CustomID: "form",
			Title:    "🏆 alice Won!",
			Fields: []ui.Field{
				{CustomID: "score", Label: "Winner VP", MaxLength: 2},
				{CustomID: "score_1", Label: "bob", MaxLength: 2},
			},
		}})

		Convey("Then it opens a modal with one required short input per row", func() {
			So(resp.Type, ShouldEqual, discordgo.InteractionResponseModal)
			So(resp.Data.CustomID, ShouldEqual, "form")
			So(resp.Data.Title, ShouldEqual, "🏆 alice Won!")
			So(len(resp.Data.Components), ShouldEqual, 2)

			input := resp.Data.Components[1].(discordgo.ActionsRow).Components[0].(discordgo.TextInput)
			So(input.CustomID, ShouldEqual, "score_1")
			So(input.Style, ShouldEqual, discordgo.TextInputShort)
			So(input.Required, ShouldBeTrue)
			So(input.MaxLength, ShouldEqual, 2)
		})
	})
}

func TestFollowUpAndEdit(t *testing.T) {
	Convey("Given a reply with an embed", t, func() {
		params := FollowUp(ui.Reply{Embed: &ui.Embed{
			Title:  "Leaderboard",
			Color:  0xFFD700,
			Fields: []ui.EmbedField{{Name: "#1", Value: "alice", Inline: true}},
			Footer: "Top 5",
		}})

		Convey("Then the embed is rendered with footer and timestamp", func() {
			So(len(params.Embeds), ShouldEqual, 1)
			e := params.Embeds[0]
			So(e.Title, ShouldEqual, "Leaderboard")
			So(e.Color, ShouldEqual, 0xFFD700)
			So(len(e.Fields), ShouldEqual, 1)
			So(e.Fields[0].Inline, ShouldBeTrue)
			So(e.Footer, ShouldNotBeNil)
			So(e.Footer.Text, ShouldEqual, "Top 5")
			So(e.Timestamp, ShouldNotBeEmpty)
		})
	})

	Convey("Given follow-ups with and without the ephemeral flag", t, func() {
		So(FollowUp(ui.Text("x")).Flags, ShouldEqual, discordgo.MessageFlagsEphemeral)
		So(FollowUp(ui.Reply{Content: "x"}).Flags, ShouldEqual, discordgo.MessageFlags(0))
	})

	Convey("Given an edit to a plain text reply", t, func() {
		edit := Edit(ui.Text("done"))

		Convey("Then controls and embeds are cleared", func() {
			So(edit.Content, ShouldNotBeNil)
			So(*edit.Content, ShouldEqual, "done")
			So(edit.Components, ShouldNotBeNil)
			So(*edit.Components, ShouldBeEmpty)
			So(edit.Embeds, ShouldNotBeNil)
			So(*edit.Embeds, ShouldBeEmpty)
		})
	})
}
