package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/okian/catanbot/internal/router"
)

// Commands returns the slash commands the bot serves.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        router.CommandEndGame,
			Description: "Record the result of a Catan game",
		},
		{
			Name:        router.CommandMyRank,
			Description: "Show your league ranking",
		},
		{
			Name:        router.CommandLadder,
			Description: "Show the league leaderboard",
		},
		{
			Name:        router.CommandRoast,
			Description: "Tease another player about their ranking",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        optionTarget,
					Description: "Who to roast",
					Required:    true,
				},
			},
		},
	}
}

// Register replaces the application's commands. An empty guildID registers
// them globally.
func Register(ctx context.Context, api API, appID, guildID string) ([]*discordgo.ApplicationCommand, error) {
	if appID == "" {
		return nil, fmt.Errorf("register commands: %w", ErrNoApplication)
	}
	cmds, err := api.ApplicationCommandBulkOverwrite(appID, guildID, Commands(), discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("register commands: %w", err)
	}
	return cmds, nil
}
