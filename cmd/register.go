package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/okian/catanbot/internal/adapters/discord"
	"github.com/okian/catanbot/pkg/logger"
)

func newRegisterCmd(c *cli) *cobra.Command {
	var guildID string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register the slash commands with Discord",
		Long: `register overwrites the application's slash commands. Commands
registered on a guild appear immediately; global ones can take up to an
hour to propagate.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if guildID == "" {
				guildID = c.cfg.GuildID
			}
			bot, err := discord.NewBot(c.cfg.DiscordToken)
			if err != nil {
				return err
			}
			return registerCommands(ctx, bot, guildID)
		},
	}
	cmd.Flags().StringVar(&guildID, "guild", "", "Guild to register on; empty uses guild_id, then global")
	return cmd
}

// registerCommands overwrites the slash commands on guildID, or globally
// when guildID is empty.
func registerCommands(ctx context.Context, bot *discord.Bot, guildID string) error {
	appID, err := bot.ApplicationID(ctx)
	if err != nil {
		return err
	}
	cmds, err := discord.Register(ctx, bot.API(), appID, guildID)
	if err != nil {
		return err
	}
	for _, rc := range cmds {
		logger.Get().Info(ctx, "registered command",
			logger.String("name", rc.Name),
			logger.String("id", rc.ID),
			logger.String("guild_id", guildID),
		)
	}
	return nil
}
