package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/sieve-chat/sieve/automod/engine"
)

var optionTypes = map[engine.OptionType]discordgo.ApplicationCommandOptionType{
	engine.OptionString:  discordgo.ApplicationCommandOptionString,
	engine.OptionInteger: discordgo.ApplicationCommandOptionInteger,
	engine.OptionUser:    discordgo.ApplicationCommandOptionUser,
	engine.OptionChannel: discordgo.ApplicationCommandOptionChannel,
}

// Renders the engine's command table as discord slash-command definitions.
//
// Commands requiring a capability are hidden by default from members lacking the matching permission. The engine still checks the capability on every invocation.
func ApplicationCommands(cmds []engine.Command) []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(cmds))
	for _, c := range cmds {
		ac := &discordgo.ApplicationCommand{
			Name:        c.Name,
			Description: c.Description,
			Options:     []*discordgo.ApplicationCommandOption{},
		}
		if c.Capability != 0 {
			perm := PermissionForCapability(c.Capability)
			ac.DefaultMemberPermissions = &perm
		}
		for _, opt := range c.Options {
			aco := &discordgo.ApplicationCommandOption{
				Type:        optionTypes[opt.Type],
				Name:        opt.Name,
				Description: opt.Description,
				Required:    opt.Required,
			}
			for _, ch := range opt.Choices {
				aco.Choices = append(aco.Choices, &discordgo.ApplicationCommandOptionChoice{
					Name:  ch.Name,
					Value: ch.Value,
				})
			}
			ac.Options = append(ac.Options, aco)
		}
		out = append(out, ac)
	}
	return out
}

// Overwrites the application's global commands with the engine's command table. Returns the number of commands registered.
func DeployCommands(ctx context.Context, s *discordgo.Session, appID string) (int, error) {
	if appID == "" {
		return 0, fmt.Errorf("application id is required to deploy commands")
	}
	created, err := s.ApplicationCommandBulkOverwrite(appID, "", ApplicationCommands(engine.Commands()), discordgo.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("overwriting application commands: %w", err)
	}
	return len(created), nil
}
