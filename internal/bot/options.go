package bot

import (
	"xaver/internal/modules/moderation"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
)

// commandArgs reads slash-command options by name, preferring the resolved
// objects Discord sends along with the interaction.
type commandArgs struct {
	resolved *discordgo.ApplicationCommandInteractionDataResolved
	options  map[string]*discordgo.ApplicationCommandInteractionDataOption
}

func newCommandArgs(data discordgo.ApplicationCommandInteractionData, options []*discordgo.ApplicationCommandInteractionDataOption) commandArgs {
	return commandArgs{
		resolved: data.Resolved,
		options: lo.KeyBy(options, func(opt *discordgo.ApplicationCommandInteractionDataOption) string {
			return opt.Name
		}),
	}
}

// subcommand returns the invoked subcommand name and its options, if any.
func subcommand(data discordgo.ApplicationCommandInteractionData) (string, []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(data.Options) == 0 || data.Options[0].Type != discordgo.ApplicationCommandOptionSubCommand {
		return "", data.Options
	}
	return data.Options[0].Name, data.Options[0].Options
}

func (a commandArgs) String(name string) string {
	opt := a.options[name]
	if opt == nil {
		return ""
	}
	value, _ := opt.Value.(string)
	return value
}

func (a commandArgs) Int(name string, fallback int) int {
	opt := a.options[name]
	if opt == nil {
		return fallback
	}
	value, ok := opt.Value.(float64)
	if !ok {
		return fallback
	}
	return int(value)
}

func (a commandArgs) Bool(name string) bool {
	opt := a.options[name]
	if opt == nil {
		return false
	}
	value, _ := opt.Value.(bool)
	return value
}

func (a commandArgs) User(name string) *discordgo.User {
	id := a.String(name)
	if id == "" {
		return nil
	}
	if a.resolved != nil {
		if user := a.resolved.Users[id]; user != nil {
			return user
		}
	}
	return &discordgo.User{ID: id}
}

// Member returns the resolved guild member for a user option, with its User filled in.
func (a commandArgs) Member(name string) *discordgo.Member {
	user := a.User(name)
	if user == nil || a.resolved == nil {
		return nil
	}
	member := a.resolved.Members[user.ID]
	if member == nil {
		return nil
	}
	clone := *member
	clone.User = user
	return &clone
}

func (a commandArgs) ChannelID(name string) string {
	return a.String(name)
}

func (a commandArgs) RoleID(name string) string {
	return a.String(name)
}

func interactionUser(interaction *discordgo.InteractionCreate) *discordgo.User {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User
	}
	return interaction.User
}

// memberPermissions uses the permissions Discord resolved for the interaction and
// falls back to folding the member's roles from the cached guild.
func memberPermissions(member *discordgo.Member, guild *discordgo.Guild) int64 {
	if member == nil {
		return 0
	}
	if member.Permissions != 0 {
		return member.Permissions
	}
	return moderation.Permissions(guild, member)
}

func (b *Bot) interactionPermissions(interaction *discordgo.InteractionCreate) int64 {
	if interaction.Member == nil {
		return 0
	}
	return memberPermissions(interaction.Member, b.guild(interaction.GuildID))
}
