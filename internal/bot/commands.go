package bot

import "github.com/bwmarrin/discordgo"

func permission(p int64) *int64 { return &p }

var guildOnly = func() *bool { v := false; return &v }()

func userOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionUser, Name: name, Description: description, Required: required}
}

func stringOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: name, Description: description, Required: required}
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	minOne := 1.0
	zero := 0.0
	return []*discordgo.ApplicationCommand{
		{Name: "ping", Description: "Check that Xaver is listening", DMPermission: guildOnly},
		{Name: "help", Description: "List Xaver's commands", DMPermission: guildOnly},
		{
			Name:         "rank",
			Description:  "Show level and XP",
			DMPermission: guildOnly,
			Options:      []*discordgo.ApplicationCommandOption{userOption("user", "Member to look up", false)},
		},
		{Name: "leaderboard", Description: "Top members by level", DMPermission: guildOnly},
		{
			Name:         "profile",
			Description:  "Show a member profile",
			DMPermission: guildOnly,
			Options:      []*discordgo.ApplicationCommandOption{userOption("user", "Member to look up", false)},
		},
		{
			Name:         "bio",
			Description:  "Set your short bio",
			DMPermission: guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "text", Description: "Up to 190 characters", Required: true, MaxLength: maxBioLength},
			},
		},
		{
			Name:         "afk",
			Description:  "Mark yourself as away",
			DMPermission: guildOnly,
			Options:      []*discordgo.ApplicationCommandOption{stringOption("reason", "Why you are away", false)},
		},
		{
			Name:                     "warn",
			Description:              "Warn a member",
			DMPermission:             guildOnly,
			DefaultMemberPermissions: permission(discordgo.PermissionModerateMembers),
			Options: []*discordgo.ApplicationCommandOption{
				userOption("user", "Member to warn", true),
				stringOption("reason", "Reason", true),
			},
		},
		{
			Name:                     "warnings",
			Description:              "List a member's warnings",
			DMPermission:             guildOnly,
			DefaultMemberPermissions: permission(discordgo.PermissionModerateMembers),
			Options:                  []*discordgo.ApplicationCommandOption{userOption("user", "Member", true)},
		},
		{
			Name:                     "clearwarns",
			Description:              "Clear a member's warnings",
			DMPermission:             guildOnly,
			DefaultMemberPermissions: permission(discordgo.PermissionModerateMembers),
			Options:                  []*discordgo.ApplicationCommandOption{userOption("user", "Member", true)},
		},
		{
			Name:                     "kick",
			Description:              "Kick a member",
			DMPermission:             guildOnly,
			DefaultMemberPermissions: permission(discordgo.PermissionKickMembers),
			Options: []*discordgo.ApplicationCommandOption{
				userOption("user", "Member to kick", true),
				stringOption("reason", "Reason", false),
			},
		},
		{
			Name:                     "ban",
			Description:              "Ban a member",
			DMPermission:             guildOnly,
			DefaultMemberPermissions: permission(discordgo.PermissionBanMembers),
			Options: []*discordgo.ApplicationCommandOption{
				userOption("user", "Member to ban", true),
				stringOption("reason", "Reason", false),
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "delete_days", Description: "Days of messages to delete (0-7)", MinValue: &zero, MaxValue: 7},
			},
		},
		{
			Name:                     "timeout",
			Description:              "Time out a member",
			DMPermission:             guildOnly,
			DefaultMemberPermissions: permission(discordgo.PermissionModerateMembers),
			Options: []*discordgo.ApplicationCommandOption{
				userOption("user", "Member to time out", true),
				stringOption("duration", "For example 10m, 2h, 1d (max 28d)", true),
				stringOption("reason", "Reason", false),
			},
		},
		{
			Name:                     "purge",
			Description:              "Bulk delete recent messages",
			DMPermission:             guildOnly,
			DefaultMemberPermissions: permission(discordgo.PermissionManageMessages),
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "amount", Description: "1-100", Required: true, MinValue: &minOne, MaxValue: 100},
			},
		},
		{
			Name:         "poll",
			Description:  "Start a button poll",
			DMPermission: guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				stringOption("question", "What to ask", true),
				stringOption("options", "Options separated by ; (2-10)", true),
				stringOption("duration", "How long it runs, e.g. 30m or 1d", false),
			},
		},
		{
			Name:         "poll-close",
			Description:  "Close a poll early",
			DMPermission: guildOnly,
			Options:      []*discordgo.ApplicationCommandOption{stringOption("id", "Poll id from the footer", true)},
		},
		{
			Name:                     "reactionrole",
			Description:              "Reaction-role panels",
			DMPermission:             guildOnly,
			DefaultMemberPermissions: permission(discordgo.PermissionManageRoles),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "create",
					Description: "Post a new panel in this channel",
					Options:     []*discordgo.ApplicationCommandOption{stringOption("title", "Panel title", false)},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Bind an emoji to a role on a panel",
					Options: []*discordgo.ApplicationCommandOption{
						stringOption("panel", "Panel id", true),
						stringOption("emoji", "Emoji", true),
						{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Role to grant", Required: true},
					},
				},
			},
		},
		{
			Name:         "ticket",
			Description:  "Support tickets",
			DMPermission: guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "open",
					Description: "Open a private ticket",
					Options:     []*discordgo.ApplicationCommandOption{stringOption("topic", "What do you need help with?", false)},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "close",
					Description: "Close the ticket in this channel",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "panel",
					Description: "Post an open-ticket button (staff)",
				},
			},
		},
		{
			Name:                     "verify-setup",
			Description:              "Post the verification button",
			DMPermission:             guildOnly,
			DefaultMemberPermissions: permission(discordgo.PermissionAdministrator),
		},
		{
			Name:                     "announce",
			Description:              "Send an announcement embed",
			DMPermission:             guildOnly,
			DefaultMemberPermissions: permission(discordgo.PermissionManageMessages),
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Target channel", Required: true, ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews}},
				stringOption("title", "Title", true),
				stringOption("message", `Body, use \n for new lines`, true),
				stringOption("color", "Hex color like #A855F7", false),
				stringOption("image", "Image URL", false),
				{Type: discordgo.ApplicationCommandOptionBoolean, Name: "ping", Description: "Ping @everyone"},
			},
		},
		{
			Name:                     "modstats",
			Description:              "Moderation log summary",
			DMPermission:             guildOnly,
			DefaultMemberPermissions: permission(discordgo.PermissionModerateMembers),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "period",
					Description: "day, week or month",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "day", Value: "day"},
						{Name: "week", Value: "week"},
						{Name: "month", Value: "month"},
					},
				},
			},
		},
		{
			Name:                     "config",
			Description:              "Server settings",
			DMPermission:             guildOnly,
			DefaultMemberPermissions: permission(discordgo.PermissionManageServer),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "channel",
					Description: "Set a channel used by Xaver",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "kind",
							Description: "Which channel",
							Required:    true,
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "levelup", Value: "levelup"},
								{Name: "welcome", Value: "welcome"},
								{Name: "modlog", Value: "modlog"},
								{Name: "starboard", Value: "starboard"},
								{Name: "tickets", Value: "tickets"},
							},
						},
						{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Channel or category", Required: true},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "role",
					Description: "Set a role used by Xaver",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "kind",
							Description: "Which role",
							Required:    true,
							Choices:     []*discordgo.ApplicationCommandOptionChoice{{Name: "verify", Value: "verify"}},
						},
						{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Role", Required: true},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "view",
					Description: "Show current settings",
				},
			},
		},
		{
			Name:                     "xp",
			Description:              "XP administration",
			DMPermission:             guildOnly,
			DefaultMemberPermissions: permission(discordgo.PermissionManageServer),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "reset",
					Description: "Reset a member's progression",
					Options:     []*discordgo.ApplicationCommandOption{userOption("user", "Member", true)},
				},
			},
		},
	}
}

func (b *Bot) registerCommands() error {
	commands := commandDefinitions()

	appID := b.session.State.User.ID
	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, "", current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		_ = b.session.ApplicationCommandDelete(appID, "", cmd.ID)
	}
	return nil
}
