package bot

import (
	"errors"
	"strconv"

	"xaver/internal/storage"

	"github.com/bwmarrin/discordgo"
)

var errUnknownSetting = errors.New("unknown setting")

func applyChannelSetting(settings *storage.GuildSettings, kind, channelID string) error {
	switch kind {
	case "levelup":
		settings.LevelUpChannel = channelID
	case "welcome":
		settings.WelcomeChannel = channelID
	case "modlog":
		settings.ModLogChannel = channelID
	case "starboard":
		settings.StarboardChannel = channelID
	case "tickets":
		settings.TicketCategoryID = channelID
	default:
		return errUnknownSetting
	}
	return nil
}

func settingsFields(settings storage.GuildSettings, openTickets int) []*discordgo.MessageEmbedField {
	channel := func(id string) string {
		if id == "" {
			return "not set"
		}
		return "<#" + id + ">"
	}
	role := "not set"
	if settings.VerifyRoleID != "" {
		role = "<@&" + settings.VerifyRoleID + ">"
	}
	return []*discordgo.MessageEmbedField{
		{Name: "Level-up channel", Value: channel(settings.LevelUpChannel), Inline: true},
		{Name: "Welcome channel", Value: channel(settings.WelcomeChannel), Inline: true},
		{Name: "Mod log", Value: channel(settings.ModLogChannel), Inline: true},
		{Name: "Starboard", Value: channel(settings.StarboardChannel), Inline: true},
		{Name: "Ticket category", Value: channel(settings.TicketCategoryID), Inline: true},
		{Name: "Verify role", Value: role, Inline: true},
		{Name: "Open tickets", Value: strconv.Itoa(openTickets), Inline: true},
	}
}
