package bot

import (
	"fmt"
	"strings"
	"time"

	"xaver/internal/analytics"
	"xaver/internal/leveling"
	"xaver/internal/modules/audit"
	"xaver/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
)

const progressWidth = 12

func progressBar(xp, needed int) string {
	if needed <= 0 {
		return strings.Repeat("▰", progressWidth)
	}
	filled := xp * progressWidth / needed
	if filled > progressWidth {
		filled = progressWidth
	}
	return strings.Repeat("▰", filled) + strings.Repeat("▱", progressWidth-filled)
}

func levelUpEmbed(userID string, record leveling.Record, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Level up! 💜",
		Description: fmt.Sprintf("<@%s> reached **level %d**.", userID, record.Level),
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Next level", Value: fmt.Sprintf("%d / %d XP", record.XP, leveling.Threshold(record.Level)), Inline: true},
		},
	}
}

func rankEmbed(name, avatarURL string, record leveling.Record, rank int, ranked bool, color int) *discordgo.MessageEmbed {
	position := "unranked"
	if ranked {
		position = fmt.Sprintf("#%d", rank)
	}
	threshold := leveling.Threshold(record.Level)
	embed := &discordgo.MessageEmbed{
		Title: "Rank of " + name,
		Description: fmt.Sprintf("%s `%d / %d XP`",
			progressBar(record.XP, threshold), record.XP, threshold),
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Rank", Value: position, Inline: true},
			{Name: "Level", Value: fmt.Sprintf("%d", record.Level), Inline: true},
			{Name: "Messages", Value: fmt.Sprintf("%d", record.MessageCount), Inline: true},
		},
	}
	if avatarURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: avatarURL}
	}
	return embed
}

func leaderboardLines(entries []leveling.Entry) string {
	if len(entries) == 0 {
		return "No one has earned XP yet. Start chatting!"
	}
	lines := lo.Map(entries, func(entry leveling.Entry, i int) string {
		name := entry.Record.DisplayName
		if name == "" {
			name = "<@" + entry.UserID + ">"
		}
		return fmt.Sprintf("%s %s • Level %d • %d/%d XP",
			medal(i+1), name, entry.Record.Level, entry.Record.XP, leveling.Threshold(entry.Record.Level))
	})
	return strings.Join(lines, "\n")
}

func medal(position int) string {
	switch position {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("**%d.**", position)
	}
}

func leaderboardEmbed(guildName string, entries []leveling.Entry, color int) *discordgo.MessageEmbed {
	title := "Leaderboard"
	if guildName != "" {
		title += " • " + guildName
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: leaderboardLines(entries),
		Color:       color,
	}
}

// profileText renders the plain-text profile used by the prefix command.
func profileText(name string, profile storage.Profile, record leveling.Record) string {
	bio := "—"
	if profile.Bio != "" {
		bio = "“" + profile.Bio + "”"
	}
	return strings.Join([]string{
		"**Profile of " + name + "**",
		"Bio: " + bio,
		fmt.Sprintf("Messages: %d", record.MessageCount),
		fmt.Sprintf("Level: %d (%d/%d XP)", record.Level, record.XP, leveling.Threshold(record.Level)),
		"Last seen: " + lastSeen(record.LastSeen),
		"*Note: resets on restart*",
	}, "\n")
}

func profileEmbed(name, avatarURL string, profile storage.Profile, record leveling.Record, color int) *discordgo.MessageEmbed {
	bio := "—"
	if profile.Bio != "" {
		bio = profile.Bio
	}
	embed := &discordgo.MessageEmbed{
		Title:       "Profile of " + name,
		Description: bio,
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Messages", Value: fmt.Sprintf("%d", record.MessageCount), Inline: true},
			{Name: "Level", Value: fmt.Sprintf("%d", record.Level), Inline: true},
			{Name: "XP", Value: fmt.Sprintf("%d / %d", record.XP, leveling.Threshold(record.Level)), Inline: true},
			{Name: "Last seen", Value: lastSeen(record.LastSeen), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Stats reset on restart"},
	}
	if avatarURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: avatarURL}
	}
	return embed
}

func lastSeen(at time.Time) string {
	if at.IsZero() {
		return "—"
	}
	return fmt.Sprintf("<t:%d:R>", at.Unix())
}

func helpText(prefix string) string {
	return strings.Join([]string{
		"**Xaver — Commands**",
		fmt.Sprintf("`%sping` — Pong", prefix),
		fmt.Sprintf("`%sbio set <text>` — set your short bio", prefix),
		fmt.Sprintf("`%sprofile` — show your stats", prefix),
		fmt.Sprintf("`%srank [@user]` — level and XP", prefix),
		fmt.Sprintf("`%sleaderboard` — top members", prefix),
		fmt.Sprintf("`%safk [reason]` — go AFK", prefix),
		"Slash commands: `/rank` `/leaderboard` `/profile` `/poll` `/ticket` `/warn` `/timeout` and more.",
	}, "\n")
}

func formatReport(report analytics.Report) string {
	lines := []string{
		fmt.Sprintf("Total: %d | INFO: %d | WARN: %d | CRIT: %d", report.Total, report.ByLevel[audit.LevelInfo], report.ByLevel[audit.LevelWarn], report.ByLevel[audit.LevelCrit]),
	}
	for _, event := range report.TopEvents(8) {
		lines = append(lines, fmt.Sprintf("`%s` × %d", event.Event, event.Count))
	}
	return strings.Join(lines, "\n")
}

func warningLines(warnings []storage.Warning) string {
	if len(warnings) == 0 {
		return "No warnings."
	}
	lines := lo.Map(warnings, func(w storage.Warning, i int) string {
		return fmt.Sprintf("**%d.** %s by <@%s> <t:%d:R>", i+1, w.Reason, w.ModeratorID, w.CreatedAt.Unix())
	})
	return strings.Join(lines, "\n")
}

func displayName(member *discordgo.Member, user *discordgo.User) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if user != nil {
		return user.Username
	}
	if member != nil && member.User != nil {
		return member.User.Username
	}
	return "unknown"
}
