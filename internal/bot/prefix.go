package bot

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const maxBioLength = 190

// parsePrefix splits "<prefix>cmd arg arg" into a lowercased command and its arguments.
func parsePrefix(content, prefix string) (string, []string, bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(content[len(prefix):])
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

func (b *Bot) handlePrefix(ctx context.Context, msg *discordgo.Message, command string, args []string) {
	prefix := b.cfg.Prefix
	switch command {
	case "ping":
		b.reply(msg, "Pong!")
	case "help":
		b.reply(msg, helpText(prefix))
	case "bio":
		if len(args) == 0 || strings.ToLower(args[0]) != "set" {
			b.reply(msg, "Use: `"+prefix+"bio set <text>`")
			return
		}
		reply, err := b.setBio(ctx, msg.GuildID, msg.Author.ID, strings.Join(args[1:], " "))
		if err != nil {
			b.logger.Warn("bio save failed", zap.String("guild_id", msg.GuildID), zap.Error(err))
			b.reply(msg, "Could not save your bio right now.")
			return
		}
		b.reply(msg, reply)
	case "profile":
		profile, err := b.store.GetProfile(ctx, msg.GuildID, msg.Author.ID)
		if err != nil {
			b.logger.Warn("profile load failed", zap.String("guild_id", msg.GuildID), zap.Error(err))
		}
		record := b.leveling.Stats(msg.GuildID, msg.Author.ID)
		b.reply(msg, profileText(msg.Author.Username, profile, record))
	case "rank", "level":
		target := msg.Author
		if len(msg.Mentions) > 0 {
			target = msg.Mentions[0]
		}
		b.replyEmbed(msg, b.rankFor(msg.GuildID, target))
	case "leaderboard", "lb", "top":
		b.replyEmbed(msg, b.leaderboardFor(msg.GuildID))
	case "afk":
		status := b.afk.Set(msg.GuildID, msg.Author.ID, strings.Join(args, " "), b.now())
		b.reply(msg, "You are now AFK: "+status.Reason)
	}
}

// setBio validates and stores a bio, returning the text to show the member.
func (b *Bot) setBio(ctx context.Context, guildID, userID, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "Give me some text: `" + b.cfg.Prefix + "bio set I like purple.`", nil
	}
	if utf8.RuneCountInString(text) > maxBioLength {
		text = string([]rune(text)[:maxBioLength])
	}
	if err := b.store.SetBio(ctx, guildID, userID, text); err != nil {
		return "", err
	}
	return "Bio saved. The X notices.", nil
}

func (b *Bot) rankFor(guildID string, user *discordgo.User) *discordgo.MessageEmbed {
	record := b.leveling.Stats(guildID, user.ID)
	rank, ranked := b.leveling.Rank(guildID, user.ID)
	name := record.DisplayName
	if name == "" {
		name = user.Username
	}
	return rankEmbed(name, user.AvatarURL("128"), record, rank, ranked, b.cfg.Notifications.EmbedColors.LevelUp)
}

func (b *Bot) leaderboardFor(guildID string) *discordgo.MessageEmbed {
	guildName := ""
	if guild := b.guild(guildID); guild != nil {
		guildName = guild.Name
	}
	entries := b.leveling.Top(guildID, b.cfg.Leveling.LeaderboardSize)
	return leaderboardEmbed(guildName, entries, b.cfg.Notifications.EmbedColors.Action)
}
