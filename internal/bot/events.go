package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"xaver/internal/leveling"
	"xaver/internal/modules/audit"
	"xaver/internal/modules/reactionroles"
	"xaver/internal/modules/starboard"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot {
		return
	}
	if msg.GuildID == "" {
		return
	}

	ctx := context.Background()
	now := msg.Timestamp
	if now.IsZero() {
		now = b.now()
	}

	command, args, isCommand := parsePrefix(msg.Content, b.cfg.Prefix)
	if !isCommand || command != "afk" {
		b.handleAFK(msg.Message, now)
	}

	name := displayName(msg.Member, msg.Author)
	result, err := b.leveling.Award(msg.GuildID, msg.Author.ID, name, now)
	if err != nil {
		b.logger.Warn("xp award failed", zap.String("guild_id", msg.GuildID), zap.String("user_id", msg.Author.ID), zap.Error(err))
	} else if result != nil && result.LeveledUp {
		b.announceLevelUp(ctx, msg.Message, result.Record)
	}

	if strings.EqualFold(strings.TrimSpace(msg.Content), "hi") {
		b.reply(msg.Message, "I see.")
		return
	}

	if isCommand {
		b.handlePrefix(ctx, msg.Message, command, args)
	}
}

func (b *Bot) announceLevelUp(ctx context.Context, msg *discordgo.Message, record leveling.Record) {
	channelID := b.guildSettings(ctx, msg.GuildID).LevelUpChannel
	if channelID == "" {
		channelID = msg.ChannelID
	}
	embed := levelUpEmbed(msg.Author.ID, record, b.cfg.Notifications.EmbedColors.LevelUp)
	if _, err := b.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		b.logger.Warn("level up announce failed", zap.String("guild_id", msg.GuildID), zap.String("channel_id", channelID), zap.Error(err))
		return
	}
	b.logger.Info("level up", zap.String("guild_id", msg.GuildID), zap.String("user_id", msg.Author.ID), zap.Int("level", record.Level))
}

func (b *Bot) handleAFK(msg *discordgo.Message, now time.Time) {
	if status, ok := b.afk.Clear(msg.GuildID, msg.Author.ID); ok {
		away := now.Sub(status.Since).Round(time.Minute)
		b.reply(msg, fmt.Sprintf("Welcome back, %s. You were AFK for %s.", msg.Author.Username, away))
	}

	ids := lo.Map(msg.Mentions, func(user *discordgo.User, _ int) string { return user.ID })
	for _, mention := range b.afk.Mentioned(msg.GuildID, msg.Author.ID, ids) {
		b.reply(msg, fmt.Sprintf("<@%s> is AFK: %s (since <t:%d:R>)", mention.UserID, mention.Status.Reason, mention.Status.Since.Unix()))
	}
}

func (b *Bot) onMessageDelete(session *discordgo.Session, event *discordgo.MessageDelete) {
	if event.GuildID == "" {
		return
	}
	b.starboard.Forget(event.ID)

	before := event.BeforeDelete
	if before != nil && before.Author != nil && before.Author.Bot {
		return
	}
	userID := ""
	details := fmt.Sprintf("message %s deleted in <#%s>", event.ID, event.ChannelID)
	if before != nil && before.Author != nil {
		userID = before.Author.ID
		details = fmt.Sprintf("in <#%s>: %s", event.ChannelID, clip(before.Content, 300))
	}
	b.audit.Log(context.Background(), audit.LevelInfo, event.GuildID, userID, audit.EventMessageDelete, details)
}

func (b *Bot) onMessageUpdate(session *discordgo.Session, event *discordgo.MessageUpdate) {
	if event.GuildID == "" || event.Message == nil || event.BeforeUpdate == nil {
		return
	}
	if event.Author == nil || event.Author.Bot {
		return
	}
	if event.BeforeUpdate.Content == event.Content {
		return
	}
	details := fmt.Sprintf("in <#%s>: %s → %s", event.ChannelID, clip(event.BeforeUpdate.Content, 200), clip(event.Content, 200))
	b.audit.Log(context.Background(), audit.LevelInfo, event.GuildID, event.Author.ID, audit.EventMessageEdit, details)
}

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event.GuildID == "" || event.Member == nil || event.User == nil {
		return
	}
	ctx := context.Background()
	b.audit.Log(ctx, audit.LevelInfo, event.GuildID, event.User.ID, audit.EventMemberJoin, event.User.Username)

	channelID := b.guildSettings(ctx, event.GuildID).WelcomeChannel
	if channelID == "" {
		if guild := b.guild(event.GuildID); guild != nil {
			channelID = guild.SystemChannelID
		}
	}
	if channelID == "" {
		return
	}
	if _, err := session.ChannelMessageSend(channelID, fmt.Sprintf("A new presence has entered: **%s**", event.User.Username)); err != nil {
		b.logger.Warn("welcome send failed", zap.String("guild_id", event.GuildID), zap.Error(err))
	}
}

func (b *Bot) onGuildMemberRemove(session *discordgo.Session, event *discordgo.GuildMemberRemove) {
	if event.Member == nil || event.GuildID == "" || event.User == nil {
		return
	}
	b.afk.Clear(event.GuildID, event.User.ID)
	b.audit.Log(context.Background(), audit.LevelInfo, event.GuildID, event.User.ID, audit.EventMemberLeave, event.User.Username)
}

func (b *Bot) onReactionAdd(session *discordgo.Session, event *discordgo.MessageReactionAdd) {
	if event.MessageReaction == nil || event.GuildID == "" || event.UserID == b.botUserID() {
		return
	}
	if event.Member != nil && event.Member.User != nil && event.Member.User.Bot {
		return
	}
	if roleID, ok := b.roles.RoleFor(event.MessageID, &event.Emoji); ok {
		if err := session.GuildMemberRoleAdd(event.GuildID, event.UserID, roleID); err != nil {
			b.logger.Warn("reaction role grant failed", zap.String("guild_id", event.GuildID), zap.String("role_id", roleID), zap.Error(err))
		}
	}
	b.updateStarboard(context.Background(), event.MessageReaction)
}

func (b *Bot) onReactionRemove(session *discordgo.Session, event *discordgo.MessageReactionRemove) {
	if event.MessageReaction == nil || event.GuildID == "" || event.UserID == b.botUserID() {
		return
	}
	if roleID, ok := b.roles.RoleFor(event.MessageID, &event.Emoji); ok {
		if err := session.GuildMemberRoleRemove(event.GuildID, event.UserID, roleID); err != nil {
			b.logger.Warn("reaction role revoke failed", zap.String("guild_id", event.GuildID), zap.String("role_id", roleID), zap.Error(err))
		}
	}
	b.updateStarboard(context.Background(), event.MessageReaction)
}

// updateStarboard recounts the star reactions of a message and posts or edits its starboard copy.
func (b *Bot) updateStarboard(ctx context.Context, reaction *discordgo.MessageReaction) {
	boardID := b.guildSettings(ctx, reaction.GuildID).StarboardChannel
	if boardID == "" || reaction.ChannelID == boardID {
		return
	}
	emoji := reactionroles.NormalizeEmoji(b.cfg.Starboard.Emoji)
	if reactionroles.NormalizeEmoji(reaction.Emoji.APIName()) != emoji {
		return
	}

	msg, err := b.session.ChannelMessage(reaction.ChannelID, reaction.MessageID)
	if err != nil {
		b.logger.Warn("starboard fetch failed", zap.String("guild_id", reaction.GuildID), zap.Error(err))
		return
	}
	users, err := b.session.MessageReactions(reaction.ChannelID, reaction.MessageID, reaction.Emoji.APIName(), 100, "", "")
	if err != nil {
		b.logger.Warn("starboard reactions failed", zap.String("guild_id", reaction.GuildID), zap.Error(err))
		return
	}
	count := starboard.CountReaction(msg, users)

	action, entry := b.starboard.Observe(reaction.GuildID, reaction.ChannelID, reaction.MessageID, count, b.cfg.Starboard.Threshold)
	switch action {
	case starboard.ActionPost:
		posted, err := b.session.ChannelMessageSendComplex(boardID, &discordgo.MessageSend{
			Content: starboard.Header(b.cfg.Starboard.Emoji, count, reaction.ChannelID),
			Embeds:  []*discordgo.MessageEmbed{starboard.BuildEmbed(msg, reaction.GuildID, b.cfg.Notifications.EmbedColors.Warning)},
		})
		if err != nil {
			b.starboard.Abort(reaction.MessageID)
			b.logger.Warn("starboard post failed", zap.String("guild_id", reaction.GuildID), zap.Error(err))
			return
		}
		bound, ok := b.starboard.Bind(reaction.MessageID, posted.ID)
		if !ok {
			if err := b.session.ChannelMessageDelete(boardID, posted.ID); err != nil {
				b.logger.Warn("orphaned starboard delete failed", zap.String("guild_id", reaction.GuildID), zap.Error(err))
			}
			return
		}
		if bound.Count != count {
			b.editStarboard(boardID, bound)
		}
	case starboard.ActionUpdate:
		b.editStarboard(boardID, entry)
	}
}

func (b *Bot) editStarboard(boardID string, entry starboard.Entry) {
	if entry.StarboardMessageID == "" {
		return
	}
	edit := discordgo.NewMessageEdit(boardID, entry.StarboardMessageID).
		SetContent(starboard.Header(b.cfg.Starboard.Emoji, entry.Count, entry.ChannelID))
	if _, err := b.session.ChannelMessageEditComplex(edit); err != nil {
		b.logger.Warn("starboard edit failed", zap.String("guild_id", entry.GuildID), zap.Error(err))
	}
}

func (b *Bot) onVoiceStateUpdate(session *discordgo.Session, event *discordgo.VoiceStateUpdate) {
	if event.VoiceState == nil || event.GuildID == "" {
		return
	}
	before := ""
	if event.BeforeUpdate != nil {
		before = event.BeforeUpdate.ChannelID
	}
	name, details, ok := voiceTransition(before, event.ChannelID)
	if !ok {
		return
	}
	b.audit.Log(context.Background(), audit.LevelInfo, event.GuildID, event.UserID, name, details)
}

// voiceTransition classifies a voice state change; mute and deafen updates report ok=false.
func voiceTransition(before, after string) (string, string, bool) {
	switch {
	case before == after:
		return "", "", false
	case before == "":
		return audit.EventVoiceJoin, "joined <#" + after + ">", true
	case after == "":
		return audit.EventVoiceLeave, "left <#" + before + ">", true
	default:
		return audit.EventVoiceMove, fmt.Sprintf("moved <#%s> → <#%s>", before, after), true
	}
}

func (b *Bot) onRoleCreate(session *discordgo.Session, event *discordgo.GuildRoleCreate) {
	if event.GuildRole == nil || event.Role == nil {
		return
	}
	b.audit.Log(context.Background(), audit.LevelInfo, event.GuildID, "", audit.EventRoleCreate, fmt.Sprintf("%s (%s)", event.Role.Name, event.Role.ID))
}

func (b *Bot) onRoleDelete(session *discordgo.Session, event *discordgo.GuildRoleDelete) {
	b.audit.Log(context.Background(), audit.LevelWarn, event.GuildID, "", audit.EventRoleDelete, event.RoleID)
}

func (b *Bot) onGuildBanAdd(session *discordgo.Session, event *discordgo.GuildBanAdd) {
	if event.User == nil {
		return
	}
	b.audit.Log(context.Background(), audit.LevelWarn, event.GuildID, event.User.ID, audit.EventBanAdd, event.User.Username)
}

func (b *Bot) onGuildBanRemove(session *discordgo.Session, event *discordgo.GuildBanRemove) {
	if event.User == nil {
		return
	}
	b.audit.Log(context.Background(), audit.LevelInfo, event.GuildID, event.User.ID, audit.EventBanRemove, event.User.Username)
}

func clip(value string, limit int) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "(empty)"
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + "…"
}
