package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"xaver/internal/analytics"
	"xaver/internal/config"
	"xaver/internal/leveling"
	"xaver/internal/modules/afk"
	"xaver/internal/modules/audit"
	"xaver/internal/modules/polls"
	"xaver/internal/modules/reactionroles"
	"xaver/internal/modules/starboard"
	"xaver/internal/modules/tickets"
	"xaver/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const auditRetention = 30 * 24 * time.Hour

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *storage.Store
	leveling  *leveling.Engine
	audit     *audit.Logger
	analytics *analytics.Service
	session   *discordgo.Session
	afk       *afk.Module
	starboard *starboard.Module
	polls     *polls.Module
	roles     *reactionroles.Module
	tickets   *tickets.Module
	now       func() time.Time
	stop      chan struct{}
	stopOnce  sync.Once
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, engine *leveling.Engine, auditLogger *audit.Logger, analyticsService *analytics.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildBans |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessageReactions
	session.State.MaxMessageCount = 200

	b := &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		leveling:  engine,
		audit:     auditLogger,
		analytics: analyticsService,
		session:   session,
		afk:       afk.New(),
		starboard: starboard.New(),
		polls:     polls.New(cfg.Polls.MaxOptions),
		roles:     reactionroles.New(),
		tickets:   tickets.New(),
		now:       time.Now,
		stop:      make(chan struct{}),
	}

	b.polls.SetCloser(b.renderClosedPoll)
	if b.audit != nil {
		b.audit.SetNotifier(b.notifyAudit)
	}

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onMessageDelete)
	b.session.AddHandler(b.onMessageUpdate)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onGuildMemberRemove)
	b.session.AddHandler(b.onReactionAdd)
	b.session.AddHandler(b.onReactionRemove)
	b.session.AddHandler(b.onVoiceStateUpdate)
	b.session.AddHandler(b.onRoleCreate)
	b.session.AddHandler(b.onRoleDelete)
	b.session.AddHandler(b.onGuildBanAdd)
	b.session.AddHandler(b.onGuildBanRemove)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	if err := b.registerCommands(); err != nil {
		return err
	}

	b.startSweeper()

	return nil
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	b.stopOnce.Do(func() { close(b.stop) })
	if b.session != nil {
		_ = b.session.Close()
	}
}

// Guilds and TrackedMembers feed the health endpoint.
func (b *Bot) Guilds() int {
	if b.session == nil || b.session.State == nil {
		return 0
	}
	b.session.State.RLock()
	defer b.session.State.RUnlock()
	return len(b.session.State.Guilds)
}

func (b *Bot) TrackedMembers() int {
	return b.leveling.Len()
}

func (b *Bot) Ping(ctx context.Context) error {
	return b.store.Ping(ctx)
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", event.User.Username), zap.Int("guilds", len(event.Guilds)))
	if err := session.UpdateWatchStatus(0, b.cfg.Prefix+"help"); err != nil {
		b.logger.Warn("presence update failed", zap.Error(err))
	}
}

// startSweeper evicts idle leveling entries and prunes old audit rows.
func (b *Bot) startSweeper() {
	ttl := b.cfg.Leveling.IdleTTLHours
	every := b.cfg.Leveling.SweepMinutes
	if ttl <= 0 || every <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(time.Duration(every) * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-b.stop:
				return
			case <-ticker.C:
				b.sweep(context.Background())
			}
		}
	}()
}

func (b *Bot) sweep(ctx context.Context) {
	now := b.now()
	removed := b.leveling.Sweep(now)
	pruned, err := b.store.CleanupAuditLogs(ctx, now.Add(-auditRetention))
	if err != nil {
		b.logger.Warn("audit cleanup failed", zap.Error(err))
	}
	if removed > 0 || pruned > 0 {
		b.logger.Info("sweep", zap.Int("leveling_removed", removed), zap.Int64("audit_pruned", pruned), zap.Int("tracked", b.leveling.Len()))
	}
}

func (b *Bot) guildSettings(ctx context.Context, guildID string) storage.GuildSettings {
	defaults := storage.GuildSettings{
		GuildID:          guildID,
		LevelUpChannel:   b.cfg.Channels.LevelUp,
		WelcomeChannel:   b.cfg.Channels.Welcome,
		ModLogChannel:    b.cfg.Channels.ModLog,
		StarboardChannel: b.cfg.Starboard.ChannelID,
		VerifyRoleID:     b.cfg.Verification.RoleID,
		TicketCategoryID: b.cfg.Tickets.CategoryID,
	}

	settings, err := b.store.GetGuildSettings(ctx, guildID, defaults)
	if err != nil {
		b.logger.Warn("guild settings fallback", zap.String("guild_id", guildID), zap.Error(err))
		return defaults
	}
	return settings
}

// notifyAudit mirrors audit entries into the guild's mod-log channel.
func (b *Bot) notifyAudit(ctx context.Context, entry storage.AuditLog) {
	if entry.GuildID == "" {
		return
	}
	channelID := b.guildSettings(ctx, entry.GuildID).ModLogChannel
	if channelID == "" {
		return
	}
	if _, err := b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:         auditLine(entry),
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}); err != nil {
		b.logger.Warn("mod log send failed", zap.String("guild_id", entry.GuildID), zap.String("channel_id", channelID), zap.Error(err))
	}
}

func auditLine(entry storage.AuditLog) string {
	icon := "📝"
	switch entry.Level {
	case audit.LevelWarn:
		icon = "⚠️"
	case audit.LevelCrit:
		icon = "🚨"
	}
	line := fmt.Sprintf("%s `%s`", icon, entry.Event)
	if entry.UserID != "" {
		line += " <@" + entry.UserID + ">"
	}
	if details := strings.TrimSpace(entry.Details); details != "" {
		if len([]rune(details)) > 1500 {
			details = string([]rune(details)[:1500]) + "…"
		}
		line += " " + details
	}
	return line
}

func (b *Bot) memberForUser(guildID, userID string) *discordgo.Member {
	member, err := b.session.State.Member(guildID, userID)
	if err == nil && member != nil {
		return member
	}
	member, _ = b.session.GuildMember(guildID, userID)
	return member
}

func (b *Bot) guild(guildID string) *discordgo.Guild {
	guild, err := b.session.State.Guild(guildID)
	if err == nil && guild != nil {
		return guild
	}
	guild, _ = b.session.Guild(guildID)
	return guild
}

func (b *Bot) botUserID() string {
	if b.session.State == nil || b.session.State.User == nil {
		return ""
	}
	return b.session.State.User.ID
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	if err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	}); err != nil {
		b.logger.Warn("interaction respond failed", zap.Error(err))
	}
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	if embed == nil {
		b.respond(session, interaction, "No response available.", ephemeral)
		return
	}
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	if err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	}); err != nil {
		b.logger.Warn("interaction respond failed", zap.Error(err))
	}
}

// fail answers with an ephemeral error embed.
func (b *Bot) fail(session *discordgo.Session, interaction *discordgo.InteractionCreate, title string, err error) {
	b.logger.Debug("command rejected", zap.String("guild_id", interaction.GuildID), zap.String("title", title), zap.Error(err))
	b.respondEmbed(session, interaction, b.commandEmbed(title, err.Error(), b.cfg.Notifications.EmbedColors.Error, nil), true)
}

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   b.now().Format(time.RFC3339),
		Fields:      fields,
	}
}

func (b *Bot) reply(msg *discordgo.Message, content string) {
	if _, err := b.session.ChannelMessageSendComplex(msg.ChannelID, &discordgo.MessageSend{
		Content:         content,
		Reference:       msg.Reference(),
		AllowedMentions: &discordgo.MessageAllowedMentions{RepliedUser: true},
	}); err != nil {
		b.logger.Warn("reply failed", zap.String("guild_id", msg.GuildID), zap.String("channel_id", msg.ChannelID), zap.Error(err))
	}
}

func (b *Bot) replyEmbed(msg *discordgo.Message, embed *discordgo.MessageEmbed) {
	if _, err := b.session.ChannelMessageSendEmbedReply(msg.ChannelID, embed, msg.Reference()); err != nil {
		b.logger.Warn("reply failed", zap.String("guild_id", msg.GuildID), zap.String("channel_id", msg.ChannelID), zap.Error(err))
	}
}
