package bot

import (
	"context"
	"errors"
	"strings"

	"xaver/internal/modules/verification"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

var errGuildOnly = errors.New("this command only works inside a server")

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	ctx := context.Background()
	switch interaction.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(ctx, session, interaction)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(ctx, session, interaction)
	}
}

func (b *Bot) handleCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	data := interaction.ApplicationCommandData()
	if interaction.GuildID == "" {
		b.fail(session, interaction, "Xaver", errGuildOnly)
		return
	}
	if !commandAllowed(data.Name, b.interactionPermissions(interaction)) {
		b.fail(session, interaction, "Xaver", errMissingPermission)
		return
	}
	args := newCommandArgs(data, data.Options)
	colors := b.cfg.Notifications.EmbedColors

	switch data.Name {
	case "ping":
		b.respond(session, interaction, "Pong!", false)
	case "help":
		b.respondEmbed(session, interaction, b.commandEmbed("Xaver", helpText(b.cfg.Prefix), colors.Action, nil), true)
	case "rank":
		target := args.User("user")
		if target == nil {
			target = interactionUser(interaction)
		}
		b.respondEmbed(session, interaction, b.rankFor(interaction.GuildID, target), false)
	case "leaderboard":
		b.respondEmbed(session, interaction, b.leaderboardFor(interaction.GuildID), false)
	case "profile":
		b.handleProfile(ctx, session, interaction, args)
	case "bio":
		reply, err := b.setBio(ctx, interaction.GuildID, interactionUser(interaction).ID, args.String("text"))
		if err != nil {
			b.logger.Warn("bio save failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
			b.fail(session, interaction, "Bio", errors.New("could not save your bio right now"))
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Bio", reply, colors.Action, nil), true)
	case "afk":
		status := b.afk.Set(interaction.GuildID, interactionUser(interaction).ID, args.String("reason"), b.now())
		b.respondEmbed(session, interaction, b.commandEmbed("AFK", "You are now AFK: "+status.Reason, colors.Action, nil), false)
	case "warn", "warnings", "clearwarns", "kick", "ban", "timeout", "purge", "xp":
		b.handleModerationCommand(ctx, session, interaction, data)
	case "poll", "poll-close", "reactionrole", "ticket", "verify-setup", "announce", "modstats", "config":
		b.handleCommunityCommand(ctx, session, interaction, data)
	default:
		b.fail(session, interaction, "Xaver", errors.New("unknown command"))
	}
}

func (b *Bot) handleProfile(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, args commandArgs) {
	target := args.User("user")
	member := args.Member("user")
	if target == nil {
		target = interactionUser(interaction)
		member = interaction.Member
	}
	profile, err := b.store.GetProfile(ctx, interaction.GuildID, target.ID)
	if err != nil {
		b.logger.Warn("profile load failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
	}
	record := b.leveling.Stats(interaction.GuildID, target.ID)
	embed := profileEmbed(displayName(member, target), target.AvatarURL("128"), profile, record, b.cfg.Notifications.EmbedColors.Action)
	b.respondEmbed(session, interaction, embed, false)
}

func (b *Bot) handleComponent(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	customID := interaction.MessageComponentData().CustomID
	switch {
	case strings.HasPrefix(customID, "poll:"):
		b.handlePollVote(session, interaction, customID)
	case customID == verification.CustomID:
		b.handleVerifyButton(ctx, session, interaction)
	case customID == ticketOpenID:
		b.openTicket(ctx, session, interaction, "")
	case customID == ticketCloseID:
		b.closeTicket(ctx, session, interaction)
	}
}
