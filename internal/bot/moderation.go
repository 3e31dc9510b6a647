package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"xaver/internal/modules/audit"
	"xaver/internal/modules/moderation"
	"xaver/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

var (
	errMissingPermission = errors.New("you do not have permission to do that")
	errSelfTarget        = errors.New("you cannot target yourself")
	errBotTarget         = errors.New("I will not do that to myself")
	errHierarchy         = errors.New("that member's highest role is not below yours")
	errMissingUser       = errors.New("pick a member")
)

// commandPermissions is checked on every interaction, on top of the defaults
// Discord applies from the command definition.
var commandPermissions = map[string]int64{
	"warn":         discordgo.PermissionModerateMembers,
	"warnings":     discordgo.PermissionModerateMembers,
	"clearwarns":   discordgo.PermissionModerateMembers,
	"kick":         discordgo.PermissionKickMembers,
	"ban":          discordgo.PermissionBanMembers,
	"timeout":      discordgo.PermissionModerateMembers,
	"purge":        discordgo.PermissionManageMessages,
	"xp":           discordgo.PermissionManageServer,
	"reactionrole": discordgo.PermissionManageRoles,
	"verify-setup": discordgo.PermissionAdministrator,
	"announce":     discordgo.PermissionManageMessages,
	"modstats":     discordgo.PermissionModerateMembers,
	"config":       discordgo.PermissionManageServer,
}

func commandAllowed(name string, perms int64) bool {
	want, ok := commandPermissions[name]
	return !ok || moderation.HasPermission(perms, want)
}

func (b *Bot) handleModerationCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	title := "Moderation"
	args := newCommandArgs(data, data.Options)
	actor := interactionUser(interaction)
	guildID := interaction.GuildID
	colors := b.cfg.Notifications.EmbedColors

	if data.Name == "purge" {
		b.handlePurge(ctx, session, interaction, args.Int("amount", 0))
		return
	}

	target := args.User("user")
	if data.Name == "xp" {
		sub, options := subcommand(data)
		target = newCommandArgs(data, options).User("user")
		if sub != "reset" || target == nil {
			b.fail(session, interaction, "XP", errMissingUser)
			return
		}
		b.leveling.Reset(guildID, target.ID)
		b.audit.Log(ctx, audit.LevelInfo, guildID, target.ID, audit.EventXPReset, "by "+actor.ID)
		b.respondEmbed(session, interaction, b.commandEmbed("XP", fmt.Sprintf("Progression of <@%s> was reset.", target.ID), colors.Action, nil), true)
		return
	}
	if target == nil {
		b.fail(session, interaction, title, errMissingUser)
		return
	}

	switch data.Name {
	case "warnings":
		warnings, err := b.store.ListWarnings(ctx, guildID, target.ID)
		if err != nil {
			b.logger.Warn("list warnings failed", zap.String("guild_id", guildID), zap.Error(err))
			b.fail(session, interaction, "Warnings", errors.New("could not load warnings"))
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed(fmt.Sprintf("Warnings of %s (%d)", target.Username, len(warnings)), warningLines(warnings), colors.Warning, nil), true)
		return
	case "clearwarns":
		removed, err := b.store.ClearWarnings(ctx, guildID, target.ID)
		if err != nil {
			b.logger.Warn("clear warnings failed", zap.String("guild_id", guildID), zap.Error(err))
			b.fail(session, interaction, "Warnings", errors.New("could not clear warnings"))
			return
		}
		b.audit.Log(ctx, audit.LevelInfo, guildID, target.ID, audit.EventWarnClear, fmt.Sprintf("%d removed by %s", removed, actor.ID))
		b.respondEmbed(session, interaction, b.commandEmbed("Warnings", fmt.Sprintf("Removed %d warning(s) from <@%s>.", removed, target.ID), colors.Action, nil), true)
		return
	}

	if err := b.checkTarget(interaction, actor, target, args.Member("user")); err != nil {
		b.fail(session, interaction, title, err)
		return
	}
	reason := moderation.Reason(args.String("reason"), "No reason provided")

	switch data.Name {
	case "warn":
		b.handleWarn(ctx, session, interaction, actor, target, reason)
	case "kick":
		if err := session.GuildMemberDeleteWithReason(guildID, target.ID, reason); err != nil {
			b.actionFailed(session, interaction, "Kick", err)
			return
		}
		b.audit.Log(ctx, audit.LevelWarn, guildID, target.ID, audit.EventKick, fmt.Sprintf("%s (by %s)", reason, actor.ID))
		b.respondEmbed(session, interaction, b.commandEmbed("Kick", fmt.Sprintf("<@%s> was kicked. Reason: %s", target.ID, reason), colors.Warning, nil), false)
	case "ban":
		days := args.Int("delete_days", 0)
		if err := moderation.ValidateDeleteDays(days); err != nil {
			b.fail(session, interaction, "Ban", err)
			return
		}
		if err := session.GuildBanCreateWithReason(guildID, target.ID, reason, days); err != nil {
			b.actionFailed(session, interaction, "Ban", err)
			return
		}
		b.audit.Log(ctx, audit.LevelCrit, guildID, target.ID, audit.EventBan, fmt.Sprintf("%s (by %s, delete_days=%d)", reason, actor.ID, days))
		b.respondEmbed(session, interaction, b.commandEmbed("Ban", fmt.Sprintf("<@%s> was banned. Reason: %s", target.ID, reason), colors.Error, nil), false)
	case "timeout":
		duration, err := moderation.ParseDuration(args.String("duration"))
		if err != nil {
			b.fail(session, interaction, "Timeout", err)
			return
		}
		if err := b.timeoutMember(ctx, guildID, target.ID, actor.ID, duration, reason); err != nil {
			b.actionFailed(session, interaction, "Timeout", err)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Timeout", fmt.Sprintf("<@%s> is timed out for %s. Reason: %s", target.ID, moderation.FormatDuration(duration), reason), colors.Warning, nil), false)
	}
}

func (b *Bot) handleWarn(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, actor, target *discordgo.User, reason string) {
	guildID := interaction.GuildID
	colors := b.cfg.Notifications.EmbedColors

	count, err := b.store.AddWarning(ctx, storage.Warning{
		GuildID:     guildID,
		UserID:      target.ID,
		ModeratorID: actor.ID,
		Reason:      reason,
		CreatedAt:   b.now(),
	})
	if err != nil {
		b.logger.Warn("add warning failed", zap.String("guild_id", guildID), zap.Error(err))
		b.fail(session, interaction, "Warn", errors.New("could not store the warning"))
		return
	}
	b.audit.Log(ctx, audit.LevelWarn, guildID, target.ID, audit.EventWarn, fmt.Sprintf("#%d %s (by %s)", count, reason, actor.ID))

	description := fmt.Sprintf("<@%s> was warned (%d total). Reason: %s", target.ID, count, reason)
	if moderation.ShouldAutoTimeout(count, b.cfg.Moderation.WarnAutoTimeout) {
		duration := time.Duration(b.cfg.Moderation.WarnTimeoutMinutes) * time.Minute
		if duration < moderation.MinTimeout {
			duration = 10 * time.Minute
		}
		if err := b.timeoutMember(ctx, guildID, target.ID, b.botUserID(), duration, fmt.Sprintf("reached %d warnings", count)); err != nil {
			b.logger.Warn("auto timeout failed", zap.String("guild_id", guildID), zap.String("user_id", target.ID), zap.Error(err))
			description += "\nAutomatic timeout failed."
		} else {
			description += fmt.Sprintf("\nAutomatically timed out for %s.", moderation.FormatDuration(duration))
		}
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Warn", description, colors.Warning, nil), false)
}

func (b *Bot) timeoutMember(ctx context.Context, guildID, userID, actorID string, duration time.Duration, reason string) error {
	until := b.now().Add(duration)
	if err := b.session.GuildMemberTimeout(guildID, userID, &until); err != nil {
		return err
	}
	b.audit.Log(ctx, audit.LevelWarn, guildID, userID, audit.EventTimeout, fmt.Sprintf("%s for %s (by %s)", reason, moderation.FormatDuration(duration), actorID))
	return nil
}

func (b *Bot) handlePurge(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, amount int) {
	if err := moderation.ValidatePurge(amount, b.cfg.Moderation.PurgeMax); err != nil {
		b.fail(session, interaction, "Purge", err)
		return
	}
	messages, err := session.ChannelMessages(interaction.ChannelID, 100, "", "", "")
	if err != nil {
		b.actionFailed(session, interaction, "Purge", err)
		return
	}
	ids := moderation.Purgeable(messages, b.now(), amount)
	switch len(ids) {
	case 0:
	case 1:
		err = session.ChannelMessageDelete(interaction.ChannelID, ids[0])
	default:
		err = session.ChannelMessagesBulkDelete(interaction.ChannelID, ids)
	}
	if err != nil {
		b.actionFailed(session, interaction, "Purge", err)
		return
	}
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, interactionUser(interaction).ID, audit.EventPurge, fmt.Sprintf("%d message(s) in <#%s>", len(ids), interaction.ChannelID))
	b.respondEmbed(session, interaction, b.commandEmbed("Purge", fmt.Sprintf("Deleted %d message(s).", len(ids)), b.cfg.Notifications.EmbedColors.Action, nil), true)
}

// checkTarget refuses self-targeting, the bot itself, and members at or above the actor's top role.
func (b *Bot) checkTarget(interaction *discordgo.InteractionCreate, actor, target *discordgo.User, targetMember *discordgo.Member) error {
	if target.ID == actor.ID {
		return errSelfTarget
	}
	if target.ID == b.botUserID() {
		return errBotTarget
	}
	guild := b.guild(interaction.GuildID)
	if guild == nil {
		return nil
	}
	if !moderation.Outranks(guild, interaction.Member, targetMember) {
		return errHierarchy
	}
	return nil
}

func (b *Bot) actionFailed(session *discordgo.Session, interaction *discordgo.InteractionCreate, title string, err error) {
	b.logger.Warn("moderation action failed", zap.String("guild_id", interaction.GuildID), zap.String("action", title), zap.Error(err))
	b.respondEmbed(session, interaction, b.commandEmbed(title, "Discord refused the action. Check my role position and permissions.", b.cfg.Notifications.EmbedColors.Error, nil), true)
}
