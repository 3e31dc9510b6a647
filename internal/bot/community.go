package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"xaver/internal/modules/announce"
	"xaver/internal/modules/audit"
	"xaver/internal/modules/moderation"
	"xaver/internal/modules/polls"
	"xaver/internal/modules/reactionroles"
	"xaver/internal/modules/tickets"
	"xaver/internal/modules/verification"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	ticketOpenID  = "ticket:open"
	ticketCloseID = "ticket:close"
)

var (
	errUnknownSubcommand = errors.New("unknown subcommand")
	errTicketOwner       = errors.New("only the ticket owner or staff can close this ticket")
)

func (b *Bot) handleCommunityCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	args := newCommandArgs(data, data.Options)
	switch data.Name {
	case "poll":
		b.handlePoll(session, interaction, args)
	case "poll-close":
		moderator := moderation.HasPermission(b.interactionPermissions(interaction), discordgo.PermissionManageMessages)
		poll, err := b.polls.Close(args.String("id"), interactionUser(interaction).ID, moderator)
		if err != nil {
			b.fail(session, interaction, "Poll", err)
			return
		}
		b.renderClosedPoll(poll)
		b.respondEmbed(session, interaction, b.commandEmbed("Poll", fmt.Sprintf("Poll `%s` closed.", poll.ID), b.cfg.Notifications.EmbedColors.Action, nil), true)
	case "reactionrole":
		b.handleReactionRole(session, interaction, data)
	case "ticket":
		sub, options := subcommand(data)
		switch sub {
		case "open":
			b.openTicket(ctx, session, interaction, newCommandArgs(data, options).String("topic"))
		case "close":
			b.closeTicket(ctx, session, interaction)
		case "panel":
			b.postTicketPanel(session, interaction)
		default:
			b.fail(session, interaction, "Tickets", errUnknownSubcommand)
		}
	case "verify-setup":
		b.postVerifyPanel(ctx, session, interaction)
	case "announce":
		b.handleAnnounce(ctx, session, interaction, args)
	case "modstats":
		b.handleModStats(ctx, session, interaction, args.String("period"))
	case "config":
		b.handleConfig(ctx, session, interaction, data)
	}
}

func (b *Bot) handlePoll(session *discordgo.Session, interaction *discordgo.InteractionCreate, args commandArgs) {
	options, err := b.polls.ParseOptions(args.String("options"))
	if err != nil {
		b.fail(session, interaction, "Poll", err)
		return
	}
	duration := time.Duration(b.cfg.Polls.DefaultMinutes) * time.Minute
	if raw := args.String("duration"); raw != "" {
		if duration, err = moderation.ParseDuration(raw); err != nil {
			b.fail(session, interaction, "Poll", err)
			return
		}
	}

	user := interactionUser(interaction)
	poll, err := b.polls.Create(interaction.GuildID, interaction.ChannelID, user.ID, args.String("question"), options, duration)
	if err != nil {
		b.fail(session, interaction, "Poll", err)
		return
	}
	msg, err := session.ChannelMessageSendComplex(interaction.ChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{polls.BuildEmbed(poll, b.cfg.Notifications.EmbedColors.Action)},
		Components: polls.Components(poll),
	})
	if err != nil {
		_, _ = b.polls.Close(poll.ID, user.ID, true)
		b.actionFailed(session, interaction, "Poll", err)
		return
	}
	b.polls.Attach(poll.ID, msg.ID)
	b.respondEmbed(session, interaction, b.commandEmbed("Poll", fmt.Sprintf("Poll `%s` is live.", poll.ID), b.cfg.Notifications.EmbedColors.Action, nil), true)
}

func (b *Bot) handlePollVote(session *discordgo.Session, interaction *discordgo.InteractionCreate, customID string) {
	pollID, option, ok := polls.ParseCustomID(customID)
	if !ok {
		return
	}
	poll, outcome, err := b.polls.Vote(pollID, interactionUser(interaction).ID, option)
	if err != nil {
		b.fail(session, interaction, "Poll", err)
		return
	}
	b.logger.Debug("poll vote", zap.String("poll_id", pollID), zap.Int("option", option), zap.Int("outcome", int(outcome)))
	if err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{polls.BuildEmbed(poll, b.cfg.Notifications.EmbedColors.Action)},
			Components: polls.Components(poll),
		},
	}); err != nil {
		b.logger.Warn("poll update failed", zap.String("poll_id", pollID), zap.Error(err))
	}
}

// renderClosedPoll replaces a poll message with its final results.
func (b *Bot) renderClosedPoll(poll polls.Poll) {
	if poll.MessageID == "" {
		return
	}
	edit := discordgo.NewMessageEdit(poll.ChannelID, poll.MessageID).
		SetEmbed(polls.BuildEmbed(poll, b.cfg.Notifications.EmbedColors.Action))
	edit.Components = polls.Components(poll)
	if _, err := b.session.ChannelMessageEditComplex(edit); err != nil {
		b.logger.Warn("poll close render failed", zap.String("poll_id", poll.ID), zap.Error(err))
	}
}

func (b *Bot) handleReactionRole(session *discordgo.Session, interaction *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	sub, options := subcommand(data)
	args := newCommandArgs(data, options)
	color := b.cfg.Notifications.EmbedColors.Action

	switch sub {
	case "create":
		panel := b.roles.Create(interaction.GuildID, interaction.ChannelID, args.String("title"))
		msg, err := session.ChannelMessageSendEmbed(interaction.ChannelID, reactionroles.BuildEmbed(panel, color))
		if err != nil {
			b.actionFailed(session, interaction, "Reaction roles", err)
			return
		}
		b.roles.Attach(panel.ID, msg.ID)
		b.respondEmbed(session, interaction, b.commandEmbed("Reaction roles", fmt.Sprintf("Panel `%s` created. Bind roles with `/reactionrole add`.", panel.ID), color, nil), true)
	case "add":
		panel, err := b.roles.Bind(interaction.GuildID, args.String("panel"), args.String("emoji"), args.RoleID("role"))
		if err != nil {
			b.fail(session, interaction, "Reaction roles", err)
			return
		}
		key := reactionroles.NormalizeEmoji(args.String("emoji"))
		if err := session.MessageReactionAdd(panel.ChannelID, panel.MessageID, key); err != nil {
			b.logger.Warn("panel reaction failed", zap.String("guild_id", interaction.GuildID), zap.String("emoji", key), zap.Error(err))
		}
		edit := discordgo.NewMessageEdit(panel.ChannelID, panel.MessageID).SetEmbed(reactionroles.BuildEmbed(panel, color))
		if _, err := session.ChannelMessageEditComplex(edit); err != nil {
			b.logger.Warn("panel edit failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Reaction roles", fmt.Sprintf("%s now grants <@&%s>.", args.String("emoji"), args.RoleID("role")), color, nil), true)
	default:
		b.fail(session, interaction, "Reaction roles", errUnknownSubcommand)
	}
}

func (b *Bot) openTicket(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, topic string) {
	user := interactionUser(interaction)
	guildID := interaction.GuildID
	ticket, err := b.tickets.Reserve(guildID, user.ID, topic, b.now())
	if err != nil {
		b.fail(session, interaction, "Tickets", err)
		return
	}

	channel, err := session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 tickets.ChannelName(user.Username),
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                ticket.Reason,
		ParentID:             b.guildSettings(ctx, guildID).TicketCategoryID,
		PermissionOverwrites: tickets.Overwrites(guildID, user.ID, b.botUserID()),
	})
	if err != nil {
		b.tickets.Release(guildID, user.ID)
		b.actionFailed(session, interaction, "Tickets", err)
		return
	}
	b.tickets.Bind(guildID, user.ID, channel.ID)

	description := fmt.Sprintf("<@%s> opened a ticket. Staff will be with you shortly.", user.ID)
	if ticket.Reason != "" {
		description += "\n\n**Topic:** " + ticket.Reason
	}
	if _, err := session.ChannelMessageSendComplex(channel.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{b.commandEmbed("Ticket "+ticket.ID, description, b.cfg.Notifications.EmbedColors.Action, nil)},
		Components: []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Close ticket", Style: discordgo.DangerButton, CustomID: ticketCloseID, Emoji: discordgo.ComponentEmoji{Name: "🔒"}},
		}}},
	}); err != nil {
		b.logger.Warn("ticket greeting failed", zap.String("guild_id", guildID), zap.Error(err))
	}

	b.audit.Log(ctx, audit.LevelInfo, guildID, user.ID, audit.EventTicketOpen, fmt.Sprintf("<#%s> %s", channel.ID, ticket.Reason))
	b.respondEmbed(session, interaction, b.commandEmbed("Tickets", fmt.Sprintf("Your ticket is ready: <#%s>", channel.ID), b.cfg.Notifications.EmbedColors.Action, nil), true)
}

func (b *Bot) closeTicket(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	user := interactionUser(interaction)
	ticket, ok := b.tickets.ByChannel(interaction.ChannelID)
	if !ok {
		b.fail(session, interaction, "Tickets", tickets.ErrNotTicket)
		return
	}
	if ticket.OwnerID != user.ID && !moderation.HasPermission(b.interactionPermissions(interaction), discordgo.PermissionManageChannels) {
		b.fail(session, interaction, "Tickets", errTicketOwner)
		return
	}

	delay := time.Duration(b.cfg.Tickets.DeleteSeconds) * time.Second
	if _, err := b.tickets.Close(interaction.ChannelID, delay, func(channelID string) {
		if _, err := b.session.ChannelDelete(channelID); err != nil {
			b.logger.Warn("ticket delete failed", zap.String("channel_id", channelID), zap.Error(err))
		}
	}); err != nil {
		b.fail(session, interaction, "Tickets", err)
		return
	}
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, ticket.OwnerID, audit.EventTicketClose, "closed by "+user.ID)
	b.respondEmbed(session, interaction, b.commandEmbed("Tickets", fmt.Sprintf("Closing this ticket in %d seconds.", b.cfg.Tickets.DeleteSeconds), b.cfg.Notifications.EmbedColors.Warning, nil), false)
}

func (b *Bot) postTicketPanel(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if !moderation.HasPermission(b.interactionPermissions(interaction), discordgo.PermissionManageChannels) {
		b.fail(session, interaction, "Tickets", errMissingPermission)
		return
	}
	_, err := session.ChannelMessageSendComplex(interaction.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "Support",
			Description: "Need help? Press the button to open a private ticket.",
			Color:       b.cfg.Notifications.EmbedColors.Action,
		}},
		Components: []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Open ticket", Style: discordgo.PrimaryButton, CustomID: ticketOpenID, Emoji: discordgo.ComponentEmoji{Name: "🎫"}},
		}}},
	})
	if err != nil {
		b.actionFailed(session, interaction, "Tickets", err)
		return
	}
	b.respond(session, interaction, "Ticket panel posted.", true)
}

func (b *Bot) postVerifyPanel(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	embed, components := verification.Panel(b.cfg.Notifications.EmbedColors.Action)
	if _, err := session.ChannelMessageSendComplex(interaction.ChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
	}); err != nil {
		b.actionFailed(session, interaction, "Verification", err)
		return
	}
	note := "Verification panel posted."
	if b.guildSettings(ctx, interaction.GuildID).VerifyRoleID == "" {
		note += " Set the role with `/config role verify`."
	}
	b.respond(session, interaction, note, true)
}

func (b *Bot) handleVerifyButton(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Member == nil {
		return
	}
	roleID := b.guildSettings(ctx, interaction.GuildID).VerifyRoleID
	outcome := verification.Decide(interaction.Member.Roles, roleID)
	if outcome == verification.OutcomeGrant {
		user := interactionUser(interaction)
		if err := session.GuildMemberRoleAdd(interaction.GuildID, user.ID, roleID); err != nil {
			b.actionFailed(session, interaction, "Verification", err)
			return
		}
		b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, user.ID, audit.EventVerified, roleID)
	}
	b.respond(session, interaction, outcome.Message(), true)
}

func (b *Bot) handleAnnounce(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, args commandArgs) {
	user := interactionUser(interaction)
	send, err := announce.Build(announce.Request{
		Title:        args.String("title"),
		Message:      args.String("message"),
		Color:        args.String("color"),
		ImageURL:     args.String("image"),
		PingEveryone: args.Bool("ping"),
		AuthorName:   user.Username,
	}, b.cfg.Notifications.EmbedColors.Action, b.now())
	if err != nil {
		b.fail(session, interaction, "Announcement", err)
		return
	}
	channelID := args.ChannelID("channel")
	if _, err := session.ChannelMessageSendComplex(channelID, send); err != nil {
		b.actionFailed(session, interaction, "Announcement", err)
		return
	}
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, user.ID, audit.EventAnnouncement, fmt.Sprintf("<#%s> %s", channelID, args.String("title")))
	b.respond(session, interaction, fmt.Sprintf("Announcement sent to <#%s>.", channelID), true)
}

func reportWindow(period string) (string, time.Duration) {
	switch period {
	case "day":
		return "last 24 hours", 24 * time.Hour
	case "month":
		return "last 30 days", 30 * 24 * time.Hour
	default:
		return "last 7 days", 7 * 24 * time.Hour
	}
}

func (b *Bot) handleModStats(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, period string) {
	label, window := reportWindow(period)
	report, err := b.analytics.Report(ctx, interaction.GuildID, b.now().Add(-window))
	if err != nil {
		b.logger.Warn("modstats failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.fail(session, interaction, "Mod stats", errors.New("could not build the report"))
		return
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Mod stats • "+label, formatReport(report), b.cfg.Notifications.EmbedColors.Action, nil), true)
}

func (b *Bot) handleConfig(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	sub, options := subcommand(data)
	args := newCommandArgs(data, options)
	settings := b.guildSettings(ctx, interaction.GuildID)
	color := b.cfg.Notifications.EmbedColors.Action

	switch sub {
	case "view":
		b.respondEmbed(session, interaction, b.commandEmbed("Config", "Current settings", color, settingsFields(settings, b.tickets.OpenCount(interaction.GuildID))), true)
		return
	case "channel":
		if err := applyChannelSetting(&settings, args.String("kind"), args.ChannelID("channel")); err != nil {
			b.fail(session, interaction, "Config", err)
			return
		}
	case "role":
		if args.String("kind") != "verify" {
			b.fail(session, interaction, "Config", errUnknownSubcommand)
			return
		}
		settings.VerifyRoleID = args.RoleID("role")
	default:
		b.fail(session, interaction, "Config", errUnknownSubcommand)
		return
	}

	if err := b.store.UpsertGuildSettings(ctx, settings); err != nil {
		b.logger.Warn("settings save failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.fail(session, interaction, "Config", errors.New("could not save settings"))
		return
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Config", "Saved.", color, settingsFields(settings, b.tickets.OpenCount(interaction.GuildID))), true)
}
