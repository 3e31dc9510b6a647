package audit

import (
	"context"
	"time"

	"xaver/internal/storage"

	"go.uber.org/zap"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
	LevelCrit = "CRIT"
)

// Event names written to the audit log.
const (
	EventMessageDelete = "message_delete"
	EventMessageEdit   = "message_edit"
	EventMemberJoin    = "member_join"
	EventMemberLeave   = "member_leave"
	EventVoiceJoin     = "voice_join"
	EventVoiceLeave    = "voice_leave"
	EventVoiceMove     = "voice_move"
	EventRoleCreate    = "role_create"
	EventRoleDelete    = "role_delete"
	EventBanAdd        = "ban_add"
	EventBanRemove     = "ban_remove"
	EventWarn          = "warn"
	EventWarnClear     = "warn_clear"
	EventKick          = "kick"
	EventBan           = "ban"
	EventTimeout       = "timeout"
	EventPurge         = "purge"
	EventXPReset       = "xp_reset"
	EventTicketOpen    = "ticket_open"
	EventTicketClose   = "ticket_close"
	EventVerified      = "verified"
	EventAnnouncement  = "announcement"
)

type Logger struct {
	store  *storage.Store
	logger *zap.Logger
	notify func(context.Context, storage.AuditLog)
	now    func() time.Time
}

func NewLogger(store *storage.Store, logger *zap.Logger) *Logger {
	return &Logger{store: store, logger: logger, now: time.Now}
}

func (l *Logger) SetNotifier(notify func(context.Context, storage.AuditLog)) {
	l.notify = notify
}

func (l *Logger) Log(ctx context.Context, level, guildID, userID, event, details string) {
	entry := storage.AuditLog{
		GuildID:   guildID,
		UserID:    userID,
		Level:     level,
		Event:     event,
		Details:   details,
		CreatedAt: l.now(),
	}
	if l.store != nil {
		if err := l.store.AddAuditLog(ctx, entry); err != nil {
			l.logger.Warn("audit write failed", zap.String("guild_id", guildID), zap.String("event", event), zap.Error(err))
		}
	}
	if l.notify != nil {
		l.notify(ctx, entry)
	}
	l.logger.Info("audit", zap.String("level", level), zap.String("guild_id", guildID), zap.String("user_id", userID), zap.String("event", event), zap.String("details", details))
}
