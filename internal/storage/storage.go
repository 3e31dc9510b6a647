package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sql.DB
}

type GuildSettings struct {
	GuildID          string
	LevelUpChannel   string
	WelcomeChannel   string
	ModLogChannel    string
	StarboardChannel string
	VerifyRoleID     string
	TicketCategoryID string
}

type AuditLog struct {
	ID        int64
	GuildID   string
	UserID    string
	Level     string
	Event     string
	Details   string
	CreatedAt time.Time
}

type Profile struct {
	GuildID   string
	UserID    string
	Bio       string
	UpdatedAt time.Time
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// every pooled connection to ":memory:" would open its own empty database
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Migrate() error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

func (s *Store) GetGuildSettings(ctx context.Context, guildID string, defaults GuildSettings) (GuildSettings, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT level_up_channel, welcome_channel, mod_log_channel, starboard_channel,
		verify_role_id, ticket_category_id
		FROM guild_settings WHERE guild_id = ?`, guildID)

	var stored GuildSettings
	err := row.Scan(
		&stored.LevelUpChannel,
		&stored.WelcomeChannel,
		&stored.ModLogChannel,
		&stored.StarboardChannel,
		&stored.VerifyRoleID,
		&stored.TicketCategoryID,
	)
	result := defaults
	result.GuildID = guildID
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		return GuildSettings{}, err
	}
	result.LevelUpChannel = fallback(stored.LevelUpChannel, defaults.LevelUpChannel)
	result.WelcomeChannel = fallback(stored.WelcomeChannel, defaults.WelcomeChannel)
	result.ModLogChannel = fallback(stored.ModLogChannel, defaults.ModLogChannel)
	result.StarboardChannel = fallback(stored.StarboardChannel, defaults.StarboardChannel)
	result.VerifyRoleID = fallback(stored.VerifyRoleID, defaults.VerifyRoleID)
	result.TicketCategoryID = fallback(stored.TicketCategoryID, defaults.TicketCategoryID)
	return result, nil
}

func (s *Store) UpsertGuildSettings(ctx context.Context, settings GuildSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_settings (
			guild_id, level_up_channel, welcome_channel, mod_log_channel,
			starboard_channel, verify_role_id, ticket_category_id
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			level_up_channel = excluded.level_up_channel,
			welcome_channel = excluded.welcome_channel,
			mod_log_channel = excluded.mod_log_channel,
			starboard_channel = excluded.starboard_channel,
			verify_role_id = excluded.verify_role_id,
			ticket_category_id = excluded.ticket_category_id
	`,
		settings.GuildID,
		settings.LevelUpChannel,
		settings.WelcomeChannel,
		settings.ModLogChannel,
		settings.StarboardChannel,
		settings.VerifyRoleID,
		settings.TicketCategoryID,
	)
	return err
}

func (s *Store) AddAuditLog(ctx context.Context, log AuditLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (guild_id, user_id, level, event, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, log.GuildID, log.UserID, log.Level, log.Event, log.Details, log.CreatedAt.Unix())
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, guildID string, since time.Time) ([]AuditLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, user_id, level, event, details, created_at
		FROM audit_logs
		WHERE guild_id = ? AND created_at >= ?
		ORDER BY created_at DESC, id DESC
	`, guildID, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []AuditLog
	for rows.Next() {
		var log AuditLog
		var created int64
		if err := rows.Scan(&log.ID, &log.GuildID, &log.UserID, &log.Level, &log.Event, &log.Details, &created); err != nil {
			return nil, err
		}
		log.CreatedAt = time.Unix(created, 0)
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func (s *Store) CleanupAuditLogs(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < ?`, before.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) SetBio(ctx context.Context, guildID, userID, bio string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (guild_id, user_id, bio, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			bio = excluded.bio,
			updated_at = excluded.updated_at
	`, guildID, userID, strings.TrimSpace(bio), time.Now().Unix())
	return err
}

// GetProfile returns an empty profile when none was saved.
func (s *Store) GetProfile(ctx context.Context, guildID, userID string) (Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT bio, updated_at FROM profiles WHERE guild_id = ? AND user_id = ?
	`, guildID, userID)

	profile := Profile{GuildID: guildID, UserID: userID}
	var updated int64
	if err := row.Scan(&profile.Bio, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return profile, nil
		}
		return Profile{}, err
	}
	profile.UpdatedAt = time.Unix(updated, 0)
	return profile, nil
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
