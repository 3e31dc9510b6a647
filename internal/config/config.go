package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken  string             `yaml:"discord_token"`
	Prefix        string             `yaml:"prefix"`
	DatabasePath  string             `yaml:"database_path"`
	LogLevel      string             `yaml:"log_level"`
	Health        HealthConfig       `yaml:"health"`
	Leveling      LevelingConfig     `yaml:"leveling"`
	Channels      ChannelConfig      `yaml:"channels"`
	Starboard     StarboardConfig    `yaml:"starboard"`
	Moderation    ModerationConfig   `yaml:"moderation"`
	Tickets       TicketConfig       `yaml:"tickets"`
	Verification  VerificationConfig `yaml:"verification"`
	Polls         PollConfig         `yaml:"polls"`
	Notifications NotifyConfig       `yaml:"notifications"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type LevelingConfig struct {
	CooldownSeconds int `yaml:"cooldown_seconds"`
	MinGain         int `yaml:"min_gain"`
	MaxGain         int `yaml:"max_gain"`
	IdleTTLHours    int `yaml:"idle_ttl_hours"`
	SweepMinutes    int `yaml:"sweep_minutes"`
	LeaderboardSize int `yaml:"leaderboard_size"`
}

// ChannelConfig holds process-wide fallbacks; guild settings override them.
type ChannelConfig struct {
	LevelUp string `yaml:"level_up"`
	Welcome string `yaml:"welcome"`
	ModLog  string `yaml:"mod_log"`
}

type StarboardConfig struct {
	ChannelID string `yaml:"channel_id"`
	Emoji     string `yaml:"emoji"`
	Threshold int    `yaml:"threshold"`
}

type ModerationConfig struct {
	WarnAutoTimeout    int `yaml:"warn_auto_timeout"`
	WarnTimeoutMinutes int `yaml:"warn_timeout_minutes"`
	PurgeMax           int `yaml:"purge_max"`
}

type TicketConfig struct {
	CategoryID    string `yaml:"category_id"`
	DeleteSeconds int    `yaml:"delete_seconds"`
}

type VerificationConfig struct {
	RoleID string `yaml:"role_id"`
}

type PollConfig struct {
	DefaultMinutes int `yaml:"default_minutes"`
	MaxOptions     int `yaml:"max_options"`
}

type NotifyConfig struct {
	EmbedColors EmbedColors `yaml:"embed_colors"`
}

type EmbedColors struct {
	Action  int `yaml:"action"`
	Warning int `yaml:"warning"`
	Error   int `yaml:"error"`
	LevelUp int `yaml:"level_up"`
}

func DefaultConfig() Config {
	return Config{
		Prefix:       "x!",
		DatabasePath: ":memory:",
		LogLevel:     "info",
		Health:       HealthConfig{Enabled: true, Addr: ":3000"},
		Leveling: LevelingConfig{
			CooldownSeconds: 10,
			MinGain:         10,
			MaxGain:         15,
			IdleTTLHours:    720,
			SweepMinutes:    60,
			LeaderboardSize: 10,
		},
		Starboard:  StarboardConfig{Emoji: "⭐", Threshold: 3},
		Moderation: ModerationConfig{WarnAutoTimeout: 3, WarnTimeoutMinutes: 10, PurgeMax: 100},
		Tickets:    TicketConfig{DeleteSeconds: 5},
		Polls:      PollConfig{DefaultMinutes: 60, MaxOptions: 10},
		Notifications: NotifyConfig{
			EmbedColors: EmbedColors{
				Action:  0x8B5CF6,
				Warning: 0xF59E0B,
				Error:   0xEF4444,
				LevelUp: 0xA855F7,
			},
		},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}

	normalize(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.Prefix = envString("PREFIX", cfg.Prefix)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	if port := os.Getenv("PORT"); port != "" {
		cfg.Health.Addr = ":" + port
	}
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Leveling.CooldownSeconds = envInt("XP_COOLDOWN_SECONDS", cfg.Leveling.CooldownSeconds)
	cfg.Leveling.MinGain = envInt("XP_MIN_GAIN", cfg.Leveling.MinGain)
	cfg.Leveling.MaxGain = envInt("XP_MAX_GAIN", cfg.Leveling.MaxGain)
	cfg.Leveling.IdleTTLHours = envInt("XP_IDLE_TTL_HOURS", cfg.Leveling.IdleTTLHours)
	cfg.Leveling.SweepMinutes = envInt("XP_SWEEP_MINUTES", cfg.Leveling.SweepMinutes)
	cfg.Channels.LevelUp = envString("LEVELUP_CHANNEL", cfg.Channels.LevelUp)
	cfg.Channels.Welcome = envString("WELCOME_CHANNEL", cfg.Channels.Welcome)
	cfg.Channels.ModLog = envString("MOD_LOG_CHANNEL", cfg.Channels.ModLog)
	cfg.Starboard.ChannelID = envString("STARBOARD_CHANNEL", cfg.Starboard.ChannelID)
	cfg.Starboard.Emoji = envString("STARBOARD_EMOJI", cfg.Starboard.Emoji)
	cfg.Starboard.Threshold = envInt("STARBOARD_THRESHOLD", cfg.Starboard.Threshold)
	cfg.Moderation.WarnAutoTimeout = envInt("WARN_AUTO_TIMEOUT", cfg.Moderation.WarnAutoTimeout)
	cfg.Moderation.WarnTimeoutMinutes = envInt("WARN_TIMEOUT_MINUTES", cfg.Moderation.WarnTimeoutMinutes)
	cfg.Tickets.CategoryID = envString("TICKET_CATEGORY_ID", cfg.Tickets.CategoryID)
	cfg.Tickets.DeleteSeconds = envInt("TICKET_DELETE_SECONDS", cfg.Tickets.DeleteSeconds)
	cfg.Verification.RoleID = envString("VERIFY_ROLE_ID", cfg.Verification.RoleID)
	cfg.Polls.DefaultMinutes = envInt("POLL_DEFAULT_MINUTES", cfg.Polls.DefaultMinutes)
	cfg.Notifications.EmbedColors.Action = envInt("EMBED_COLOR_ACTION", cfg.Notifications.EmbedColors.Action)
	cfg.Notifications.EmbedColors.Warning = envInt("EMBED_COLOR_WARNING", cfg.Notifications.EmbedColors.Warning)
	cfg.Notifications.EmbedColors.Error = envInt("EMBED_COLOR_ERROR", cfg.Notifications.EmbedColors.Error)
	cfg.Notifications.EmbedColors.LevelUp = envInt("EMBED_COLOR_LEVEL_UP", cfg.Notifications.EmbedColors.LevelUp)
}

func normalize(cfg *Config) {
	if strings.TrimSpace(cfg.Prefix) == "" {
		cfg.Prefix = "x!"
	}
	if cfg.Leveling.CooldownSeconds < 0 {
		cfg.Leveling.CooldownSeconds = 0
	}
	if cfg.Leveling.MinGain < 1 {
		cfg.Leveling.MinGain = 1
	}
	if cfg.Leveling.MaxGain < cfg.Leveling.MinGain {
		cfg.Leveling.MaxGain = cfg.Leveling.MinGain
	}
	if cfg.Leveling.LeaderboardSize <= 0 || cfg.Leveling.LeaderboardSize > 25 {
		cfg.Leveling.LeaderboardSize = 10
	}
	if cfg.Starboard.Threshold < 1 {
		cfg.Starboard.Threshold = 1
	}
	if cfg.Moderation.PurgeMax <= 0 || cfg.Moderation.PurgeMax > 100 {
		cfg.Moderation.PurgeMax = 100
	}
	if cfg.Polls.MaxOptions < 2 || cfg.Polls.MaxOptions > 10 {
		cfg.Polls.MaxOptions = 10
	}
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(strings.ToLower(level)))

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 0, 64); err == nil {
			return int(parsed)
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}
