package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DISCORD_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected missing token error")
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlData := []byte("prefix: \"!\"\nleveling:\n  cooldown_seconds: 30\n  min_gain: 20\n  max_gain: 5\nstarboard:\n  threshold: 5\n")
	if err := os.WriteFile(path, yamlData, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("STARBOARD_THRESHOLD", "7")
	t.Setenv("PORT", "8081")
	t.Setenv("EMBED_COLOR_ACTION", "0x00FF00")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Prefix != "!" {
		t.Fatalf("expected prefix from yaml, got %q", cfg.Prefix)
	}
	if cfg.Leveling.CooldownSeconds != 30 {
		t.Fatalf("expected cooldown 30, got %d", cfg.Leveling.CooldownSeconds)
	}
	if cfg.Leveling.MaxGain != 20 {
		t.Fatalf("expected max gain raised to min, got %d", cfg.Leveling.MaxGain)
	}
	if cfg.Starboard.Threshold != 7 {
		t.Fatalf("expected env override 7, got %d", cfg.Starboard.Threshold)
	}
	if cfg.Health.Addr != ":8081" {
		t.Fatalf("expected addr from PORT, got %q", cfg.Health.Addr)
	}
	if cfg.Notifications.EmbedColors.Action != 0x00FF00 {
		t.Fatalf("expected hex color, got %x", cfg.Notifications.EmbedColors.Action)
	}
	if cfg.DatabasePath != ":memory:" {
		t.Fatalf("expected in-memory database by default, got %q", cfg.DatabasePath)
	}
}

func TestBuildLogger(t *testing.T) {
	logger, err := BuildLogger("DEBUG")
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	if !logger.Core().Enabled(parseLevel("debug")) {
		t.Fatalf("expected debug enabled")
	}
}
