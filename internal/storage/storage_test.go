package storage

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestUpsertGuildSettings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	settings := GuildSettings{
		GuildID:        "g1",
		LevelUpChannel: "c1",
		ModLogChannel:  "log",
	}
	if err := store.UpsertGuildSettings(ctx, settings); err != nil {
		t.Fatalf("upsert guild settings: %v", err)
	}

	settings.LevelUpChannel = "c2"
	if err := store.UpsertGuildSettings(ctx, settings); err != nil {
		t.Fatalf("update guild settings: %v", err)
	}

	got, err := store.GetGuildSettings(ctx, "g1", GuildSettings{WelcomeChannel: "default-welcome"})
	if err != nil {
		t.Fatalf("get guild settings: %v", err)
	}
	if got.LevelUpChannel != "c2" {
		t.Fatalf("expected channel c2, got %q", got.LevelUpChannel)
	}
	if got.WelcomeChannel != "default-welcome" {
		t.Fatalf("expected default welcome channel, got %q", got.WelcomeChannel)
	}
}

func TestGuildSettingsDefaults(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetGuildSettings(context.Background(), "unknown", GuildSettings{StarboardChannel: "stars"})
	if err != nil {
		t.Fatalf("get guild settings: %v", err)
	}
	if got.GuildID != "unknown" || got.StarboardChannel != "stars" {
		t.Fatalf("unexpected defaults: %+v", got)
	}
}

func TestWarnings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		count, err := store.AddWarning(ctx, Warning{GuildID: "g1", UserID: "u1", ModeratorID: "m1", Reason: "spam"})
		if err != nil {
			t.Fatalf("add warning: %v", err)
		}
		if count != i {
			t.Fatalf("expected count %d, got %d", i, count)
		}
	}
	if _, err := store.AddWarning(ctx, Warning{GuildID: "g2", UserID: "u1", Reason: "other guild"}); err != nil {
		t.Fatalf("add warning: %v", err)
	}

	warnings, err := store.ListWarnings(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("list warnings: %v", err)
	}
	if len(warnings) != 3 || warnings[0].Reason != "spam" {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}

	removed, err := store.ClearWarnings(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("clear warnings: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
	remaining, _ := store.ListWarnings(ctx, "g2", "u1")
	if len(remaining) != 1 {
		t.Fatalf("expected other guild untouched, got %d", len(remaining))
	}
}

func TestProfiles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	empty, err := store.GetProfile(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if empty.Bio != "" {
		t.Fatalf("expected empty bio, got %q", empty.Bio)
	}

	if err := store.SetBio(ctx, "g1", "u1", "  Ich mag Lila.  "); err != nil {
		t.Fatalf("set bio: %v", err)
	}
	profile, err := store.GetProfile(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if profile.Bio != "Ich mag Lila." {
		t.Fatalf("unexpected bio %q", profile.Bio)
	}
}

func TestAuditLogs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	entries := []AuditLog{
		{GuildID: "g1", UserID: "u1", Level: "INFO", Event: "member_join", CreatedAt: now.Add(-48 * time.Hour)},
		{GuildID: "g1", UserID: "u2", Level: "WARN", Event: "warn", CreatedAt: now.Add(-time.Hour)},
		{GuildID: "g2", UserID: "u3", Level: "INFO", Event: "member_join", CreatedAt: now},
	}
	for _, entry := range entries {
		if err := store.AddAuditLog(ctx, entry); err != nil {
			t.Fatalf("add audit log: %v", err)
		}
	}

	logs, err := store.ListAuditLogs(ctx, "g1", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Event != "warn" {
		t.Fatalf("unexpected logs: %+v", logs)
	}

	removed, err := store.CleanupAuditLogs(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
}
