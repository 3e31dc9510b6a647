package audit

import (
	"context"
	"testing"
	"time"

	"xaver/internal/storage"

	"go.uber.org/zap"
)

func TestLogPersistsAndNotifies(t *testing.T) {
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := NewLogger(store, zap.NewNop())
	var notified []storage.AuditLog
	logger.SetNotifier(func(ctx context.Context, entry storage.AuditLog) {
		notified = append(notified, entry)
	})

	ctx := context.Background()
	logger.Log(ctx, LevelWarn, "g1", "u1", EventWarn, "reason=spam")

	if len(notified) != 1 || notified[0].Event != EventWarn {
		t.Fatalf("expected one notification, got %+v", notified)
	}
	logs, err := store.ListAuditLogs(ctx, "g1", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 || logs[0].Details != "reason=spam" {
		t.Fatalf("unexpected logs %+v", logs)
	}
}

func TestLogWithoutStore(t *testing.T) {
	logger := NewLogger(nil, zap.NewNop())
	logger.Log(context.Background(), LevelInfo, "g1", "", EventMemberJoin, "")
}
