package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"xaver/internal/analytics"
	"xaver/internal/bot"
	"xaver/internal/config"
	"xaver/internal/health"
	"xaver/internal/leveling"
	"xaver/internal/modules/audit"
	"xaver/internal/storage"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	auditLogger := audit.NewLogger(store, logger)
	levelingEngine := leveling.NewEngine(cfg.Leveling)
	analyticsService := analytics.New(store)

	botSvc, err := bot.New(cfg, logger, store, levelingEngine, auditLogger, analyticsService)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	var server runner
	if cfg.Health.Enabled {
		server = health.New(cfg.Health.Addr, botSvc, logger)
	}
	if err := serve(ctx, logger, server, botSvc); err != nil {
		logger.Error("shutdown with error", zap.Error(err))
	}
}

type runner interface {
	Run(ctx context.Context) error
}

type service interface {
	Start() error
	Close(ctx context.Context)
}

// serve starts the health server before the gateway login so keepalive polls
// are answered during a slow start, then blocks until ctx ends.
func serve(ctx context.Context, logger *zap.Logger, server runner, botSvc service) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	if server != nil {
		group.Go(func() error {
			return server.Run(groupCtx)
		})
	}

	if err := botSvc.Start(); err != nil {
		cancel()
		_ = group.Wait()
		return fmt.Errorf("bot start: %w", err)
	}
	logger.Info("bot started")

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutdown requested")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		botSvc.Close(shutdownCtx)
		return nil
	})
	return group.Wait()
}
