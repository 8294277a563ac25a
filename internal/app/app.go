// Package app wires the components into the running daemon.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pagewatch/internal/auth"
	"pagewatch/internal/bot"
	"pagewatch/internal/config"
	"pagewatch/internal/deliver"
	"pagewatch/internal/extract"
	"pagewatch/internal/fetch"
	"pagewatch/internal/schedule"
	"pagewatch/internal/storage"
	"pagewatch/internal/track"
	"pagewatch/internal/validation"
	"pagewatch/internal/watch"
)

var errShutdown = errors.New("shutdown requested")

// Run builds the daemon from cfg and blocks until ctx is cancelled or a
// shutdown signal arrives.
func Run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log.Info("configuration loaded",
		zap.String("storage_path", cfg.Storage.Path),
		zap.Duration("default_interval", cfg.Schedule.DefaultInterval),
		zap.String("timezone", cfg.Schedule.Timezone),
		zap.Int64("owner_id", cfg.Telegram.OwnerID))

	store, err := storage.NewStore(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	telegram, err := bot.New(cfg.Telegram.Token, log)
	if err != nil {
		return err
	}

	fetcher := fetch.New(fetch.Config{
		Timeout:           cfg.Fetch.Timeout,
		UserAgent:         cfg.Fetch.UserAgent,
		MaxBodyBytes:      int64(cfg.Fetch.MaxBodyMB) << 20,
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
	})

	pipeline := deliver.New(telegram, log, deliver.Config{
		TempDir:          cfg.Delivery.TempDir,
		MaxFileBytes:     int64(cfg.Delivery.MaxFileMB) << 20,
		ManifestMaxChars: cfg.Delivery.ManifestMaxChars,
		Concurrency:      cfg.Delivery.Concurrency,
	})

	detector := watch.New(store, fetcher, extract.New(), pipeline, telegram, log)

	runCheck := func(ctx context.Context, ownerID int64, url string) {
		if _, err := detector.Check(ctx, ownerID, url); err != nil {
			log.Error("check cycle failed",
				zap.Int64("owner", ownerID),
				zap.String("url", url),
				zap.Error(err))
		}
	}

	scheduler, err := schedule.New(store, runCheck, log, schedule.Config{
		Tick:             cfg.Schedule.Tick,
		MisfireGrace:     cfg.Schedule.MisfireGrace,
		Timezone:         cfg.Schedule.Timezone,
		ActiveHoursStart: cfg.Schedule.ActiveHoursStart,
		ActiveHoursEnd:   cfg.Schedule.ActiveHoursEnd,
	})
	if err != nil {
		return fmt.Errorf("building scheduler: %w", err)
	}

	authSvc := auth.NewService(store, cfg.Telegram.OwnerID, log)
	tracker := track.NewService(store, validation.NewPageURLValidator(), scheduler, detector,
		cfg.Schedule.DefaultInterval, log)
	router := bot.NewRouter(authSvc, tracker, log)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return scheduler.Run(gCtx)
	})

	g.Go(func() error {
		return telegram.Run(gCtx, router)
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			return errShutdown
		case <-gCtx.Done():
			return nil
		}
	})

	log.Info("pagewatch running")

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		return err
	}

	log.Info("pagewatch stopped")
	return nil
}
