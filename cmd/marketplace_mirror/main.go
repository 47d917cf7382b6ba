package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"marketplace-mirror/internal/marketplace/feed"
	"marketplace-mirror/internal/marketplace/mirror"
	"marketplace-mirror/internal/marketplace/model"
	"marketplace-mirror/internal/marketplace/store"
	"marketplace-mirror/internal/middleware/logger"
	"marketplace-mirror/pkg/config"
)

const (
	exitOK = iota
	exitConfig
	exitInit
	exitFetch
	exitInsert
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadConfig(config.Path())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfig
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfig
	}
	defer func(log *zap.Logger) {
		_ = log.Sync()
	}(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connect, err := store.NewConnector(log, cfg.Store)
	if err != nil {
		log.Error("Invalid store configuration", zap.Error(err))
		return exitConfig
	}

	writer := store.NewWriter(log, connect, cfg.Store.Database, cfg.Store.Collection)
	defer func() {
		if err := writer.Close(context.Background()); err != nil {
			log.Warn("Failed to close store", zap.Error(err))
		}
	}()

	runner := &mirror.Runner{
		Log:      log,
		Fetcher:  feed.NewFetcher(log, &http.Client{Timeout: cfg.Feed.Timeout}, cfg.Feed.URL, cfg.Feed.APIVersion, *cfg.Feed.IncludePreview),
		Writer:   writer,
		Out:      os.Stdout,
		Endpoint: cfg.Store.Endpoint,
		Key:      cfg.Store.Key,
	}

	log.Info("Starting marketplace mirror",
		zap.String("feed", cfg.Feed.URL),
		zap.String("driver", cfg.Store.Driver),
		zap.String("database", cfg.Store.Database),
		zap.String("collection", cfg.Store.Collection),
	)

	_, err = runner.Run(ctx)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, model.ErrInit):
		return exitInit
	case errors.Is(err, model.ErrFetch):
		return exitFetch
	default:
		log.Error("Mirror run finished with insert failures", zap.Error(err))
		return exitInsert
	}
}
