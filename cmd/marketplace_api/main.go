package main

import (
	"context"

	"go.uber.org/zap"

	"marketplace-mirror/internal/marketplace/api"
	"marketplace-mirror/internal/marketplace/store"
	"marketplace-mirror/internal/middleware/logger"
	"marketplace-mirror/pkg/config"
)

func main() {
	cfg, err := config.LoadConfig(config.Path())
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		panic(err)
	}
	defer func(log *zap.Logger) {
		_ = log.Sync()
	}(log)

	ctx := context.Background()

	connect, err := store.NewConnector(log, cfg.Store)
	if err != nil {
		log.Fatal("Invalid store configuration", zap.Error(err))
	}
	writer := store.NewWriter(log, connect, cfg.Store.Database, cfg.Store.Collection)
	if err := writer.Initialize(ctx, cfg.Store.Endpoint, cfg.Store.Key); err != nil {
		log.Fatal("Store unavailable", zap.Error(err))
	}
	defer func() {
		_ = writer.Close(context.Background())
	}()

	srv := &api.Server{Log: log, Backend: writer.Backend()}
	r := srv.Router()
	_ = r.SetTrustedProxies(nil)
	log.Info("Marketplace listing API is running", zap.String("address", cfg.API.Address))
	if err := r.Run(cfg.API.Address); err != nil {
		log.Error("HTTP server stopped", zap.Error(err))
	}
}
