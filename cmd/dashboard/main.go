package main

import (
	"context"
	"os/signal"
	"syscall"

	"cryptodash/config"
	"cryptodash/internal/app"
	"cryptodash/logger"

	"go.uber.org/zap"
)

func main() {
	// viper config
	cfg := config.Load()

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// secrets from SSM Parameter Store (prod only)
	if err := cfg.ResolveSecrets(ctx); err != nil {
		log.Fatal("failed to resolve secrets", zap.Error(err))
	}

	a, err := app.New(cfg, log)
	if err != nil {
		log.Fatal("failed to build dashboard", zap.Error(err))
	}

	log.Info("dashboard starting",
		zap.String("addr", cfg.Server.Addr),
		zap.Duration("poll_interval", cfg.Poll.Interval),
		zap.String("cache", cfg.Cache.Backend))

	if err := a.Run(ctx); err != nil {
		log.Fatal("dashboard failed", zap.Error(err))
	}
	log.Info("dashboard stopped")
}
