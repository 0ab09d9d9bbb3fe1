// Package main provides the rolling server binary. Depending on server.mode it
// runs the REST API, the Discord bot or both, alongside a gRPC health endpoint.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/grinmorio/rolling/internal/app"
	"github.com/grinmorio/rolling/internal/bot"
	"github.com/grinmorio/rolling/internal/config"
	"github.com/grinmorio/rolling/internal/httpapi"
	"github.com/grinmorio/rolling/internal/observability"
	"github.com/grinmorio/rolling/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty = defaults and environment")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "rollingserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	logger.Info("starting rolling server",
		zap.String("mode", cfg.Server.Mode),
		zap.String("storage", cfg.Storage.Driver),
	)

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("building service", zap.Error(err))
	}

	lifecycle := server.NewLifecycle(logger, cfg.Server.ShutdownTimeout)

	// Registered first so it stops last, after the front-ends stop submitting.
	lifecycle.Add("history", a.HistoryService(cfg.Server.ShutdownTimeout, logger))

	health := server.NewHealthServer(cfg.Health.Addr(), logger)
	lifecycle.Add("health", health)
	lifecycle.Add("health-monitor", server.NewHealthMonitor(health, a.Check, cfg.Health.Interval, logger))

	if cfg.Server.RunsAPI() {
		api := httpapi.New(a.Service, logger)
		lifecycle.Add("http", httpapi.NewServer(cfg.HTTP, api.Handler(), cfg.Server.ShutdownTimeout, logger))
	}

	if cfg.Server.RunsBot() {
		b, err := bot.New(cfg.Discord.Token, bot.NewHandler(a.Service, logger), logger)
		if err != nil {
			logger.Fatal("creating discord bot", zap.Error(err))
		}
		lifecycle.Add("discord", b)
	}

	logger.Info("rolling server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.Bool("api", cfg.Server.RunsAPI()),
		zap.Bool("bot", cfg.Server.RunsBot()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
