// Package app assembles the rolling service from configuration. Both the
// server binary and the operator CLI build through it.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/grinmorio/rolling/internal/config"
	"github.com/grinmorio/rolling/internal/rolling"
	"github.com/grinmorio/rolling/internal/rolling/dice"
	"github.com/grinmorio/rolling/internal/rolling/helper"
	"github.com/grinmorio/rolling/internal/rolling/history"
	"github.com/grinmorio/rolling/internal/rolling/initiative"
	"github.com/grinmorio/rolling/internal/server"
	"github.com/grinmorio/rolling/internal/storage/memory"
	"github.com/grinmorio/rolling/internal/storage/postgres"
)

const healthTimeout = 5 * time.Second

// App is a fully wired rolling service and the resources behind it.
type App struct {
	Service *rolling.Service
	Writer  *history.Writer
	// Check reports storage health for the gRPC health monitor.
	Check server.HealthCheck

	pool *postgres.Pool
}

// Build wires storage, the dice engine, the helper tracker, the initiative
// table and the history writer according to cfg.
//
// Precondition: cfg must be valid; logger must be non-nil.
// Postcondition: Returns an App whose history writer is running, or a non-nil
// error with nothing left open.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	var (
		initStore initiative.Store
		histStore history.Store
		pool      *postgres.Pool
		check     server.HealthCheck
	)

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		initStore = memory.NewInitiativeStore()
		histStore = memory.NewHistoryStore()
		check = func(context.Context) error { return nil }
		logger.Info("using in-memory storage")
	case config.DriverPostgres:
		p, err := postgres.Connect(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		pool = p
		initStore = postgres.NewInitiativeRepository(p.DB())
		histStore = postgres.NewHistoryRepository(p.DB())
		check = func(ctx context.Context) error { return p.Health(ctx, healthTimeout) }
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	tracker := helper.NewTracker(memory.NewHelperStore())
	writer := history.NewWriter(histStore, logger, cfg.Rolling.HistoryQueueSize)

	svc := rolling.NewService(rolling.Deps{
		Evaluator:  dice.NewEvaluator(dice.NewCryptoSource(), tracker, logger),
		Tracker:    tracker,
		Initiative: initiative.NewTable(initStore),
		History:    writer,
		Stats:      history.NewReporter(histStore),
		Logger:     logger,
	})

	return &App{Service: svc, Writer: writer, Check: check, pool: pool}, nil
}

// Close drains the history writer and then releases the database pool.
//
// Postcondition: The pool is closed even when the writer fails to drain
// before ctx ends.
func (a *App) Close(ctx context.Context) error {
	err := a.Writer.Close(ctx)
	if a.pool != nil {
		a.pool.Close()
	}
	if err != nil {
		return fmt.Errorf("draining history writer: %w", err)
	}
	return nil
}

// HistoryService runs the history writer under a server.Lifecycle. Start
// blocks until the writer has drained; Stop closes it within timeout.
func (a *App) HistoryService(timeout time.Duration, logger *zap.Logger) server.Service {
	return &server.FuncService{
		StartFn: func() error {
			<-a.Writer.Done()
			return nil
		},
		StopFn: func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := a.Close(ctx); err != nil {
				logger.Warn("history writer did not drain", zap.Error(err))
			}
		},
	}
}
