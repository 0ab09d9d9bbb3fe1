// Package cli implements grinctl, the operator command line for the rolling
// service. Commands run the service in-process against the configured storage.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/grinmorio/rolling/internal/app"
	"github.com/grinmorio/rolling/internal/config"
	"github.com/grinmorio/rolling/internal/observability"
	"github.com/grinmorio/rolling/internal/rolling/dice"
	"github.com/grinmorio/rolling/internal/rolling/history"
	"github.com/grinmorio/rolling/internal/rolling/initiative"
)

const closeTimeout = 10 * time.Second

// Service is the subset of rolling.Service the CLI calls.
type Service interface {
	RollExpression(ctx context.Context, expression, userID, guildID, username string) (dice.Outcome, error)
	ListInitiative(ctx context.Context, guildID string) ([]initiative.Entry, error)
	ClearInitiative(ctx context.Context, guildID string) error
	SetInitiative(ctx context.Context, guildID, userID, username string, value int) ([]initiative.Entry, error)
	RemoveInitiative(ctx context.Context, guildID, userID string) error
	Stats(ctx context.Context, guildID, userID string) ([]history.Report, error)
}

// Options are the global flags passed to an Opener.
type Options struct {
	ConfigPath string
	// Storage overrides storage.driver when non-empty.
	Storage string
	Verbose bool
}

// Opener builds a Service for one command. The returned close func flushes
// pending history and releases storage.
type Opener func(ctx context.Context, opts Options) (Service, func(context.Context) error, error)

// Execute runs grinctl with the default opener.
func Execute() error {
	return NewRootCmd(OpenApp).Execute()
}

// NewRootCmd builds the command tree over open.
//
// Precondition: open must be non-nil.
func NewRootCmd(open Opener) *cobra.Command {
	var opts Options

	root := &cobra.Command{
		Use:           "grinctl",
		Short:         "Operate the Grinmorio rolling service",
		Long:          "grinctl rolls dice, inspects statistics and manages initiative lists directly against the configured storage.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to configuration file")
	root.PersistentFlags().StringVar(&opts.Storage, "storage", "", "storage driver override: postgres or memory")
	root.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log at info level")

	run := func(cmd *cobra.Command, fn func(Service) error) error {
		svc, closeFn, err := open(cmd.Context(), opts)
		if err != nil {
			return err
		}
		runErr := fn(svc)

		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := closeFn(ctx); err != nil && runErr == nil {
			return err
		}
		return runErr
	}

	root.AddCommand(
		newRollCmd(run),
		newStatsCmd(run),
		newInitiativeCmd(run),
	)
	return root
}

type runner func(cmd *cobra.Command, fn func(Service) error) error

// OpenApp loads configuration and builds the full application. Logging
// defaults to warn so command output stays readable.
func OpenApp(ctx context.Context, opts Options) (Service, func(context.Context) error, error) {
	v := config.NewViper()
	if opts.ConfigPath != "" {
		v.SetConfigFile(opts.ConfigPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	if opts.Storage != "" {
		v.Set("storage.driver", opts.Storage)
	}
	// The CLI runs neither front-end.
	v.Set("server.mode", config.ModeAPI)
	if !opts.Verbose {
		v.Set("logging.level", "warn")
	}
	v.Set("logging.format", "console")

	cfg, err := config.LoadFromViper(v)
	if err != nil {
		return nil, nil, err
	}
	logger, err := observability.NewLogger(cfg.Logging, "grinctl")
	if err != nil {
		return nil, nil, err
	}

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return a.Service, func(ctx context.Context) error {
		defer func() { _ = logger.Sync() }()
		return a.Close(ctx)
	}, nil
}
