// Package observability builds the zap loggers used by rollingserver and
// grinctl.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/grinmorio/rolling/internal/config"
)

// baseConfigs maps a logging.format value to its zap preset. "json" is what
// the server ships to log collectors; "console" is for local runs and grinctl.
var baseConfigs = map[string]func() zap.Config{
	"json":    zap.NewProductionConfig,
	"console": zap.NewDevelopmentConfig,
}

// NewLogger builds the process logger from the logging section of the
// loaded configuration. When service is non-empty every entry carries it as
// a "service" field, so rollingserver and grinctl lines can share a sink.
//
// Precondition: cfg has passed config validation.
// Postcondition: Returns a ready logger, or an error naming the bad setting.
func NewLogger(cfg config.LoggingConfig, service string) (*zap.Logger, error) {
	zapCfg, err := buildConfig(cfg, service)
	if err != nil {
		return nil, err
	}
	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building %s logger: %w", cfg.Format, err)
	}
	return logger, nil
}

func buildConfig(cfg config.LoggingConfig, service string) (zap.Config, error) {
	base, ok := baseConfigs[cfg.Format]
	if !ok {
		return zap.Config{}, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return zap.Config{}, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	zapCfg := base()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if service != "" {
		zapCfg.InitialFields = map[string]any{"service": service}
	}
	return zapCfg, nil
}
