// Package commands implements the CLI subcommands.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/frameless-media/datatables/internal/cli/config"
	"github.com/frameless-media/datatables/internal/engine"
	"github.com/frameless-media/datatables/internal/host"
	"github.com/frameless-media/datatables/internal/state"
)

type configKey struct{}
type loggerKey struct{}

// WithConfig stores the loaded config in the context.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// WithLogger stores the logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// ConfigFrom returns the config stored by the root command, or defaults.
func ConfigFrom(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return config.DefaultConfig()
}

// LoggerFrom returns the logger stored by the root command, or a discard
// logger.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
}

// CommandContext bundles what every subcommand needs: the open repository,
// the engine wired to it, the config and the logger.
type CommandContext struct {
	Config *config.Config
	Logger *slog.Logger
	Host   host.Host
	SQL    *state.SQLiteHost // nil when running from a fixture
	Engine *engine.Engine
}

// NewCommandContext opens the repository database and builds the engine.
// The returned cleanup closes the database. Commands that declare a
// --fixture flag run against an in-memory host seeded from that file
// instead; the database is never touched then.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := ConfigFrom(cmd.Context())
	logger := LoggerFrom(cmd.Context())

	if f := cmd.Flags().Lookup("fixture"); f != nil && f.Value.String() != "" {
		return newFixtureContext(cfg, logger, f.Value.String())
	}

	if dir := filepath.Dir(cfg.Database); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	h, err := state.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open repository database: %w", err)
	}

	eng, err := engine.New(engine.Config{
		Repo:        h,
		Fields:      h,
		Templates:   h,
		StubsDir:    cfg.StubsDir,
		Settings:    cfg.Settings,
		Logger:      logger,
		Concurrency: cfg.Concurrency,
	})
	if err != nil {
		h.Close()
		return nil, nil, err
	}

	return &CommandContext{
		Config: cfg,
		Logger: logger,
		Host:   h,
		SQL:    h,
		Engine: eng,
	}, func() { h.Close() }, nil
}

// newFixtureContext builds the engine over a memory host seeded from a YAML
// fixture file. Stubs still land in the configured stubs directory, so a
// fixture preview generates and uses the same artifacts a real run would.
func newFixtureContext(cfg *config.Config, logger *slog.Logger, path string) (*CommandContext, func(), error) {
	h := host.NewMemoryHost()
	if err := h.LoadFixture(path); err != nil {
		return nil, nil, fmt.Errorf("load fixture: %w", err)
	}

	eng, err := engine.New(engine.Config{
		Repo:        h,
		Fields:      h,
		Templates:   h,
		StubsDir:    cfg.StubsDir,
		Settings:    cfg.Settings,
		Logger:      logger,
		Concurrency: cfg.Concurrency,
	})
	if err != nil {
		return nil, nil, err
	}

	return &CommandContext{
		Config: cfg,
		Logger: logger,
		Host:   h,
		Engine: eng,
	}, func() {}, nil
}
