package main

import (
	"fmt"
	"log/slog"

	"github.com/ormasoftchile/upkeep/internal/config"
	"github.com/ormasoftchile/upkeep/internal/logging"
	"github.com/ormasoftchile/upkeep/pkg/catalog"
	"github.com/ormasoftchile/upkeep/pkg/executor"
	"github.com/ormasoftchile/upkeep/pkg/feature"
	"github.com/ormasoftchile/upkeep/pkg/scenario"
	"github.com/ormasoftchile/upkeep/pkg/schema"
	"github.com/spf13/cobra"
)

// Persistent flags shared by every subcommand.
var (
	flagConfig      string
	flagDefinitions string
	flagLogLevel    string
	flagColor       string
	flagRoot        string
	flagMode        string
	flagReplay      string
)

// loadSettings reads the config file and applies the flags the user set.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	path := flagConfig
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	overrides := []struct {
		name string
		dst  *string
		src  string
	}{
		{"definitions", &cfg.Definitions, flagDefinitions},
		{"log-level", &cfg.LogLevel, flagLogLevel},
		{"color", &cfg.Color, flagColor},
		{"root", &cfg.Root, flagRoot},
		{"mode", &cfg.Mode, flagMode},
		{"replay", &cfg.ReplayFile, flagReplay},
	}
	for _, o := range overrides {
		if flags.Changed(o.name) {
			*o.dst = o.src
		}
	}
	if flags.Changed("replay") && !flags.Changed("mode") {
		cfg.Mode = config.ModeReplay
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app is everything a command needs to compose scenarios.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *feature.Registry
	catalog  *scenario.Catalog
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), level)

	exec, err := newExecutor(cfg)
	if err != nil {
		return nil, err
	}

	defs, errs := schema.ValidateFile(cfg.Definitions)
	for _, e := range errs {
		if e.Severity == "warning" {
			logger.Warn("definitions", "path", e.Path, "message", e.Message)
		}
	}
	if schema.HasErrors(errs) {
		return nil, fmt.Errorf("invalid definitions %s (run `upkeep validate` for details): %w", cfg.Definitions, errs[0])
	}

	registry := feature.NewRegistry(&feature.Host{Exec: exec, Root: cfg.Root}, feature.WithLogger(logger))
	cat, err := catalog.Build(defs, registry, catalog.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	logger.Debug("definitions loaded", "path", cfg.Definitions, "mode", cfg.Mode)
	return &app{cfg: cfg, logger: logger, registry: registry, catalog: cat}, nil
}

func newExecutor(cfg *config.Config) (executor.CommandExecutor, error) {
	switch cfg.Mode {
	case config.ModeDryRun:
		return &executor.DryRunExecutor{}, nil
	case config.ModeReplay:
		rec, err := executor.LoadRecording(cfg.ReplayFile)
		if err != nil {
			return nil, err
		}
		return executor.NewReplayExecutor(rec), nil
	default:
		return &executor.RealExecutor{}, nil
	}
}
