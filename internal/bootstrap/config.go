// Package bootstrap wires leadfinder's components from configuration.
//
// The bootstrap process follows these phases:
//   - Phase 1: Config & Logger - load configuration and create the logger
//   - Phase 2: Services - search, crawl, scoring and the discovery pipeline
//   - Phase 3: Sessions - Redis or in-memory session store
//   - Phase 4: Server - build the HTTP server
//   - Phase 5: Run - serve until interrupted
package bootstrap

import (
	"errors"
	"fmt"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/config"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/logger"
)

// DefaultConfigPath is read when neither --config nor CONFIG_PATH is set.
const DefaultConfigPath = "config.yml"

var errConfigRequired = errors.New("config is required")

// CommandDeps holds what every command needs before it can build services.
type CommandDeps struct {
	Config *config.Config
	Logger logger.Logger
}

// Options are the global CLI settings.
type Options struct {
	ConfigPath string
	Debug      bool
}

// NewCommandDeps loads configuration and builds the logger. Debug forces
// gin debug mode and debug-level logging.
func NewCommandDeps(opts Options) (*CommandDeps, error) {
	path := opts.ConfigPath
	if path == "" {
		path = config.GetConfigPath(DefaultConfigPath)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if opts.Debug {
		cfg.Server.Debug = true
	}
	if cfg.Server.Debug {
		cfg.Logging.Level = "debug"
		cfg.Logging.Development = true
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	log = log.With(logger.String("service", cfg.Server.Name))
	log.Debug("Configuration loaded", logger.String("path", path))

	return &CommandDeps{Config: cfg, Logger: log}, nil
}

func (d *CommandDeps) validate() error {
	if d == nil || d.Config == nil {
		return errConfigRequired
	}
	if d.Logger == nil {
		d.Logger = logger.NewNop()
	}
	return nil
}
