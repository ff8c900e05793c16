package bootstrap

import (
	"context"
	"fmt"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/logger"
)

// Start runs the HTTP service until SIGINT, SIGTERM or ctx ends.
func Start(ctx context.Context, opts Options) error {
	// Phase 1: config and logger
	deps, err := NewCommandDeps(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer func() { _ = deps.Logger.Sync() }()

	// Phase 2: discovery services
	svc, err := SetupServices(deps)
	if err != nil {
		return fmt.Errorf("failed to setup services: %w", err)
	}
	defer svc.Close()

	// Phase 3: sessions
	sessions, err := SetupSessions(deps.Config.Session, deps.Logger)
	if err != nil {
		return fmt.Errorf("failed to setup sessions: %w", err)
	}
	defer func() {
		if closeErr := sessions.Close(); closeErr != nil {
			deps.Logger.Warn("Failed to close session store", logger.Error(closeErr))
		}
	}()

	// Phase 4 and 5: serve
	server := SetupHTTPServer(deps, svc, sessions)
	if err = server.RunWithGracefulShutdown(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
