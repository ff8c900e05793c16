package bootstrap

import (
	"github.com/jonesrussell/north-cloud/leadfinder/internal/api"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/search"
)

// SetupHTTPServer builds the HTTP server over the discovery services.
func SetupHTTPServer(deps *CommandDeps, svc *Services, sessions *SessionComponents) *api.Server {
	cfg := deps.Config

	handler := api.NewHandler(
		svc.Pipeline,
		sessions.Store,
		svc.Metrics.Handler(),
		api.HandlerConfig{DefaultDomains: search.NormalizeSources(cfg.Search.Sources)},
		deps.Logger,
	)

	return api.NewServerBuilder(cfg.Server.Name, cfg.Server.Port).
		WithLogger(deps.Logger).
		WithDebug(cfg.Server.Debug).
		WithVersion(cfg.Server.Version).
		WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout).
		WithCORSOrigins(cfg.Server.CORSOrigins).
		WithObserver(svc.Metrics).
		WithHealthCheck("redis", sessions.Ping()).
		WithRoutes(handler.RegisterRoutes).
		Build()
}
