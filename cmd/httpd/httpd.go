// Package httpd implements the command that runs the HTTP server.
package httpd

import (
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/bootstrap"
)

// Command returns the httpd command. opts resolves the global flags at
// run time.
func Command(opts func() bootstrap.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "httpd",
		Short: "Run the HTTP server",
		Long: `Start the leadfinder HTTP server.

Routes:
  GET  /                liveness probe
  POST /scrape          blocking discovery run
  GET  /scrape/stream   discovery run as a server-sent event stream
  POST /process         score one scraped page record
  GET  /metrics         Prometheus metrics
  GET  /auth/session    current session
  POST /auth/logout     end the session`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return bootstrap.Start(cmd.Context(), opts())
		},
	}
}
