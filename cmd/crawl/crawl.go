// Package crawl implements the command that runs the bounded crawler on one
// site and prints the people it finds.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/crawler"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/extract"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/logger"
)

const nameColumnWidth = 30

var (
	errURLRequired     = errors.New("url is required")
	errCrawlerDisabled = errors.New("deep crawl is unavailable; check crawl.engine and the browser install")
)

// PeopleCrawler crawls one site. *crawler.Crawler implements it.
type PeopleCrawler interface {
	Crawl(ctx context.Context, startURL string, observe crawler.Observer) []extract.PersonRecord
}

// Command returns the crawl command.
func Command(opts func() bootstrap.Options) *cobra.Command {
	var startURL string

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl one site for people",
		Long: `Run the bounded crawler from a start URL and print every person found.

Budgets (pages, depth, timeouts, robots.txt) come from the crawl section of
the configuration.

Example:
  leadfinder crawl -u https://example.bio/team`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := bootstrap.NewCommandDeps(opts())
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}

			svc, err := bootstrap.SetupServices(deps)
			if err != nil {
				return fmt.Errorf("failed to setup services: %w", err)
			}
			defer svc.Close()

			if svc.Crawler == nil {
				return errCrawlerDisabled
			}
			return ExecuteCrawl(cmd.Context(), cmd.OutOrStdout(), svc.Crawler, startURL, deps.Logger)
		},
	}

	cmd.Flags().StringVarP(&startURL, "url", "u", "", "start URL (required)")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

// ExecuteCrawl crawls startURL, logging progress, and renders the people
// found to w.
func ExecuteCrawl(ctx context.Context, w io.Writer, c PeopleCrawler, startURL string, log logger.Logger) error {
	startURL = strings.TrimSpace(startURL)
	if startURL == "" {
		return errURLRequired
	}
	if u, err := url.Parse(startURL); err != nil || u.Host == "" {
		return fmt.Errorf("invalid url %q", startURL)
	}

	failures := 0
	people := c.Crawl(ctx, startURL, func(evt crawler.Event) {
		switch evt.Type {
		case crawler.EventError:
			failures++
			log.Warn("Page failed", logger.String("url", evt.URL), logger.String("msg", evt.Msg))
		default:
			log.Debug("Crawl progress",
				logger.String("url", evt.URL),
				logger.Int("depth", evt.Depth),
				logger.String("msg", evt.Msg),
			)
		}
	})

	log.Info("Crawl finished",
		logger.String("url", startURL),
		logger.Int("people", len(people)),
		logger.Int("failures", failures),
	)

	if len(people) == 0 {
		fmt.Fprintf(w, "No people found at %s\n", startURL)
		return nil
	}

	renderPeople(w, people, startURL)
	return nil
}

func renderPeople(w io.Writer, people []extract.PersonRecord, startURL string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: nameColumnWidth},
		{Number: 3, WidthMax: nameColumnWidth},
	})
	t.AppendHeader(table.Row{"#", "Name", "Title", "Email", "Profile"})

	for i, p := range people {
		t.AppendRow(table.Row{
			i + 1,
			orNA(p.Name),
			orNA(p.Title),
			orNA(p.Email),
			orNA(firstNonEmpty(p.ProfileURL, p.LinkedInURL)),
		})
	}

	t.AppendFooter(table.Row{"Total", len(people), "Start: " + startURL, "", ""})
	t.Render()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func orNA(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "N/A"
	}
	return s
}
