// Package search implements the command that runs the search aggregator
// and prints the hits.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/httpclient"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/logger"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/profile"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/search"
)

const (
	// DefaultMaxHits is the --max default.
	DefaultMaxHits = 20

	titleColumnWidth = 50
	urlColumnWidth   = 80
)

var errQueryRequired = errors.New("query is required")

// Searcher runs an aggregated query. *search.Aggregator implements it.
type Searcher interface {
	Search(ctx context.Context, q search.Query) []search.Hit
}

// Params holds the search command parameters.
type Params struct {
	Query       string
	Sources     []string
	Inject      bool
	FocusPeople bool
	Max         int
}

// Command returns the search command.
func Command(opts func() bootstrap.Options) *cobra.Command {
	var p Params

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the web for candidate pages",
		Long: `Run the search aggregator for a query and print the merged hits.

Examples:
  # Search every configured provider
  leadfinder search -q "dili toxicology director"

  # One site-scoped query per source, biased toward profile pages
  leadfinder search -q "liver injury" --sources pubmed,linkedin --inject --focus-people`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := bootstrap.NewCommandDeps(opts())
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}

			client := httpclient.New(httpclient.Config{
				Timeout:   deps.Config.Search.Timeout,
				UserAgent: deps.Config.Crawl.UserAgent,
			})
			providers := bootstrap.SetupProviders(deps.Config.Search, deps.Config.Crawl.UserAgent, client, deps.Logger)
			agg := search.NewAggregator(providers, deps.Logger, nil)

			return ExecuteSearch(cmd.Context(), cmd.OutOrStdout(), agg, p, deps.Logger)
		},
	}

	cmd.Flags().StringVarP(&p.Query, "query", "q", "", "query to search for (required)")
	cmd.Flags().StringSliceVar(&p.Sources, "sources", nil, "allow-list of hosts or shorthands (pubmed, linkedin)")
	cmd.Flags().BoolVar(&p.Inject, "inject", false, "issue one site-scoped query per source")
	cmd.Flags().BoolVar(&p.FocusPeople, "focus-people", false, "bias site queries toward profile pages")
	cmd.Flags().IntVar(&p.Max, "max", DefaultMaxHits, "maximum number of hits")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}

// ExecuteSearch runs the query and renders the hits to w.
func ExecuteSearch(ctx context.Context, w io.Writer, s Searcher, p Params, log logger.Logger) error {
	query := strings.TrimSpace(p.Query)
	if query == "" {
		return errQueryRequired
	}

	log.Info("Starting search",
		logger.String("query", query),
		logger.Strings("sources", p.Sources),
		logger.Int("max", p.Max),
	)

	hits := s.Search(ctx, search.Query{
		Text:          query,
		Sources:       p.Sources,
		InjectSources: p.Inject,
		FocusPeople:   p.FocusPeople,
		Max:           p.Max,
	})

	if len(hits) == 0 {
		fmt.Fprintf(w, "No results found for query: %s\n", query)
		return nil
	}

	renderHits(w, hits, query)
	return nil
}

func renderHits(w io.Writer, hits []search.Hit, query string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: titleColumnWidth},
		{Number: 3, WidthMax: urlColumnWidth},
	})
	t.AppendHeader(table.Row{"#", "Title", "URL", "Profile"})

	profiles := 0
	for i, h := range hits {
		isProfile := profile.IsProfileURL(h.URL)
		if isProfile {
			profiles++
		}
		t.AppendRow(table.Row{i + 1, oneLine(h.Title), h.URL, yesNo(isProfile)})
	}

	t.AppendFooter(table.Row{"Total", len(hits), "Query: " + query, fmt.Sprintf("%d profiles", profiles)})
	t.Render()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
