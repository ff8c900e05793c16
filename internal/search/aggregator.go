package search

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/logger"
)

// DefaultMaxHits caps a search when the query sets no limit.
const DefaultMaxHits = 200

const (
	backendSlack    = 5
	maxParallelSite = 4
)

// Query is one aggregated search request.
type Query struct {
	Text string
	// Sources is an allow-list of hosts or shorthands such as "pubmed".
	Sources []string
	// InjectSources issues one site-scoped query per allowed host.
	InjectSources bool
	// FocusPeople biases site queries toward profile paths.
	FocusPeople bool
	Max         int
}

// Recorder receives per-provider counters.
type Recorder interface {
	SearchHits(provider string, n int)
	ProviderFailed(provider string)
}

type nopRecorder struct{}

func (nopRecorder) SearchHits(string, int) {}
func (nopRecorder) ProviderFailed(string) {}

// Aggregator merges hits from several providers. Provider failures are
// logged and contribute nothing; Search never returns an error.
type Aggregator struct {
	providers []Provider
	log       logger.Logger
	recorder  Recorder
}

// NewAggregator returns an aggregator over providers. The first provider
// serves site-scoped queries.
func NewAggregator(providers []Provider, log logger.Logger, recorder Recorder) *Aggregator {
	if log == nil {
		log = logger.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Aggregator{providers: providers, log: log, recorder: recorder}
}

// Providers lists the configured provider names in order.
func (a *Aggregator) Providers() []string {
	names := make([]string, 0, len(a.providers))
	for _, p := range a.providers {
		names = append(names, p.Name())
	}
	return names
}

// Search runs q and returns at most q.Max hits deduplicated by lower-cased
// URL in first-seen order.
func (a *Aggregator) Search(ctx context.Context, q Query) []Hit {
	if len(a.providers) == 0 {
		return []Hit{}
	}
	maxHits := q.Max
	if maxHits <= 0 {
		maxHits = DefaultMaxHits
	}

	hosts := NormalizeSources(q.Sources)
	if q.InjectSources && len(hosts) > 0 {
		return a.searchSites(ctx, q.Text, hosts, q.FocusPeople, maxHits)
	}

	hits := a.searchAll(ctx, q.Text, maxHits)
	if len(hosts) > 0 {
		hits = filterHosts(hits, hosts)
	}
	return truncateHits(hits, maxHits)
}

// searchAll queries every provider concurrently and merges in provider order.
func (a *Aggregator) searchAll(ctx context.Context, query string, maxHits int) []Hit {
	perBackend := maxHits/len(a.providers) + backendSlack
	results := make([][]Hit, len(a.providers))

	var g errgroup.Group
	for i, p := range a.providers {
		g.Go(func() error {
			results[i] = a.call(ctx, p, query, perBackend, "")
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]struct{})
	merged := make([]Hit, 0)
	for _, hits := range results {
		merged = appendUnique(merged, seen, hits, func(Hit) bool { return true }, 0)
	}
	return merged
}

type siteCall struct {
	host  string
	query string
}

// searchSites issues one site-scoped query per host through the primary
// provider and keeps only hits on the queried host.
func (a *Aggregator) searchSites(ctx context.Context, query string, hosts []string, focusPeople bool, maxHits int) []Hit {
	primary := a.providers[0]

	var calls []siteCall
	for _, host := range hosts {
		for _, sq := range siteQueries(query, host, focusPeople) {
			calls = append(calls, siteCall{host: host, query: sq})
		}
	}

	results := make([][]Hit, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelSite)
	for i, c := range calls {
		g.Go(func() error {
			results[i] = a.call(gctx, primary, c.query, maxHits+backendSlack, c.host)
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]struct{})
	merged := make([]Hit, 0)
	for i, c := range calls {
		onHost := func(h Hit) bool { return hostMatches(h.URL, c.host) }
		merged = appendUnique(merged, seen, results[i], onHost, maxHits)
		if len(merged) >= maxHits {
			break
		}
	}
	return merged
}

func (a *Aggregator) call(ctx context.Context, p Provider, query string, limit int, host string) []Hit {
	hits, err := p.Search(ctx, query, limit)
	if err != nil {
		a.recorder.ProviderFailed(p.Name())
		a.log.Warn("Search provider failed",
			logger.String("provider", p.Name()),
			logger.String("host", host),
			logger.String("query", query),
			logger.Error(err),
		)
		return nil
	}

	hits = truncateHits(hits, limit)
	a.recorder.SearchHits(p.Name(), len(hits))
	a.log.Debug("Search provider returned hits",
		logger.String("provider", p.Name()),
		logger.String("host", host),
		logger.Int("hits", len(hits)),
	)
	return hits
}

// appendUnique appends hits that pass keep and have a new lower-cased URL.
// A positive limit stops the append once dst reaches it.
func appendUnique(dst []Hit, seen map[string]struct{}, hits []Hit, keep func(Hit) bool, limit int) []Hit {
	for _, h := range hits {
		if h.URL == "" {
			continue
		}
		key := strings.ToLower(h.URL)
		if _, dup := seen[key]; dup {
			continue
		}
		if !keep(h) {
			continue
		}
		seen[key] = struct{}{}
		dst = append(dst, h)
		if limit > 0 && len(dst) >= limit {
			break
		}
	}
	return dst
}

func filterHosts(hits []Hit, hosts []string) []Hit {
	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		for _, host := range hosts {
			if hostMatches(h.URL, host) {
				out = append(out, h)
				break
			}
		}
	}
	return out
}
