// Package pipeline runs lead discovery: search, per-URL scrape, optional
// deep crawl, scoring and deduplication.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/crawler"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/events"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/extract"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/lead"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/logger"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/scoring"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/search"
)

// Defaults.
const (
	DefaultPerURLTimeout = 60 * time.Second
	DefaultMaxResults    = 5
)

// ErrURLTimeout marks a per-URL scrape that ran past PerURLTimeout.
var ErrURLTimeout = errors.New("per-url crawl timed out")

// Searcher produces candidate URLs for a query.
type Searcher interface {
	Search(ctx context.Context, q search.Query) []search.Hit
}

// DeepCrawler crawls a site for people. A nil DeepCrawler disables the
// deep phase.
type DeepCrawler interface {
	Crawl(ctx context.Context, startURL string, observe crawler.Observer) []extract.PersonRecord
}

// Recorder receives run-level counters.
type Recorder interface {
	RunStarted(mode string)
	RunFinished(mode string, elapsed time.Duration)
	LeadsEmitted(n int)
}

type nopRecorder struct{}

func (nopRecorder) RunStarted(string) {}
func (nopRecorder) RunFinished(string, time.Duration) {}
func (nopRecorder) LeadsEmitted(int) {}

// Config holds per-run budgets and search defaults.
type Config struct {
	PerURLTimeout time.Duration
	DeepCrawl     bool
	MaxResults    int
	Sources       []string
	InjectSources bool
	FocusPeople   bool
	MaxHits       int
}

// Request is one discovery run.
type Request struct {
	Query      string
	MaxResults int
	// Sources overrides Config.Sources when non-nil.
	Sources []string
	Context *scoring.Context
}

// Result is the blocking scrape response.
type Result struct {
	Query         string            `json:"query"`
	SearchResults []search.Hit      `json:"search_results"`
	Results       []lead.LeadRecord `json:"results"`
	Fields        []string          `json:"fields"`
}

// Pipeline wires the discovery components. It holds no per-run state.
type Pipeline struct {
	searcher  Searcher
	fetcher   crawler.Fetcher
	deep      DeepCrawler
	processor *lead.Processor
	cfg       Config
	log       logger.Logger
	recorder  Recorder
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithDeepCrawler enables the deep phase.
func WithDeepCrawler(d DeepCrawler) Option {
	return func(p *Pipeline) { p.deep = d }
}

// New returns a pipeline. fetcher loads the single page scraped per
// candidate URL.
func New(searcher Searcher, fetcher crawler.Fetcher, processor *lead.Processor, cfg Config, log logger.Logger, opts ...Option) *Pipeline {
	if cfg.PerURLTimeout <= 0 {
		cfg.PerURLTimeout = DefaultPerURLTimeout
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if processor == nil {
		processor = lead.NewProcessor(nil)
	}
	if log == nil {
		log = logger.NewNop()
	}

	p := &Pipeline{
		searcher:  searcher,
		fetcher:   fetcher,
		processor: processor,
		cfg:       cfg,
		log:       log,
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DeepCrawlEnabled reports whether runs include the deep phase.
func (p *Pipeline) DeepCrawlEnabled() bool {
	return p.cfg.DeepCrawl && p.deep != nil
}

// Scrape runs discovery to completion and returns the collected leads.
func (p *Pipeline) Scrape(ctx context.Context, req Request) Result {
	start := time.Now()
	p.recorder.RunStarted("scrape")
	defer func() { p.recorder.RunFinished("scrape", time.Since(start)) }()

	r := p.newRun(ctx, req, nopReporter{})
	r.execute()

	return Result{
		Query:         req.Query,
		SearchResults: truncate(r.hits, r.maxResults),
		Results:       r.results(),
		Fields:        DeriveFields(req.Query),
	}
}

// ScrapeProgress runs discovery and reports through em. It always ends
// with exactly one done event carrying the deduplicated leads.
func (p *Pipeline) ScrapeProgress(ctx context.Context, req Request, em *events.Emitter) {
	start := time.Now()
	p.recorder.RunStarted("stream")
	defer func() { p.recorder.RunFinished("stream", time.Since(start)) }()

	r := p.newRun(ctx, req, em)
	r.execute()
	em.Done(r.results())
}

// Process scores one already-scraped page.
func (p *Pipeline) Process(page *extract.ScrapedPage, sctx *scoring.Context) lead.LeadRecord {
	return p.processor.Process(page, sctx)
}

func truncate(hits []search.Hit, n int) []search.Hit {
	if hits == nil {
		return []search.Hit{}
	}
	if len(hits) > n {
		return hits[:n]
	}
	return hits
}
