package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/crawler"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/events"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/extract"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/lead"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/logger"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/profile"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/search"
)

// Percent milestones.
const (
	percentSearchDone = 10
	percentCrawlSpan  = 85
)

// reporter is the subset of events.Emitter a run writes to.
type reporter interface {
	Progress(percent int, phase, msg, url string)
	SearchResults(percent int, hits []search.Hit)
	Item(percent int, item lead.LeadRecord)
	Error(percent int, msg, url string)
}

type nopReporter struct{}

func (nopReporter) Progress(int, string, string, string) {}
func (nopReporter) SearchResults(int, []search.Hit) {}
func (nopReporter) Item(int, lead.LeadRecord) {}
func (nopReporter) Error(int, string, string) {}

var _ reporter = (*events.Emitter)(nil)

// run is the state of one discovery invocation.
type run struct {
	p          *Pipeline
	ctx        context.Context
	req        Request
	rep        reporter
	log        logger.Logger
	maxResults int

	hits    []search.Hit
	leads   []lead.LeadRecord
	seen    map[string]struct{}
	percent int
}

func (p *Pipeline) newRun(ctx context.Context, req Request, rep reporter) *run {
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = p.cfg.MaxResults
	}
	runID := uuid.New().String()
	return &run{
		p:          p,
		ctx:        ctx,
		req:        req,
		rep:        rep,
		log:        p.log.With(logger.String("run_id", runID), logger.String("query", req.Query)),
		maxResults: maxResults,
		seen:       make(map[string]struct{}),
	}
}

func (r *run) results() []lead.LeadRecord {
	return lead.Dedupe(r.leads)
}

// execute performs search then visits each candidate URL in order.
func (r *run) execute() {
	r.progress(0, events.PhaseSearch, "Searching for "+r.req.Query, "")

	sources := r.p.cfg.Sources
	if r.req.Sources != nil {
		sources = r.req.Sources
	}
	r.hits = r.p.searcher.Search(r.ctx, search.Query{
		Text:          r.req.Query,
		Sources:       sources,
		InjectSources: r.p.cfg.InjectSources,
		FocusPeople:   r.p.cfg.FocusPeople,
		Max:           r.p.cfg.MaxHits,
	})

	profiles, targets := partition(r.hits)
	r.log.Info("Search complete",
		logger.Int("hits", len(r.hits)),
		logger.Int("profiles", len(profiles)),
		logger.Int("targets", len(targets)),
	)

	r.progress(percentSearchDone, events.PhaseSearch,
		fmt.Sprintf("Found %d results (%d profiles)", len(r.hits), len(profiles)), "")

	if len(profiles) > 0 {
		r.rep.SearchResults(r.percent, profiles)
		for _, h := range profiles {
			r.add(r.p.processor.Process(&extract.ScrapedPage{
				URL:         h.URL,
				Title:       h.Title,
				TextContent: h.Snippet,
			}, r.req.Context))
		}
	}

	targets = truncate(targets, r.maxResults)
	for i, h := range targets {
		r.visit(h.URL, i, len(targets))
	}

	r.p.recorder.LeadsEmitted(len(r.results()))
	r.log.Info("Discovery run finished", logger.Int("leads", len(r.results())))
}

// visit scrapes one candidate and, when enabled, deep crawls it.
func (r *run) visit(pageURL string, i, n int) {
	start := percentSearchDone + percentCrawlSpan*i/n
	end := percentSearchDone + percentCrawlSpan*(i+1)/n

	r.progress(start, events.PhaseCrawl, "Crawling "+pageURL, pageURL)

	rec, err := r.scrape(pageURL)
	switch {
	case errors.Is(err, ErrURLTimeout):
		r.log.Warn("Crawl timed out", logger.String("url", pageURL))
		r.rep.Error(r.percent, "Crawl timed out for "+pageURL, pageURL)
	case err != nil:
		r.log.Warn("Crawl failed", logger.String("url", pageURL), logger.Error(err))
		r.rep.Error(r.percent, fmt.Sprintf("Crawl failed for %s: %v", pageURL, err), pageURL)
	default:
		r.add(rec)
	}

	if r.p.DeepCrawlEnabled() {
		r.deepCrawl(pageURL)
	}

	r.progress(end, events.PhaseCrawl, "Finished "+pageURL, pageURL)
}

// scrape fetches pageURL on a worker bounded by PerURLTimeout. A worker
// that overruns is abandoned; its context is cancelled.
func (r *run) scrape(pageURL string) (lead.LeadRecord, error) {
	ctx, cancel := context.WithTimeout(r.ctx, r.p.cfg.PerURLTimeout)
	defer cancel()

	type outcome struct {
		rec lead.LeadRecord
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		doc, err := r.p.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			done <- outcome{err: err}
			return
		}
		page, err := extract.ScrapePage(doc.URL, doc.HTML)
		if err != nil {
			done <- outcome{err: err}
			return
		}
		done <- outcome{rec: r.p.processor.Process(page, r.req.Context)}
	}()

	select {
	case o := <-done:
		if o.err != nil && ctx.Err() != nil {
			return lead.LeadRecord{}, ErrURLTimeout
		}
		return o.rec, o.err
	case <-ctx.Done():
		return lead.LeadRecord{}, ErrURLTimeout
	}
}

func (r *run) deepCrawl(pageURL string) {
	r.progress(r.percent, events.PhaseDeep, "Deep crawling "+pageURL, pageURL)

	people := r.p.deep.Crawl(r.ctx, pageURL, func(evt crawler.Event) {
		switch evt.Type {
		case crawler.EventError:
			r.rep.Error(r.percent, evt.Msg, evt.URL)
		default:
			r.rep.Progress(r.percent, events.PhaseDeep, evt.Msg, evt.URL)
		}
	})

	for _, person := range people {
		r.add(r.p.processor.FromPerson(person, r.req.Context))
	}
}

// add keeps profile-like leads not yet emitted and publishes them.
func (r *run) add(rec lead.LeadRecord) {
	if !lead.IsProfileLike(rec) {
		return
	}
	key := lead.Key(rec)
	if _, dup := r.seen[key]; dup {
		return
	}
	r.seen[key] = struct{}{}
	r.leads = append(r.leads, rec)
	r.rep.Item(r.percent, rec)
}

func (r *run) progress(percent int, phase, msg, url string) {
	r.percent = max(r.percent, percent)
	r.rep.Progress(r.percent, phase, msg, url)
}

// partition splits hits into profile pages and pages that need crawling.
func partition(hits []search.Hit) (profiles, targets []search.Hit) {
	for _, h := range hits {
		if profile.IsProfileURL(h.URL) {
			profiles = append(profiles, h)
			continue
		}
		targets = append(targets, h)
	}
	return profiles, targets
}
