package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/extract"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/frontier"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/logger"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/profile"
)

// Crawl defaults.
const (
	DefaultMaxPages          = 25
	DefaultMaxDepth          = 3
	DefaultTotalTimeout      = 120 * time.Second
	DefaultMaxPersonsPerPage = 50

	// MinTotalTimeout is the floor applied to TotalTimeout.
	MinTotalTimeout = 5 * time.Second

	pageTextLimit = 2000
	phaseDeep     = "deep"
)

// Config bounds a single crawl run.
type Config struct {
	MaxPages          int
	MaxDepth          int
	TotalTimeout      time.Duration
	NavigationTimeout time.Duration
	SameDomainOnly    bool
	DenyDomains       []string
	MaxPersonsPerPage int
	RespectRobots     bool
	// Delay is the minimum gap between page fetches.
	Delay time.Duration
}

// DefaultConfig returns the standard crawl budgets.
func DefaultConfig() Config {
	return Config{
		MaxPages:          DefaultMaxPages,
		MaxDepth:          DefaultMaxDepth,
		TotalTimeout:      DefaultTotalTimeout,
		NavigationTimeout: defaultNavigationTimeout,
		SameDomainOnly:    true,
		DenyDomains:       []string{"linkedin.com", "www.linkedin.com"},
		MaxPersonsPerPage: DefaultMaxPersonsPerPage,
	}
}

// Event types reported to an Observer.
const (
	EventProgress = "progress"
	EventError    = "error"
)

// Event is a crawl progress notification.
type Event struct {
	Type  string
	Phase string
	URL   string
	Depth int
	Msg   string
}

// Observer receives crawl events. It may be nil.
type Observer func(Event)

// Recorder receives per-page counters.
type Recorder interface {
	PageCrawled(engine string)
	PageFailed(engine, reason string)
}

type nopRecorder struct{}

func (nopRecorder) PageCrawled(string) {}
func (nopRecorder) PageFailed(string, string) {}

// Crawler runs bounded crawls. It holds no per-run state and is safe for
// concurrent use.
type Crawler struct {
	fetcher  Fetcher
	engine   string
	cfg      Config
	robots   *RobotsChecker
	recorder Recorder
	log      logger.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithRobots enables robots.txt checks when cfg.RespectRobots is set.
func WithRobots(r *RobotsChecker) Option {
	return func(c *Crawler) { c.robots = r }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Crawler) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithEngine names the fetch engine in logs and metrics.
func WithEngine(name string) Option {
	return func(c *Crawler) { c.engine = name }
}

// New returns a crawler over fetcher.
func New(fetcher Fetcher, cfg Config, log logger.Logger, opts ...Option) *Crawler {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.MaxDepth < 0 {
		cfg.MaxDepth = 0
	}
	if cfg.TotalTimeout < MinTotalTimeout {
		cfg.TotalTimeout = MinTotalTimeout
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavigationTimeout
	}
	if cfg.MaxPersonsPerPage <= 0 {
		cfg.MaxPersonsPerPage = DefaultMaxPersonsPerPage
	}
	if log == nil {
		log = logger.NewNop()
	}

	c := &Crawler{
		fetcher:  fetcher,
		engine:   "http",
		cfg:      cfg,
		recorder: nopRecorder{},
		log:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the effective budgets.
func (c *Crawler) Config() Config { return c.cfg }

// run is the state of one crawl.
type run struct {
	c          *Crawler
	seed       string
	queue      *frontier.Queue
	seenPeople map[string]struct{}
	people     []extract.PersonRecord
	observe    Observer
	limiter    *rate.Limiter
}

// Crawl visits startURL breadth-first until the frontier empties, MaxPages
// pages have loaded, or TotalTimeout passes. Per-page failures are reported
// to observe and never end the crawl. The records collected so far are
// always returned.
func (c *Crawler) Crawl(ctx context.Context, startURL string, observe Observer) []extract.PersonRecord {
	seed, err := frontier.Normalize(startURL, startURL)
	if err != nil {
		c.log.Debug("Skipping crawl of invalid start url",
			logger.String("url", startURL), logger.Error(err))
		return []extract.PersonRecord{}
	}

	deadline := time.Now().Add(c.cfg.TotalTimeout)
	runCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	r := &run{
		c:          c,
		seed:       seed,
		queue:      frontier.NewQueue(),
		seenPeople: make(map[string]struct{}),
		people:     make([]extract.PersonRecord, 0),
		observe:    observe,
	}
	if c.cfg.Delay > 0 {
		r.limiter = rate.NewLimiter(rate.Every(c.cfg.Delay), 1)
	}
	r.queue.Push(seed, 0)

	r.emit(Event{Type: EventProgress, Msg: "deep crawl started: " + seed})

	pagesVisited := 0
	for r.queue.Len() > 0 && pagesVisited < c.cfg.MaxPages && time.Now().Before(deadline) {
		entry, _ := r.queue.Pop()
		if !r.queue.MarkVisited(entry.URL) {
			continue
		}
		if c.denied(entry.URL) {
			continue
		}

		r.emit(Event{Type: EventProgress, URL: entry.URL, Depth: entry.Depth})

		doc, fetchErr := r.fetch(runCtx, entry.URL)
		if fetchErr != nil {
			if runCtx.Err() != nil {
				break
			}
			r.fail(entry.URL, fetchErr)
			continue
		}

		if doc.URL == "" {
			doc.URL = entry.URL
		}
		pagesVisited++
		c.recorder.PageCrawled(c.engine)

		r.harvest(entry.URL, doc)
		if entry.Depth < c.cfg.MaxDepth {
			r.enqueue(doc, entry.Depth)
		}
	}

	r.emit(Event{
		Type: EventProgress,
		Msg:  fmt.Sprintf("deep crawl done: pages=%d people=%d", r.queue.VisitedCount(), len(r.people)),
	})

	c.log.Info("Deep crawl finished",
		logger.String("url", seed),
		logger.Int("pages", pagesVisited),
		logger.Int("people", len(r.people)),
	)

	return r.people
}

func (c *Crawler) denied(rawURL string) bool {
	host := frontier.Hostname(rawURL)
	if host == "" {
		return false
	}
	for _, d := range c.cfg.DenyDomains {
		if hostMatches(host, strings.ToLower(d)) {
			return true
		}
	}
	return false
}

// hostMatches reports whether host is domain or one of its subdomains.
func hostMatches(host, domain string) bool {
	return domain != "" && (host == domain || strings.HasSuffix(host, "."+domain))
}

func isLinkedIn(rawURL string) bool {
	return hostMatches(frontier.Hostname(rawURL), "linkedin.com")
}

func isLinkedInProfile(rawURL string) bool {
	if !isLinkedIn(rawURL) {
		return false
	}
	u, err := url.Parse(rawURL)
	return err == nil && strings.HasPrefix(strings.ToLower(u.Path), "/in/")
}

func (r *run) emit(evt Event) {
	if r.observe == nil {
		return
	}
	evt.Phase = phaseDeep
	r.observe(evt)
}

func (r *run) fail(pageURL string, err error) {
	msg := err.Error()
	reason := "fetch"
	switch {
	case errors.Is(err, ErrNavigationTimeout):
		msg = ErrNavigationTimeout.Error()
		reason = "timeout"
	case errors.Is(err, ErrDisallowed):
		msg = ErrDisallowed.Error()
		reason = "robots"
	case errors.Is(err, ErrSkippedResource):
		reason = "skipped"
	}

	r.c.recorder.PageFailed(r.c.engine, reason)
	r.c.log.Warn("Deep crawl page failed",
		logger.String("url", pageURL),
		logger.String("reason", reason),
		logger.Error(err),
	)
	r.emit(Event{Type: EventError, URL: pageURL, Msg: msg})
}

// applyCrawlDelay slows the run to a robots.txt Crawl-delay longer than the
// configured delay.
func (r *run) applyCrawlDelay(d time.Duration) {
	if d <= 0 {
		return
	}
	if r.limiter == nil {
		r.limiter = rate.NewLimiter(rate.Every(d), 1)
		return
	}
	if every := rate.Every(d); every < r.limiter.Limit() {
		r.limiter.SetLimit(every)
	}
}

func hostPort(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

func (r *run) fetch(ctx context.Context, pageURL string) (*extract.Document, error) {
	if r.c.cfg.RespectRobots && r.c.robots != nil {
		allowed, err := r.c.robots.Allowed(ctx, pageURL)
		if err == nil && !allowed {
			return nil, ErrDisallowed
		}
		r.applyCrawlDelay(r.c.robots.CrawlDelay(hostPort(pageURL)))
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	navCtx, cancel := context.WithTimeout(ctx, r.c.cfg.NavigationTimeout)
	defer cancel()

	doc, err := r.c.fetcher.Fetch(navCtx, pageURL)
	if err != nil {
		if navCtx.Err() != nil && ctx.Err() == nil {
			return nil, ErrNavigationTimeout
		}
		return nil, err
	}
	return doc, nil
}

// harvest extracts person records from doc and appends the new ones.
func (r *run) harvest(pageURL string, doc *extract.Document) {
	emails := extract.Emails(doc.BodyText, extract.DeepContactLimit)
	phones := extract.DeepPhones(doc.BodyText, extract.DeepContactLimit)

	candidates := extract.PeopleFromJSONLD(doc.JSONLD)

	for _, a := range doc.Anchors {
		link, err := frontier.Normalize(doc.URL, a.Href)
		if err != nil {
			continue
		}
		if isLinkedInProfile(link) {
			candidates = append(candidates, extract.PersonRecord{
				Name:        a.Text,
				ProfileURL:  link,
				LinkedInURL: link,
			})
		}

		// Page-level text and JSON-LD describe the page, not each link on it.
		score := profile.URLScore(link)
		if score < profile.Threshold {
			continue
		}
		rec := extract.PersonRecord{
			Name:            a.Text,
			ProfileURL:      link,
			ConfidenceScore: score,
		}
		if isLinkedIn(link) {
			rec.LinkedInURL = link
		}
		candidates = append(candidates, rec)
	}

	kept := 0
	for _, p := range candidates {
		if kept >= r.c.cfg.MaxPersonsPerPage {
			break
		}

		profileURL := strings.TrimSpace(p.ProfileURL)
		linkedInURL := strings.TrimSpace(p.LinkedInURL)
		if linkedInURL == "" {
			linkedInURL = profileURL
		}

		key := personKey(profileURL, linkedInURL, p.Email, p.Name, pageURL)
		if _, dup := r.seenPeople[key]; dup {
			continue
		}
		r.seenPeople[key] = struct{}{}

		if profileURL == "" {
			profileURL = linkedInURL
		}
		p.ProfileURL = profileURL
		p.PageURL = pageURL
		p.SourceURL = r.seed
		p.PageTitle = doc.Title
		p.PageEmails = emails
		p.PagePhones = phones
		p.PageText = truncate(doc.BodyText, pageTextLimit)

		r.people = append(r.people, p)
		kept++
	}
}

// personKey is profileUrl, else linkedinUrl, else email, else name|page.
func personKey(profileURL, linkedInURL, email, name, pageURL string) string {
	if profileURL != "" {
		return profileURL
	}
	if linkedInURL != "" {
		return linkedInURL
	}
	if e := strings.ToLower(strings.TrimSpace(email)); e != "" {
		return e
	}
	return strings.ToLower(strings.TrimSpace(name)) + "|" + pageURL
}

// enqueue adds the page's crawlable links at depth+1, directory and
// profile-shaped links first.
func (r *run) enqueue(doc *extract.Document, depth int) {
	var preferred, rest []string

	for _, a := range doc.Anchors {
		link, err := frontier.Normalize(doc.URL, a.Href)
		if err != nil {
			continue
		}
		if r.queue.Seen(link) {
			continue
		}
		if r.c.cfg.SameDomainOnly && !frontier.SameDomain(r.seed, link) {
			continue
		}
		if r.c.denied(link) {
			continue
		}

		if frontier.IsPeopleDirectory(link) || profile.IsProfileURL(link) {
			preferred = append(preferred, link)
		} else {
			rest = append(rest, link)
		}
	}

	for _, link := range append(preferred, rest...) {
		r.queue.Push(link, depth+1)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
