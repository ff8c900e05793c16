package crawler_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/crawler"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/extract"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/logger"
)

// fakeFetcher serves canned documents and records the fetch order.
type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]*extract.Document
	errs    map[string]error
	delay   time.Duration
	fetched []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, pageURL string) (*extract.Document, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, pageURL)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := f.errs[pageURL]; ok {
		return nil, err
	}
	doc, ok := f.pages[pageURL]
	if !ok {
		return nil, errors.New("not found")
	}
	copied := *doc
	if copied.URL == "" {
		copied.URL = pageURL
	}
	return &copied, nil
}

func (f *fakeFetcher) fetchedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

func links(hrefs ...string) []extract.Anchor {
	out := make([]extract.Anchor, 0, len(hrefs))
	for _, h := range hrefs {
		out = append(out, extract.Anchor{Href: h, Text: h})
	}
	return out
}

func testConfig() crawler.Config {
	cfg := crawler.DefaultConfig()
	cfg.NavigationTimeout = time.Second
	cfg.TotalTimeout = 10 * time.Second
	return cfg
}

func TestCrawl_RespectsMaxPages(t *testing.T) {
	pages := make(map[string]*extract.Document)
	var hrefs []string
	for i := range 50 {
		hrefs = append(hrefs, fmt.Sprintf("/page-%d", i))
	}
	pages["https://acme.bio"] = &extract.Document{Anchors: links(hrefs...)}
	for i := range 50 {
		pages[fmt.Sprintf("https://acme.bio/page-%d", i)] = &extract.Document{}
	}

	f := &fakeFetcher{pages: pages}
	cfg := testConfig()
	cfg.MaxPages = 7

	c := crawler.New(f, cfg, logger.NewNop())
	c.Crawl(context.Background(), "https://acme.bio", nil)

	fetched := f.fetchedURLs()
	assert.Len(t, fetched, 7)
	unique := make(map[string]struct{})
	for _, u := range fetched {
		unique[u] = struct{}{}
	}
	assert.Len(t, unique, 7)
}

func TestCrawl_VisitsEachNormalizedURLOnce(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*extract.Document{
		"https://acme.bio": {
			Anchors: links("/team", "/team#jane", "https://acme.bio:443/team", "https://www.acme.bio/team"),
		},
		"https://acme.bio/team":     {Anchors: links("/")},
		"https://acme.bio/":         {},
		"https://www.acme.bio/team": {},
	}}

	c := crawler.New(f, testConfig(), logger.NewNop())
	c.Crawl(context.Background(), "https://acme.bio#top", nil)

	assert.Equal(t, []string{
		"https://acme.bio",
		"https://acme.bio/team",
		"https://www.acme.bio/team",
		"https://acme.bio/",
	}, f.fetchedURLs())
}

func TestCrawl_PrefersDirectoryAndProfileLinks(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*extract.Document{
		"https://acme.bio": {Anchors: links("/products", "/news", "/people/jane", "/leadership")},
	}}

	cfg := testConfig()
	cfg.MaxDepth = 1
	c := crawler.New(f, cfg, logger.NewNop())
	c.Crawl(context.Background(), "https://acme.bio", nil)

	assert.Equal(t, []string{
		"https://acme.bio",
		"https://acme.bio/people/jane",
		"https://acme.bio/leadership",
		"https://acme.bio/products",
		"https://acme.bio/news",
	}, f.fetchedURLs())
}

func TestCrawl_SameDomainAndDenyPolicy(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*extract.Document{
		"https://acme.bio": {Anchors: []extract.Anchor{
			{Href: "https://other.org/team", Text: "Other"},
			{Href: "https://www.linkedin.com/in/jane-doe", Text: "Jane Doe"},
			{Href: "/about", Text: "About"},
		}},
		"https://acme.bio/about": {},
	}}

	c := crawler.New(f, testConfig(), logger.NewNop())
	people := c.Crawl(context.Background(), "https://acme.bio", nil)

	assert.Equal(t, []string{"https://acme.bio", "https://acme.bio/about"}, f.fetchedURLs())

	require.Len(t, people, 1)
	assert.Equal(t, "Jane Doe", people[0].Name)
	assert.Equal(t, "https://www.linkedin.com/in/jane-doe", people[0].ProfileURL)
	assert.Equal(t, "https://www.linkedin.com/in/jane-doe", people[0].LinkedInURL)
	assert.Equal(t, "https://acme.bio", people[0].PageURL)
	assert.Equal(t, "https://acme.bio", people[0].SourceURL)
}

func TestCrawl_DeniedSeedIsNotFetched(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*extract.Document{}}

	c := crawler.New(f, testConfig(), logger.NewNop())
	people := c.Crawl(context.Background(), "https://www.linkedin.com/company/acme", nil)

	assert.Empty(t, people)
	assert.Empty(t, f.fetchedURLs())
}

func TestCrawl_PeopleFromStructuredDataAndDedupe(t *testing.T) {
	jsonld := `{"@type":"Person","name":"Jane Doe","jobTitle":"Head of Safety",
		"email":"jane@acme.bio","sameAs":"https://www.linkedin.com/in/jane-doe"}`

	f := &fakeFetcher{pages: map[string]*extract.Document{
		"https://acme.bio/team": {
			Title:    "Team",
			BodyText: "Jane Doe heads safety. Reach us at team@acme.bio or +1 617 555 0100.",
			JSONLD:   []string{jsonld},
			Anchors:  links("https://www.linkedin.com/in/jane-doe", "/team/john"),
		},
		"https://acme.bio/team/john": {
			JSONLD: []string{jsonld},
		},
	}}

	c := crawler.New(f, testConfig(), logger.NewNop())
	people := c.Crawl(context.Background(), "https://acme.bio/team", nil)

	require.Len(t, people, 1)

	jane := people[0]
	assert.Equal(t, "Jane Doe", jane.Name)
	assert.Equal(t, "Head of Safety", jane.Title)
	assert.Equal(t, "https://www.linkedin.com/in/jane-doe", jane.ProfileURL)
	assert.Equal(t, "Team", jane.PageTitle)
	assert.Equal(t, []string{"team@acme.bio"}, jane.PageEmails)
	assert.NotEmpty(t, jane.PagePhones)
	assert.Contains(t, jane.PageText, "Jane Doe heads safety")

	assert.Equal(t, []string{"https://acme.bio/team", "https://acme.bio/team/john"}, f.fetchedURLs())
}

func TestCrawl_PageSignalsDoNotPromoteLinks(t *testing.T) {
	jsonld := `{"@type":"Person","name":"Jane Doe","email":"jane@acme.bio"}`

	f := &fakeFetcher{pages: map[string]*extract.Document{
		"https://acme.bio/team/jane": {
			BodyText: "Jane Doe leads toxicology. Contact jane@acme.bio.",
			JSONLD:   []string{jsonld},
			Anchors:  links("/products", "/contact", "https://orcid.org/0000-0002-1825-0097"),
		},
	}}

	cfg := testConfig()
	cfg.MaxDepth = 0
	c := crawler.New(f, cfg, logger.NewNop())
	people := c.Crawl(context.Background(), "https://acme.bio/team/jane", nil)

	var urls []string
	for _, p := range people {
		if p.ProfileURL != "" {
			urls = append(urls, p.ProfileURL)
		}
	}
	assert.Equal(t, []string{"https://orcid.org/0000-0002-1825-0097"}, urls)
}

func TestCrawl_LinkedInFollowsDenyList(t *testing.T) {
	seed := &extract.Document{Anchors: links(
		"https://www.linkedin.com/company/acme/people",
		"/about?ref=linkedin.com",
	)}

	tests := []struct {
		name string
		deny []string
		want []string
	}{
		{
			name: "allowed",
			deny: nil,
			want: []string{
				"https://acme.bio",
				"https://www.linkedin.com/company/acme/people",
				"https://acme.bio/about?ref=linkedin.com",
			},
		},
		{
			name: "denied",
			deny: []string{"linkedin.com"},
			want: []string{"https://acme.bio", "https://acme.bio/about?ref=linkedin.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{pages: map[string]*extract.Document{
				"https://acme.bio":                            seed,
				"https://www.linkedin.com/company/acme/people": {},
				"https://acme.bio/about?ref=linkedin.com":      {},
			}}

			cfg := testConfig()
			cfg.SameDomainOnly = false
			cfg.DenyDomains = tt.deny
			cfg.MaxDepth = 1
			c := crawler.New(f, cfg, logger.NewNop())
			c.Crawl(context.Background(), "https://acme.bio", nil)

			assert.ElementsMatch(t, tt.want, f.fetchedURLs())
		})
	}
}

func TestCrawl_PageFailuresAreNonFatal(t *testing.T) {
	f := &fakeFetcher{
		pages: map[string]*extract.Document{
			"https://acme.bio":    {Anchors: links("/slow", "/ok")},
			"https://acme.bio/ok": {Anchors: links("https://www.linkedin.com/in/amy")},
		},
		errs: map[string]error{
			"https://acme.bio/slow": crawler.ErrNavigationTimeout,
		},
	}

	var (
		mu     sync.Mutex
		events []crawler.Event
	)
	observe := func(e crawler.Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}

	c := crawler.New(f, testConfig(), logger.NewNop())
	people := c.Crawl(context.Background(), "https://acme.bio", observe)

	require.Len(t, people, 1)
	assert.Equal(t, "https://www.linkedin.com/in/amy", people[0].ProfileURL)

	var errorsSeen []crawler.Event
	for _, e := range events {
		assert.Equal(t, "deep", e.Phase)
		if e.Type == crawler.EventError {
			errorsSeen = append(errorsSeen, e)
		}
	}
	require.Len(t, errorsSeen, 1)
	assert.Equal(t, "https://acme.bio/slow", errorsSeen[0].URL)
	assert.Equal(t, "navigation timeout", errorsSeen[0].Msg)
}

func TestCrawl_TotalTimeoutBoundsDuration(t *testing.T) {
	pages := make(map[string]*extract.Document)
	var hrefs []string
	for i := range 100 {
		hrefs = append(hrefs, fmt.Sprintf("/p%d", i))
		pages[fmt.Sprintf("https://acme.bio/p%d", i)] = &extract.Document{}
	}
	pages["https://acme.bio"] = &extract.Document{Anchors: links(hrefs...)}

	f := &fakeFetcher{pages: pages, delay: 400 * time.Millisecond}
	cfg := testConfig()
	cfg.MaxPages = 1000
	cfg.TotalTimeout = time.Millisecond // raised to the 5s floor
	cfg.NavigationTimeout = time.Second

	c := crawler.New(f, cfg, logger.NewNop())
	assert.Equal(t, crawler.MinTotalTimeout, c.Config().TotalTimeout)

	start := time.Now()
	c.Crawl(context.Background(), "https://acme.bio", nil)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, crawler.MinTotalTimeout+cfg.NavigationTimeout+500*time.Millisecond)
	assert.Less(t, len(f.fetchedURLs()), 101)
}

func TestCrawl_InvalidStartURL(t *testing.T) {
	f := &fakeFetcher{}
	c := crawler.New(f, testConfig(), logger.NewNop())

	assert.Empty(t, c.Crawl(context.Background(), "mailto:jane@acme.bio", nil))
	assert.Empty(t, f.fetchedURLs())
}
