package search

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/retry"
)

// DuckDuckGoURL is the HTML endpoint that needs no API key.
const DuckDuckGoURL = "https://html.duckduckgo.com/html/"

// DuckDuckGoProvider scrapes the DuckDuckGo HTML results page.
type DuckDuckGoProvider struct {
	endpoint  string
	userAgent string
	req       requester
}

// NewDuckDuckGoProvider returns a provider against endpoint, or
// DuckDuckGoURL when empty.
func NewDuckDuckGoProvider(client *http.Client, endpoint, userAgent string, rc retry.Config) *DuckDuckGoProvider {
	if endpoint == "" {
		endpoint = DuckDuckGoURL
	}
	return &DuckDuckGoProvider{endpoint: endpoint, userAgent: userAgent, req: newRequester(client, rc)}
}

func (p *DuckDuckGoProvider) Name() string { return "duckduckgo" }

func (p *DuckDuckGoProvider) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	header := http.Header{}
	if p.userAgent != "" {
		header.Set("User-Agent", p.userAgent)
	}

	body, err := p.req.get(ctx, p.endpoint+"?q="+url.QueryEscape(query), header)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: parse results: %w", err)
	}

	hits := make([]Hit, 0)
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}
		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		target := unwrapRedirect(href)
		if target == "" {
			return true
		}
		hits = append(hits, Hit{
			Title:   strings.TrimSpace(link.Text()),
			URL:     target,
			Snippet: strings.TrimSpace(s.Find(".result__snippet").First().Text()),
		})
		return limit <= 0 || len(hits) < limit
	})

	return hits, nil
}

// unwrapRedirect turns a DuckDuckGo /l/?uddg= link into its target.
func unwrapRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasPrefix(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
