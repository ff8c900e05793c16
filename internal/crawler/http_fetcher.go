package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	colly "github.com/gocolly/colly/v2"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/extract"
)

const defaultNavigationTimeout = 45 * time.Second

// HTTPFetcher loads pages with a colly collector. A fresh collector is built
// per fetch so no visited state is shared between runs.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

// NewHTTPFetcher returns a colly-backed fetcher. client supplies the
// transport; timeout bounds each request.
func NewHTTPFetcher(client *http.Client, userAgent string, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = defaultNavigationTimeout
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client, userAgent: userAgent, timeout: timeout}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*extract.Document, error) {
	if isHeavyURL(pageURL) {
		return nil, ErrSkippedResource
	}

	opts := []colly.CollectorOption{
		colly.StdlibContext(ctx),
		colly.IgnoreRobotsTxt(),
		colly.AllowURLRevisit(),
	}
	if f.userAgent != "" {
		opts = append(opts, colly.UserAgent(f.userAgent))
	}

	c := colly.NewCollector(opts...)
	c.SetRequestTimeout(f.timeout)
	if f.client.Transport != nil {
		c.WithTransport(f.client.Transport)
	}

	var (
		body     []byte
		finalURL string
		skipped  bool
		fetchErr error
	)

	c.OnResponseHeaders(func(r *colly.Response) {
		if isHeavyContentType(r.Headers.Get("Content-Type")) {
			skipped = true
			r.Request.Abort()
		}
	})
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		finalURL = r.Request.URL.String()
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	visitErr := c.Visit(pageURL)
	c.Wait()

	if skipped {
		return nil, ErrSkippedResource
	}
	if fetchErr == nil && visitErr != nil && !errors.Is(visitErr, colly.ErrAbortedAfterHeaders) {
		fetchErr = visitErr
	}
	if fetchErr != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, asNavigationError(fetchErr))
	}
	if finalURL == "" {
		finalURL = pageURL
	}

	doc, err := extract.ParseDocument(finalURL, body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	return doc, nil
}
