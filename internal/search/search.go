// Package search fans a query out to web search providers and merges the
// hits into one deduplicated, ordered list.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/retry"
)

// ErrMissingCredentials is returned by API providers without a key.
var ErrMissingCredentials = errors.New("search provider credentials not configured")

// Hit is one search result. The JSON names match the stream wire format.
type Hit struct {
	Title   string `json:"title"`
	URL     string `json:"href"`
	Snippet string `json:"body"`
}

//go:generate mockgen -destination=mocks/mock_provider.go -package=mocks . Provider

// Provider is one search backend.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
}

const maxResponseBytes = 4 << 20

// requester performs GETs with retry on transient failures.
type requester struct {
	client *http.Client
	retry  retry.Config
}

func newRequester(client *http.Client, cfg retry.Config) requester {
	if client == nil {
		client = http.DefaultClient
	}
	return requester{client: client, retry: cfg}
}

func (r requester) get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, r.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := r.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
			return &retry.StatusError{StatusCode: resp.StatusCode, URL: req.URL.Redacted()}
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		return err
	})
	return body, err
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func truncateHits(hits []Hit, limit int) []Hit {
	if limit > 0 && len(hits) > limit {
		return hits[:limit]
	}
	return hits
}
