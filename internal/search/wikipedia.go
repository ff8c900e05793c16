package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/retry"
)

// WikipediaURL is the MediaWiki API endpoint.
const WikipediaURL = "https://en.wikipedia.org/w/api.php"

// WikipediaProvider uses the opensearch action. It needs no key.
type WikipediaProvider struct {
	endpoint string
	req      requester
}

// NewWikipediaProvider returns an opensearch provider.
func NewWikipediaProvider(client *http.Client, endpoint string, rc retry.Config) *WikipediaProvider {
	if endpoint == "" {
		endpoint = WikipediaURL
	}
	return &WikipediaProvider{endpoint: endpoint, req: newRequester(client, rc)}
}

func (p *WikipediaProvider) Name() string { return "wikipedia" }

// Search decodes the opensearch tuple [query, titles, descriptions, urls].
func (p *WikipediaProvider) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	params := url.Values{}
	params.Set("action", "opensearch")
	params.Set("search", query)
	params.Set("limit", strconv.Itoa(clamp(limit, 1, 500)))
	params.Set("namespace", "0")
	params.Set("format", "json")

	body, err := p.req.get(ctx, p.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("wikipedia: %w", err)
	}

	var tuple []json.RawMessage
	if err = json.Unmarshal(body, &tuple); err != nil {
		return nil, fmt.Errorf("wikipedia: decode: %w", err)
	}
	if len(tuple) < 4 {
		return []Hit{}, nil
	}

	var titles, descs, urls []string
	if err = json.Unmarshal(tuple[1], &titles); err != nil {
		return nil, fmt.Errorf("wikipedia: decode titles: %w", err)
	}
	_ = json.Unmarshal(tuple[2], &descs)
	if err = json.Unmarshal(tuple[3], &urls); err != nil {
		return nil, fmt.Errorf("wikipedia: decode urls: %w", err)
	}

	hits := make([]Hit, 0, len(titles))
	for i := range titles {
		if i >= len(urls) {
			break
		}
		h := Hit{Title: titles[i], URL: urls[i]}
		if i < len(descs) {
			h.Snippet = descs[i]
		}
		hits = append(hits, h)
	}
	return truncateHits(hits, limit), nil
}
