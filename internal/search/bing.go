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

// BingURL is the Bing Web Search v7 endpoint.
const BingURL = "https://api.bing.microsoft.com/v7.0/search"

const bingMaxCount = 50

// BingProvider queries the Bing Web Search API.
type BingProvider struct {
	endpoint string
	apiKey   string
	req      requester
}

// NewBingProvider returns a Bing provider.
func NewBingProvider(client *http.Client, endpoint, apiKey string, rc retry.Config) *BingProvider {
	if endpoint == "" {
		endpoint = BingURL
	}
	return &BingProvider{endpoint: endpoint, apiKey: apiKey, req: newRequester(client, rc)}
}

func (p *BingProvider) Name() string { return "bing" }

type bingResponse struct {
	WebPages struct {
		Value []struct {
			Name    string `json:"name"`
			Snippet string `json:"snippet"`
			URL     string `json:"url"`
		} `json:"value"`
	} `json:"webPages"`
}

func (p *BingProvider) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("bing: %w", ErrMissingCredentials)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(clamp(limit, 1, bingMaxCount)))

	header := http.Header{}
	header.Set("Ocp-Apim-Subscription-Key", p.apiKey)

	body, err := p.req.get(ctx, p.endpoint+"?"+params.Encode(), header)
	if err != nil {
		return nil, fmt.Errorf("bing: %w", err)
	}

	var resp bingResponse
	if err = json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("bing: decode: %w", err)
	}

	hits := make([]Hit, 0, len(resp.WebPages.Value))
	for _, v := range resp.WebPages.Value {
		hits = append(hits, Hit{Title: v.Name, URL: v.URL, Snippet: v.Snippet})
	}
	return truncateHits(hits, limit), nil
}
