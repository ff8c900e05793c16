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

// GoogleURL is the Custom Search JSON API endpoint.
const GoogleURL = "https://www.googleapis.com/customsearch/v1"

const googleMaxNum = 10

// GoogleProvider queries the Google Custom Search API.
type GoogleProvider struct {
	endpoint string
	apiKey   string
	cseID    string
	req      requester
}

// NewGoogleProvider returns a Custom Search provider.
func NewGoogleProvider(client *http.Client, endpoint, apiKey, cseID string, rc retry.Config) *GoogleProvider {
	if endpoint == "" {
		endpoint = GoogleURL
	}
	return &GoogleProvider{endpoint: endpoint, apiKey: apiKey, cseID: cseID, req: newRequester(client, rc)}
}

func (p *GoogleProvider) Name() string { return "google" }

type googleResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"items"`
}

func (p *GoogleProvider) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if p.apiKey == "" || p.cseID == "" {
		return nil, fmt.Errorf("google: %w", ErrMissingCredentials)
	}

	params := url.Values{}
	params.Set("key", p.apiKey)
	params.Set("cx", p.cseID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(clamp(limit, 1, googleMaxNum)))

	body, err := p.req.get(ctx, p.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("google: %w", err)
	}

	var resp googleResponse
	if err = json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("google: decode: %w", err)
	}

	hits := make([]Hit, 0, len(resp.Items))
	for _, item := range resp.Items {
		hits = append(hits, Hit{Title: item.Title, URL: item.Link, Snippet: item.Snippet})
	}
	return truncateHits(hits, limit), nil
}
