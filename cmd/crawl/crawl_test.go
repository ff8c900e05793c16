package crawl_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/leadfinder/cmd/crawl"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/crawler"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/extract"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/logger"
)

type fakeCrawler struct {
	people []extract.PersonRecord
	calls  int
}

func (f *fakeCrawler) Crawl(_ context.Context, _ string, observe crawler.Observer) []extract.PersonRecord {
	f.calls++
	if observe != nil {
		observe(crawler.Event{Type: crawler.EventProgress, URL: "https://acme.bio/team"})
		observe(crawler.Event{Type: crawler.EventError, URL: "https://acme.bio/broken", Msg: "HTTP 500"})
	}
	return f.people
}

func TestExecuteCrawl_RendersPeople(t *testing.T) {
	t.Parallel()

	c := &fakeCrawler{people: []extract.PersonRecord{
		{Name: "Jane Doe", Title: "Director of Toxicology", Email: "jane@acme.bio"},
		{Name: "Bob Roe", LinkedInURL: "https://www.linkedin.com/in/bob"},
	}}
	var out bytes.Buffer

	require.NoError(t, crawl.ExecuteCrawl(context.Background(), &out, c, "https://acme.bio/team", logger.NewNop()))

	s := out.String()
	assert.Contains(t, s, "Jane Doe")
	assert.Contains(t, s, "jane@acme.bio")
	assert.Contains(t, s, "https://www.linkedin.com/in/bob")
	assert.Contains(t, s, "N/A")
}

func TestExecuteCrawl_NoPeople(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, crawl.ExecuteCrawl(context.Background(), &out, &fakeCrawler{}, "https://acme.bio", logger.NewNop()))
	assert.Equal(t, "No people found at https://acme.bio\n", out.String())
}

func TestExecuteCrawl_RejectsBadURL(t *testing.T) {
	t.Parallel()

	c := &fakeCrawler{}
	for _, u := range []string{"", "  ", "not a url", "/relative/path"} {
		require.Error(t, crawl.ExecuteCrawl(context.Background(), &bytes.Buffer{}, c, u, logger.NewNop()), u)
	}
	assert.Zero(t, c.calls)
}
