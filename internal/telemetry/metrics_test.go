package telemetry_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/crawler"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/pipeline"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/search"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/telemetry"
)

var (
	_ search.Recorder   = (*telemetry.Metrics)(nil)
	_ crawler.Recorder  = (*telemetry.Metrics)(nil)
	_ pipeline.Recorder = (*telemetry.Metrics)(nil)
)

func TestMetrics_Counters(t *testing.T) {
	m := telemetry.New()

	m.RunStarted("stream")
	m.RunFinished("stream", 2*time.Second)
	m.LeadsEmitted(3)
	m.SearchHits("duckduckgo", 7)
	m.ProviderFailed("bing")
	m.PageCrawled("http")
	m.PageCrawled("http")
	m.PageFailed("browser", "timeout")

	assert.InDelta(t, 1, testutil.ToFloat64(m.RunsStarted.WithLabelValues("stream")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RunsFinished.WithLabelValues("stream")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.LeadsTotal), 0)
	assert.InDelta(t, 7, testutil.ToFloat64(m.SearchHitsTotal.WithLabelValues("duckduckgo")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ProviderFailure.WithLabelValues("bing")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.PagesCrawled.WithLabelValues("http")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.PagesFailed.WithLabelValues("browser", "timeout")), 0)
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a := telemetry.New()
	b := telemetry.New()

	a.LeadsEmitted(1)
	assert.InDelta(t, 0, testutil.ToFloat64(b.LeadsTotal), 0)
}

func TestMetrics_Handler(t *testing.T) {
	m := telemetry.New()
	m.ObserveRequest(http.MethodGet, "/", http.StatusOK, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `leadfinder_http_requests_total{method="GET",route="/",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
