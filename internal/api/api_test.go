package api_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ginpkg "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/api"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/events"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/extract"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/lead"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/pipeline"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/scoring"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/search"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/session"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/telemetry"
)

type fakeDiscoverer struct {
	mu        sync.Mutex
	requests  []pipeline.Request
	result    pipeline.Result
	produce   func(em *events.Emitter)
	processor *lead.Processor
}

func (f *fakeDiscoverer) record(req pipeline.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
}

func (f *fakeDiscoverer) lastRequest() pipeline.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeDiscoverer) Scrape(_ context.Context, req pipeline.Request) pipeline.Result {
	f.record(req)
	return f.result
}

func (f *fakeDiscoverer) ScrapeProgress(_ context.Context, req pipeline.Request, em *events.Emitter) {
	f.record(req)
	if f.produce != nil {
		f.produce(em)
	}
}

func (f *fakeDiscoverer) Process(page *extract.ScrapedPage, sctx *scoring.Context) lead.LeadRecord {
	return f.processor.Process(page, sctx)
}

type testServer struct {
	router   *ginpkg.Engine
	discover *fakeDiscoverer
	sessions *session.MemoryStore
	metrics  *telemetry.Metrics
}

func newTestServer(t *testing.T, extra ...func(*ginpkg.Engine)) *testServer {
	t.Helper()

	ts := &testServer{
		discover: &fakeDiscoverer{processor: lead.NewProcessor(nil)},
		sessions: session.NewMemoryStore(),
		metrics:  telemetry.New(),
	}
	h := api.NewHandler(ts.discover, ts.sessions, ts.metrics.Handler(), api.HandlerConfig{}, nil)

	ts.router = api.NewServerBuilder("leadfinder-test", 0).
		WithObserver(ts.metrics).
		WithHealthCheck("redis", func(context.Context) error { return errors.New("connection refused") }).
		WithRoutes(func(r *ginpkg.Engine) {
			h.RegisterRoutes(r)
			for _, fn := range extra {
				fn(r)
			}
		}).
		Build().
		Router()
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func dataFrames(t *testing.T, body string) []events.Event {
	t.Helper()

	var out []events.Event
	sc := bufio.NewScanner(strings.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var evt events.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &evt))
		out = append(out, evt)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestRoot_LivenessAndRequestID(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.Len(t, w.Header().Get(api.HeaderRequestID), 36)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(api.HeaderRequestID, "req-123")
	w = ts.do(req)
	assert.Equal(t, "req-123", w.Header().Get(api.HeaderRequestID))
}

func TestScrape_ReturnsResult(t *testing.T) {
	ts := newTestServer(t)
	ts.discover.result = pipeline.Result{
		Query:         "dili toxicology",
		SearchResults: []search.Hit{{Title: "A", URL: "https://a.com", Snippet: "s"}},
		Results:       []lead.LeadRecord{lead.Failed("x")},
		Fields:        []string{"Drug-Induced Liver Injury"},
	}

	w := ts.do(postJSON("/scrape", `{"input":"  dili toxicology ","domains":["pubmed"]}`))
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "dili toxicology", got["query"])
	assert.Len(t, got["search_results"], 1)
	assert.Len(t, got["results"], 1)
	assert.Equal(t, []any{"Drug-Induced Liver Injury"}, got["fields"])

	req := ts.discover.lastRequest()
	assert.Equal(t, "dili toxicology", req.Query)
	assert.Equal(t, []string{"pubmed"}, req.Sources)
}

func TestScrape_RejectsMissingInput(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(postJSON("/scrape", `{"input":"   "}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)

	w = ts.do(postJSON("/scrape", `{`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScrapeStream_WritesOrderedFrames(t *testing.T) {
	ts := newTestServer(t)
	ts.discover.produce = func(em *events.Emitter) {
		em.Progress(0, events.PhaseSearch, "Searching", "")
		em.SearchResults(10, []search.Hit{{Title: "Example", URL: "https://example.com"}})
		em.Error(10, "Crawl timed out for https://example.com", "https://example.com")
		em.Item(50, lead.LeadRecord{URL: "https://example.com/in/jane", Title: "Jane"})
		em.Done([]lead.LeadRecord{{URL: "https://example.com/in/jane"}})
	}

	req := httptest.NewRequest(http.MethodGet, "/scrape/stream?input=test&max_results=3&domains=pubmed,linkedin", nil)
	w := ts.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))

	frames := dataFrames(t, w.Body.String())
	require.Len(t, frames, 5)

	types := make([]events.Type, 0, len(frames))
	for _, f := range frames {
		types = append(types, f.Type)
	}
	assert.Equal(t, []events.Type{
		events.TypeProgress, events.TypeSearchResults, events.TypeError, events.TypeItem, events.TypeDone,
	}, types)
	assert.Equal(t, 100, frames[4].Percent)
	assert.Equal(t, "Crawl timed out for https://example.com", frames[2].Msg)

	got := ts.discover.lastRequest()
	assert.Equal(t, "test", got.Query)
	assert.Equal(t, 3, got.MaxResults)
	assert.Equal(t, []string{"pubmed", "linkedin"}, got.Sources)
}

func TestScrapeStream_ProducerPanicStillEnds(t *testing.T) {
	ts := newTestServer(t)
	ts.discover.produce = func(em *events.Emitter) {
		em.Progress(0, events.PhaseSearch, "Searching", "")
		panic("boom")
	}

	w := ts.do(httptest.NewRequest(http.MethodGet, "/scrape/stream?input=test", nil))
	frames := dataFrames(t, w.Body.String())
	require.Len(t, frames, 3)
	assert.Equal(t, events.TypeError, frames[1].Type)
	assert.Equal(t, "internal error: boom", frames[1].Msg)
	assert.Equal(t, events.TypeDone, frames[2].Type)
	assert.Nil(t, ts.discover.lastRequest().Sources)
}

func TestScrapeStream_ValidatesQuery(t *testing.T) {
	ts := newTestServer(t)

	tests := []string{
		"/scrape/stream",
		"/scrape/stream?input=x&max_results=zero",
		"/scrape/stream?input=x&max_results=-1",
	}
	for _, path := range tests {
		w := ts.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestProcess_EmptyRecord(t *testing.T) {
	ts := newTestServer(t)

	for _, body := range []string{
		`{}`,
		`{"response":{}}`,
		`{"response":null}`,
		`{"response":"some raw string"}`,
	} {
		w := ts.do(postJSON("/process", body))
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{
			"email":"","phone":"","linkedin_url":"","location_hq":"","rank":0,
			"title":"","url":"","all_emails":[],"all_phones":[],"all_linkedin":[],
			"error":"No data to process"
		}`, w.Body.String())
	}
}

func TestProcess_LooseRecord(t *testing.T) {
	ts := newTestServer(t)

	body := `{"response":{
		"url":"https://www.linkedin.com/in/jane-doe",
		"title":"Jane Doe - Director of Toxicology",
		"emails":"jane@acme.bio",
		"linkedin_urls":["https://www.linkedin.com/company/acme"],
		"text_content":"Published research on DILI in Boston"
	}}`
	w := ts.do(postJSON("/process", body))
	require.Equal(t, http.StatusOK, w.Code)

	var rec lead.LeadRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Empty(t, rec.Error)
	assert.Equal(t, "jane@acme.bio", rec.Email)
	assert.Equal(t, []string{"jane@acme.bio"}, rec.AllEmails)
	assert.Equal(t, "https://www.linkedin.com/in/jane-doe", rec.LinkedInURL)
	assert.Positive(t, rec.Rank)
}

func TestProcess_ContextSaturates(t *testing.T) {
	ts := newTestServer(t)

	body := `{
		"response":{"title":"Director of Safety"},
		"context":{"job_title":"Director of Safety","funding_series":"B","published_recent_paper":true,"location":"Cambridge, MA"}
	}`
	w := ts.do(postJSON("/process", body))
	require.Equal(t, http.StatusOK, w.Code)

	var rec lead.LeadRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, scoring.MaxScore, rec.Rank)
}

func TestProcess_MalformedRecordIsMarked(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(postJSON("/process", `{"response":{"url":"https://a.com","company_info":"oops"}}`))
	require.Equal(t, http.StatusOK, w.Code)

	var rec lead.LeadRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Zero(t, rec.Rank)
	assert.Contains(t, rec.Error, "malformed record")
}

func TestProcess_NonObjectRecordIsMarked(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		body string
		want string
	}{
		{body: `{"response":["a","b"]}`, want: "malformed record: expected an object, got array"},
		{body: `{"response":42}`, want: "malformed record: expected an object, got number"},
		{body: `{"response":true}`, want: "malformed record: expected an object, got boolean"},
	}

	for _, tt := range tests {
		w := ts.do(postJSON("/process", tt.body))
		require.Equal(t, http.StatusOK, w.Code, tt.body)

		var rec lead.LeadRecord
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
		assert.Zero(t, rec.Rank, tt.body)
		assert.Equal(t, tt.want, rec.Error, tt.body)
	}
}

func TestAuth_SessionAndLogout(t *testing.T) {
	ts := newTestServer(t)
	token, err := ts.sessions.Create(context.Background(), map[string]any{"email": "jane@acme.bio"}, time.Hour)
	require.NoError(t, err)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/auth/session", nil))
	assert.JSONEq(t, `{"logged_in":false}`, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: api.SessionCookie, Value: token})
	w = ts.do(req)
	assert.JSONEq(t, `{"logged_in":true,"profile":{"email":"jane@acme.bio"}}`, w.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: api.SessionCookie, Value: token})
	w = ts.do(req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), api.SessionCookie+"=")

	_, err = ts.sessions.Get(context.Background(), token)
	require.ErrorIs(t, err, session.ErrNotFound)

	req = httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: api.SessionCookie, Value: token})
	w = ts.do(req)
	assert.JSONEq(t, `{"logged_in":false}`, w.Body.String())
}

func TestMetrics_CountsRequests(t *testing.T) {
	ts := newTestServer(t)

	ts.do(httptest.NewRequest(http.MethodGet, "/", nil))
	w := ts.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `leadfinder_http_requests_total{method="GET",route="/",status="200"} 1`)
}

func TestHealth_ReportsFailingCheck(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp api.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, api.HealthStatusUnhealthy, resp.Status)
	assert.Equal(t, "connection refused", resp.Checks["redis"].Message)
}

func TestCORS_Preflight(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/scrape", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := ts.do(req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestRecovery_ReturnsJSON500(t *testing.T) {
	ts := newTestServer(t, func(r *ginpkg.Engine) {
		r.GET("/panic", func(*ginpkg.Context) { panic("boom") })
	})

	w := ts.do(httptest.NewRequest(http.MethodGet, "/panic", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INTERNAL_ERROR", resp.Code)
}
