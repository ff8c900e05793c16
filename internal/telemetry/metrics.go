// Package telemetry exports Prometheus metrics for discovery runs.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "leadfinder"

// Metrics holds all leadfinder metrics. It implements the recorder
// interfaces of the search, crawler and pipeline packages.
type Metrics struct {
	registry *prometheus.Registry

	// Run metrics
	RunsStarted  *prometheus.CounterVec
	RunsFinished *prometheus.CounterVec
	RunDuration  *prometheus.HistogramVec
	LeadsTotal   prometheus.Counter

	// Search metrics
	SearchHitsTotal *prometheus.CounterVec
	ProviderFailure *prometheus.CounterVec

	// Crawl metrics
	PagesCrawled *prometheus.CounterVec
	PagesFailed  *prometheus.CounterVec

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New registers all metrics on a fresh registry along with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{registry: reg}
	factory := promauto.With(reg)
	initRunMetrics(factory, m)
	initSearchMetrics(factory, m)
	initCrawlMetrics(factory, m)
	initHTTPMetrics(factory, m)
	return m
}

func initRunMetrics(f promauto.Factory, m *Metrics) {
	m.RunsStarted = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "runs_started_total",
		Help:      "Discovery runs started, by mode (scrape, stream)",
	}, []string{"mode"})

	m.RunsFinished = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "runs_finished_total",
		Help:      "Discovery runs finished, by mode",
	}, []string{"mode"})

	m.RunDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of discovery runs",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"mode"})

	m.LeadsTotal = f.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "leads_emitted_total",
		Help:      "Leads returned to callers after deduplication",
	})
}

func initSearchMetrics(f promauto.Factory, m *Metrics) {
	m.SearchHitsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "search",
		Name:      "hits_total",
		Help:      "Search hits returned per provider",
	}, []string{"provider"})

	m.ProviderFailure = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "search",
		Name:      "provider_failures_total",
		Help:      "Failed search provider calls",
	}, []string{"provider"})
}

func initCrawlMetrics(f promauto.Factory, m *Metrics) {
	m.PagesCrawled = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "crawl",
		Name:      "pages_total",
		Help:      "Pages loaded by the deep crawler, by engine",
	}, []string{"engine"})

	m.PagesFailed = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "crawl",
		Name:      "page_failures_total",
		Help:      "Pages that failed to load, by engine and reason",
	}, []string{"engine", "reason"})
}

func initHTTPMetrics(f promauto.Factory, m *Metrics) {
	m.RequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	m.RequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
}

// Registry returns the registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RunStarted counts a run.
func (m *Metrics) RunStarted(mode string) { m.RunsStarted.WithLabelValues(mode).Inc() }

// RunFinished counts a completed run and observes its duration.
func (m *Metrics) RunFinished(mode string, elapsed time.Duration) {
	m.RunsFinished.WithLabelValues(mode).Inc()
	m.RunDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// LeadsEmitted adds n delivered leads.
func (m *Metrics) LeadsEmitted(n int) { m.LeadsTotal.Add(float64(n)) }

// SearchHits adds n hits for provider.
func (m *Metrics) SearchHits(provider string, n int) {
	m.SearchHitsTotal.WithLabelValues(provider).Add(float64(n))
}

// ProviderFailed counts a failed provider call.
func (m *Metrics) ProviderFailed(provider string) {
	m.ProviderFailure.WithLabelValues(provider).Inc()
}

// PageCrawled counts a loaded page.
func (m *Metrics) PageCrawled(engine string) { m.PagesCrawled.WithLabelValues(engine).Inc() }

// PageFailed counts a page failure.
func (m *Metrics) PageFailed(engine, reason string) {
	m.PagesFailed.WithLabelValues(engine, reason).Inc()
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
