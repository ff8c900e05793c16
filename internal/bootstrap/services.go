package bootstrap

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/config"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/crawler"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/httpclient"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/lead"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/logger"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/pipeline"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/retry"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/scoring"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/search"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/telemetry"
)

const robotsCacheTTL = time.Hour

// Services holds the discovery components shared by all runs.
type Services struct {
	Metrics    *telemetry.Metrics
	Aggregator *search.Aggregator
	// Crawler is nil when deep crawling is unavailable.
	Crawler  *crawler.Crawler
	Pipeline *pipeline.Pipeline

	browser *crawler.BrowserFetcher
}

// Close releases the headless browser, if one was started.
func (s *Services) Close() {
	if s.browser != nil {
		s.browser.Close()
	}
}

// SetupServices builds search, crawl, scoring and the pipeline from deps.
// A missing browser disables deep crawling rather than failing startup.
func SetupServices(deps *CommandDeps) (*Services, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg, log := deps.Config, deps.Logger

	metrics := telemetry.New()

	searchClient := httpclient.New(httpclient.Config{
		Timeout:   cfg.Search.Timeout,
		UserAgent: cfg.Crawl.UserAgent,
	})
	crawlClient := httpclient.New(httpclient.Config{
		Timeout:   cfg.Crawl.NavigationTimeout,
		UserAgent: cfg.Crawl.UserAgent,
	})

	providers := SetupProviders(cfg.Search, cfg.Crawl.UserAgent, searchClient, log)
	if len(providers) == 0 {
		log.Warn("No search providers configured; runs will find nothing")
	}
	aggregator := search.NewAggregator(providers, log.With(logger.String("component", "search")), metrics)

	pageFetcher := crawler.NewHTTPFetcher(crawlClient, cfg.Crawl.UserAgent, cfg.Crawl.NavigationTimeout)

	svc := &Services{Metrics: metrics, Aggregator: aggregator}

	deepFetcher, engine, err := setupDeepFetcher(cfg.Crawl, pageFetcher, log)
	switch {
	case errors.Is(err, crawler.ErrBrowserUnavailable):
		log.Warn("Headless browser not available, deep crawl disabled", logger.Error(err))
	case err != nil:
		return nil, fmt.Errorf("setup deep crawl fetcher: %w", err)
	default:
		if bf, ok := deepFetcher.(*crawler.BrowserFetcher); ok {
			svc.browser = bf
		}
		svc.Crawler = crawler.New(deepFetcher, crawlConfig(cfg.Crawl), log.With(logger.String("component", "crawler")),
			crawler.WithRobots(crawler.NewRobotsChecker(crawlClient, cfg.Crawl.UserAgent, robotsCacheTTL)),
			crawler.WithRecorder(metrics),
			crawler.WithEngine(engine),
		)
	}

	opts := []pipeline.Option{pipeline.WithRecorder(metrics)}
	if svc.Crawler != nil {
		opts = append(opts, pipeline.WithDeepCrawler(svc.Crawler))
	}

	svc.Pipeline = pipeline.New(
		aggregator,
		pageFetcher,
		lead.NewProcessor(scoring.New()),
		pipeline.Config{
			PerURLTimeout: cfg.Pipeline.PerURLTimeout,
			DeepCrawl:     cfg.Pipeline.DeepCrawl,
			MaxResults:    cfg.Pipeline.MaxResults,
			Sources:       cfg.Search.Sources,
			InjectSources: cfg.Search.InjectSources,
			FocusPeople:   cfg.Search.FocusPeople,
			MaxHits:       cfg.Search.MaxHits,
		},
		log.With(logger.String("component", "pipeline")),
		opts...,
	)

	log.Info("Services ready",
		logger.Strings("providers", aggregator.Providers()),
		logger.String("engine", engine),
		logger.Bool("deep_crawl", svc.Pipeline.DeepCrawlEnabled()),
	)

	return svc, nil
}

// SetupProviders builds the configured providers in order. API providers
// without credentials are skipped.
func SetupProviders(cfg config.SearchConfig, userAgent string, client *http.Client, log logger.Logger) []search.Provider {
	rc := retry.DefaultConfig()
	if cfg.RetryAttempts > 0 {
		rc.MaxAttempts = cfg.RetryAttempts
	}

	providers := make([]search.Provider, 0, len(cfg.Providers))
	for _, name := range cfg.Providers {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "duckduckgo", "ddg":
			providers = append(providers, search.NewDuckDuckGoProvider(client, "", userAgent, rc))
		case "google":
			if cfg.GoogleAPIKey == "" || cfg.GoogleCSEID == "" {
				log.Debug("Skipping google provider: credentials not set")
				continue
			}
			providers = append(providers, search.NewGoogleProvider(client, "", cfg.GoogleAPIKey, cfg.GoogleCSEID, rc))
		case "bing":
			if cfg.BingAPIKey == "" {
				log.Debug("Skipping bing provider: credentials not set")
				continue
			}
			providers = append(providers, search.NewBingProvider(client, "", cfg.BingAPIKey, rc))
		case "wikipedia":
			providers = append(providers, search.NewWikipediaProvider(client, "", rc))
		default:
			log.Warn("Unknown search provider", logger.String("provider", name))
		}
	}
	return providers
}

func setupDeepFetcher(cfg config.CrawlConfig, httpFetcher *crawler.HTTPFetcher, log logger.Logger) (crawler.Fetcher, string, error) {
	if cfg.Engine != config.EngineBrowser {
		return httpFetcher, config.EngineHTTP, nil
	}

	bf, err := crawler.NewBrowserFetcher(crawler.BrowserConfig{
		ExecPath:          cfg.ChromePath,
		UserAgent:         cfg.UserAgent,
		NavigationTimeout: cfg.NavigationTimeout,
	}, log.With(logger.String("component", "browser")))
	if err != nil {
		return nil, config.EngineBrowser, err
	}
	return bf, config.EngineBrowser, nil
}

func crawlConfig(cfg config.CrawlConfig) crawler.Config {
	return crawler.Config{
		MaxPages:          cfg.MaxPages,
		MaxDepth:          cfg.MaxDepth,
		TotalTimeout:      cfg.TotalTimeout,
		NavigationTimeout: cfg.NavigationTimeout,
		SameDomainOnly:    cfg.SameDomainOnly,
		DenyDomains:       cfg.DenyDomains(),
		MaxPersonsPerPage: cfg.MaxPersonsPerPage,
		RespectRobots:     cfg.RespectRobots,
		Delay:             cfg.Delay,
	}
}
