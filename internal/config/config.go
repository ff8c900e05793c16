// Package config loads leadfinder configuration from defaults, an optional
// YAML file, .env files and environment variables, in that order.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/logger"
)

// Service defaults.
const (
	defaultServiceName    = "leadfinder"
	defaultServiceVersion = "1.0.0"
	defaultServicePort    = 8000
	defaultReadTimeout    = 30 * time.Second
	defaultIdleTimeout    = 120 * time.Second
)

// Crawl defaults. These mirror the bounded crawler contract.
const (
	defaultMaxPages          = 25
	defaultMaxDepth          = 3
	defaultTotalTimeout      = 120 * time.Second
	defaultNavTimeout        = 45 * time.Second
	defaultMaxPersonsPerPage = 50
	defaultCrawlDelay        = 500 * time.Millisecond
	defaultUserAgent         = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Pipeline and search defaults.
const (
	defaultPerURLTimeout   = 60 * time.Second
	defaultMaxResults      = 5
	defaultSearchTimeout   = 10 * time.Second
	defaultSearchMaxHits   = 200
	defaultSessionTTL      = 24 * time.Hour
	defaultSearchRetryMax  = 2
	minimumTotalTimeout    = 5 * time.Second
	maxPort                = 65535
	engineHTTP             = "http"
	engineBrowser          = "browser"
	defaultPubMedSource    = "pubmed.ncbi.nlm.nih.gov"
	defaultLinkedInSource  = "linkedin.com"
	defaultSessionKeyspace = "leadfinder:session:"
)

// Crawl engines.
const (
	EngineHTTP    = engineHTTP
	EngineBrowser = engineBrowser
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  logger.Config  `yaml:"logging"`
	Search   SearchConfig   `yaml:"search"`
	Crawl    CrawlConfig    `yaml:"crawl"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Session  SessionConfig  `yaml:"session"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Name        string        `yaml:"name"`
	Version     string        `yaml:"version"`
	Port        int           `env:"SERVER_PORT,PORT" yaml:"port"`
	Debug       bool          `env:"APP_DEBUG"        yaml:"debug"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// WriteTimeout of zero leaves streaming responses uncut.
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" yaml:"cors_origins"`
}

// SearchConfig configures the provider fan-out.
type SearchConfig struct {
	Sources       []string      `env:"SEARCH_SOURCES"  yaml:"sources"`
	Providers     []string      `env:"SEARCH_PROVIDERS" yaml:"providers"`
	InjectSources bool          `env:"SEARCH_INJECT_SOURCES" yaml:"inject_sources"`
	FocusPeople   bool          `env:"SEARCH_FOCUS_PEOPLE" yaml:"focus_people"`
	MaxHits       int           `env:"SEARCH_MAX_HITS" yaml:"max_hits"`
	Timeout       time.Duration `env:"SEARCH_TIMEOUT" yaml:"timeout"`
	RetryAttempts int           `env:"SEARCH_RETRY_ATTEMPTS" yaml:"retry_attempts"`
	GoogleAPIKey  string        `env:"GOOGLE_API_KEY" yaml:"google_api_key"`
	GoogleCSEID   string        `env:"GOOGLE_CSE_ID"  yaml:"google_cse_id"`
	BingAPIKey    string        `env:"BING_API_KEY"   yaml:"bing_api_key"`
}

// CrawlConfig holds the budgets of the bounded crawler.
type CrawlConfig struct {
	Engine            string        `env:"DEEP_CRAWL_ENGINE"               yaml:"engine"`
	MaxPages          int           `env:"DEEP_CRAWL_MAX_PAGES"            yaml:"max_pages"`
	MaxDepth          int           `env:"DEEP_CRAWL_MAX_DEPTH"            yaml:"max_depth"`
	TotalTimeout      time.Duration `env:"DEEP_CRAWL_TOTAL_TIMEOUT"        yaml:"total_timeout"`
	NavigationTimeout time.Duration `env:"DEEP_CRAWL_NAV_TIMEOUT"          yaml:"navigation_timeout"`
	MaxPersonsPerPage int           `env:"DEEP_CRAWL_MAX_PERSONS_PER_PAGE" yaml:"max_persons_per_page"`
	AllowLinkedIn     bool          `env:"DEEP_CRAWL_ALLOW_LINKEDIN"       yaml:"allow_linkedin"`
	SameDomainOnly    bool          `env:"DEEP_CRAWL_SAME_DOMAIN_ONLY"     yaml:"same_domain_only"`
	RespectRobots     bool          `env:"CRAWL_RESPECT_ROBOTS"            yaml:"respect_robots"`
	Delay             time.Duration `env:"CRAWL_DELAY"                     yaml:"delay"`
	UserAgent         string        `env:"CRAWL_USER_AGENT"                yaml:"user_agent"`
	ChromePath        string        `env:"CHROME_PATH"                     yaml:"chrome_path"`
}

// PipelineConfig holds per-run settings.
type PipelineConfig struct {
	PerURLTimeout time.Duration `env:"CRAWL_TIMEOUT_PER_URL" yaml:"per_url_timeout"`
	DeepCrawl     bool          `env:"USE_DEEP_CRAWL,USE_PLAYWRIGHT_DEEP" yaml:"deep_crawl"`
	MaxResults    int           `env:"PIPELINE_MAX_RESULTS" yaml:"max_results"`
}

// SessionConfig selects the session store backend.
type SessionConfig struct {
	RedisAddress  string        `env:"REDIS_ADDRESS"  yaml:"redis_address"`
	RedisPassword string        `env:"REDIS_PASSWORD" yaml:"redis_password"`
	RedisDB       int           `env:"REDIS_DB"       yaml:"redis_db"`
	KeyPrefix     string        `yaml:"key_prefix"`
	TTL           time.Duration `env:"SESSION_TTL"    yaml:"ttl"`
}

// ValidationError reports an invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Message)
}

// Load reads configuration from path and validates it.
func Load(path string) (*Config, error) {
	cfg, err := LoadWithDefaults(path, SetDefaults)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return cfg, nil
}

// Default returns a configuration holding only defaults.
func Default() *Config {
	cfg := &Config{}
	SetDefaults(cfg)
	return cfg
}

// SetDefaults overwrites cfg with default values.
func SetDefaults(cfg *Config) {
	cfg.Server = ServerConfig{
		Name:        defaultServiceName,
		Version:     defaultServiceVersion,
		Port:        defaultServicePort,
		ReadTimeout: defaultReadTimeout,
		IdleTimeout: defaultIdleTimeout,
		CORSOrigins: []string{"*"},
	}
	cfg.Logging = logger.Config{}
	cfg.Logging.SetDefaults()

	cfg.Search = SearchConfig{
		Sources:       []string{defaultPubMedSource, defaultLinkedInSource},
		Providers:     []string{"duckduckgo", "google", "bing"},
		InjectSources: true,
		FocusPeople:   true,
		MaxHits:       defaultSearchMaxHits,
		Timeout:       defaultSearchTimeout,
		RetryAttempts: defaultSearchRetryMax,
	}

	cfg.Crawl = CrawlConfig{
		Engine:            engineHTTP,
		MaxPages:          defaultMaxPages,
		MaxDepth:          defaultMaxDepth,
		TotalTimeout:      defaultTotalTimeout,
		NavigationTimeout: defaultNavTimeout,
		MaxPersonsPerPage: defaultMaxPersonsPerPage,
		SameDomainOnly:    true,
		Delay:             defaultCrawlDelay,
		UserAgent:         defaultUserAgent,
	}

	cfg.Pipeline = PipelineConfig{
		PerURLTimeout: defaultPerURLTimeout,
		DeepCrawl:     true,
		MaxResults:    defaultMaxResults,
	}

	cfg.Session = SessionConfig{
		KeyPrefix: defaultSessionKeyspace,
		TTL:       defaultSessionTTL,
	}
}

// Validate checks ranges and enumerations and clamps the crawl total
// timeout to its floor.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > maxPort {
		return &ValidationError{Field: "server.port", Message: "must be between 1 and 65535"}
	}

	switch strings.ToLower(c.Crawl.Engine) {
	case engineHTTP, engineBrowser:
		c.Crawl.Engine = strings.ToLower(c.Crawl.Engine)
	default:
		return &ValidationError{Field: "crawl.engine", Message: "must be http or browser"}
	}

	if c.Crawl.MaxPages < 1 {
		return &ValidationError{Field: "crawl.max_pages", Message: "must be positive"}
	}
	if c.Crawl.MaxDepth < 0 {
		return &ValidationError{Field: "crawl.max_depth", Message: "must be non-negative"}
	}
	if c.Crawl.NavigationTimeout <= 0 {
		return &ValidationError{Field: "crawl.navigation_timeout", Message: "must be positive"}
	}
	if c.Crawl.TotalTimeout < minimumTotalTimeout {
		c.Crawl.TotalTimeout = minimumTotalTimeout
	}
	if c.Pipeline.PerURLTimeout <= 0 {
		return &ValidationError{Field: "pipeline.per_url_timeout", Message: "must be positive"}
	}
	if c.Pipeline.MaxResults < 1 {
		return &ValidationError{Field: "pipeline.max_results", Message: "must be positive"}
	}

	return nil
}

// DenyDomains returns the hosts the crawler must never enqueue.
func (c CrawlConfig) DenyDomains() []string {
	if c.AllowLinkedIn {
		return nil
	}
	return []string{"linkedin.com", "www.linkedin.com"}
}
