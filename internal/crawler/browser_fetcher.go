package crawler

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/extract"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/logger"
)

var chromeCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"chrome",
	"headless-shell",
}

// BrowserConfig configures the headless Chrome fetcher.
type BrowserConfig struct {
	// ExecPath overrides binary discovery. CHROME_PATH is used when empty.
	ExecPath          string
	UserAgent         string
	NavigationTimeout time.Duration
}

// BrowserFetcher renders pages in headless Chrome. One browser process is
// shared; every fetch opens and closes its own tab.
type BrowserFetcher struct {
	cfg         BrowserConfig
	log         logger.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
	closeOnce   sync.Once
}

// FindChrome resolves a Chrome binary from override, CHROME_PATH, then PATH.
func FindChrome(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if p := os.Getenv("CHROME_PATH"); p != "" {
		return p, nil
	}
	for _, name := range chromeCandidates {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", ErrBrowserUnavailable
}

// NewBrowserFetcher starts an allocator for headless Chrome. It returns
// ErrBrowserUnavailable when no binary is installed.
func NewBrowserFetcher(cfg BrowserConfig, log logger.Logger) (*BrowserFetcher, error) {
	execPath, err := FindChrome(cfg.ExecPath)
	if err != nil {
		return nil, err
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavigationTimeout
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(execPath),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	log.Info("Headless browser configured", logger.String("exec_path", execPath))

	return &BrowserFetcher{
		cfg:         cfg,
		log:         log,
		allocCtx:    allocCtx,
		allocCancel: cancel,
	}, nil
}

// Fetch implements Fetcher.
func (b *BrowserFetcher) Fetch(ctx context.Context, pageURL string) (*extract.Document, error) {
	if isHeavyURL(pageURL) {
		return nil, ErrSkippedResource
	}

	tabCtx, cancelTab := chromedp.NewContext(b.allocCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.cfg.NavigationTimeout)
	defer cancelTimeout()

	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var html, location string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if tabCtx.Err() != nil && ctx.Err() == nil {
			err = ErrNavigationTimeout
		}
		return nil, fmt.Errorf("render %s: %w", pageURL, asNavigationError(err))
	}

	if location == "" {
		location = pageURL
	}

	doc, err := extract.ParseDocument(location, []byte(html))
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", pageURL, err)
	}
	return doc, nil
}

// Close shuts the browser down.
func (b *BrowserFetcher) Close() {
	b.closeOnce.Do(b.allocCancel)
}
