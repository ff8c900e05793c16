// Package crawler runs the bounded breadth-first crawl that harvests person
// records from a site. Page loading sits behind the Fetcher interface so the
// engine (plain HTTP or headless browser) is chosen at startup.
package crawler

import (
	"context"
	"errors"
	"net"
	"net/url"
	"path"
	"strings"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/extract"
)

var (
	// ErrNavigationTimeout marks a page that did not load within the
	// navigation timeout.
	ErrNavigationTimeout = errors.New("navigation timeout")
	// ErrBrowserUnavailable is returned when no Chrome binary can be found.
	ErrBrowserUnavailable = errors.New("headless browser not available")
	// ErrSkippedResource is returned for images, media and fonts.
	ErrSkippedResource = errors.New("skipped heavy resource")
	// ErrDisallowed is returned when robots.txt forbids the URL.
	ErrDisallowed = errors.New("disallowed by robots.txt")
)

// Fetcher loads one page and returns its parsed document.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*extract.Document, error)
}

var heavyExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {}, ".svg": {}, ".ico": {}, ".bmp": {},
	".mp3": {}, ".mp4": {}, ".webm": {}, ".avi": {}, ".mov": {}, ".wav": {}, ".ogg": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".otf": {}, ".eot": {},
}

var heavyContentTypes = []string{"image/", "audio/", "video/", "font/", "application/font"}

// isHeavyURL reports whether the URL path names an image, media or font file.
func isHeavyURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	_, heavy := heavyExtensions[strings.ToLower(path.Ext(u.Path))]
	return heavy
}

func isHeavyContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	for _, prefix := range heavyContentTypes {
		if strings.HasPrefix(ct, prefix) {
			return true
		}
	}
	return false
}

// asNavigationError folds deadline and network timeouts into
// ErrNavigationTimeout.
func asNavigationError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNavigationTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrNavigationTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrNavigationTimeout
	}
	return err
}
