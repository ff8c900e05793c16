// Package frontier normalizes crawl URLs and holds the per-run BFS queue.
// Two links that normalize to the same string are the same frontier node.
package frontier

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

var (
	// ErrEmptyURL is returned for blank hrefs.
	ErrEmptyURL = errors.New("normalize url: empty input")
	// ErrSkippedLink is returned for fragment-only and pseudo-protocol links.
	ErrSkippedLink = errors.New("normalize url: link not crawlable")
	// ErrUnsupportedScheme is returned when the resolved URL is not http(s).
	ErrUnsupportedScheme = errors.New("normalize url: unsupported scheme")
)

var skippedPrefixes = []string{"mailto:", "tel:", "javascript:"}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// directoryTokens mark people-directory paths that are crawled first.
var directoryTokens = []string{"/team", "/people", "/leadership", "/about", "/our-team", "/staff", "/management"}

// Normalize resolves href against base, drops the fragment and the default
// port for the scheme, and rejects anything that is not http or https.
func Normalize(base, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", ErrEmptyURL
	}
	if strings.HasPrefix(href, "#") {
		return "", ErrSkippedLink
	}

	lowered := strings.ToLower(href)
	for _, p := range skippedPrefixes {
		if strings.HasPrefix(lowered, p) {
			return "", ErrSkippedLink
		}
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("normalize url: %w", err)
	}

	resolved := ref
	if base != "" {
		baseURL, baseErr := url.Parse(base)
		if baseErr != nil {
			return "", fmt.Errorf("normalize url: base: %w", baseErr)
		}
		resolved = baseURL.ResolveReference(ref)
	}

	resolved.Fragment = ""
	resolved.RawFragment = ""

	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", ErrUnsupportedScheme
	}
	if resolved.Host == "" {
		return "", ErrUnsupportedScheme
	}

	host := strings.ToLower(resolved.Hostname())
	if port := resolved.Port(); port != "" && port != defaultPorts[resolved.Scheme] {
		host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	resolved.Host = host

	return resolved.String(), nil
}

// Hostname returns the lower-cased host of rawURL without port.
func Hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// SameDomain compares the hosts of a and b with any "www." removed.
func SameDomain(a, b string) bool {
	ah := strings.ReplaceAll(Hostname(a), "www.", "")
	bh := strings.ReplaceAll(Hostname(b), "www.", "")
	return ah != "" && ah == bh
}

// IsPeopleDirectory reports whether the URL path looks like a team or
// leadership listing.
func IsPeopleDirectory(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	p := strings.ToLower(u.Path)
	for _, t := range directoryTokens {
		if strings.Contains(p, t) {
			return true
		}
	}
	return false
}
