package search

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Known source hosts.
const (
	PubMedHost   = "pubmed.ncbi.nlm.nih.gov"
	LinkedInHost = "linkedin.com"
)

// DefaultSources is used when a caller asks for "all" sources.
var DefaultSources = []string{PubMedHost, LinkedInHost}

// ParseDomains splits the comma-separated stream parameter. An empty value
// or "all" selects defaults.
func ParseDomains(param string, defaults []string) []string {
	param = strings.TrimSpace(param)
	if param == "" || strings.EqualFold(param, "all") {
		return append([]string(nil), defaults...)
	}

	out := make([]string, 0)
	for _, p := range strings.Split(param, ",") {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		if strings.EqualFold(p, "all") {
			out = append(out, defaults...)
			continue
		}
		out = append(out, p)
	}
	return out
}

// NormalizeSources expands shorthands, strips scheme and "www.", lower-cases
// and dedupes in order. Values with no registrable domain are dropped.
func NormalizeSources(sources []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(sources))

	for _, s := range sources {
		host := normalizeSource(s)
		if host == "" {
			continue
		}
		if _, err := publicsuffix.EffectiveTLDPlusOne(host); err != nil {
			continue
		}
		if _, dup := seen[host]; dup {
			continue
		}
		seen[host] = struct{}{}
		out = append(out, host)
	}
	return out
}

func normalizeSource(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if !strings.Contains(s, ".") {
		switch {
		case strings.Contains(s, "linkedin"):
			s = LinkedInHost
		case strings.Contains(s, "pubmed"), strings.Contains(s, "ncbi"):
			s = PubMedHost
		}
	}

	raw := s
	if !strings.Contains(raw, "//") {
		raw = "//" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// hostMatches reports whether rawURL's host is host or a subdomain of it.
func hostMatches(rawURL, host string) bool {
	u, err := url.Parse(strings.ToLower(rawURL))
	if err != nil {
		return false
	}
	h := strings.TrimPrefix(u.Hostname(), "www.")
	return h == host || strings.HasSuffix(h, "."+host)
}

// siteQueries returns the per-host queries for inject mode.
func siteQueries(query, host string, focusPeople bool) []string {
	prefix := ""
	if query != "" {
		prefix = query + " "
	}
	if focusPeople {
		switch {
		case strings.Contains(host, "pubmed") || strings.Contains(host, "ncbi"):
			return []string{prefix + "site:" + host + " author"}
		case strings.Contains(host, "linkedin"):
			return []string{
				prefix + "site:" + host + "/in/",
				prefix + "site:" + host + "/pub/",
			}
		}
	}
	return []string{prefix + "site:" + host}
}
