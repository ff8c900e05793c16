// Package extract pulls contact signals, person records and page summaries
// out of raw text and HTML. Everything here is a pure function of its input.
package extract

import (
	"regexp"
	"strings"
)

// Caps applied by callers that follow the shallow and deep crawl paths.
const (
	PageContactLimit = 5
	DeepContactLimit = 10
	minPhoneDigits   = 7
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\+?1?[-.]?\(?\d{3}\)?[-.]?\d{3}[-.]?\d{4}`),
		regexp.MustCompile(`\+\d{1,3}[-.]?\d{1,4}[-.]?\d{1,4}[-.]?\d{1,9}`),
	}

	deepPhoneRe = regexp.MustCompile(
		`(?:(?:\+?\d{1,3}[\s.-]?)?(?:\(\d{2,4}\)|\d{2,4})[\s.-]?)?\d{3,4}[\s.-]?\d{3,4}`,
	)

	placeholderEmailDomains = []string{"example.com", "sentry.io", "w3.org"}
)

// Emails returns up to limit distinct email-shaped tokens in text order,
// skipping placeholder domains.
func Emails(text string, limit int) []string {
	if text == "" {
		return []string{}
	}

	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, m := range emailRe.FindAllString(text, -1) {
		if isPlaceholderEmail(m) {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Phones applies the domestic and international patterns and keeps matches
// with at least seven digits.
func Phones(text string, limit int) []string {
	var matches []string
	for _, re := range phonePatterns {
		matches = append(matches, re.FindAllString(text, -1)...)
	}
	return filterPhones(matches, limit)
}

// DeepPhones uses the looser grouping pattern of the deep crawl.
func DeepPhones(text string, limit int) []string {
	return filterPhones(deepPhoneRe.FindAllString(text, -1), limit)
}

func filterPhones(matches []string, limit int) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, m := range matches {
		m = strings.TrimSpace(m)
		if m == "" || digitCount(m) < minPhoneDigits {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func isPlaceholderEmail(email string) bool {
	lower := strings.ToLower(email)
	for _, d := range placeholderEmailDomains {
		if strings.Contains(lower, d) {
			return true
		}
	}
	return false
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// IsBusinessEmail reports whether email is not on a free consumer domain.
func IsBusinessEmail(email string) bool {
	if !strings.Contains(email, "@") {
		return false
	}
	lower := strings.ToLower(email)
	for _, free := range []string{"gmail", "yahoo", "hotmail"} {
		if strings.Contains(lower, free) {
			return false
		}
	}
	return true
}
