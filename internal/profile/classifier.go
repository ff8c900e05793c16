// Package profile decides whether a URL, optionally with page content,
// represents a single person's profile page.
package profile

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Threshold is the score at which a page counts as a profile.
const Threshold = 60

// Signal weights.
const (
	weightLinkedInProfile  = 60
	weightLinkedInLegacy   = 50
	weightORCID            = 60
	weightResearchGate     = 55
	weightScholar          = 55
	weightPubMedAuthor     = 60
	weightPersonPathToken  = 20
	weightAuthorToken      = 10
	weightNameNearTop      = 10
	weightEmailInText      = 10
	weightPersonStructured = 40

	nameWindow = 200
)

var (
	orcidRe = regexp.MustCompile(`orcid\.org/\d{4}-\d{4}-\d{4}-[\dX]{4}`)
	nameRe  = regexp.MustCompile(`\b[A-Z][a-z]+\s+[A-Z][a-z]+\b`)

	personPathTokens = []string{"/people/", "/person/", "/staff/", "/team/", "/profile/", "/users/", "/~"}
	authorTokens     = []string{"/author", "?author=", "&author="}
)

// Classify scores rawURL and any supplied page text and JSON-LD blocks.
// It reports true when the score reaches Threshold. URL-only calls are
// valid and use only the URL signals.
func Classify(rawURL, pageText string, jsonld []string) (bool, int) {
	if rawURL == "" {
		return false, 0
	}

	score := URLScore(rawURL)

	if pageText != "" {
		if nameRe.MatchString(headRunes(pageText, nameWindow)) {
			score += weightNameNearTop
		}
		if strings.Contains(pageText, "mailto:") || strings.Contains(pageText, "@") {
			score += weightEmailInText
		}
	}

	if HasPersonType(jsonld) {
		score += weightPersonStructured
	}

	return score >= Threshold, score
}

// IsProfileURL classifies rawURL alone.
func IsProfileURL(rawURL string) bool {
	ok, _ := Classify(rawURL, "", nil)
	return ok
}

// URLScore sums the URL-only signals.
func URLScore(rawURL string) int {
	u := strings.ToLower(rawURL)
	score := 0

	if strings.Contains(u, "linkedin.com/in/") || (strings.Contains(u, "/in/") && strings.Contains(u, "linkedin.com")) {
		score += weightLinkedInProfile
	}
	if strings.Contains(u, "linkedin.com/pub/") || strings.Contains(u, "linkedin.com/profile/view") {
		score += weightLinkedInLegacy
	}
	if orcidRe.MatchString(u) {
		score += weightORCID
	}
	if strings.Contains(u, "researchgate.net/profile/") {
		score += weightResearchGate
	}
	if strings.Contains(u, "scholar.google.com/citations") {
		score += weightScholar
	}
	if strings.Contains(u, "pubmed.ncbi.nlm.nih.gov/?term=") {
		score += weightPubMedAuthor
	}
	if containsAny(u, personPathTokens) {
		score += weightPersonPathToken
	}
	if containsAny(u, authorTokens) {
		score += weightAuthorToken
	}

	return score
}

// HasPersonType reports whether any JSON-LD block contains an object
// typed Person. Unparseable blocks are skipped.
func HasPersonType(blocks []string) bool {
	for _, raw := range blocks {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		var doc any
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			continue
		}
		if containsPerson(doc) {
			return true
		}
	}
	return false
}

// containsPerson walks doc with an explicit stack so deeply nested input
// cannot grow the goroutine stack.
func containsPerson(doc any) bool {
	stack := []any{doc}
	for len(stack) > 0 {
		n := len(stack) - 1
		node := stack[n]
		stack = stack[:n]

		switch v := node.(type) {
		case map[string]any:
			if IsPersonTyped(v) {
				return true
			}
			for _, child := range v {
				stack = append(stack, child)
			}
		case []any:
			stack = append(stack, v...)
		}
	}
	return false
}

// IsPersonTyped reports whether obj's @type (or type) is Person, either as a
// scalar or as one entry of a list.
func IsPersonTyped(obj map[string]any) bool {
	t, ok := obj["@type"]
	if !ok || isEmpty(t) {
		t = obj["type"]
	}

	switch v := t.(type) {
	case string:
		return strings.EqualFold(v, "person")
	case []any:
		for _, item := range v {
			if s, isString := item.(string); isString && strings.EqualFold(s, "person") {
				return true
			}
		}
	}
	return false
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	}
	return false
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func headRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
