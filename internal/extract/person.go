package extract

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/profile"
)

// PersonRecord is one candidate person found on a crawled page.
type PersonRecord struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	ProfileURL  string `json:"profile_url"`
	LinkedInURL string `json:"linkedin_url"`

	// Page metadata attached by the crawler.
	PageURL    string   `json:"page_url,omitempty"`
	SourceURL  string   `json:"source_url,omitempty"`
	PageTitle  string   `json:"page_title,omitempty"`
	PageEmails []string `json:"page_emails,omitempty"`
	PagePhones []string `json:"page_phones,omitempty"`
	PageText   string   `json:"page_text,omitempty"`

	// ConfidenceScore is the classifier score when the record came from a
	// profile-shaped anchor.
	ConfidenceScore int `json:"confidence_score,omitempty"`
}

// PeopleFromJSONLD returns a record for every Person-typed object in the
// given JSON-LD blocks. Blocks that do not parse are skipped.
func PeopleFromJSONLD(blocks []string) []PersonRecord {
	people := make([]PersonRecord, 0)
	for _, raw := range blocks {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		var doc any
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			continue
		}
		for _, obj := range objects(doc) {
			if profile.IsPersonTyped(obj) {
				people = append(people, personFromObject(obj))
			}
		}
	}
	return people
}

// objects lists every JSON object in doc in pre-order. Object keys are
// visited in sorted order so the result is deterministic.
func objects(doc any) []map[string]any {
	var out []map[string]any
	stack := []any{doc}
	for len(stack) > 0 {
		n := len(stack) - 1
		node := stack[n]
		stack = stack[:n]

		switch v := node.(type) {
		case map[string]any:
			out = append(out, v)
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Sort(sort.Reverse(sort.StringSlice(keys)))
			for _, k := range keys {
				stack = append(stack, v[k])
			}
		case []any:
			for i := len(v) - 1; i >= 0; i-- {
				stack = append(stack, v[i])
			}
		}
	}
	return out
}

func personFromObject(obj map[string]any) PersonRecord {
	profileURL := ""
	for _, s := range stringList(firstPresent(obj, "sameAs", "same_as")) {
		if strings.Contains(s, "linkedin.com/in/") {
			profileURL = s
			break
		}
	}

	return PersonRecord{
		Name:        scalar(obj["name"]),
		Title:       scalar(firstPresent(obj, "jobTitle", "job_title")),
		Company:     employer(obj["worksFor"]),
		Email:       scalar(obj["email"]),
		Phone:       scalar(firstPresent(obj, "telephone", "phone")),
		ProfileURL:  profileURL,
		LinkedInURL: profileURL,
	}
}

func employer(v any) string {
	switch w := v.(type) {
	case map[string]any:
		return scalar(w["name"])
	case []any:
		for _, item := range w {
			if m, ok := item.(map[string]any); ok {
				if name := scalar(m["name"]); name != "" {
					return name
				}
			}
		}
	}
	return ""
}

// firstPresent returns the first key whose value is non-empty.
func firstPresent(obj map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil && v != "" {
			return v
		}
	}
	return nil
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64, bool:
		return fmt.Sprint(t)
	}
	return ""
}

func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
