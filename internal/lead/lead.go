// Package lead turns scraped pages and crawled people into ranked
// LeadRecords.
package lead

import (
	"errors"
	"strings"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/extract"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/profile"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/scoring"
)

// NoDataMessage is the error marker on a record built from empty input.
const NoDataMessage = "No data to process"

// ErrNoData is returned by Validate for an empty page.
var ErrNoData = errors.New("no data to process")

// LeadRecord is the externally visible unit of a run.
type LeadRecord struct {
	Email       string   `json:"email"`
	Phone       string   `json:"phone"`
	LinkedInURL string   `json:"linkedin_url"`
	LocationHQ  string   `json:"location_hq"`
	Rank        int      `json:"rank"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	AllEmails   []string `json:"all_emails"`
	AllPhones   []string `json:"all_phones"`
	AllLinkedIn []string `json:"all_linkedin"`

	Name      string `json:"name,omitempty"`
	Company   string `json:"company,omitempty"`
	SourceURL string `json:"source_url,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Processor scores pages and people into LeadRecords.
type Processor struct {
	scorer *scoring.Scorer
}

// NewProcessor returns a processor using scorer, or a fresh one when nil.
func NewProcessor(scorer *scoring.Scorer) *Processor {
	if scorer == nil {
		scorer = scoring.New()
	}
	return &Processor{scorer: scorer}
}

// Validate returns ErrNoData when page carries nothing to process.
func Validate(page *extract.ScrapedPage) error {
	if page == nil {
		return ErrNoData
	}
	empty := page.URL == "" && page.Title == "" && page.TextContent == "" &&
		len(page.Emails) == 0 && len(page.Phones) == 0 &&
		len(page.LinkedInURLs) == 0 && len(page.Location) == 0 &&
		page.CompanyInfo == (extract.CompanyInfo{})
	if empty {
		return ErrNoData
	}
	return nil
}

// Process ranks one scraped page. Empty input yields a zero-rank record
// carrying NoDataMessage.
func (p *Processor) Process(page *extract.ScrapedPage, ctx *scoring.Context) LeadRecord {
	if err := Validate(page); err != nil {
		return Failed(NoDataMessage)
	}

	links := nonNil(page.LinkedInURLs)
	rec := LeadRecord{
		Email:       first(page.Emails),
		Phone:       first(page.Phones),
		LinkedInURL: bestProfileLink(page.URL, links),
		LocationHQ:  first(page.Location),
		Title:       page.Title,
		URL:         page.URL,
		AllEmails:   nonNil(page.Emails),
		AllPhones:   nonNil(page.Phones),
		AllLinkedIn: links,
	}
	rec.Rank = p.scorer.Score(scoring.Record{
		Text:         page.TextContent,
		Title:        page.Title,
		ProfileLinks: links,
		Emails:       page.Emails,
	}, ctx)
	return rec
}

// FromPerson converts a deep-crawl person into a LeadRecord. Page-level
// contacts fill in when the person has none of their own.
func (p *Processor) FromPerson(person extract.PersonRecord, ctx *scoring.Context) LeadRecord {
	var links []string
	for _, l := range []string{person.LinkedInURL, person.ProfileURL} {
		if l != "" && !contains(links, l) {
			links = append(links, l)
		}
	}

	page := &extract.ScrapedPage{
		URL:          firstNonEmpty(person.ProfileURL, person.LinkedInURL, person.PageURL),
		Title:        joinNonEmpty(" - ", person.Name, person.Title),
		Emails:       prependUnique(person.Email, person.PageEmails),
		Phones:       prependUnique(person.Phone, person.PagePhones),
		LinkedInURLs: links,
		Location:     extract.LocationSnippets(person.PageText),
		TextContent:  joinNonEmpty("\n", person.Title, person.Company, person.PageText),
	}

	rec := p.Process(page, ctx)
	rec.Name = person.Name
	rec.Company = person.Company
	rec.SourceURL = firstNonEmpty(person.SourceURL, person.PageURL)
	return rec
}

// Failed returns a zero-rank record carrying msg.
func Failed(msg string) LeadRecord {
	return LeadRecord{
		AllEmails:   []string{},
		AllPhones:   []string{},
		AllLinkedIn: []string{},
		Error:       msg,
	}
}

// IsProfileLike reports whether the lead's URL or any of its profile links
// is classified as a person profile.
func IsProfileLike(l LeadRecord) bool {
	if l.Error != "" {
		return false
	}
	candidates := append([]string{l.URL, l.LinkedInURL}, l.AllLinkedIn...)
	for _, c := range candidates {
		if c != "" && profile.IsProfileURL(c) {
			return true
		}
	}
	return false
}

// Key is the case-insensitive url|linkedin_url|email identity of a lead.
func Key(l LeadRecord) string {
	return strings.ToLower(l.URL) + "|" + strings.ToLower(l.LinkedInURL) + "|" + strings.ToLower(l.Email)
}

// Dedupe drops later records with the same Key.
func Dedupe(leads []LeadRecord) []LeadRecord {
	seen := make(map[string]struct{}, len(leads))
	out := make([]LeadRecord, 0, len(leads))
	for _, l := range leads {
		key := Key(l)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}

// bestProfileLink prefers the page itself when it is a profile, then an
// individual /in/ link, then the first link.
func bestProfileLink(pageURL string, links []string) string {
	if pageURL != "" && profile.IsProfileURL(pageURL) {
		return pageURL
	}
	for _, l := range links {
		if strings.Contains(strings.ToLower(l), "/in/") {
			return l
		}
	}
	return first(links)
}

func first(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func joinNonEmpty(sep string, vals ...string) string {
	parts := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, sep)
}

func prependUnique(v string, rest []string) []string {
	out := make([]string, 0, len(rest)+1)
	if v != "" {
		out = append(out, v)
	}
	for _, r := range rest {
		if r != "" && !contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}
