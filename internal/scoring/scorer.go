// Package scoring ranks a lead's propensity to buy on a 0-100 scale.
package scoring

import (
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/extract"
)

// MaxScore is the global cap.
const MaxScore = 100

const (
	profileBonus  = 5
	businessBonus = 5
)

// category is one independently capped signal group.
type category struct {
	keywords []string
	weight   int
	limit    int
	matcher  *ahocorasick.Matcher
}

func newCategory(weight, limit int, keywords ...string) *category {
	return &category{
		keywords: keywords,
		weight:   weight,
		limit:    limit,
		matcher:  ahocorasick.NewStringMatcher(keywords),
	}
}

// score counts each distinct keyword found in text once.
func (c *category) score(text string) int {
	if text == "" {
		return 0
	}
	hits := c.matcher.MatchThreadSafe([]byte(text))
	return min(len(hits)*c.weight, c.limit)
}

func (c *category) contains(text string) bool {
	return text != "" && c.matcher.Contains([]byte(text))
}

// Record is the scorer's view of a lead candidate.
type Record struct {
	Text         string
	Title        string
	ProfileLinks []string
	Emails       []string
}

// Context carries structured attributes that saturate their category when
// present.
type Context struct {
	JobTitle             string `json:"job_title"              mapstructure:"job_title"`
	FundingSeries        string `json:"funding_series"         mapstructure:"funding_series"`
	PublishedRecentPaper bool   `json:"published_recent_paper" mapstructure:"published_recent_paper"`
	Location             string `json:"location"               mapstructure:"location"`
}

// Breakdown is the per-category result before the global cap.
type Breakdown struct {
	Role       int `json:"role"`
	Company    int `json:"company"`
	Technology int `json:"technology"`
	Location   int `json:"location"`
	Science    int `json:"science"`
	Bonus      int `json:"bonus"`
}

// Total sums the categories and applies the global cap.
func (b Breakdown) Total() int {
	sum := b.Role + b.Company + b.Technology + b.Location + b.Science + b.Bonus
	return max(0, min(sum, MaxScore))
}

// Scorer holds compiled keyword matchers. It is safe for concurrent use.
type Scorer struct {
	role       *category
	company    *category
	technology *category
	location   *category
	science    *category
}

// New compiles the keyword sets.
func New() *Scorer {
	return &Scorer{
		role: newCategory(5, 30,
			"toxicology", "safety", "hepatic", "3d", "preclinical",
			"drug development", "director", "head of", "vp", "chief"),
		company: newCategory(5, 20,
			"series a", "series b", "funding", "raised", "investment", "ipo"),
		technology: newCategory(5, 15,
			"in vitro", "3d model", "organ-on-chip", "spheroid", "new approach methodologies"),
		location: newCategory(5, 10,
			"boston", "cambridge", "bay area", "basel", "san francisco", "uk"),
		science: newCategory(8, 40,
			"publication", "published", "research", "dili", "liver injury", "toxicity"),
	}
}

// Score returns the rank of r in [0, 100]. ctx may be nil.
func (s *Scorer) Score(r Record, ctx *Context) int {
	return s.Explain(r, ctx).Total()
}

// Explain returns the per-category scores for r.
func (s *Scorer) Explain(r Record, ctx *Context) Breakdown {
	text := strings.ToLower(r.Text)
	title := strings.ToLower(r.Title)

	b := Breakdown{
		Role:       s.role.score(title + "\n" + text),
		Company:    s.company.score(text),
		Technology: s.technology.score(text),
		Location:   s.location.score(text),
		Science:    s.science.score(text),
	}

	if ctx != nil {
		if s.role.contains(strings.ToLower(ctx.JobTitle)) {
			b.Role = s.role.limit
		}
		if isEarlyFunding(ctx.FundingSeries) {
			b.Company = s.company.limit
		}
		if ctx.PublishedRecentPaper {
			b.Science = s.science.limit
		}
		if s.location.contains(strings.ToLower(ctx.Location)) {
			b.Location = s.location.limit
		}
	}

	if len(r.ProfileLinks) > 0 {
		b.Bonus += profileBonus
	}
	if hasBusinessEmail(r.Emails) {
		b.Bonus += businessBonus
	}
	return b
}

// isEarlyFunding accepts "A", "B", "Series A" and "series b".
func isEarlyFunding(series string) bool {
	s := strings.TrimSpace(strings.ToLower(series))
	s = strings.TrimSpace(strings.TrimPrefix(s, "series"))
	return s == "a" || s == "b"
}

func hasBusinessEmail(emails []string) bool {
	for _, e := range emails {
		if extract.IsBusinessEmail(e) {
			return true
		}
	}
	return false
}
