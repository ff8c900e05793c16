package extract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxLinkedInLinks    = 5
	maxLocationSnippets = 3
	maxTextContent      = 1000
	snippetBefore       = 50
	snippetAfter        = 100
)

var locationKeywords = []string{"headquarters", "hq", "location", "office", "address", "based in"}

// CompanyInfo holds page-level meta tags.
type CompanyInfo struct {
	MetaDescription string `json:"meta_description"     mapstructure:"meta_description"`
	OGTitle         string `json:"og_title"             mapstructure:"og_title"`
	OGDescription   string `json:"og_description"       mapstructure:"og_description"`
}

// ScrapedPage is the shallow summary of one fetched page.
type ScrapedPage struct {
	URL          string      `json:"url"           mapstructure:"url"`
	Title        string      `json:"title"         mapstructure:"title"`
	Emails       []string    `json:"emails"        mapstructure:"emails"`
	Phones       []string    `json:"phones"        mapstructure:"phones"`
	LinkedInURLs []string    `json:"linkedin_urls" mapstructure:"linkedin_urls"`
	Location     []string    `json:"location"      mapstructure:"location"`
	CompanyInfo  CompanyInfo `json:"company_info"  mapstructure:"company_info"`
	TextContent  string      `json:"text_content"  mapstructure:"text_content"`
}

// ScrapePage builds a ScrapedPage from raw HTML. Emails, phones and
// location snippets are taken from the raw markup.
func ScrapePage(pageURL string, body []byte) (*ScrapedPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	raw := string(body)

	return &ScrapedPage{
		URL:          pageURL,
		Title:        strings.TrimSpace(doc.Find("title").First().Text()),
		Emails:       Emails(raw, PageContactLimit),
		Phones:       Phones(raw, PageContactLimit),
		LinkedInURLs: linkedInLinks(doc),
		Location:     LocationSnippets(raw),
		CompanyInfo: CompanyInfo{
			MetaDescription: metaContent(doc, `meta[name="description"]`),
			OGTitle:         metaContent(doc, `meta[property="og:title"]`),
			OGDescription:   metaContent(doc, `meta[property="og:description"]`),
		},
		TextContent: textContent(doc),
	}, nil
}

func linkedInLinks(doc *goquery.Document) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	doc.Find(`a[href*="linkedin.com"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if !strings.Contains(href, "/in/") && !strings.Contains(href, "/company/") {
			return true
		}
		if _, dup := seen[href]; dup {
			return true
		}
		seen[href] = struct{}{}
		out = append(out, href)
		return len(out) < maxLinkedInLinks
	})
	return out
}

// LocationSnippets returns, for each location keyword present in text, the
// surrounding window of its first occurrence.
func LocationSnippets(text string) []string {
	runes := []rune(text)
	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}
	lowered := string(lower)

	out := make([]string, 0)
	for _, kw := range locationKeywords {
		byteIdx := strings.Index(lowered, kw)
		if byteIdx < 0 {
			continue
		}
		idx := len([]rune(lowered[:byteIdx]))
		start := max(0, idx-snippetBefore)
		end := min(len(runes), idx+snippetAfter)
		out = append(out, strings.TrimSpace(string(runes[start:end])))
		if len(out) >= maxLocationSnippets {
			break
		}
	}
	return out
}

func metaContent(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return v
}

// textContent joins the direct text of paragraphs and top-level headings.
func textContent(doc *goquery.Document) string {
	var parts []string
	doc.Find("p, h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) == "#text" {
				parts = append(parts, c.Text())
			}
		})
	})
	return truncateRunes(strings.Join(parts, " "), maxTextContent)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
