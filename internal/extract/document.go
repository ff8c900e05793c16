package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Anchor is one <a href> with its visible text.
type Anchor struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// Document is the parsed view of a page the crawler works from.
type Document struct {
	URL      string
	Title    string
	BodyText string
	Anchors  []Anchor
	JSONLD   []string
	HTML     []byte
}

const invisibleSelectors = "script, style, noscript, template"

// ParseDocument extracts title, visible body text, anchors and JSON-LD
// blocks from an HTML page.
func ParseDocument(pageURL string, body []byte) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	out := &Document{
		URL:   pageURL,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		HTML:  body,
	}

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		out.JSONLD = append(out.JSONLD, s.Text())
	})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		out.Anchors = append(out.Anchors, Anchor{
			Href: href,
			Text: collapseSpace(s.Text()),
		})
	})

	bodySel := doc.Find("body").First()
	bodySel.Find(invisibleSelectors).Remove()
	out.BodyText = collapseSpace(bodySel.Text())

	return out, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
