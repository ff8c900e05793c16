package extract_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/extract"
)

const teamPageHTML = `<!DOCTYPE html>
<html>
<head>
  <title> Acme Bio | Leadership </title>
  <meta name="description" content="Liver-on-chip models for preclinical safety.">
  <meta property="og:title" content="Acme Bio">
  <meta property="og:description" content="We build organ-on-chip systems.">
  <script type="application/ld+json">
  {"@context":"https://schema.org","@type":"Organization","name":"Acme Bio",
   "employee":[{"@type":"Person","name":"Jane Doe","jobTitle":"Director of Toxicology",
     "worksFor":{"name":"Acme Bio"},"email":"jane@acmebio.com","telephone":"+1 617 555 0100",
     "sameAs":["https://twitter.com/janedoe","https://www.linkedin.com/in/jane-doe"]}]}
  </script>
  <script>var tracker = "noise@sentry.io";</script>
</head>
<body>
  <h1>Our Leadership</h1>
  <p>Headquarters in Cambridge, MA. Contact info@acmebio.com or 617-555-0199.</p>
  <p>Placeholder user@example.com should be ignored.</p>
  <a href="https://www.linkedin.com/in/jane-doe">Jane Doe</a>
  <a href="https://www.linkedin.com/company/acme-bio">Acme on LinkedIn</a>
  <a href="https://www.linkedin.com/feed/">Feed</a>
  <a href="/team/john-smith">John Smith</a>
</body>
</html>`

func TestEmails(t *testing.T) {
	text := "a@corp.io b@example.com c@sentry.io a@corp.io d@w3.org e@lab.org"
	assert.Equal(t, []string{"a@corp.io", "e@lab.org"}, extract.Emails(text, 10))
	assert.Equal(t, []string{"a@corp.io"}, extract.Emails(text, 1))
	assert.Empty(t, extract.Emails("", 5))
}

func TestPhones(t *testing.T) {
	got := extract.Phones("Call 617-555-0199 or +44 20 7946 0958, ext 12-34.", 5)
	assert.Contains(t, got, "617-555-0199")
	for _, p := range got {
		digits := 0
		for _, r := range p {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		assert.GreaterOrEqual(t, digits, 7, p)
	}
}

func TestDeepPhones_RejectsShortNumbers(t *testing.T) {
	got := extract.DeepPhones("Room 1234 and phone (617) 555-0100", 10)
	assert.NotContains(t, got, "1234")
	require.NotEmpty(t, got)
}

func TestPeopleFromJSONLD(t *testing.T) {
	blocks := []string{
		`not json`,
		`{"@graph":[
			{"@type":["Person"],"name":"A One","job_title":"VP Safety",
			 "worksFor":[{"url":"x"},{"name":"Beta Labs"}],"phone":"555-0100","same_as":"https://www.linkedin.com/in/a-one"},
			{"@type":"Organization","name":"Beta Labs"}
		]}`,
	}

	people := extract.PeopleFromJSONLD(blocks)
	require.Len(t, people, 1)
	p := people[0]
	assert.Equal(t, "A One", p.Name)
	assert.Equal(t, "VP Safety", p.Title)
	assert.Equal(t, "Beta Labs", p.Company)
	assert.Equal(t, "555-0100", p.Phone)
	assert.Equal(t, "https://www.linkedin.com/in/a-one", p.ProfileURL)
	assert.Equal(t, p.ProfileURL, p.LinkedInURL)
}

func TestPeopleFromJSONLD_DeepNesting(t *testing.T) {
	depth := 5000
	doc := strings.Repeat(`{"child":`, depth) + `{"@type":"Person","name":"Deep Person"}` + strings.Repeat(`}`, depth)

	people := extract.PeopleFromJSONLD([]string{doc})
	require.Len(t, people, 1)
	assert.Equal(t, "Deep Person", people[0].Name)
}

func TestParseDocument(t *testing.T) {
	doc, err := extract.ParseDocument("https://acmebio.com/leadership", []byte(teamPageHTML))
	require.NoError(t, err)

	assert.Equal(t, "Acme Bio | Leadership", doc.Title)
	assert.Len(t, doc.JSONLD, 1)
	assert.Len(t, doc.Anchors, 4)
	assert.Equal(t, extract.Anchor{Href: "/team/john-smith", Text: "John Smith"}, doc.Anchors[3])
	assert.Contains(t, doc.BodyText, "Headquarters in Cambridge, MA.")
	assert.NotContains(t, doc.BodyText, "tracker")
}

func TestScrapePage(t *testing.T) {
	page, err := extract.ScrapePage("https://acmebio.com/leadership", []byte(teamPageHTML))
	require.NoError(t, err)

	assert.Equal(t, "https://acmebio.com/leadership", page.URL)
	assert.Equal(t, "Acme Bio | Leadership", page.Title)
	assert.Contains(t, page.Emails, "info@acmebio.com")
	assert.Contains(t, page.Emails, "jane@acmebio.com")
	assert.NotContains(t, page.Emails, "user@example.com")
	assert.NotContains(t, page.Emails, "noise@sentry.io")
	assert.LessOrEqual(t, len(page.Emails), 5)
	assert.Contains(t, page.Phones, "617-555-0199")
	assert.Equal(t, []string{
		"https://www.linkedin.com/in/jane-doe",
		"https://www.linkedin.com/company/acme-bio",
	}, page.LinkedInURLs)
	assert.Equal(t, "Liver-on-chip models for preclinical safety.", page.CompanyInfo.MetaDescription)
	assert.Equal(t, "Acme Bio", page.CompanyInfo.OGTitle)
	assert.Equal(t, "We build organ-on-chip systems.", page.CompanyInfo.OGDescription)
	assert.Contains(t, page.TextContent, "Our Leadership")
	assert.NotEmpty(t, page.Location)
	assert.LessOrEqual(t, len(page.Location), 3)
}

func TestLocationSnippets(t *testing.T) {
	text := strings.Repeat("x", 80) + "Headquarters: Basel" + strings.Repeat("y", 200)
	got := extract.LocationSnippets(text)
	require.Len(t, got, 1)
	assert.True(t, strings.HasPrefix(got[0], strings.Repeat("x", 50)+"Headquarters"))
	assert.Len(t, []rune(got[0]), 150)
}

func TestIsBusinessEmail(t *testing.T) {
	assert.True(t, extract.IsBusinessEmail("jane@acmebio.com"))
	assert.False(t, extract.IsBusinessEmail("jane@gmail.com"))
	assert.False(t, extract.IsBusinessEmail("not-an-email"))
}
