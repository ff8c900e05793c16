package search_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/search"
)

func TestNormalizeSources(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "shorthands", in: []string{"pubmed", "LinkedIn"}, want: []string{search.PubMedHost, search.LinkedInHost}},
		{name: "ncbi shorthand", in: []string{"ncbi"}, want: []string{search.PubMedHost}},
		{name: "scheme and www stripped", in: []string{"https://www.Acme.bio/about"}, want: []string{"acme.bio"}},
		{name: "dedupe keeps order", in: []string{"b.org", "a.org", "www.b.org"}, want: []string{"b.org", "a.org"}},
		{name: "blank and bare suffix dropped", in: []string{"", "  ", "com"}, want: []string{}},
		{name: "nil", in: nil, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, search.NormalizeSources(tt.in))
		})
	}
}

func TestParseDomains(t *testing.T) {
	defaults := []string{"pubmed.ncbi.nlm.nih.gov", "linkedin.com"}

	assert.Equal(t, defaults, search.ParseDomains("", defaults))
	assert.Equal(t, defaults, search.ParseDomains("ALL", defaults))
	assert.Equal(t, []string{"a.com", "b.com"}, search.ParseDomains(" a.com, ,b.com ", defaults))
	assert.Equal(t, []string{"a.com", "pubmed.ncbi.nlm.nih.gov", "linkedin.com"}, search.ParseDomains("a.com,all", defaults))
}
