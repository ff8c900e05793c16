package scoring_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/scoring"
)

func TestScore_StructuredContextSaturates(t *testing.T) {
	s := scoring.New()

	got := s.Score(scoring.Record{}, &scoring.Context{
		JobTitle:             "Director of Safety",
		FundingSeries:        "B",
		PublishedRecentPaper: true,
		Location:             "Cambridge, MA",
	})

	assert.Equal(t, 100, got)
}

func TestScore_WeakCandidate(t *testing.T) {
	s := scoring.New()

	got := s.Score(scoring.Record{}, &scoring.Context{
		JobTitle: "Junior Scientist",
		Location: "Texas",
	})

	assert.Less(t, got, 20)
}

func TestScore_TextSignals(t *testing.T) {
	s := scoring.New()

	r := scoring.Record{
		Text:         "VP of Safety. Published research on DILI. Based in Boston.",
		ProfileLinks: []string{"https://www.linkedin.com/in/jane"},
		Emails:       []string{"jane@acme.bio"},
	}

	b := s.Explain(r, nil)
	assert.Equal(t, 10, b.Role)
	assert.Equal(t, 24, b.Science)
	assert.Equal(t, 5, b.Location)
	assert.Equal(t, 0, b.Company)
	assert.Equal(t, 10, b.Bonus)
	assert.Equal(t, 49, s.Score(r, nil))
}

func TestScore_KeywordCountsOnce(t *testing.T) {
	s := scoring.New()
	b := s.Explain(scoring.Record{Text: "safety safety safety"}, nil)
	assert.Equal(t, 5, b.Role)
}

func TestScore_TitleCountsForRoleOnly(t *testing.T) {
	s := scoring.New()
	b := s.Explain(scoring.Record{Title: "Head of Toxicology | Boston"}, nil)
	assert.Equal(t, 10, b.Role)
	assert.Equal(t, 0, b.Location)
}

func TestScore_SubCaps(t *testing.T) {
	s := scoring.New()

	text := strings.Join([]string{
		"toxicology safety hepatic 3d preclinical drug development director head of vp chief",
		"series a series b funding raised investment ipo",
		"in vitro 3d model organ-on-chip spheroid new approach methodologies",
		"boston cambridge bay area basel san francisco uk",
		"publication published research dili liver injury toxicity",
	}, " ")

	b := s.Explain(scoring.Record{Text: text}, nil)
	assert.Equal(t, 30, b.Role)
	assert.Equal(t, 20, b.Company)
	assert.Equal(t, 15, b.Technology)
	assert.Equal(t, 10, b.Location)
	assert.Equal(t, 40, b.Science)
	assert.Equal(t, 100, b.Total())
}

func TestScore_FreeMailNoBonus(t *testing.T) {
	s := scoring.New()
	r := scoring.Record{Emails: []string{"jane@gmail.com", "not-an-email"}}
	assert.Equal(t, 0, s.Score(r, nil))
}

func TestScore_Bounds(t *testing.T) {
	s := scoring.New()
	inputs := []scoring.Record{
		{},
		{Text: strings.Repeat("toxicity research published boston series a ", 50)},
		{Title: "Chief", Emails: []string{"a@b.co"}, ProfileLinks: []string{"x"}},
	}
	for _, r := range inputs {
		got := s.Score(r, &scoring.Context{PublishedRecentPaper: true, FundingSeries: "Series A"})
		assert.GreaterOrEqual(t, got, 0)
		assert.LessOrEqual(t, got, 100)
	}
}
