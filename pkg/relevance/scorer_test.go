package relevance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/config"
	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/domain"
)

func testScorer(keywords ...string) *Scorer {
	return NewScorer(keywords, config.RelevanceConfig{
		StrongTerms:   []string{"immigration rules", "statement of changes", "Immigration Rules", " cpin "},
		MediumTerms:   []string{"appendix", "visa", "home office"},
		ExcludeTerms:  []string{"procurement", "transparency data"},
		CoreOverrides: []string{"statement of changes", "immigration rules"},
		MinScore:      2,
	})
}

func TestHaystack(t *testing.T) {
	item := domain.Item{Source: "GOV.UK (home-office)", Title: "Visa Fees", URL: "https://www.gov.uk/X",
		Summary: "New FEES", Published: "2024-03-01"}
	assert.Equal(t, "visa fees new fees gov.uk (home-office) https://www.gov.uk/x", Haystack(item))
}

func TestScorer_Score(t *testing.T) {
	s := testScorer()
	tests := []struct {
		name     string
		haystack string
		want     int
	}{
		{name: "nothing", haystack: "weather report", want: 0},
		{name: "one strong", haystack: "changes to the immigration rules", want: 3},
		{name: "strong counted once", haystack: "immigration rules immigration rules immigration rules", want: 3},
		{name: "two strong", haystack: "immigration rules: statement of changes hc123", want: 6},
		{name: "medium", haystack: "visa appendix visa", want: 2},
		{name: "exclusion", haystack: "procurement notice", want: -3},
		{name: "net positive", haystack: "immigration rules statement of changes transparency data", want: 3},
		{name: "padded term trimmed", haystack: "cpin: iran", want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Score(tt.haystack))
		})
	}
}

func TestScorer_StatementOfChangesScenario(t *testing.T) {
	s := testScorer("visa")
	item := domain.Item{Source: "GOV.UK (home-office)", Title: "Immigration Rules: Statement of Changes HC123",
		URL: "https://www.gov.uk/government/publications/statement-of-changes-hc123"}

	res := s.Select([]domain.Item{item})
	require.Len(t, res, 1)
	assert.GreaterOrEqual(t, res[0].Score, 3)
	assert.Equal(t, 6, res[0].Score)
}

func TestScorer_Pass(t *testing.T) {
	t.Run("no keywords passes everything", func(t *testing.T) {
		s := testScorer()
		assert.True(t, s.Pass("anything at all"))
	})

	t.Run("keyword match", func(t *testing.T) {
		s := testScorer("Visa", "asylum")
		assert.True(t, s.Pass("new visa route"))
		assert.True(t, s.Pass("asylum statistics"))
		assert.False(t, s.Pass("road maintenance"))
	})

	t.Run("core override", func(t *testing.T) {
		s := testScorer("asylum")
		assert.True(t, s.Pass("statement of changes hc 590"))
	})

	t.Run("blank keywords ignored", func(t *testing.T) {
		s := testScorer("", "  ")
		assert.True(t, s.Pass("road maintenance"))
	})
}

func TestScorer_Select(t *testing.T) {
	s := testScorer("visa", "immigration")
	items := []domain.Item{
		{Title: "Skilled worker visa: appendix updated", URL: "https://www.gov.uk/a/"},
		{Title: "no url visa appendix"},
		{Title: "Skilled worker visa: appendix updated again", URL: "https://www.gov.uk/a#top"},
		{Title: "Road works", URL: "https://www.gov.uk/roads"},
		{Title: "Visa procurement contract", URL: "https://www.gov.uk/b"},
		{Title: "Immigration Rules changes", URL: "https://www.gov.uk/c"},
		{Title: "visa", URL: "https://www.gov.uk/d"},
	}

	res := s.Select(items)
	require.Len(t, res, 2)

	assert.Equal(t, "Skilled worker visa: appendix updated", res[0].Title, "first of a duplicate pair wins")
	assert.Equal(t, "https://www.gov.uk/a", res[0].Key.ID)
	assert.Equal(t, 2, res[0].Score)

	assert.Equal(t, "Immigration Rules changes", res[1].Title)
	assert.Equal(t, 3, res[1].Score)
}

func TestScorer_SelectEmpty(t *testing.T) {
	assert.Empty(t, testScorer().Select(nil))
}
