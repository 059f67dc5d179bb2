// Package relevance decides which items are worth a full-text fetch and orders the resulting
// changes. Scoring is keyword based and runs on upstream metadata only.
package relevance

import (
	"strings"

	log "github.com/go-pkgz/lgr"

	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/change"
	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/config"
	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/domain"
)

// term weights
const (
	strongWeight  = 3
	mediumWeight  = 1
	excludeWeight = -3
)

// Scorer pre-filters and scores items. Safe for concurrent use after construction.
type Scorer struct {
	keywords  []string
	overrides []string
	strong    []string
	medium    []string
	exclude   []string
	minScore  int
}

// NewScorer makes a scorer from the pre-filter keywords and relevance settings.
// Terms are case-folded and duplicates collapse, so each distinct term counts at most once.
func NewScorer(keywords []string, cfg config.RelevanceConfig) *Scorer {
	return &Scorer{
		keywords:  normalizeTerms(keywords),
		overrides: normalizeTerms(cfg.CoreOverrides),
		strong:    normalizeTerms(cfg.StrongTerms),
		medium:    normalizeTerms(cfg.MediumTerms),
		exclude:   normalizeTerms(cfg.ExcludeTerms),
		minScore:  cfg.MinScore,
	}
}

// Haystack builds the case-folded text an item is matched against
func Haystack(item domain.Item) string {
	return strings.ToLower(strings.Join([]string{item.Title, item.Summary, item.Source, item.URL}, " "))
}

// Pass is the keyword pre-filter. An empty keyword list passes everything.
func (s *Scorer) Pass(haystack string) bool {
	if len(s.keywords) == 0 {
		return true
	}
	return containsAny(haystack, s.keywords) || containsAny(haystack, s.overrides)
}

// Score sums term weights over distinct terms present in haystack
func (s *Scorer) Score(haystack string) int {
	return weigh(haystack, s.strong, strongWeight) +
		weigh(haystack, s.medium, mediumWeight) +
		weigh(haystack, s.exclude, excludeWeight)
}

// Select canonicalizes items, drops those without identity and repeats of a key already seen in
// this batch, then keeps items passing the pre-filter with a score of at least the minimum.
// Order of the input is preserved.
func (s *Scorer) Select(items []domain.Item) []domain.Candidate {
	res := make([]domain.Candidate, 0, len(items))
	seen := make(map[string]bool, len(items))
	var noKey, dups, filtered, lowScore int

	for _, item := range items {
		key := change.Canonicalize(item.URL)
		if key.IsZero() {
			noKey++
			continue
		}
		if seen[key.ID] {
			dups++
			continue
		}
		seen[key.ID] = true

		hay := Haystack(item)
		if !s.Pass(hay) {
			filtered++
			continue
		}
		score := s.Score(hay)
		if score < s.minScore {
			lowScore++
			log.Printf("[DEBUG] below threshold %d < %d: %s", score, s.minScore, item.Title)
			continue
		}
		res = append(res, domain.Candidate{Item: item, Key: key, Score: score})
	}

	log.Printf("[DEBUG] selected %d of %d items, no url %d, duplicates %d, pre-filtered %d, low score %d",
		len(res), len(items), noKey, dups, filtered, lowScore)
	return res
}

// weigh counts each matched term once, whatever the number of occurrences
func weigh(haystack string, terms []string, weight int) int {
	matched := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			matched[t] = struct{}{}
		}
	}
	return len(matched) * weight
}

func containsAny(haystack string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			return true
		}
	}
	return false
}

func normalizeTerms(terms []string) []string {
	res := make([]string, 0, len(terms))
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		res = append(res, t)
	}
	return res
}
