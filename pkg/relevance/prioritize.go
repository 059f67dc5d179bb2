package relevance

import (
	"sort"

	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/domain"
)

// Prioritize orders changes by score, highest first, keeping the input order on ties, and splits
// them at limit. A limit of zero or less keeps everything.
func Prioritize(changes []domain.Change, limit int) (kept, overflow []domain.Change) {
	sorted := make([]domain.Change, len(changes))
	copy(sorted, changes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	if limit <= 0 || len(sorted) <= limit {
		return sorted, nil
	}
	return sorted[:limit], sorted[limit:]
}
