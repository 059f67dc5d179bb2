package domain

// Item is a single entry returned by a source adapter. Published is whatever the upstream
// supplied and is never parsed.
type Item struct {
	Source    string
	Title     string
	URL       string
	Summary   string
	Published string
}

// CanonicalKey is the stable identity of an item derived from its URL
type CanonicalKey struct {
	ID  string // lower-cased, used for deduplication and state lookup
	URL string // same normalization with original case, for display
}

// IsZero reports whether the key carries no identity
func (k CanonicalKey) IsZero() bool {
	return k.ID == ""
}

// ContentFingerprint is a hex encoded digest of the extracted plain text
type ContentFingerprint string

// Status is the outcome of change classification
type Status string

// enum of classification outcomes
const (
	StatusNew       Status = "NEW"
	StatusUpdated   Status = "UPDATED"
	StatusUnchanged Status = "UNCHANGED"
)

// Candidate is an item that passed the relevance pre-filter and score threshold
type Candidate struct {
	Item
	Key   CanonicalKey
	Score int
}

// FullText is the result of the full-text fetch collaborator.
// Degraded is set when the fetch failed and Text holds title and summary only.
type FullText struct {
	Text     string
	Hint     string
	Degraded bool
}

// Change is a classified candidate
type Change struct {
	Candidate
	Status            Status
	Fingerprint       ContentFingerprint
	Hint              string
	PreviouslyCovered string // last_seen date before this run, set for updated items
	Degraded          bool
}
