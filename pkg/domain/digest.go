package domain

// SummaryRequest is the payload passed to the summarization collaborator
type SummaryRequest struct {
	Title    string
	Source   string
	URL      string
	Text     string
	IsUpdate bool
}

// Summary is the result of summarization. Fallback is set when Text is the fixed notice
// produced after a summarizer failure.
type Summary struct {
	Text     string
	Fallback bool
}

// DigestEntry is a summarized change ready for rendering
type DigestEntry struct {
	Change
	Summary Summary
}

// Stats counts items at each stage of a run
type Stats struct {
	Fetched    int `json:"fetched"`
	Candidates int `json:"candidates"`
	New        int `json:"new"`
	Updated    int `json:"updated"`
	Unchanged  int `json:"unchanged"`
	Capped     int `json:"capped"`
	Degraded   int `json:"degraded"`
}

// Digest is the per-run output of the pipeline, ordered by priority
type Digest struct {
	Date    string
	New     []DigestEntry
	Updated []DigestEntry
	Stats   Stats
}

// IsEmpty reports whether the digest has no entries
func (d Digest) IsEmpty() bool {
	return len(d.New) == 0 && len(d.Updated) == 0
}
