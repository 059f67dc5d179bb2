package change

import (
	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/domain"
)

// Observation is what a run learned about one canonical key
type Observation struct {
	Key         domain.CanonicalKey
	Fingerprint domain.ContentFingerprint
	Hint        string // opaque upstream change signal, empty when absent
	Title       string
	Source      string
}

// Outcome is the classification result of one observation
type Outcome struct {
	Status            domain.Status
	PreviouslyCovered string // last_seen of the existing record before this run touched it
}

// Classify compares an observation with the stored record and updates records in place.
//
// The content fingerprint is authoritative and checked first; the hint only escalates an
// otherwise identical fingerprint to UPDATED. Every observed key gets its last_seen moved to
// today and its baseline refreshed, so the next comparison is always against the latest text.
func Classify(records domain.Records, obs Observation, today string) Outcome {
	prev, ok := records[obs.Key.ID]
	if !ok {
		records[obs.Key.ID] = domain.StateRecord{
			FirstSeen:              today,
			LastSeen:               today,
			LastModifiedHint:       obs.Hint,
			LastContentFingerprint: obs.Fingerprint,
			LastTitle:              obs.Title,
			LastSource:             obs.Source,
		}
		return Outcome{Status: domain.StatusNew}
	}

	status := domain.StatusUnchanged
	switch {
	case obs.Fingerprint != prev.LastContentFingerprint:
		status = domain.StatusUpdated
	case obs.Hint != "" && (prev.LastModifiedHint == "" || obs.Hint != prev.LastModifiedHint):
		status = domain.StatusUpdated
	}

	next := prev
	next.LastSeen = today
	next.LastContentFingerprint = obs.Fingerprint
	next.LastTitle = obs.Title
	next.LastSource = obs.Source
	if obs.Hint != "" {
		next.LastModifiedHint = obs.Hint
	}
	records[obs.Key.ID] = next

	res := Outcome{Status: status}
	if status == domain.StatusUpdated {
		res.PreviouslyCovered = prev.LastSeen
	}
	return res
}
