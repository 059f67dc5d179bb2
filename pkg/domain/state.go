package domain

// StateRecord is the persisted knowledge about one canonical key
type StateRecord struct {
	FirstSeen              string             `json:"first_seen" db:"first_seen"`
	LastSeen               string             `json:"last_seen" db:"last_seen"`
	LastModifiedHint       string             `json:"last_modified_hint,omitempty" db:"last_modified_hint"`
	LastContentFingerprint ContentFingerprint `json:"last_content_hash" db:"last_content_hash"`
	LastTitle              string             `json:"last_title" db:"last_title"`
	LastSource             string             `json:"last_source" db:"last_source"`
}

// Records maps CanonicalKey.ID to its state record
type Records map[string]StateRecord

// Clone returns a copy of the records
func (r Records) Clone() Records {
	res := make(Records, len(r))
	for k, v := range r {
		res[k] = v
	}
	return res
}
