// Package change detects new and updated documents between runs. It derives a stable identity
// from item URLs, fingerprints extracted text and classifies each observation against the
// persisted state records.
package change

import (
	"net/url"
	"strings"

	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/domain"
)

// Canonicalize derives the canonical key of a raw URL. Fragments and trailing slashes are
// removed, the comparison ID is lower-cased. Empty or malformed input returns the zero key.
func Canonicalize(rawURL string) domain.CanonicalKey {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return domain.CanonicalKey{}
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return domain.CanonicalKey{}
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = strings.TrimRight(u.RawPath, "/")
	if u.RawQuery == "" {
		u.ForceQuery = false
	}

	display := u.String()
	return domain.CanonicalKey{ID: strings.ToLower(display), URL: display}
}
