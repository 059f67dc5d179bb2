package change

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/domain"
)

// Fingerprint returns the hex SHA-256 digest of already extracted plain text
func Fingerprint(text string) domain.ContentFingerprint {
	sum := sha256.Sum256([]byte(text))
	return domain.ContentFingerprint(hex.EncodeToString(sum[:]))
}
