// Package dedupe derives the content-addressed fingerprint that serves as an
// intake item's at-most-once ingestion identity.
package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key computes the dedupe key for a canonical URL and its effective date:
// the lowercase hex SHA-256 of "canonicalURL|effectiveDate". Identical inputs
// always yield the identical 64-character key.
func Key(canonicalURL, effectiveDate string) string {
	sum := sha256.Sum256([]byte(canonicalURL + "|" + effectiveDate))
	return hex.EncodeToString(sum[:])
}
