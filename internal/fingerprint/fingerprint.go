// Package fingerprint computes content fingerprints for change detection.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data. It is a pure function
// of the bytes: no markup normalization, so any byte difference, even
// whitespace, produces a different fingerprint.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
