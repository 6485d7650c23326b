package astcache

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeHash returns the content-addressed fingerprint of a byte slice.
// Identical bytes always hash identically; any single-byte difference
// produces a different digest.
func ComputeHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
