package util

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// SessionToken returns a hex-encoded 128-bit random token. Collisions are
// negligible at that size, so callers do not re-check uniqueness.
func SessionToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
