package util

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKD normalization so visually identical credentials
// entered on different platforms compare equal.
func Normalize(s string) string {
	return norm.NFKD.String(s)
}

// Fingerprint returns a short stable digest of a secret, for audit logs and
// rate-limit keys. Raw credentials and tokens must never appear in either.
func Fingerprint(secret string) string {
	sum := blake2b.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:8])
}
