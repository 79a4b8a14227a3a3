package config

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Mask hides all but the edges of a secret so it can be printed in a report.
func Mask(secret string) string {
	if len(secret) > 14 {
		return secret[:10] + "..." + secret[len(secret)-4:]
	}
	return "***"
}

// Fingerprint returns a short, stable digest of secret. Two runs can compare
// fingerprints to tell whether a credential changed without printing it.
func Fingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:8])
}
