package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint returns the content hash used for chunk deduplication: the hex
// SHA-256 of the text with leading and trailing whitespace removed.
// It is stable across runs and platforms.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

// FingerprintBytes returns the hex SHA-256 of raw source bytes. It is used
// for source-level change detection and in the change log.
func FingerprintBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
