package domain

import (
	"crypto/sha256"
	"strings"
)

// CanonicalEmail trims and ASCII-lowercases an email address.
func CanonicalEmail(email string) string {
	return asciiLower(strings.TrimSpace(email))
}

// HashEmail returns the SHA-256 digest of the canonical form of email.
func HashEmail(email string) []byte {
	sum := sha256.Sum256([]byte(CanonicalEmail(email)))
	return sum[:]
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
