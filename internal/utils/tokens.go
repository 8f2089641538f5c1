package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

const resetTokenBytes = 32

// NewResetToken returns a random token for the user and the hash to persist.
func NewResetToken() (raw, hash string, err error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(b)
	return raw, HashToken(raw), nil
}

// HashToken is the SHA-256 hex digest stored in place of a raw token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
