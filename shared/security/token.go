package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// ResetTokenBytes is the amount of randomness in a password reset token (64 hex chars).
const ResetTokenBytes = 32

// GenerateResetToken creates a random token and its digest.
// The plaintext token goes to the user; only the digest is persisted.
func GenerateResetToken() (token, digest string, err error) {
	b := make([]byte, ResetTokenBytes)
	if _, err = rand.Read(b); err != nil {
		return "", "", err
	}

	token = hex.EncodeToString(b)

	return token, HashToken(token), nil
}

// HashToken returns the hex-encoded SHA-256 digest of an opaque token.
// High-entropy tokens need no salt or work factor, which keeps the digest usable as a lookup key.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// TokenMatchesHash compares a plaintext token against a stored digest in constant time.
func TokenMatchesHash(token, digest string) bool {
	if token == "" || digest == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(digest)) == 1
}
