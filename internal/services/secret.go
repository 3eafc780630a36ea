package services

import (
	"crypto/rand"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// Bounds for the random part of a possession secret. The hex encoding of
// MaxSecretBytes still fits in bcrypt's 72-byte input limit.
const (
	MinSecretBytes = 6
	MaxSecretBytes = 36

	maxBcryptInput = 72
)

// SecretFunc mints a new possession secret.
type SecretFunc func() (string, error)

// HexSecret returns a SecretFunc producing n cryptographically random bytes,
// hex-encoded. n is clamped to [MinSecretBytes, MaxSecretBytes].
func HexSecret(n int) SecretFunc {
	if n < MinSecretBytes {
		n = MinSecretBytes
	}
	if n > MaxSecretBytes {
		n = MaxSecretBytes
	}
	return func() (string, error) {
		b := make([]byte, n)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}
		return hex.EncodeToString(b), nil
	}
}

// hashSecret stores only a bcrypt hash of the secret, so a database dump
// does not hand out seller credentials.
func hashSecret(secret string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// secretMatches reports whether supplied is exactly the secret behind hash.
// bcrypt compares in constant time.
func secretMatches(hash, supplied string) bool {
	// bcrypt only looks at the first 72 bytes; anything longer cannot be an
	// exact match for a secret minted by HexSecret.
	if supplied == "" || hash == "" || len(supplied) > maxBcryptInput {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(supplied)) == nil
}
