// Package token generates API and password-reset tokens.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// MaxGenerateAttempts bounds the uniqueness retry loop. Collisions on a
// 32-hex-char random token are effectively impossible, so exhaustion means
// the exists check itself is broken.
const MaxGenerateAttempts = 10

// ErrGenerateExhausted is returned when no unique token could be produced
// within MaxGenerateAttempts. Callers surface it as a resource-creation
// failure.
var ErrGenerateExhausted = errors.New("token: exhausted unique generation attempts")

// Random returns a random 32-character hex token.
func Random() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token: read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// GenerateUnique produces a random token that the exists check does not
// know, retrying up to MaxGenerateAttempts times.
func GenerateUnique(exists func(token string) (bool, error)) (string, error) {
	for i := 0; i < MaxGenerateAttempts; i++ {
		tok, err := Random()
		if err != nil {
			return "", err
		}
		taken, err := exists(tok)
		if err != nil {
			return "", err
		}
		if !taken {
			return tok, nil
		}
	}
	return "", ErrGenerateExhausted
}

// Digest returns the hex SHA-256 of a token. Only digests are stored;
// presented tokens are re-hashed and compared.
func Digest(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}
