// Package credential owns one-way hashing for the three credential kinds the
// system stores: passwords (slow, salted), API key secrets (fast,
// deterministic), and refresh token strings (fast, deterministic). Nothing
// here does I/O.
package credential

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// PrefixLength is how many leading characters of a plaintext API key are kept
// for display (e.g. "sk_prod_x7k2"). Not security-sensitive.
const PrefixLength = 12

// Hasher applies the configured work factor to password hashing. API key and
// token digests are unsalted SHA-256 so records can be looked up by equality
// without storing plaintext.
type Hasher struct {
	bcryptCost int
}

// NewHasher builds a Hasher. A cost outside bcrypt's valid range falls back
// to bcrypt.DefaultCost.
func NewHasher(bcryptCost int) *Hasher {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Hasher{bcryptCost: bcryptCost}
}

// HashPassword hashes plaintext with a random salt. Two calls with the same
// input produce different stored hashes.
func (h *Hasher) HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether plaintext matches hash. A malformed hash is
// a mismatch, never an error.
func (h *Hasher) VerifyPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// HashAPIKeySecret returns the hex SHA-256 digest of an API key string.
// Deterministic: same input, same digest.
func HashAPIKeySecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// HashTokenSecret returns the hex SHA-256 digest of a refresh token string.
// The session store persists only this digest.
func HashTokenSecret(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// DerivePrefix returns the displayable prefix of a plaintext secret.
func DerivePrefix(secret string) string {
	if len(secret) <= PrefixLength {
		return secret
	}
	return secret[:PrefixLength]
}
