// Package session persists refresh-token session chains. A chain keeps a
// stable record ID across rotations; only the stored secret hash and expiry
// move forward. That stability is what makes reuse of a superseded token
// detectable: the replayed token still addresses the chain, but its secret no
// longer matches.
package session

import (
	"errors"
	"time"

	"github.com/flagforge/flagforge/pkg/kernel"
)

// Store failure modes the auth layer branches on.
var (
	// ErrNotFound means no record exists for the presented chain ID.
	ErrNotFound = errors.New("session: not found")

	// ErrHashMismatch means the chain exists but the presented secret is not
	// its current one — reuse of a rotated-out token.
	ErrHashMismatch = errors.New("session: refresh hash mismatch")

	// ErrExpired means the record was past its expiry; the store has
	// already deleted it.
	ErrExpired = errors.New("session: expired")
)

// RefreshSession is one session chain record. TokenHash holds the SHA-256
// digest of the current refresh token string, never the plaintext.
type RefreshSession struct {
	ID             string                `db:"id" json:"id"`
	UserID         kernel.UserID         `db:"user_id" json:"user_id"`
	OrganizationID kernel.OrganizationID `db:"organization_id" json:"organization_id"`
	TokenHash      string                `db:"token_hash" json:"-"`
	ExpiresAt      time.Time             `db:"expires_at" json:"expires_at"`
	CreatedAt      time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time             `db:"updated_at" json:"updated_at"`
}

// IsExpired checks if the session has expired.
func (s *RefreshSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
