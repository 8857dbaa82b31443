package session

import (
	"context"
	"time"

	"github.com/flagforge/flagforge/pkg/kernel"
)

// Store is the persistence contract for refresh-session chains. Every
// operation is atomic with respect to a single record; Rotate in particular
// must admit exactly one winner among concurrent calls presenting the same
// secret.
type Store interface {
	// Create inserts a new chain with a placeholder hash and returns it.
	// Creation is two-step because the refresh token embeds the record's
	// own ID; Finalize attaches the real hash once the token is signed.
	Create(ctx context.Context, userID kernel.UserID, orgID kernel.OrganizationID, expiresAt time.Time) (*RefreshSession, error)

	// Finalize attaches the signed token's hash to a freshly created chain.
	Finalize(ctx context.Context, id, tokenHash string) error

	// FindByID returns the chain or ErrNotFound.
	FindByID(ctx context.Context, id string) (*RefreshSession, error)

	// Rotate atomically advances the chain: if the stored hash equals
	// presentedHash, it is replaced by nextHash with a fresh expiry and the
	// updated record is returned. Otherwise: ErrNotFound if the chain is
	// gone, ErrExpired (record deleted) if past expiry, ErrHashMismatch if
	// the presented secret was superseded. No partially-rotated state is
	// ever observable.
	Rotate(ctx context.Context, id, presentedHash, nextHash string, nextExpiresAt time.Time) (*RefreshSession, error)

	// DeleteByID removes one chain. Deleting a missing chain is not an error.
	DeleteByID(ctx context.Context, id string) error

	// DeleteAllForUser removes every chain for a user (logout-everywhere,
	// compromise response).
	DeleteAllForUser(ctx context.Context, userID kernel.UserID) error

	// DeleteExpired sweeps records past their expiry and reports how many
	// were removed.
	DeleteExpired(ctx context.Context) (int64, error)
}
