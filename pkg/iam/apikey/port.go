package apikey

import (
	"context"
	"time"

	"github.com/flagforge/flagforge/pkg/kernel"
)

// Repository is the persistence contract for API keys. Lookups by ID are
// organization-scoped; FindByHash is the verification path and is global by
// construction (the digest itself is unguessable).
type Repository interface {
	Create(ctx context.Context, key APIKey) error
	FindByID(ctx context.Context, id string, orgID kernel.OrganizationID) (*APIKey, error)
	FindByHash(ctx context.Context, keyHash string) (*APIKey, error)
	FindByOrganization(ctx context.Context, orgID kernel.OrganizationID) ([]*APIKey, error)

	// MarkRevoked flips the key to REVOKED with the given timestamp.
	MarkRevoked(ctx context.Context, id string, orgID kernel.OrganizationID, at time.Time) error

	// Delete removes the key permanently.
	Delete(ctx context.Context, id string, orgID kernel.OrganizationID) error

	// RecordUsage bumps the usage counter and last-used timestamp with an
	// atomic increment; concurrent calls must never lose counts.
	RecordUsage(ctx context.Context, id string) error
}
