package user

import (
	"context"
	"time"

	"github.com/flagforge/flagforge/pkg/kernel"
)

// Repository is the persistence contract for users.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id kernel.UserID) (*User, error)
	UpdateLastLogin(ctx context.Context, id kernel.UserID, at time.Time) error
	SetActive(ctx context.Context, id kernel.UserID, orgID kernel.OrganizationID, active bool) error
}
