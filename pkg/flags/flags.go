// Package flags is the read-only collaborator behind the machine ingress:
// SDK clients authenticate with an API key and read the flag values of that
// key's environment. Flag authoring lives elsewhere; this surface only
// serves.
package flags

import (
	"context"
	"net/http"
	"time"

	"github.com/flagforge/flagforge/pkg/errx"
	"github.com/flagforge/flagforge/pkg/kernel"
)

// Value is one flag as an SDK sees it: the key, whether it is on, and the
// serialized payload for non-boolean flags.
type Value struct {
	Key       string    `db:"key" json:"key"`
	Enabled   bool      `db:"enabled" json:"enabled"`
	Payload   string    `db:"payload" json:"payload,omitempty"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Provider serves flag values scoped to one organization+environment.
type Provider interface {
	ActiveFlagValues(ctx context.Context, orgID kernel.OrganizationID, envID kernel.EnvironmentID) ([]Value, error)
	FlagValue(ctx context.Context, orgID kernel.OrganizationID, envID kernel.EnvironmentID, key string) (*Value, error)
}

var ErrRegistry = errx.NewRegistry("FLAG")

var (
	CodeFlagNotFound = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Flag not found")
)

func ErrFlagNotFound() *errx.Error {
	return ErrRegistry.New(CodeFlagNotFound)
}
