package apikey

import (
	"net/http"
	"regexp"
	"time"

	"github.com/flagforge/flagforge/pkg/errx"
	"github.com/flagforge/flagforge/pkg/kernel"
)

// Status of an API key. A revoked key is never reused.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusRevoked Status = "REVOKED"
)

// APIKey is a long-lived machine credential scoped to one
// organization+environment. The plaintext secret exists only at creation
// time; only its SHA-256 digest is stored.
type APIKey struct {
	ID             string                `db:"id" json:"id"`
	Name           string                `db:"name" json:"name"`
	KeyHash        string                `db:"key_hash" json:"-"`
	KeyPrefix      string                `db:"key_prefix" json:"key_prefix"`
	OrganizationID kernel.OrganizationID `db:"organization_id" json:"organization_id"`
	EnvironmentID  kernel.EnvironmentID  `db:"environment_id" json:"environment_id"`
	CreatedByID    kernel.UserID         `db:"created_by_id" json:"created_by_id"`
	Status         Status                `db:"status" json:"status"`
	UsageCount     int64                 `db:"usage_count" json:"usage_count"`
	LastUsedAt     *time.Time            `db:"last_used_at" json:"last_used_at,omitempty"`
	RevokedAt      *time.Time            `db:"revoked_at" json:"revoked_at,omitempty"`
	CreatedAt      time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time             `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the key may authenticate requests.
func (k *APIKey) IsActive() bool {
	return k.Status == StatusActive && k.RevokedAt == nil
}

// Revoke marks the key revoked. Irreversible.
func (k *APIKey) Revoke() {
	now := time.Now().UTC()
	k.Status = StatusRevoked
	k.RevokedAt = &now
	k.UpdatedAt = now
}

// keyPattern is checked before any hashing or storage lookup: "sk_", a
// lowercase env segment, then at least 20 base-58 characters (Bitcoin
// alphabet, so 0/O/I/l never appear).
var keyPattern = regexp.MustCompile(`^sk_[a-z0-9_]+_[1-9A-HJ-NP-Za-km-z]{20,}$`)

// ValidateFormat is the cheap structural check rejecting garbage before it
// reaches the hasher or the database.
func ValidateFormat(key string) bool {
	return keyPattern.MatchString(key)
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("APIKEY")

var (
	CodeNotFound       = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "API key not found")
	CodeInvalid        = ErrRegistry.Register("INVALID", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid API key")
	CodeRevoked        = ErrRegistry.Register("REVOKED", errx.TypeAuthorization, http.StatusUnauthorized, "API key has been revoked")
	CodeAlreadyRevoked = ErrRegistry.Register("ALREADY_REVOKED", errx.TypeValidation, http.StatusBadRequest, "API key is already revoked")
	CodeRequired       = ErrRegistry.Register("REQUIRED", errx.TypeAuthorization, http.StatusUnauthorized, "API key is required")
)

func ErrAPIKeyNotFound() *errx.Error {
	return ErrRegistry.New(CodeNotFound)
}

func ErrAPIKeyInvalid() *errx.Error {
	return ErrRegistry.New(CodeInvalid)
}

func ErrAPIKeyRevoked() *errx.Error {
	return ErrRegistry.New(CodeRevoked)
}

func ErrAPIKeyAlreadyRevoked() *errx.Error {
	return ErrRegistry.New(CodeAlreadyRevoked)
}

func ErrAPIKeyRequired() *errx.Error {
	return ErrRegistry.New(CodeRequired)
}
