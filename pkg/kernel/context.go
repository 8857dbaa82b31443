package kernel

import "context"

// ============================================================================
// Context Types
// ============================================================================

// AuthContext is the authenticated identity injected into every request that
// passed session authentication. The role is re-read from storage on each
// request, never taken from token claims, so role changes apply immediately.
type AuthContext struct {
	UserID         UserID         `json:"user_id"`
	OrganizationID OrganizationID `json:"organization_id"`
	Email          string         `json:"email"`
	Role           Role           `json:"role"`
}

// IsValid verifies the AuthContext carries a usable identity.
func (ac *AuthContext) IsValid() bool {
	return !ac.UserID.IsEmpty() && !ac.OrganizationID.IsEmpty() && ac.Role.IsValid()
}

// APIKeyContext is the machine identity injected into requests on the
// API-key ingress path. It scopes every downstream read to one
// organization+environment.
type APIKeyContext struct {
	KeyID          string         `json:"key_id"`
	OrganizationID OrganizationID `json:"organization_id"`
	EnvironmentID  EnvironmentID  `json:"environment_id"`
	EnvironmentKey string         `json:"environment_key"`
}

// IsValid verifies the APIKeyContext is fully scoped.
func (kc *APIKeyContext) IsValid() bool {
	return !kc.OrganizationID.IsEmpty() && !kc.EnvironmentID.IsEmpty()
}

// RequestMeta carries transport facts used by audit emission.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// ============================================================================
// Context Keys
// ============================================================================

type ContextKey string

const (
	// AuthContextKey stores an *AuthContext (also the fiber Locals key)
	AuthContextKey ContextKey = "auth_context"

	// APIKeyContextKey stores an *APIKeyContext (also the fiber Locals key)
	APIKeyContextKey ContextKey = "api_key_context"

	// RequestIDKey stores the request ID
	RequestIDKey ContextKey = "request_id"
)

// WithAuthContext attaches an AuthContext to ctx.
func WithAuthContext(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, AuthContextKey, ac)
}

// AuthFromContext extracts the AuthContext, if any.
func AuthFromContext(ctx context.Context) (*AuthContext, bool) {
	ac, ok := ctx.Value(AuthContextKey).(*AuthContext)
	return ac, ok && ac != nil
}

// WithAPIKeyContext attaches an APIKeyContext to ctx.
func WithAPIKeyContext(ctx context.Context, kc *APIKeyContext) context.Context {
	return context.WithValue(ctx, APIKeyContextKey, kc)
}

// APIKeyFromContext extracts the APIKeyContext, if any.
func APIKeyFromContext(ctx context.Context) (*APIKeyContext, bool) {
	kc, ok := ctx.Value(APIKeyContextKey).(*APIKeyContext)
	return kc, ok && kc != nil
}
