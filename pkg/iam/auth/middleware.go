package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/flagforge/flagforge/pkg/errx"
	"github.com/flagforge/flagforge/pkg/iam/token"
	"github.com/flagforge/flagforge/pkg/iam/user"
	"github.com/flagforge/flagforge/pkg/kernel"
)

// TokenMiddleware authenticates requests with an access token from the
// Authorization header or the access_token cookie.
type TokenMiddleware struct {
	codec *token.Codec
	users user.Repository
}

// NewTokenMiddleware creates the middleware.
func NewTokenMiddleware(codec *token.Codec, users user.Repository) *TokenMiddleware {
	return &TokenMiddleware{codec: codec, users: users}
}

// Authenticate validates the access token and injects an AuthContext. The
// role comes from a fresh user read, not the token claims, so a demotion or
// deactivation takes effect on the next request rather than at token expiry.
func (m *TokenMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := extractAccessToken(c)
		if raw == "" {
			return renderError(c, ErrInvalidToken())
		}

		claims, err := m.codec.VerifyAccess(raw)
		if err != nil {
			if err == token.ErrExpired {
				return renderError(c, ErrExpiredToken())
			}
			return renderError(c, ErrInvalidToken())
		}

		u, err := m.users.FindByID(c.UserContext(), claims.UserID)
		if err != nil {
			return renderError(c, ErrInvalidToken())
		}
		if !u.IsActive {
			return renderError(c, ErrAccountInactive())
		}

		authCtx := &kernel.AuthContext{
			UserID:         u.ID,
			OrganizationID: u.OrganizationID,
			Email:          u.Email,
			Role:           u.Role,
		}

		c.Locals(string(kernel.AuthContextKey), authCtx)
		c.SetUserContext(kernel.WithAuthContext(c.UserContext(), authCtx))
		return c.Next()
	}
}

func extractAccessToken(c *fiber.Ctx) string {
	if header := c.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "" {
			return parts[1]
		}
	}
	return c.Cookies("access_token")
}

func renderError(c *fiber.Ctx, e *errx.Error) error {
	return c.Status(e.HTTPStatus).JSON(e.ToHTTPResponse())
}
