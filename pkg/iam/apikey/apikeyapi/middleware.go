package apikeyapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/flagforge/flagforge/pkg/errx"
	"github.com/flagforge/flagforge/pkg/iam/apikey"
	"github.com/flagforge/flagforge/pkg/iam/apikey/apikeysrv"
	"github.com/flagforge/flagforge/pkg/kernel"
)

// Middleware authenticates flag-evaluation requests with an API key
// presented in X-API-Key or as an Authorization bearer value.
type Middleware struct {
	service *apikeysrv.Service
}

func NewMiddleware(service *apikeysrv.Service) *Middleware {
	return &Middleware{service: service}
}

// Require rejects requests without a valid active key and injects the
// resulting APIKeyContext into both fiber Locals and the request context.
func (m *Middleware) Require() fiber.Handler {
	return func(c *fiber.Ctx) error {
		presented := extractKey(c)
		if presented == "" {
			return renderError(c, apikey.ErrAPIKeyRequired())
		}

		keyCtx, err := m.service.Verify(c.UserContext(), presented)
		if err != nil {
			return renderError(c, errx.FromError(err))
		}

		c.Locals(string(kernel.APIKeyContextKey), keyCtx)
		c.SetUserContext(kernel.WithAPIKeyContext(c.UserContext(), keyCtx))
		return c.Next()
	}
}

func extractKey(c *fiber.Ctx) string {
	if key := c.Get("X-API-Key"); key != "" {
		return key
	}
	auth := c.Get("Authorization")
	if parts := strings.SplitN(auth, " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}
