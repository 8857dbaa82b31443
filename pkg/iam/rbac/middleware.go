package rbac

import (
	"github.com/flagforge/flagforge/pkg/errx"
	"github.com/flagforge/flagforge/pkg/iam"
	"github.com/flagforge/flagforge/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

// RequirePermission gates a route on one permission. It must run after the
// authenticate middleware; the role on the AuthContext is trustworthy only
// because that middleware re-derived it from storage for this request.
func RequirePermission(permission Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authCtx, ok := c.Locals(string(kernel.AuthContextKey)).(*kernel.AuthContext)
		if !ok || authCtx == nil {
			return renderError(c, iam.ErrUnauthorized())
		}
		if err := Check(authCtx.Role, permission); err != nil {
			return renderError(c, errx.FromError(err))
		}
		return c.Next()
	}
}

// RequireAdmin gates a route on the ADMIN role.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authCtx, ok := c.Locals(string(kernel.AuthContextKey)).(*kernel.AuthContext)
		if !ok || authCtx == nil {
			return renderError(c, iam.ErrUnauthorized())
		}
		if authCtx.Role != kernel.RoleAdmin {
			return renderError(c, iam.ErrAccessDenied())
		}
		return c.Next()
	}
}

func renderError(c *fiber.Ctx, e *errx.Error) error {
	return c.Status(e.HTTPStatus).JSON(e.ToHTTPResponse())
}
