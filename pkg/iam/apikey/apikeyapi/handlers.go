// Package apikeyapi exposes the API key management endpoints over Fiber.
package apikeyapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/flagforge/flagforge/pkg/errx"
	"github.com/flagforge/flagforge/pkg/iam"
	"github.com/flagforge/flagforge/pkg/iam/apikey/apikeysrv"
	"github.com/flagforge/flagforge/pkg/iam/rbac"
	"github.com/flagforge/flagforge/pkg/kernel"
)

// APIKeyHandlers carries the HTTP handlers for API key management.
type APIKeyHandlers struct {
	service *apikeysrv.Service
}

func NewAPIKeyHandlers(service *apikeysrv.Service) *APIKeyHandlers {
	return &APIKeyHandlers{service: service}
}

// RegisterRoutes mounts the management endpoints behind the session
// authenticate middleware and RBAC gates.
func (h *APIKeyHandlers) RegisterRoutes(app *fiber.App, authenticate fiber.Handler) {
	g := app.Group("/api/v1/api-keys", authenticate)

	g.Get("/", rbac.RequirePermission(rbac.PermAPIKeysRead), h.List)
	g.Post("/", rbac.RequirePermission(rbac.PermAPIKeysWrite), h.Create)
	g.Post("/:id/revoke", rbac.RequirePermission(rbac.PermAPIKeysRevoke), h.Revoke)
	g.Delete("/:id", rbac.RequirePermission(rbac.PermAPIKeysRevoke), h.Delete)
}

type createRequest struct {
	Name          string `json:"name"`
	EnvironmentID string `json:"environment_id"`
}

func (h *APIKeyHandlers) Create(c *fiber.Ctx) error {
	auth, ok := authFromLocals(c)
	if !ok {
		return renderError(c, iam.ErrUnauthorized())
	}

	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return renderError(c, errx.Validation("invalid request body"))
	}

	created, err := h.service.Create(c.UserContext(), auth, apikeysrv.CreateInput{
		Name:          req.Name,
		EnvironmentID: kernel.EnvironmentID(req.EnvironmentID),
		Meta:          requestMeta(c),
	})
	if err != nil {
		return renderError(c, errx.FromError(err))
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIKeyHandlers) List(c *fiber.Ctx) error {
	auth, ok := authFromLocals(c)
	if !ok {
		return renderError(c, iam.ErrUnauthorized())
	}

	keys, err := h.service.List(c.UserContext(), auth)
	if err != nil {
		return renderError(c, errx.FromError(err))
	}
	return c.JSON(fiber.Map{"keys": keys})
}

func (h *APIKeyHandlers) Revoke(c *fiber.Ctx) error {
	auth, ok := authFromLocals(c)
	if !ok {
		return renderError(c, iam.ErrUnauthorized())
	}

	key, err := h.service.Revoke(c.UserContext(), auth, c.Params("id"), requestMeta(c))
	if err != nil {
		return renderError(c, errx.FromError(err))
	}
	return c.JSON(key)
}

func (h *APIKeyHandlers) Delete(c *fiber.Ctx) error {
	auth, ok := authFromLocals(c)
	if !ok {
		return renderError(c, iam.ErrUnauthorized())
	}

	if err := h.service.Delete(c.UserContext(), auth, c.Params("id"), requestMeta(c)); err != nil {
		return renderError(c, errx.FromError(err))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func authFromLocals(c *fiber.Ctx) (kernel.AuthContext, bool) {
	ac, ok := c.Locals(string(kernel.AuthContextKey)).(*kernel.AuthContext)
	if !ok || ac == nil {
		return kernel.AuthContext{}, false
	}
	return *ac, true
}

func requestMeta(c *fiber.Ctx) kernel.RequestMeta {
	return kernel.RequestMeta{IPAddress: c.IP(), UserAgent: c.Get("User-Agent")}
}

func renderError(c *fiber.Ctx, e *errx.Error) error {
	return c.Status(e.HTTPStatus).JSON(e.ToHTTPResponse())
}
