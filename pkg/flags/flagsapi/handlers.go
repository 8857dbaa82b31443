// Package flagsapi exposes the public flag read endpoints consumed by SDKs.
package flagsapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/flagforge/flagforge/pkg/errx"
	"github.com/flagforge/flagforge/pkg/flags"
	"github.com/flagforge/flagforge/pkg/iam/apikey"
	"github.com/flagforge/flagforge/pkg/kernel"
)

// FlagHandlers carries the HTTP handlers for the public read surface.
type FlagHandlers struct {
	provider flags.Provider
}

func NewFlagHandlers(provider flags.Provider) *FlagHandlers {
	return &FlagHandlers{provider: provider}
}

// RegisterRoutes mounts the read endpoints behind the API key middleware.
func (h *FlagHandlers) RegisterRoutes(app *fiber.App, requireAPIKey fiber.Handler) {
	g := app.Group("/v1/flags", requireAPIKey)

	g.Get("/", h.List)
	g.Get("/:key", h.Get)
}

func (h *FlagHandlers) List(c *fiber.Ctx) error {
	keyCtx, ok := c.Locals(string(kernel.APIKeyContextKey)).(*kernel.APIKeyContext)
	if !ok || keyCtx == nil {
		return renderError(c, apikey.ErrAPIKeyRequired())
	}

	values, err := h.provider.ActiveFlagValues(c.UserContext(), keyCtx.OrganizationID, keyCtx.EnvironmentID)
	if err != nil {
		return renderError(c, errx.FromError(err))
	}
	return c.JSON(fiber.Map{
		"environment": keyCtx.EnvironmentKey,
		"flags":       values,
	})
}

func (h *FlagHandlers) Get(c *fiber.Ctx) error {
	keyCtx, ok := c.Locals(string(kernel.APIKeyContextKey)).(*kernel.APIKeyContext)
	if !ok || keyCtx == nil {
		return renderError(c, apikey.ErrAPIKeyRequired())
	}

	value, err := h.provider.FlagValue(c.UserContext(), keyCtx.OrganizationID, keyCtx.EnvironmentID, c.Params("key"))
	if err != nil {
		return renderError(c, errx.FromError(err))
	}
	return c.JSON(value)
}

func renderError(c *fiber.Ctx, e *errx.Error) error {
	return c.Status(e.HTTPStatus).JSON(e.ToHTTPResponse())
}
