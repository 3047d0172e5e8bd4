package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"mod-registry/core/identity"
)

const principalKey = "principal"

// Config holds the middleware dependencies.
type Config struct {
	// Resolver maps bearer credentials to principals.
	Resolver identity.Resolver
}

// New returns middleware that resolves the Authorization bearer token into
// a principal stored in Locals. Requests without a valid credential are
// rejected; routes meant to be public register before this middleware.
func New(cfg Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing bearer credential",
			})
		}

		p, err := cfg.Resolver.ResolveToken(c.Context(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid credential",
			})
		}

		c.Locals(principalKey, p)
		return c.Next()
	}
}

// RequireAdmin returns middleware rejecting non-admin principals. Must run
// after New.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := PrincipalFrom(c)
		if !ok || !p.Admin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin access required",
			})
		}
		return c.Next()
	}
}

// PrincipalFrom returns the resolved principal for the request, if any.
func PrincipalFrom(c *fiber.Ctx) (*identity.Principal, bool) {
	p, ok := c.Locals(principalKey).(*identity.Principal)
	return p, ok
}
