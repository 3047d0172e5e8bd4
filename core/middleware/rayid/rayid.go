package rayid

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Header carries the request id on responses and may supply one on requests.
const Header = "X-Ray-Id"

// New returns middleware that ensures every request has a ray id, stored in
// Locals("ray_id") and echoed on the response header. An incoming id is
// kept so upstream proxies can correlate.
func New() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid := c.Get(Header)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Locals("ray_id", rid)
		c.Set(Header, rid)
		return c.Next()
	}
}
