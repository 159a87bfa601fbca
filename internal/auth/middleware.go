package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Middleware extracts the bearer token and rejects unauthenticated
// requests before any handler side effects occur. Expired tokens are
// rejected here too: no partial state is created for them.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization header is required",
			})
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if token == header || token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Bearer token is required",
			})
		}

		if IsExpired(token, 0) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Token is expired",
			})
		}

		c.Locals("token", token)
		return c.Next()
	}
}
