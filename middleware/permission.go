package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/clinic-booking/utils"
)

// RequireRole lets the request through only if the token role is one of roles.
// Must run after Protected.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := Role(c)
		for _, r := range roles {
			if r == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(utils.ErrorResponse{
			Code:    "forbidden",
			Message: "You don't have permission to perform this action",
		})
	}
}
