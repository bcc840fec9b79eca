package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"

	"github.com/meinhoongagan/clinic-booking/utils"
)

const (
	localUserID = "userID"
	localRole   = "role"
)

// Protected validates the bearer token and stores the caller's id and role
// in locals.
func Protected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(secret),
		ErrorHandler: jwtError,
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals("user").(*jwt.Token)
			if !ok {
				return unauthorized(c, "Invalid token")
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return unauthorized(c, "Invalid token claims")
			}

			userID, err := stringClaim(claims, "id")
			if err != nil {
				return unauthorized(c, "Invalid user ID in token")
			}
			role, err := stringClaim(claims, "role")
			if err != nil {
				return unauthorized(c, "Invalid role in token")
			}

			c.Locals(localUserID, userID)
			c.Locals(localRole, role)
			return c.Next()
		},
	})
}

func stringClaim(claims jwt.MapClaims, key string) (string, error) {
	v, ok := claims[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("claim %q missing or not a string", key)
	}
	return v, nil
}

// UserID returns the authenticated caller's id, or "" outside Protected.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

func Role(c *fiber.Ctx) string {
	role, _ := c.Locals(localRole).(string)
	return role
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(utils.ErrorResponse{
		Code:    "unauthorized",
		Message: msg,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusUnauthorized).JSON(utils.ErrorResponse{
		Code:    "unauthorized",
		Message: "Invalid or expired token",
		Error:   err.Error(),
	})
}
