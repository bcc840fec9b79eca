package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/clinic-booking/controllers"
)

// SetupAuthRoutes configures registration and login
func SetupAuthRoutes(app *fiber.App, h *controllers.Controller) {
	auth := app.Group("/auth")
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
}
