package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/clinic-booking/controllers"
	"github.com/meinhoongagan/clinic-booking/middleware"
	"github.com/meinhoongagan/clinic-booking/models"
)

// SetupBookingRoutes configures all booking related routes
func SetupBookingRoutes(app *fiber.App, h *controllers.Controller, secret string) {
	booking := app.Group("/bookings", middleware.Protected(secret))
	booking.Get("/mine", h.MyBookings)
	booking.Post("/", middleware.RequireRole(models.RolePatient), h.CreateBooking)
	booking.Patch("/:id/reschedule", h.RescheduleBooking)
	booking.Patch("/:id/status", h.UpdateBookingStatus)
}
