package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/clinic-booking/controllers"
	"github.com/meinhoongagan/clinic-booking/middleware"
	"github.com/meinhoongagan/clinic-booking/models"
)

// SetupClinicRoutes configures clinics, their schedules, slots and blocked slots
func SetupClinicRoutes(app *fiber.App, h *controllers.Controller, secret string) {
	manage := middleware.RequireRole(models.RoleDoctor, models.RoleAdmin)

	clinic := app.Group("/clinics")
	clinic.Get("/:id", h.GetClinic)
	clinic.Get("/:id/slots", h.ListSlots)
	clinic.Post("/", middleware.Protected(secret), middleware.RequireRole(models.RoleDoctor), h.CreateClinic)
	clinic.Put("/:id/schedule", middleware.Protected(secret), manage, h.UpdateSchedule)
	clinic.Get("/:id/blocked-slots", h.ListBlockedSlots)
	clinic.Post("/:id/blocked-slots", middleware.Protected(secret), manage, h.CreateBlockedSlot)

	app.Delete("/blocked-slots/:id", middleware.Protected(secret), manage, h.DeleteBlockedSlot)
}
