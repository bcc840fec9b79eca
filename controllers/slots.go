package controllers

import (
	"github.com/gofiber/fiber/v2"
)

// ListSlots returns the classified slot grid of one clinic day. An optional
// doctor_id must name the clinic's doctor.
func (h *Controller) ListSlots(c *fiber.Ctx) error {
	ctx := c.UserContext()
	date := c.Query("date")
	if date == "" {
		return badRequest(c, "date is required")
	}

	clinic, err := h.store.GetClinic(ctx, c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	if doctorID := c.Query("doctor_id"); doctorID != "" && doctorID != clinic.DoctorID {
		return badRequest(c, "doctor_id does not practice at this clinic")
	}

	day, err := h.engine.ListAvailableSlots(ctx, clinic.ID, clinic.DoctorID, date)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(day)
}
