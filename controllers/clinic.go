package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/clinic-booking/middleware"
	"github.com/meinhoongagan/clinic-booking/models"
	"github.com/meinhoongagan/clinic-booking/scheduling"
	"github.com/meinhoongagan/clinic-booking/utils"
)

type clinicInput struct {
	Name                string                `json:"name"`
	Address             string                `json:"address"`
	Schedule            models.ClinicSchedule `json:"schedule"`
	SlotDurationMinutes int                   `json:"slot_duration_minutes"`
}

func invalidSchedule(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(utils.ErrorResponse{
		Code:    "invalid_schedule",
		Message: "Schedule is not valid",
		Error:   err.Error(),
	})
}

// CreateClinic registers a clinic owned by the calling doctor.
func (h *Controller) CreateClinic(c *fiber.Ctx) error {
	input := new(clinicInput)
	if err := c.BodyParser(input); err != nil {
		return badRequest(c, "Failed to parse request body")
	}
	if input.Name == "" {
		return badRequest(c, "Clinic name is required")
	}
	if err := scheduling.ValidateSchedule(input.Schedule); err != nil {
		return invalidSchedule(c, err)
	}

	clinic := &models.Clinic{
		Name:                input.Name,
		Address:             input.Address,
		DoctorID:            middleware.UserID(c),
		Schedule:            input.Schedule,
		SlotDurationMinutes: models.ClampSlotMinutes(input.SlotDurationMinutes),
	}
	if err := h.store.CreateClinic(c.UserContext(), clinic); err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(clinic)
}

func (h *Controller) GetClinic(c *fiber.Ctx) error {
	clinic, err := h.store.GetClinic(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(clinic)
}

type scheduleInput struct {
	Schedule            models.ClinicSchedule `json:"schedule"`
	SlotDurationMinutes int                   `json:"slot_duration_minutes"`
}

// UpdateSchedule replaces the clinic's weekly schedule and slot duration.
// Every malformed field is reported at once.
func (h *Controller) UpdateSchedule(c *fiber.Ctx) error {
	ctx := c.UserContext()
	clinic, err := h.store.GetClinic(ctx, c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	if !canManageClinic(middleware.Role(c), middleware.UserID(c), clinic) {
		return forbidden(c)
	}

	input := new(scheduleInput)
	if err := c.BodyParser(input); err != nil {
		return badRequest(c, "Failed to parse request body")
	}
	if err := scheduling.ValidateSchedule(input.Schedule); err != nil {
		return invalidSchedule(c, err)
	}

	updated, err := h.store.SaveClinicSchedule(ctx, clinic.ID, input.Schedule, input.SlotDurationMinutes)
	if err != nil {
		return h.respondError(c, err)
	}
	if h.cache != nil {
		if err := h.cache.Invalidate(ctx, clinic.ID); err != nil {
			h.log.Warn().Err(err).Str("clinic_id", clinic.ID).Msg("failed to invalidate schedule cache")
		}
	}
	h.log.Info().Str("clinic_id", clinic.ID).Int("slot_minutes", updated.SlotDurationMinutes).Msg("clinic schedule updated")
	return c.JSON(updated)
}
