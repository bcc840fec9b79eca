package controllers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/clinic-booking/middleware"
	"github.com/meinhoongagan/clinic-booking/models"
	"github.com/meinhoongagan/clinic-booking/scheduling"
)

type blockInput struct {
	Date     string  `json:"date"`
	TimeSlot string  `json:"time_slot"`
	Reason   *string `json:"reason"`
}

func (h *Controller) CreateBlockedSlot(c *fiber.Ctx) error {
	ctx := c.UserContext()
	clinic, err := h.store.GetClinic(ctx, c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	if !canManageClinic(middleware.Role(c), middleware.UserID(c), clinic) {
		return forbidden(c)
	}

	input := new(blockInput)
	if err := c.BodyParser(input); err != nil {
		return badRequest(c, "Failed to parse request body")
	}
	if _, err := scheduling.ParseDate(input.Date); err != nil {
		return h.respondError(c, err)
	}
	slot, ok := scheduling.NormalizeTime(input.TimeSlot)
	if !ok {
		return h.respondError(c, fmt.Errorf("%w: %q", scheduling.ErrMalformedTime, input.TimeSlot))
	}

	block := &models.BlockedSlot{
		ClinicID:    clinic.ID,
		DoctorID:    clinic.DoctorID,
		BlockedDate: input.Date,
		TimeSlot:    slot,
		Reason:      input.Reason,
	}
	if err := h.store.CreateBlockedSlot(ctx, block); err != nil {
		return h.respondError(c, err)
	}
	h.log.Info().Str("clinic_id", clinic.ID).Str("date", block.BlockedDate).Str("slot", slot).Msg("slot blocked")
	return c.Status(fiber.StatusCreated).JSON(block)
}

// ListBlockedSlots returns the clinic's blocks between from and to
// (both default to the same date if only one is given).
func (h *Controller) ListBlockedSlots(c *fiber.Ctx) error {
	ctx := c.UserContext()
	clinic, err := h.store.GetClinic(ctx, c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}

	from, to := c.Query("from"), c.Query("to")
	if from == "" {
		from = to
	}
	if to == "" {
		to = from
	}
	if _, err := scheduling.ParseDate(from); err != nil {
		return h.respondError(c, err)
	}
	if _, err := scheduling.ParseDate(to); err != nil {
		return h.respondError(c, err)
	}

	blocks, err := h.store.FetchBlockedSlots(ctx, clinic.DoctorID, clinic.ID, scheduling.DateRange{From: from, To: to})
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(blocks)
}

func (h *Controller) DeleteBlockedSlot(c *fiber.Ctx) error {
	ctx := c.UserContext()
	block, err := h.store.GetBlockedSlot(ctx, c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	userID, role := middleware.UserID(c), middleware.Role(c)
	if role != models.RoleAdmin && block.DoctorID != userID {
		return forbidden(c)
	}
	if err := h.store.DeleteBlockedSlot(ctx, block.ID); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
