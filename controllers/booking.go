package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/clinic-booking/middleware"
	"github.com/meinhoongagan/clinic-booking/models"
	"github.com/meinhoongagan/clinic-booking/scheduling"
)

type bookingInput struct {
	ClinicID string `json:"clinic_id"`
	Date     string `json:"date"`
	TimeSlot string `json:"time_slot"`
	Notes    string `json:"notes"`
}

// CreateBooking places a pending hold on a slot for the calling patient.
func (h *Controller) CreateBooking(c *fiber.Ctx) error {
	ctx := c.UserContext()
	input := new(bookingInput)
	if err := c.BodyParser(input); err != nil {
		return badRequest(c, "Failed to parse request body")
	}
	if input.ClinicID == "" || input.Date == "" || input.TimeSlot == "" {
		return badRequest(c, "clinic_id, date and time_slot are required")
	}

	clinic, err := h.store.GetClinic(ctx, input.ClinicID)
	if err != nil {
		return h.respondError(c, err)
	}

	booking, err := h.engine.AttemptBooking(ctx, scheduling.BookingRequest{
		PatientID: middleware.UserID(c),
		ClinicID:  clinic.ID,
		DoctorID:  clinic.DoctorID,
		Date:      input.Date,
		Slot:      input.TimeSlot,
		Notes:     input.Notes,
	})
	if err != nil {
		return h.respondError(c, err)
	}

	h.notifyPatient(ctx, *booking, h.notifier.BookingHeld)
	return c.Status(fiber.StatusCreated).JSON(booking)
}

type rescheduleInput struct {
	Date     string `json:"date"`
	TimeSlot string `json:"time_slot"`
}

// RescheduleBooking moves a booking; allowed for its patient and the clinic's doctor.
func (h *Controller) RescheduleBooking(c *fiber.Ctx) error {
	ctx := c.UserContext()
	input := new(rescheduleInput)
	if err := c.BodyParser(input); err != nil {
		return badRequest(c, "Failed to parse request body")
	}
	if input.Date == "" || input.TimeSlot == "" {
		return badRequest(c, "date and time_slot are required")
	}

	booking, err := h.store.GetBooking(ctx, c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	if !h.canTouchBooking(c, booking) {
		return forbidden(c)
	}

	moved, err := h.engine.RescheduleBooking(ctx, booking.ID, input.Date, input.TimeSlot)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(moved)
}

type statusInput struct {
	Status models.BookingStatus `json:"status"`
}

// UpdateBookingStatus applies a lifecycle transition. Patients may only
// cancel their own bookings; the clinic's doctor may confirm, cancel or
// complete.
func (h *Controller) UpdateBookingStatus(c *fiber.Ctx) error {
	ctx := c.UserContext()
	input := new(statusInput)
	if err := c.BodyParser(input); err != nil {
		return badRequest(c, "Failed to parse request body")
	}
	switch input.Status {
	case models.StatusConfirmed, models.StatusCancelled, models.StatusCompleted:
	default:
		return badRequest(c, "status must be confirmed, cancelled or completed")
	}

	booking, err := h.store.GetBooking(ctx, c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}

	userID, role := middleware.UserID(c), middleware.Role(c)
	switch role {
	case models.RolePatient:
		if !booking.BelongsTo(userID) || input.Status != models.StatusCancelled {
			return forbidden(c)
		}
	case models.RoleDoctor:
		if booking.DoctorID != userID {
			return forbidden(c)
		}
	case models.RoleAdmin:
	default:
		return forbidden(c)
	}

	updated, err := h.engine.UpdateStatus(ctx, booking.ID, input.Status)
	if err != nil {
		return h.respondError(c, err)
	}

	h.notifyPatient(ctx, *updated, h.notifier.StatusChanged)
	return c.JSON(updated)
}

// MyBookings lists the caller's bookings: a patient's own, or a doctor's
// schedule between from and to (default: today in the clinic timezone
// onwards for 30 days).
func (h *Controller) MyBookings(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := middleware.UserID(c)

	if middleware.Role(c) != models.RoleDoctor {
		if _, err := h.engine.SweepPatient(ctx, userID); err != nil {
			return h.respondError(c, err)
		}
		bookings, err := h.store.ListPatientBookings(ctx, userID)
		if err != nil {
			return h.respondError(c, err)
		}
		return c.JSON(bookings)
	}

	today := h.engine.Now().In(h.loc)
	r := scheduling.DateRange{
		From: c.Query("from", today.Format(scheduling.DateLayout)),
		To:   c.Query("to", today.AddDate(0, 0, 30).Format(scheduling.DateLayout)),
	}
	if _, err := scheduling.ParseDate(r.From); err != nil {
		return h.respondError(c, err)
	}
	if _, err := scheduling.ParseDate(r.To); err != nil {
		return h.respondError(c, err)
	}
	if _, err := h.engine.SweepExpired(ctx, userID); err != nil {
		return h.respondError(c, err)
	}
	bookings, err := h.store.ListDoctorBookings(ctx, userID, r)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(bookings)
}

func (h *Controller) canTouchBooking(c *fiber.Ctx, b models.Booking) bool {
	userID := middleware.UserID(c)
	switch middleware.Role(c) {
	case models.RoleAdmin:
		return true
	case models.RoleDoctor:
		return b.DoctorID == userID
	default:
		return b.BelongsTo(userID)
	}
}

// notifyPatient looks up the booking's patient and hands it to send.
func (h *Controller) notifyPatient(ctx context.Context, b models.Booking, send func(context.Context, models.User, models.Booking)) {
	if h.notifier == nil || b.PatientID == nil {
		return
	}
	patient, err := h.store.GetUser(ctx, *b.PatientID)
	if err != nil {
		h.log.Warn().Err(err).Str("booking_id", b.ID).Msg("cannot notify patient")
		return
	}
	send(ctx, patient, b)
}
