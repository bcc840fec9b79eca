package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/meinhoongagan/clinic-booking/models"
	"github.com/meinhoongagan/clinic-booking/notify"
	"github.com/meinhoongagan/clinic-booking/scheduling"
	"github.com/meinhoongagan/clinic-booking/utils"
)

// AppStore is the persistence the handlers use directly, outside the engine.
type AppStore interface {
	CreateClinic(ctx context.Context, c *models.Clinic) error
	GetClinic(ctx context.Context, id string) (models.Clinic, error)
	SaveClinicSchedule(ctx context.Context, id string, schedule models.ClinicSchedule, slotMinutes int) (models.Clinic, error)

	GetBooking(ctx context.Context, id string) (models.Booking, error)
	ListPatientBookings(ctx context.Context, patientID string) ([]models.Booking, error)
	ListDoctorBookings(ctx context.Context, doctorID string, r scheduling.DateRange) ([]models.Booking, error)

	FetchBlockedSlots(ctx context.Context, doctorID, clinicID string, r scheduling.DateRange) ([]models.BlockedSlot, error)
	CreateBlockedSlot(ctx context.Context, b *models.BlockedSlot) error
	GetBlockedSlot(ctx context.Context, id string) (models.BlockedSlot, error)
	DeleteBlockedSlot(ctx context.Context, id string) error

	CreateUser(ctx context.Context, u *models.User) error
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
}

// ScheduleInvalidator drops a cached clinic schedule after it changes.
type ScheduleInvalidator interface {
	Invalidate(ctx context.Context, clinicID string) error
}

type Controller struct {
	store    AppStore
	engine   *scheduling.Engine
	cache    ScheduleInvalidator
	notifier *notify.Notifier
	secret   string
	loc      *time.Location
	log      zerolog.Logger
}

type Deps struct {
	Store     AppStore
	Engine    *scheduling.Engine
	Cache     ScheduleInvalidator
	Notifier  *notify.Notifier
	JWTSecret string
	Location  *time.Location // decides "today" for default date ranges; nil means UTC
	Log       zerolog.Logger
}

func New(d Deps) *Controller {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Controller{
		store:    d.Store,
		engine:   d.Engine,
		cache:    d.Cache,
		notifier: d.Notifier,
		secret:   d.JWTSecret,
		loc:      loc,
		log:      d.Log,
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(utils.ErrorResponse{Code: "invalid_input", Message: msg})
}

func forbidden(c *fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(utils.ErrorResponse{
		Code:    "forbidden",
		Message: "You don't have permission to perform this action",
	})
}

// respondError maps engine and store errors onto HTTP statuses.
func (h *Controller) respondError(c *fiber.Ctx, err error) error {
	status, code, msg := fiber.StatusInternalServerError, "internal", "Something went wrong"

	switch {
	case errors.Is(err, scheduling.ErrMalformedTime), errors.Is(err, scheduling.ErrInvalidDate):
		status, code, msg = fiber.StatusBadRequest, "invalid_input", "Invalid date or time"
	case errors.Is(err, scheduling.ErrBookingNotFound):
		status, code, msg = fiber.StatusNotFound, "not_found", "Booking not found"
	case errors.Is(err, scheduling.ErrClinicNotFound):
		status, code, msg = fiber.StatusNotFound, "not_found", "Clinic not found"
	case errors.Is(err, scheduling.ErrBlockNotFound):
		status, code, msg = fiber.StatusNotFound, "not_found", "Blocked slot not found"
	case errors.Is(err, models.ErrUserNotFound):
		status, code, msg = fiber.StatusNotFound, "not_found", "User not found"
	case errors.Is(err, scheduling.ErrSlotUnavailable):
		status, code, msg = fiber.StatusConflict, "slot_unavailable", "That slot is no longer available"
	case errors.Is(err, scheduling.ErrAlreadyBooked):
		status, code, msg = fiber.StatusConflict, "already_booked", "You already have an appointment on this day"
	case errors.Is(err, scheduling.ErrDayClosed):
		status, code, msg = fiber.StatusConflict, "day_closed", "The clinic is closed on this day"
	case errors.Is(err, scheduling.ErrInvalidTransition):
		status, code, msg = fiber.StatusConflict, "invalid_transition", "Booking cannot move to that status"
	case errors.Is(err, scheduling.ErrSlotConflict):
		status, code, msg = fiber.StatusConflict, "slot_conflict", "That slot is already blocked"
	case errors.Is(err, scheduling.ErrStoreUnavailable):
		status, code, msg = fiber.StatusServiceUnavailable, "store_unavailable", "Please try again shortly"
	}

	if status >= fiber.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.Status(status).JSON(utils.ErrorResponse{Code: code, Message: msg, Error: err.Error()})
}

// canManageClinic reports whether the caller is the clinic's doctor or an admin.
func canManageClinic(role, userID string, clinic models.Clinic) bool {
	return role == models.RoleAdmin || (role == models.RoleDoctor && clinic.DoctorID == userID)
}
