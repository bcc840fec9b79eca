package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/meinhoongagan/clinic-booking/metrics"
	"github.com/meinhoongagan/clinic-booking/models"
)

// DefaultHoldTTL is how long a pending booking holds its slot.
const DefaultHoldTTL = 15 * time.Minute

// Engine lists slots and arbitrates bookings against a Store.
type Engine struct {
	store   Store
	clock   Clock
	holdTTL time.Duration
	log     zerolog.Logger
	metrics *metrics.BookingMetrics
}

type Option func(*Engine)

func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

func WithHoldTTL(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.holdTTL = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.log = l } }

func WithMetrics(m *metrics.BookingMetrics) Option { return func(e *Engine) { e.metrics = m } }

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		clock:   SystemClock,
		holdTTL: DefaultHoldTTL,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SlotAvailability is one slot of a day's grid with its state.
type SlotAvailability struct {
	Time  string    `json:"time"`
	State SlotState `json:"state"`
}

// DayAvailability is the classified grid for one clinic day.
type DayAvailability struct {
	ClinicID    string             `json:"clinic_id"`
	DoctorID    string             `json:"doctor_id"`
	Date        string             `json:"date"`
	Weekday     models.Weekday     `json:"weekday"`
	SlotMinutes int                `json:"slot_minutes"`
	Closed      bool               `json:"closed"`
	Slots       []SlotAvailability `json:"slots"`
}

// Available returns only the slots that can be booked.
func (d DayAvailability) Available() []string {
	var out []string
	for _, s := range d.Slots {
		if s.State == SlotAvailable {
			out = append(out, s.Time)
		}
	}
	return out
}

// BookingRequest is a patient's attempt to claim one slot.
type BookingRequest struct {
	PatientID string
	ClinicID  string
	DoctorID  string
	Date      string
	Slot      string
	Notes     string
}

// SweepExpired cancels the doctor's pending bookings older than the hold TTL.
func (e *Engine) SweepExpired(ctx context.Context, doctorID string) (int64, error) {
	return e.sweep(ctx, e.store, doctorID)
}

func (e *Engine) sweep(ctx context.Context, store Store, doctorID string) (int64, error) {
	cutoff := e.cutoff()
	n, err := store.ExpirePendingOlderThan(ctx, doctorID, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		e.log.Info().Str("doctor_id", doctorID).Int64("expired", n).Time("cutoff", cutoff).Msg("expired stale pending holds")
		e.metrics.ObserveExpired(int(n))
	}
	return n, nil
}

// SweepPatient cancels the patient's pending bookings older than the hold TTL,
// at any clinic.
func (e *Engine) SweepPatient(ctx context.Context, patientID string) (int64, error) {
	return e.sweepPatient(ctx, e.store, patientID)
}

func (e *Engine) sweepPatient(ctx context.Context, store Store, patientID string) (int64, error) {
	cutoff := e.cutoff()
	n, err := store.ExpirePatientPendingOlderThan(ctx, patientID, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		e.log.Info().Str("patient_id", patientID).Int64("expired", n).Time("cutoff", cutoff).Msg("expired stale pending holds")
		e.metrics.ObserveExpired(int(n))
	}
	return n, nil
}

// sweepFor expires stale holds of the doctor and, when set, of the patient.
// The patient's holds at other clinics still count against the patient-day
// uniqueness guarantee until they are cancelled.
func (e *Engine) sweepFor(ctx context.Context, store Store, doctorID, patientID string) error {
	if _, err := e.sweep(ctx, store, doctorID); err != nil {
		return err
	}
	if patientID == "" {
		return nil
	}
	_, err := e.sweepPatient(ctx, store, patientID)
	return err
}

// Now is the engine clock's current instant.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

func (e *Engine) cutoff() time.Time {
	return e.clock.Now().Add(-e.holdTTL)
}

// ListAvailableSlots classifies every slot of the clinic's grid on date.
// A closed day is not an error; it yields Closed and no slots.
func (e *Engine) ListAvailableSlots(ctx context.Context, clinicID, doctorID, date string) (*DayAvailability, error) {
	wd, err := WeekdayOf(date)
	if err != nil {
		return nil, err
	}
	if _, err := e.SweepExpired(ctx, doctorID); err != nil {
		return nil, err
	}
	day, err := e.classifyDay(ctx, e.store, clinicID, doctorID, date)
	if err != nil {
		return nil, err
	}
	day.Weekday = wd
	e.metrics.ObserveListing(day.Closed, len(day.Available()))
	return day, nil
}

func (e *Engine) classifyDay(ctx context.Context, store Store, clinicID, doctorID, date string) (*DayAvailability, error) {
	schedule, slotMinutes, err := store.FetchClinicSchedule(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	slotMinutes = models.ClampSlotMinutes(slotMinutes)

	day := &DayAvailability{
		ClinicID:    clinicID,
		DoctorID:    doctorID,
		Date:        date,
		SlotMinutes: slotMinutes,
		Slots:       []SlotAvailability{},
	}

	window, slots, err := SlotsFor(schedule, date, slotMinutes)
	if err != nil {
		return nil, err
	}
	if window == nil {
		day.Closed = true
		return day, nil
	}
	if len(slots) == 0 {
		e.log.Warn().Str("clinic_id", clinicID).Str("date", date).Msg("schedule window yields no slots, check for malformed times")
		return day, nil
	}

	bookings, err := store.FetchBookings(ctx, doctorID, clinicID, Day(date))
	if err != nil {
		return nil, err
	}
	blocks, err := store.FetchBlockedSlots(ctx, doctorID, clinicID, Day(date))
	if err != nil {
		return nil, err
	}

	states := Classify(slots, date, clinicID, bookings, blocks)
	for _, slot := range slots {
		day.Slots = append(day.Slots, SlotAvailability{Time: slot, State: states[slot]})
	}
	return day, nil
}

func (d *DayAvailability) stateOf(slot string) (SlotState, bool) {
	for _, s := range d.Slots {
		if s.Time == slot {
			return s.State, true
		}
	}
	return "", false
}

// AttemptBooking commits a sweep of stale holds, then in one transaction
// applies the one-booking-per-patient-per-day rule, re-checks the slot against
// fresh state and inserts a pending hold. Rejections are ErrAlreadyBooked,
// ErrSlotUnavailable or ErrDayClosed.
func (e *Engine) AttemptBooking(ctx context.Context, req BookingRequest) (*models.Booking, error) {
	slot, ok := NormalizeTime(req.Slot)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMalformedTime, req.Slot)
	}
	if _, err := ParseDate(req.Date); err != nil {
		return nil, err
	}

	// Committed on its own so a rejection below cannot roll it back.
	var booking *models.Booking
	err := e.sweepFor(ctx, e.store, req.DoctorID, req.PatientID)
	if err == nil {
		err = e.store.WithinTx(ctx, func(tx Store) error {
			var err error
			booking, err = e.attempt(ctx, tx, req, slot)
			return err
		})
	}

	e.observeAttempt("book", err)
	if err != nil {
		e.logRejection(err, "", req.ClinicID, req.DoctorID, req.Date, slot)
		return nil, err
	}
	e.log.Info().Str("booking_id", booking.ID).Str("clinic_id", req.ClinicID).Str("date", req.Date).Str("slot", slot).Msg("booking held")
	return booking, nil
}

func (e *Engine) attempt(ctx context.Context, tx Store, req BookingRequest, slot string) (*models.Booking, error) {
	if err := tx.LockDay(ctx, req.ClinicID, req.Date); err != nil {
		return nil, err
	}
	// holds may have lapsed since the committed sweep
	if err := e.sweepFor(ctx, tx, req.DoctorID, req.PatientID); err != nil {
		return nil, err
	}
	if err := e.checkPatientDay(ctx, tx, req.PatientID, req.Date, ""); err != nil {
		return nil, err
	}
	if err := e.checkSlotFree(ctx, tx, req.ClinicID, req.DoctorID, req.Date, slot); err != nil {
		return nil, err
	}

	b := &models.Booking{
		ClinicID:  req.ClinicID,
		DoctorID:  req.DoctorID,
		Date:      req.Date,
		TimeSlot:  slot,
		Status:    models.StatusPending,
		Notes:     req.Notes,
		CreatedAt: e.clock.Now(),
	}
	if req.PatientID != "" {
		patientID := req.PatientID
		b.PatientID = &patientID
	}
	if err := tx.InsertBooking(ctx, b); err != nil {
		return nil, translateConflict(err)
	}
	return b, nil
}

// RescheduleBooking moves a pending or confirmed booking to a new date and
// slot in place. Status and created_at are kept, so a pending hold keeps its
// original expiry.
func (e *Engine) RescheduleBooking(ctx context.Context, bookingID, newDate, newSlot string) (*models.Booking, error) {
	slot, ok := NormalizeTime(newSlot)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMalformedTime, newSlot)
	}
	if _, err := ParseDate(newDate); err != nil {
		return nil, err
	}

	current, err := e.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	patientID := ""
	if current.PatientID != nil {
		patientID = *current.PatientID
	}

	var moved models.Booking
	err = e.sweepFor(ctx, e.store, current.DoctorID, patientID)
	if err == nil {
		err = e.store.WithinTx(ctx, func(tx Store) error {
			if err := tx.LockDay(ctx, current.ClinicID, newDate); err != nil {
				return err
			}
			if err := e.sweepFor(ctx, tx, current.DoctorID, patientID); err != nil {
				return err
			}
			// re-read: the sweep may have just expired this very hold
			b, err := tx.GetBooking(ctx, bookingID)
			if err != nil {
				return err
			}
			if !b.Status.Occupies() {
				return fmt.Errorf("%w: cannot reschedule a %s booking", ErrInvalidTransition, b.Status)
			}
			if b.Date == newDate && normalizeSlot(b.TimeSlot) == slot {
				moved = b
				return nil
			}
			if err := e.checkPatientDay(ctx, tx, patientID, newDate, b.ID); err != nil {
				return err
			}
			if err := e.checkSlotFree(ctx, tx, b.ClinicID, b.DoctorID, newDate, slot); err != nil {
				return err
			}
			if err := tx.UpdateBookingSlot(ctx, b.ID, newDate, slot); err != nil {
				return translateConflict(err)
			}
			b.Date = newDate
			b.TimeSlot = slot
			moved = b
			return nil
		})
	}

	e.observeAttempt("reschedule", err)
	if err != nil {
		e.logRejection(err, bookingID, current.ClinicID, current.DoctorID, newDate, slot)
		return nil, err
	}
	return &moved, nil
}

// UpdateStatus applies a doctor or patient decision to a booking. Stale
// holds are swept first, so confirming an expired hold fails.
func (e *Engine) UpdateStatus(ctx context.Context, bookingID string, to models.BookingStatus) (*models.Booking, error) {
	current, err := e.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	// Committed first so a refused transition still leaves an expired hold cancelled.
	if _, err := e.sweep(ctx, e.store, current.DoctorID); err != nil {
		return nil, err
	}

	var updated models.Booking
	err = e.store.WithinTx(ctx, func(tx Store) error {
		if _, err := e.sweep(ctx, tx, current.DoctorID); err != nil {
			return err
		}
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := b.Status.CanTransition(to); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
		}
		if err := tx.UpdateBookingStatus(ctx, b.ID, to); err != nil {
			return err
		}
		b.Status = to
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.metrics.ObserveTransition(string(to))
	return &updated, nil
}

// checkPatientDay rejects a second live booking for the patient on date,
// at any clinic. except is a booking id to ignore.
func (e *Engine) checkPatientDay(ctx context.Context, tx Store, patientID, date, except string) error {
	if patientID == "" {
		return nil
	}
	existing, err := tx.FetchPatientBookingsOn(ctx, patientID, date)
	if err != nil {
		return err
	}
	cutoff := e.cutoff()
	for _, b := range existing {
		if b.ID == except || b.Date != date {
			continue
		}
		if b.Status == models.StatusConfirmed || b.IsLiveHold(cutoff) {
			return ErrAlreadyBooked
		}
	}
	return nil
}

func (e *Engine) checkSlotFree(ctx context.Context, tx Store, clinicID, doctorID, date, slot string) error {
	day, err := e.classifyDay(ctx, tx, clinicID, doctorID, date)
	if err != nil {
		return err
	}
	if day.Closed {
		return ErrDayClosed
	}
	state, ok := day.stateOf(slot)
	if !ok {
		return fmt.Errorf("%w: %s is not on the schedule", ErrSlotUnavailable, slot)
	}
	if state != SlotAvailable {
		return fmt.Errorf("%w: %s is %s", ErrSlotUnavailable, slot, state)
	}
	return nil
}

func translateConflict(err error) error {
	switch {
	case errors.Is(err, ErrSlotConflict):
		return fmt.Errorf("%w: %v", ErrSlotUnavailable, err)
	case errors.Is(err, ErrPatientDayConflict):
		return fmt.Errorf("%w: %v", ErrAlreadyBooked, err)
	}
	return err
}

func (e *Engine) observeAttempt(op string, err error) {
	outcome := "accepted"
	switch {
	case err == nil:
	case errors.Is(err, ErrSlotUnavailable):
		outcome = "slot_unavailable"
	case errors.Is(err, ErrAlreadyBooked):
		outcome = "already_booked"
	case errors.Is(err, ErrDayClosed):
		outcome = "day_closed"
	case errors.Is(err, ErrStoreUnavailable):
		outcome = "store_unavailable"
	default:
		outcome = "error"
	}
	e.metrics.ObserveAttempt(op, outcome)
}

func (e *Engine) logRejection(err error, bookingID, clinicID, doctorID, date, slot string) {
	ev := e.log.Info()
	if errors.Is(err, ErrStoreUnavailable) {
		ev = e.log.Error()
	}
	if bookingID != "" {
		ev = ev.Str("booking_id", bookingID)
	}
	ev.Err(err).Str("clinic_id", clinicID).Str("doctor_id", doctorID).Str("date", date).Str("slot", slot).Msg("booking rejected")
}
