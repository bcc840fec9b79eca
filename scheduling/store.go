package scheduling

import (
	"context"
	"time"

	"github.com/meinhoongagan/clinic-booking/models"
)

// DateRange is an inclusive range of YYYY-MM-DD dates.
type DateRange struct {
	From string
	To   string
}

// Day is the single-day range.
func Day(date string) DateRange {
	return DateRange{From: date, To: date}
}

// Store is the persistence the engine reads and writes through. Failures
// must be wrapped with ErrStoreUnavailable; an empty result is never a
// stand-in for a failed fetch.
type Store interface {
	FetchClinicSchedule(ctx context.Context, clinicID string) (models.ClinicSchedule, int, error)
	FetchBookings(ctx context.Context, doctorID, clinicID string, r DateRange) ([]models.Booking, error)
	FetchPatientBookingsOn(ctx context.Context, patientID, date string) ([]models.Booking, error)
	FetchBlockedSlots(ctx context.Context, doctorID, clinicID string, r DateRange) ([]models.BlockedSlot, error)
	GetBooking(ctx context.Context, id string) (models.Booking, error)

	// InsertBooking returns ErrSlotConflict or ErrPatientDayConflict when a
	// uniqueness guarantee rejects the row.
	InsertBooking(ctx context.Context, b *models.Booking) error
	UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) error
	// UpdateBookingSlot moves a booking in place; created_at is preserved.
	UpdateBookingSlot(ctx context.Context, id, date, slot string) error
	ExpirePendingOlderThan(ctx context.Context, doctorID string, cutoff time.Time) (int64, error)
	ExpirePatientPendingOlderThan(ctx context.Context, patientID string, cutoff time.Time) (int64, error)

	// LockDay serializes writers on one clinic day for the rest of the transaction.
	LockDay(ctx context.Context, clinicID, date string) error
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// Clock is the engine's source of "now".
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }
