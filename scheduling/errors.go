package scheduling

import "errors"

var (
	ErrMalformedTime     = errors.New("malformed time of day")
	ErrInvalidDate       = errors.New("invalid date, use YYYY-MM-DD")
	ErrDayClosed         = errors.New("clinic is closed on this day")
	ErrSlotUnavailable   = errors.New("slot is no longer available")
	ErrAlreadyBooked     = errors.New("patient already has an appointment on this day")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrClinicNotFound    = errors.New("clinic not found")
	ErrBlockNotFound     = errors.New("blocked slot not found")
	ErrInvalidTransition = errors.New("invalid status transition")

	// Returned by a Store when one of the backing uniqueness guarantees rejects a write.
	ErrSlotConflict       = errors.New("slot already taken")
	ErrPatientDayConflict = errors.New("patient already booked on this day")
)
