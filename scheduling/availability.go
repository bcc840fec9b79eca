package scheduling

import "github.com/meinhoongagan/clinic-booking/models"

type SlotState string

const (
	SlotAvailable SlotState = "available"
	SlotBooked    SlotState = "booked"
	SlotPending   SlotState = "pending"
	SlotBlocked   SlotState = "blocked"
)

// Classify labels each candidate slot for one clinic day. Occupancy is keyed
// by clinic, date and slot. Blocks win over confirmed bookings, which win over
// pending holds. Pending records are taken at face value: stale holds must be
// swept before the records are fetched.
func Classify(slots []string, date, clinicID string, bookings []models.Booking, blocks []models.BlockedSlot) map[string]SlotState {
	blocked := make(map[string]bool)
	for _, b := range blocks {
		if b.BlockedDate == date && b.ClinicID == clinicID {
			blocked[normalizeSlot(b.TimeSlot)] = true
		}
	}
	confirmed := make(map[string]bool)
	pending := make(map[string]bool)
	for _, b := range bookings {
		if b.Date != date || b.ClinicID != clinicID {
			continue
		}
		switch b.Status {
		case models.StatusConfirmed:
			confirmed[normalizeSlot(b.TimeSlot)] = true
		case models.StatusPending:
			pending[normalizeSlot(b.TimeSlot)] = true
		}
	}

	states := make(map[string]SlotState, len(slots))
	for _, slot := range slots {
		switch {
		case blocked[slot]:
			states[slot] = SlotBlocked
		case confirmed[slot]:
			states[slot] = SlotBooked
		case pending[slot]:
			states[slot] = SlotPending
		default:
			states[slot] = SlotAvailable
		}
	}
	return states
}

// normalizeSlot lets rows stored as "9:00" match the "09:00" grid.
func normalizeSlot(slot string) string {
	if n, ok := NormalizeTime(slot); ok {
		return n
	}
	return slot
}
