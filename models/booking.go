package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

// Occupies reports whether a booking in this status holds its slot.
func (s BookingStatus) Occupies() bool {
	return s == StatusPending || s == StatusConfirmed
}

// CanTransition checks the booking lifecycle:
// pending -> confirmed|cancelled, confirmed -> completed|cancelled.
func (s BookingStatus) CanTransition(to BookingStatus) error {
	switch s {
	case StatusPending:
		if to != StatusConfirmed && to != StatusCancelled {
			return fmt.Errorf("invalid transition from pending to %s", to)
		}
	case StatusConfirmed:
		if to != StatusCompleted && to != StatusCancelled {
			return fmt.Errorf("invalid transition from confirmed to %s", to)
		}
	case StatusCompleted, StatusCancelled:
		return fmt.Errorf("no transitions allowed from %s", s)
	default:
		return fmt.Errorf("unknown status %q", s)
	}
	return nil
}

type Booking struct {
	ID        string        `json:"id" gorm:"type:uuid;primaryKey"`
	ClinicID  string        `json:"clinic_id" gorm:"type:uuid;not null;index:idx_bookings_clinic_day"`
	DoctorID  string        `json:"doctor_id" gorm:"type:uuid;not null;index"`
	PatientID *string       `json:"patient_id,omitempty" gorm:"type:uuid;index"`
	Patient   *User         `json:"patient,omitempty" gorm:"foreignKey:PatientID"`
	Date      string        `json:"date" gorm:"column:appointment_date;type:varchar(10);not null;index:idx_bookings_clinic_day"`
	TimeSlot  string        `json:"time_slot" gorm:"type:varchar(5);not null"`
	Status    BookingStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	Notes     string        `json:"notes,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.Status == "" {
		b.Status = StatusPending
	}
	return nil
}

// IsLiveHold reports whether a pending booking still holds its slot at cutoff,
// i.e. it was created after cutoff.
func (b Booking) IsLiveHold(cutoff time.Time) bool {
	return b.Status == StatusPending && b.CreatedAt.After(cutoff)
}

// BelongsTo reports whether the booking was made by the given patient.
func (b Booking) BelongsTo(patientID string) bool {
	return b.PatientID != nil && *b.PatientID == patientID
}
