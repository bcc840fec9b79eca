package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BlockedSlot is a doctor-initiated exclusion of one slot on one date.
type BlockedSlot struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey"`
	ClinicID    string    `json:"clinic_id" gorm:"type:uuid;not null;uniqueIndex:ux_blocked_slots_slot"`
	DoctorID    string    `json:"doctor_id" gorm:"type:uuid;not null;index"`
	BlockedDate string    `json:"blocked_date" gorm:"type:varchar(10);not null;uniqueIndex:ux_blocked_slots_slot"`
	TimeSlot    string    `json:"time_slot" gorm:"type:varchar(5);not null;uniqueIndex:ux_blocked_slots_slot"`
	Reason      *string   `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (b *BlockedSlot) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}
