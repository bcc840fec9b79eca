package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultSlotMinutes = 30
	MinSlotMinutes     = 20
	MaxSlotMinutes     = 120
)

// ClampSlotMinutes applies the persisted slot duration bounds. Zero means unset.
func ClampSlotMinutes(m int) int {
	switch {
	case m == 0:
		return DefaultSlotMinutes
	case m < MinSlotMinutes:
		return MinSlotMinutes
	case m > MaxSlotMinutes:
		return MaxSlotMinutes
	}
	return m
}

type Clinic struct {
	ID                  string         `json:"id" gorm:"type:uuid;primaryKey"`
	Name                string         `json:"name" gorm:"not null"`
	Address             string         `json:"address"`
	DoctorID            string         `json:"doctor_id" gorm:"type:uuid;index;not null"`
	Doctor              *User          `json:"doctor,omitempty" gorm:"foreignKey:DoctorID"`
	Schedule            ClinicSchedule `json:"schedule" gorm:"type:jsonb"`
	SlotDurationMinutes int            `json:"slot_duration_minutes" gorm:"default:30"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

func (c *Clinic) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.SlotDurationMinutes = ClampSlotMinutes(c.SlotDurationMinutes)
	return nil
}

func (c *Clinic) BeforeSave(tx *gorm.DB) error {
	c.SlotDurationMinutes = ClampSlotMinutes(c.SlotDurationMinutes)
	return nil
}
