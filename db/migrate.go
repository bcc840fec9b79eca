package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/meinhoongagan/clinic-booking/models"
)

// Partial unique indexes that make double booking impossible even when two
// transactions pass the in-process availability check at once.
var bookingIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + slotIndex + ` ON bookings (clinic_id, appointment_date, time_slot)
		WHERE status IN ('pending', 'confirmed')`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + patientDayIndex + ` ON bookings (patient_id, appointment_date)
		WHERE status IN ('pending', 'confirmed') AND patient_id IS NOT NULL`,
}

const (
	slotIndex       = "ux_bookings_active_slot"
	patientDayIndex = "ux_bookings_patient_day"
)

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Clinic{},
		&models.Booking{},
		&models.BlockedSlot{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	for _, stmt := range bookingIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create booking index: %w", err)
		}
	}
	return nil
}
