package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/meinhoongagan/clinic-booking/models"
	"github.com/meinhoongagan/clinic-booking/scheduling"
)

const uniqueViolation = "23505"

// Store is the postgres-backed scheduling.Store, plus the clinic, user and
// blocked slot persistence the HTTP layer needs.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, scheduling.ErrStoreUnavailable, err)
}

// translateWriteErr maps unique violations on the booking indexes to the
// scheduling conflict errors.
func translateWriteErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case patientDayIndex:
			return fmt.Errorf("%s: %w", op, scheduling.ErrPatientDayConflict)
		default:
			return fmt.Errorf("%s: %w", op, scheduling.ErrSlotConflict)
		}
	}
	return storeErr(op, err)
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx scheduling.Store) error) error {
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&Store{db: tx})
		return fnErr
	})
	if err != nil && fnErr == nil {
		return storeErr("transaction", err)
	}
	return err
}

// LockDay takes a transaction-scoped advisory lock on one clinic day.
func (s *Store) LockDay(ctx context.Context, clinicID, date string) error {
	key := clinicID + "|" + date
	if err := s.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error; err != nil {
		return storeErr("lock day", err)
	}
	return nil
}

func (s *Store) CreateClinic(ctx context.Context, c *models.Clinic) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return storeErr("create clinic", err)
	}
	return nil
}

func (s *Store) GetClinic(ctx context.Context, id string) (models.Clinic, error) {
	var c models.Clinic
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c, scheduling.ErrClinicNotFound
		}
		return c, storeErr("get clinic", err)
	}
	return c, nil
}

func (s *Store) SaveClinicSchedule(ctx context.Context, id string, schedule models.ClinicSchedule, slotMinutes int) (models.Clinic, error) {
	res := s.db.WithContext(ctx).Model(&models.Clinic{}).Where("id = ?", id).Updates(map[string]interface{}{
		"schedule":              schedule,
		"slot_duration_minutes": models.ClampSlotMinutes(slotMinutes),
	})
	if res.Error != nil {
		return models.Clinic{}, storeErr("save clinic schedule", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.Clinic{}, scheduling.ErrClinicNotFound
	}
	return s.GetClinic(ctx, id)
}

func (s *Store) FetchClinicSchedule(ctx context.Context, clinicID string) (models.ClinicSchedule, int, error) {
	var c models.Clinic
	err := s.db.WithContext(ctx).
		Select("id", "schedule", "slot_duration_minutes").
		Where("id = ?", clinicID).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ClinicSchedule{}, 0, scheduling.ErrClinicNotFound
		}
		return models.ClinicSchedule{}, 0, storeErr("fetch clinic schedule", err)
	}
	return c.Schedule, c.SlotDurationMinutes, nil
}

func (s *Store) FetchBookings(ctx context.Context, doctorID, clinicID string, r scheduling.DateRange) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Where("doctor_id = ? AND clinic_id = ?", doctorID, clinicID).
		Where("appointment_date BETWEEN ? AND ?", r.From, r.To).
		Order("appointment_date asc, time_slot asc").
		Find(&bookings).Error
	if err != nil {
		return nil, storeErr("fetch bookings", err)
	}
	return bookings, nil
}

func (s *Store) FetchPatientBookingsOn(ctx context.Context, patientID, date string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Where("patient_id = ? AND appointment_date = ?", patientID, date).
		Where("status IN ?", []models.BookingStatus{models.StatusPending, models.StatusConfirmed}).
		Find(&bookings).Error
	if err != nil {
		return nil, storeErr("fetch patient bookings", err)
	}
	return bookings, nil
}

func (s *Store) ListPatientBookings(ctx context.Context, patientID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("appointment_date desc, time_slot asc").
		Find(&bookings).Error
	if err != nil {
		return nil, storeErr("list patient bookings", err)
	}
	return bookings, nil
}

func (s *Store) ListDoctorBookings(ctx context.Context, doctorID string, r scheduling.DateRange) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Preload("Patient").
		Where("doctor_id = ?", doctorID).
		Where("appointment_date BETWEEN ? AND ?", r.From, r.To).
		Order("appointment_date asc, time_slot asc").
		Find(&bookings).Error
	if err != nil {
		return nil, storeErr("list doctor bookings", err)
	}
	for i := range bookings {
		if bookings[i].Patient != nil {
			bookings[i].Patient.Password = ""
		}
	}
	return bookings, nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (models.Booking, error) {
	var b models.Booking
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return b, scheduling.ErrBookingNotFound
		}
		return b, storeErr("get booking", err)
	}
	return b, nil
}

func (s *Store) InsertBooking(ctx context.Context, b *models.Booking) error {
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		return translateWriteErr("insert booking", err)
	}
	return nil
}

func (s *Store) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) error {
	res := s.db.WithContext(ctx).Model(&models.Booking{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return translateWriteErr("update booking status", res.Error)
	}
	if res.RowsAffected == 0 {
		return scheduling.ErrBookingNotFound
	}
	return nil
}

func (s *Store) UpdateBookingSlot(ctx context.Context, id, date, slot string) error {
	res := s.db.WithContext(ctx).Model(&models.Booking{}).Where("id = ?", id).Updates(map[string]interface{}{
		"appointment_date": date,
		"time_slot":        slot,
	})
	if res.Error != nil {
		return translateWriteErr("update booking slot", res.Error)
	}
	if res.RowsAffected == 0 {
		return scheduling.ErrBookingNotFound
	}
	return nil
}

func (s *Store) ExpirePendingOlderThan(ctx context.Context, doctorID string, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Booking{}).
		Where("doctor_id = ? AND status = ? AND created_at <= ?", doctorID, models.StatusPending, cutoff).
		Update("status", models.StatusCancelled)
	if res.Error != nil {
		return 0, storeErr("expire pending bookings", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) ExpirePatientPendingOlderThan(ctx context.Context, patientID string, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Booking{}).
		Where("patient_id = ? AND status = ? AND created_at <= ?", patientID, models.StatusPending, cutoff).
		Update("status", models.StatusCancelled)
	if res.Error != nil {
		return 0, storeErr("expire patient pending bookings", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) CompleteBookingsBefore(ctx context.Context, date string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Booking{}).
		Where("status = ? AND appointment_date < ?", models.StatusConfirmed, date).
		Update("status", models.StatusCompleted)
	if res.Error != nil {
		return 0, storeErr("complete past bookings", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) ConfirmedBookingsOn(ctx context.Context, date string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Preload("Patient").
		Where("status = ? AND appointment_date = ?", models.StatusConfirmed, date).
		Order("time_slot asc").
		Find(&bookings).Error
	if err != nil {
		return nil, storeErr("confirmed bookings", err)
	}
	return bookings, nil
}

func (s *Store) FetchBlockedSlots(ctx context.Context, doctorID, clinicID string, r scheduling.DateRange) ([]models.BlockedSlot, error) {
	var blocks []models.BlockedSlot
	err := s.db.WithContext(ctx).
		Where("doctor_id = ? AND clinic_id = ?", doctorID, clinicID).
		Where("blocked_date BETWEEN ? AND ?", r.From, r.To).
		Order("blocked_date asc, time_slot asc").
		Find(&blocks).Error
	if err != nil {
		return nil, storeErr("fetch blocked slots", err)
	}
	return blocks, nil
}

func (s *Store) CreateBlockedSlot(ctx context.Context, b *models.BlockedSlot) error {
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		return translateWriteErr("create blocked slot", err)
	}
	return nil
}

func (s *Store) GetBlockedSlot(ctx context.Context, id string) (models.BlockedSlot, error) {
	var b models.BlockedSlot
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return b, scheduling.ErrBlockNotFound
		}
		return b, storeErr("get blocked slot", err)
	}
	return b, nil
}

func (s *Store) DeleteBlockedSlot(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.BlockedSlot{})
	if res.Error != nil {
		return storeErr("delete blocked slot", res.Error)
	}
	if res.RowsAffected == 0 {
		return scheduling.ErrBlockNotFound
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return storeErr("create user", err)
	}
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return u, models.ErrUserNotFound
		}
		return u, storeErr("find user", err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return u, models.ErrUserNotFound
		}
		return u, storeErr("get user", err)
	}
	return u, nil
}
