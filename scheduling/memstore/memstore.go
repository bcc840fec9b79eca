// Package memstore is an in-process scheduling.Store. It enforces the same
// two uniqueness guarantees as the postgres schema and runs WithinTx
// serially with rollback on error.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meinhoongagan/clinic-booking/models"
	"github.com/meinhoongagan/clinic-booking/scheduling"
)

type state struct {
	clinics  map[string]models.Clinic
	bookings map[string]models.Booking
	blocks   map[string]models.BlockedSlot
	users    map[string]models.User
}

func (s state) clone() state {
	c := state{
		clinics:  make(map[string]models.Clinic, len(s.clinics)),
		bookings: make(map[string]models.Booking, len(s.bookings)),
		blocks:   make(map[string]models.BlockedSlot, len(s.blocks)),
		users:    make(map[string]models.User, len(s.users)),
	}
	for k, v := range s.clinics {
		c.clinics[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.blocks {
		c.blocks[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

type Store struct {
	mu    *sync.Mutex
	st    *state
	inTx  bool
	clock scheduling.Clock
}

func New() *Store {
	return &Store{
		mu: &sync.Mutex{},
		st: &state{
			clinics:  map[string]models.Clinic{},
			bookings: map[string]models.Booking{},
			blocks:   map[string]models.BlockedSlot{},
			users:    map[string]models.User{},
		},
		clock: scheduling.SystemClock,
	}
}

// SetClock sets the clock used for updated_at stamps.
func (s *Store) SetClock(c scheduling.Clock) { s.clock = c }

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx scheduling.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	tx := &Store{mu: s.mu, st: s.st, inTx: true, clock: s.clock}
	if err := fn(tx); err != nil {
		*s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) LockDay(ctx context.Context, clinicID, date string) error { return nil }

func (s *Store) CreateClinic(ctx context.Context, c *models.Clinic) error {
	defer s.lock()()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.SlotDurationMinutes = models.ClampSlotMinutes(c.SlotDurationMinutes)
	now := s.clock.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	s.st.clinics[c.ID] = *c
	return nil
}

func (s *Store) GetClinic(ctx context.Context, id string) (models.Clinic, error) {
	defer s.lock()()
	c, ok := s.st.clinics[id]
	if !ok {
		return models.Clinic{}, scheduling.ErrClinicNotFound
	}
	return c, nil
}

func (s *Store) SaveClinicSchedule(ctx context.Context, id string, schedule models.ClinicSchedule, slotMinutes int) (models.Clinic, error) {
	defer s.lock()()
	c, ok := s.st.clinics[id]
	if !ok {
		return models.Clinic{}, scheduling.ErrClinicNotFound
	}
	c.Schedule = schedule
	c.SlotDurationMinutes = models.ClampSlotMinutes(slotMinutes)
	c.UpdatedAt = s.clock.Now()
	s.st.clinics[id] = c
	return c, nil
}

func (s *Store) FetchClinicSchedule(ctx context.Context, clinicID string) (models.ClinicSchedule, int, error) {
	c, err := s.GetClinic(ctx, clinicID)
	if err != nil {
		return models.ClinicSchedule{}, 0, err
	}
	return c.Schedule, c.SlotDurationMinutes, nil
}

func inRange(date string, r scheduling.DateRange) bool {
	return date >= r.From && date <= r.To
}

func (s *Store) FetchBookings(ctx context.Context, doctorID, clinicID string, r scheduling.DateRange) ([]models.Booking, error) {
	defer s.lock()()
	var out []models.Booking
	for _, b := range s.st.bookings {
		if b.DoctorID == doctorID && b.ClinicID == clinicID && inRange(b.Date, r) {
			out = append(out, b)
		}
	}
	sortBookings(out)
	return out, nil
}

func (s *Store) FetchPatientBookingsOn(ctx context.Context, patientID, date string) ([]models.Booking, error) {
	defer s.lock()()
	var out []models.Booking
	for _, b := range s.st.bookings {
		if b.BelongsTo(patientID) && b.Date == date && b.Status.Occupies() {
			out = append(out, b)
		}
	}
	sortBookings(out)
	return out, nil
}

func (s *Store) ListPatientBookings(ctx context.Context, patientID string) ([]models.Booking, error) {
	defer s.lock()()
	var out []models.Booking
	for _, b := range s.st.bookings {
		if b.BelongsTo(patientID) {
			out = append(out, b)
		}
	}
	sortBookings(out)
	return out, nil
}

func (s *Store) ListDoctorBookings(ctx context.Context, doctorID string, r scheduling.DateRange) ([]models.Booking, error) {
	defer s.lock()()
	var out []models.Booking
	for _, b := range s.st.bookings {
		if b.DoctorID == doctorID && inRange(b.Date, r) {
			out = append(out, b)
		}
	}
	sortBookings(out)
	return out, nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (models.Booking, error) {
	defer s.lock()()
	b, ok := s.st.bookings[id]
	if !ok {
		return models.Booking{}, scheduling.ErrBookingNotFound
	}
	return b, nil
}

func (s *Store) conflict(b models.Booking, ignoreID string) error {
	for _, other := range s.st.bookings {
		if other.ID == ignoreID || !other.Status.Occupies() || other.Date != b.Date {
			continue
		}
		if other.ClinicID == b.ClinicID && other.TimeSlot == b.TimeSlot {
			return fmt.Errorf("%w: %s %s", scheduling.ErrSlotConflict, b.Date, b.TimeSlot)
		}
		if b.PatientID != nil && other.BelongsTo(*b.PatientID) {
			return fmt.Errorf("%w: %s", scheduling.ErrPatientDayConflict, b.Date)
		}
	}
	return nil
}

func (s *Store) InsertBooking(ctx context.Context, b *models.Booking) error {
	defer s.lock()()
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.Status == "" {
		b.Status = models.StatusPending
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.clock.Now()
	}
	b.UpdatedAt = b.CreatedAt
	if b.Status.Occupies() {
		if err := s.conflict(*b, ""); err != nil {
			return err
		}
	}
	s.st.bookings[b.ID] = *b
	return nil
}

func (s *Store) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) error {
	defer s.lock()()
	b, ok := s.st.bookings[id]
	if !ok {
		return scheduling.ErrBookingNotFound
	}
	b.Status = status
	b.UpdatedAt = s.clock.Now()
	if status.Occupies() {
		if err := s.conflict(b, id); err != nil {
			return err
		}
	}
	s.st.bookings[id] = b
	return nil
}

func (s *Store) UpdateBookingSlot(ctx context.Context, id, date, slot string) error {
	defer s.lock()()
	b, ok := s.st.bookings[id]
	if !ok {
		return scheduling.ErrBookingNotFound
	}
	b.Date = date
	b.TimeSlot = slot
	b.UpdatedAt = s.clock.Now()
	if err := s.conflict(b, id); err != nil {
		return err
	}
	s.st.bookings[id] = b
	return nil
}

func (s *Store) ExpirePendingOlderThan(ctx context.Context, doctorID string, cutoff time.Time) (int64, error) {
	defer s.lock()()
	var n int64
	for id, b := range s.st.bookings {
		if b.DoctorID == doctorID && b.Status == models.StatusPending && !b.CreatedAt.After(cutoff) {
			b.Status = models.StatusCancelled
			b.UpdatedAt = s.clock.Now()
			s.st.bookings[id] = b
			n++
		}
	}
	return n, nil
}

func (s *Store) ExpirePatientPendingOlderThan(ctx context.Context, patientID string, cutoff time.Time) (int64, error) {
	defer s.lock()()
	var n int64
	for id, b := range s.st.bookings {
		if b.BelongsTo(patientID) && b.Status == models.StatusPending && !b.CreatedAt.After(cutoff) {
			b.Status = models.StatusCancelled
			b.UpdatedAt = s.clock.Now()
			s.st.bookings[id] = b
			n++
		}
	}
	return n, nil
}

// CompleteBookingsBefore marks confirmed bookings dated before date as completed.
func (s *Store) CompleteBookingsBefore(ctx context.Context, date string) (int64, error) {
	defer s.lock()()
	var n int64
	for id, b := range s.st.bookings {
		if b.Status == models.StatusConfirmed && b.Date < date {
			b.Status = models.StatusCompleted
			b.UpdatedAt = s.clock.Now()
			s.st.bookings[id] = b
			n++
		}
	}
	return n, nil
}

func (s *Store) ConfirmedBookingsOn(ctx context.Context, date string) ([]models.Booking, error) {
	defer s.lock()()
	var out []models.Booking
	for _, b := range s.st.bookings {
		if b.Status == models.StatusConfirmed && b.Date == date {
			if b.PatientID != nil {
				if u, ok := s.st.users[*b.PatientID]; ok {
					u := u
					b.Patient = &u
				}
			}
			out = append(out, b)
		}
	}
	sortBookings(out)
	return out, nil
}

func (s *Store) FetchBlockedSlots(ctx context.Context, doctorID, clinicID string, r scheduling.DateRange) ([]models.BlockedSlot, error) {
	defer s.lock()()
	var out []models.BlockedSlot
	for _, b := range s.st.blocks {
		if b.DoctorID == doctorID && b.ClinicID == clinicID && inRange(b.BlockedDate, r) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BlockedDate != out[j].BlockedDate {
			return out[i].BlockedDate < out[j].BlockedDate
		}
		return out[i].TimeSlot < out[j].TimeSlot
	})
	return out, nil
}

func (s *Store) CreateBlockedSlot(ctx context.Context, b *models.BlockedSlot) error {
	defer s.lock()()
	for _, other := range s.st.blocks {
		if other.ClinicID == b.ClinicID && other.BlockedDate == b.BlockedDate && other.TimeSlot == b.TimeSlot {
			return fmt.Errorf("%w: already blocked", scheduling.ErrSlotConflict)
		}
	}
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	b.CreatedAt = s.clock.Now()
	s.st.blocks[b.ID] = *b
	return nil
}

func (s *Store) GetBlockedSlot(ctx context.Context, id string) (models.BlockedSlot, error) {
	defer s.lock()()
	b, ok := s.st.blocks[id]
	if !ok {
		return models.BlockedSlot{}, scheduling.ErrBlockNotFound
	}
	return b, nil
}

func (s *Store) DeleteBlockedSlot(ctx context.Context, id string) error {
	defer s.lock()()
	if _, ok := s.st.blocks[id]; !ok {
		return scheduling.ErrBlockNotFound
	}
	delete(s.st.blocks, id)
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	defer s.lock()()
	for _, other := range s.st.users {
		if other.Email == u.Email {
			return fmt.Errorf("email %s already registered", u.Email)
		}
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Role == "" {
		u.Role = models.RolePatient
	}
	u.CreatedAt = s.clock.Now()
	s.st.users[u.ID] = *u
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	defer s.lock()()
	for _, u := range s.st.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, models.ErrUserNotFound
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	defer s.lock()()
	u, ok := s.st.users[id]
	if !ok {
		return models.User{}, models.ErrUserNotFound
	}
	return u, nil
}

func sortBookings(bs []models.Booking) {
	sort.Slice(bs, func(i, j int) bool {
		if bs[i].Date != bs[j].Date {
			return bs[i].Date < bs[j].Date
		}
		if bs[i].TimeSlot != bs[j].TimeSlot {
			return bs[i].TimeSlot < bs[j].TimeSlot
		}
		return bs[i].CreatedAt.Before(bs[j].CreatedAt)
	})
}
