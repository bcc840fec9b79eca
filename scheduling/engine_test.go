package scheduling_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meinhoongagan/clinic-booking/models"
	"github.com/meinhoongagan/clinic-booking/scheduling"
	"github.com/meinhoongagan/clinic-booking/scheduling/memstore"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func str(s string) *string { return &s }

type fixture struct {
	store  *memstore.Store
	engine *scheduling.Engine
	clock  *fakeClock
	clinic models.Clinic
	other  models.Clinic
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC)}
	store := memstore.New()
	store.SetClock(clock)

	clinic := models.Clinic{
		Name:     "Sunrise",
		DoctorID: "doc-1",
		Schedule: models.ClinicSchedule{
			Default:   &models.DaySchedule{Start: str("09:00"), End: str("12:00")},
			WeeklyOff: []models.Weekday{models.Saturday},
		},
		SlotDurationMinutes: 30,
	}
	require.NoError(t, store.CreateClinic(ctx, &clinic))

	other := models.Clinic{
		Name:                "Lakeside",
		DoctorID:            "doc-2",
		Schedule:            models.ClinicSchedule{Default: &models.DaySchedule{Start: str("14:00"), End: str("16:00")}},
		SlotDurationMinutes: 60,
	}
	require.NoError(t, store.CreateClinic(ctx, &other))

	return &fixture{
		store:  store,
		engine: scheduling.NewEngine(store, scheduling.WithClock(clock)),
		clock:  clock,
		clinic: clinic,
		other:  other,
	}
}

func (f *fixture) book(patient, date, slot string) (*models.Booking, error) {
	return f.engine.AttemptBooking(context.Background(), scheduling.BookingRequest{
		PatientID: patient,
		ClinicID:  f.clinic.ID,
		DoctorID:  f.clinic.DoctorID,
		Date:      date,
		Slot:      slot,
	})
}

func stateOf(day *scheduling.DayAvailability, slot string) scheduling.SlotState {
	for _, s := range day.Slots {
		if s.Time == slot {
			return s.State
		}
	}
	return ""
}

func TestListAvailableSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.book("pat-1", "2026-02-02", "09:00")
	require.NoError(t, err)
	require.NoError(t, f.store.CreateBlockedSlot(ctx, &models.BlockedSlot{
		ClinicID: f.clinic.ID, DoctorID: f.clinic.DoctorID, BlockedDate: "2026-02-02", TimeSlot: "11:30",
	}))

	day, err := f.engine.ListAvailableSlots(ctx, f.clinic.ID, f.clinic.DoctorID, "2026-02-02")
	require.NoError(t, err)
	assert.Equal(t, models.Monday, day.Weekday)
	assert.False(t, day.Closed)
	assert.Equal(t, 30, day.SlotMinutes)
	assert.Len(t, day.Slots, 6)
	assert.Equal(t, scheduling.SlotPending, stateOf(day, "09:00"))
	assert.Equal(t, scheduling.SlotBlocked, stateOf(day, "11:30"))
	assert.Equal(t, []string{"09:30", "10:00", "10:30", "11:00"}, day.Available())
}

func TestListAvailableSlotsIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.book("pat-1", "2026-02-02", "10:00")
	require.NoError(t, err)

	first, err := f.engine.ListAvailableSlots(ctx, f.clinic.ID, f.clinic.DoctorID, "2026-02-02")
	require.NoError(t, err)
	second, err := f.engine.ListAvailableSlots(ctx, f.clinic.ID, f.clinic.DoctorID, "2026-02-02")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestListAvailableSlotsClosedDay(t *testing.T) {
	f := newFixture(t)
	day, err := f.engine.ListAvailableSlots(context.Background(), f.clinic.ID, f.clinic.DoctorID, "2026-02-07")
	require.NoError(t, err)
	assert.True(t, day.Closed)
	assert.Empty(t, day.Slots)
	assert.Equal(t, models.Saturday, day.Weekday)
}

func TestListAvailableSlotsMalformedStoredScheduleDegrades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.SaveClinicSchedule(ctx, f.clinic.ID, models.ClinicSchedule{
		Default: &models.DaySchedule{Start: str("nine"), End: str("12:00")},
	}, 30)
	require.NoError(t, err)

	day, err := f.engine.ListAvailableSlots(ctx, f.clinic.ID, f.clinic.DoctorID, "2026-02-02")
	require.NoError(t, err)
	assert.False(t, day.Closed)
	assert.Empty(t, day.Slots)
}

func TestListAvailableSlotsErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.ListAvailableSlots(ctx, f.clinic.ID, f.clinic.DoctorID, "02/02/2026")
	assert.ErrorIs(t, err, scheduling.ErrInvalidDate)

	_, err = f.engine.ListAvailableSlots(ctx, "missing", "doc-1", "2026-02-02")
	assert.ErrorIs(t, err, scheduling.ErrClinicNotFound)
}

func TestAttemptBookingAccepted(t *testing.T) {
	f := newFixture(t)
	b, err := f.book("pat-1", "2026-02-02", "9:30")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, b.Status)
	assert.Equal(t, "09:30", b.TimeSlot)
	assert.Equal(t, f.clock.Now(), b.CreatedAt)
	require.NotNil(t, b.PatientID)
	assert.Equal(t, "pat-1", *b.PatientID)
}

func TestAttemptBookingRejections(t *testing.T) {
	f := newFixture(t)
	_, err := f.book("pat-1", "2026-02-02", "09:00")
	require.NoError(t, err)

	tests := []struct {
		name    string
		patient string
		date    string
		slot    string
		want    error
	}{
		{"slot taken by pending hold", "pat-2", "2026-02-02", "09:00", scheduling.ErrSlotUnavailable},
		{"same patient same day", "pat-1", "2026-02-02", "10:00", scheduling.ErrAlreadyBooked},
		{"slot not on grid", "pat-2", "2026-02-02", "09:15", scheduling.ErrSlotUnavailable},
		{"slot past closing", "pat-2", "2026-02-02", "12:00", scheduling.ErrSlotUnavailable},
		{"weekly off", "pat-2", "2026-02-07", "09:00", scheduling.ErrDayClosed},
		{"malformed slot", "pat-2", "2026-02-02", "nine", scheduling.ErrMalformedTime},
		{"malformed date", "pat-2", "2026-13-02", "09:00", scheduling.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.book(tt.patient, tt.date, tt.slot)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAttemptBookingBlockedSlot(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.CreateBlockedSlot(context.Background(), &models.BlockedSlot{
		ClinicID: f.clinic.ID, DoctorID: f.clinic.DoctorID, BlockedDate: "2026-02-02", TimeSlot: "10:00",
	}))
	_, err := f.book("pat-1", "2026-02-02", "10:00")
	assert.ErrorIs(t, err, scheduling.ErrSlotUnavailable)
}

func TestAlreadyBookedAcrossClinics(t *testing.T) {
	f := newFixture(t)
	_, err := f.book("pat-1", "2026-02-01", "09:00")
	require.NoError(t, err)

	_, err = f.engine.AttemptBooking(context.Background(), scheduling.BookingRequest{
		PatientID: "pat-1",
		ClinicID:  f.other.ID,
		DoctorID:  f.other.DoctorID,
		Date:      "2026-02-01",
		Slot:      "14:00",
	})
	assert.ErrorIs(t, err, scheduling.ErrAlreadyBooked)

	// a different day is fine
	_, err = f.engine.AttemptBooking(context.Background(), scheduling.BookingRequest{
		PatientID: "pat-1",
		ClinicID:  f.other.ID,
		DoctorID:  f.other.DoctorID,
		Date:      "2026-02-03",
		Slot:      "14:00",
	})
	assert.NoError(t, err)
}

func TestExpiredHoldFreesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stale, err := f.book("pat-1", "2026-02-02", "09:00")
	require.NoError(t, err)

	f.clock.Advance(14 * time.Minute)
	_, err = f.book("pat-2", "2026-02-02", "09:00")
	assert.ErrorIs(t, err, scheduling.ErrSlotUnavailable, "hold is still live")

	f.clock.Advance(2 * time.Minute)
	fresh, err := f.book("pat-2", "2026-02-02", "09:00")
	require.NoError(t, err)
	assert.NotEqual(t, stale.ID, fresh.ID)

	old, err := f.store.GetBooking(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, old.Status)
}

func TestExpiredHoldDoesNotCountAsSameDayBooking(t *testing.T) {
	f := newFixture(t)
	_, err := f.book("pat-1", "2026-02-02", "09:00")
	require.NoError(t, err)

	f.clock.Advance(16 * time.Minute)
	_, err = f.book("pat-1", "2026-02-02", "10:00")
	assert.NoError(t, err)
}

func (f *fixture) bookOther(patient, date, slot string) (*models.Booking, error) {
	return f.engine.AttemptBooking(context.Background(), scheduling.BookingRequest{
		PatientID: patient,
		ClinicID:  f.other.ID,
		DoctorID:  f.other.DoctorID,
		Date:      date,
		Slot:      slot,
	})
}

func TestExpiredHoldWithAnotherDoctorDoesNotBlockPatient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stale, err := f.book("pat-1", "2026-02-02", "09:00")
	require.NoError(t, err)

	f.clock.Advance(16 * time.Minute)
	fresh, err := f.bookOther("pat-1", "2026-02-02", "14:00")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, fresh.Status)

	old, err := f.store.GetBooking(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, old.Status)
}

func TestRescheduleIgnoresExpiredHoldWithAnotherDoctor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.bookOther("pat-1", "2026-02-03", "14:00")
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	b, err := f.book("pat-1", "2026-02-02", "09:00")
	require.NoError(t, err)

	f.clock.Advance(6 * time.Minute)
	moved, err := f.engine.RescheduleBooking(ctx, b.ID, "2026-02-03", "09:00")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-03", moved.Date)
}

func TestRejectedAttemptStillExpiresStaleHolds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stale, err := f.book("pat-1", "2026-02-02", "09:00")
	require.NoError(t, err)
	f.clock.Advance(5 * time.Minute)
	_, err = f.book("pat-2", "2026-02-02", "09:30")
	require.NoError(t, err)

	f.clock.Advance(11 * time.Minute)
	_, err = f.book("pat-3", "2026-02-02", "09:30")
	require.ErrorIs(t, err, scheduling.ErrSlotUnavailable)

	old, err := f.store.GetBooking(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, old.Status)
}

func TestSweepPatient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.book("pat-1", "2026-02-02", "09:00")
	require.NoError(t, err)
	_, err = f.bookOther("pat-1", "2026-02-03", "14:00")
	require.NoError(t, err)

	n, err := f.engine.SweepPatient(ctx, "pat-1")
	require.NoError(t, err)
	assert.Zero(t, n, "holds are still live")

	f.clock.Advance(16 * time.Minute)
	n, err = f.engine.SweepPatient(ctx, "pat-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	mine, err := f.store.ListPatientBookings(ctx, "pat-1")
	require.NoError(t, err)
	for _, b := range mine {
		assert.Equal(t, models.StatusCancelled, b.Status)
	}
}

func TestHoldTTLIsConfigurable(t *testing.T) {
	f := newFixture(t)
	engine := scheduling.NewEngine(f.store, scheduling.WithClock(f.clock), scheduling.WithHoldTTL(5*time.Minute))
	req := scheduling.BookingRequest{PatientID: "pat-1", ClinicID: f.clinic.ID, DoctorID: f.clinic.DoctorID, Date: "2026-02-02", Slot: "09:00"}
	_, err := engine.AttemptBooking(context.Background(), req)
	require.NoError(t, err)

	f.clock.Advance(6 * time.Minute)
	req.PatientID = "pat-2"
	_, err = engine.AttemptBooking(context.Background(), req)
	assert.NoError(t, err)
}

func TestConcurrentAttemptsAcceptAtMostOne(t *testing.T) {
	f := newFixture(t)
	const n = 20

	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.book(fmt.Sprintf("pat-%d", i), "2026-02-02", "10:30")
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	accepted := 0
	for err := range results {
		if err == nil {
			accepted++
			continue
		}
		assert.ErrorIs(t, err, scheduling.ErrSlotUnavailable)
	}
	assert.Equal(t, 1, accepted)
}

func TestStoreBackstopRejectsWhenPrecheckMisses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// a row the doctor-scoped fetch cannot see still holds the clinic slot
	require.NoError(t, f.store.InsertBooking(ctx, &models.Booking{
		ClinicID: f.clinic.ID, DoctorID: "locum", Date: "2026-02-02", TimeSlot: "11:00",
		Status: models.StatusConfirmed, CreatedAt: f.clock.Now(),
	}))

	_, err := f.book("pat-1", "2026-02-02", "11:00")
	assert.ErrorIs(t, err, scheduling.ErrSlotUnavailable)
}

func TestRescheduleBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.book("pat-1", "2026-02-02", "09:00")
	require.NoError(t, err)

	f.clock.Advance(5 * time.Minute)
	moved, err := f.engine.RescheduleBooking(ctx, b.ID, "2026-02-03", "11:00")
	require.NoError(t, err)
	assert.Equal(t, b.ID, moved.ID)
	assert.Equal(t, "2026-02-03", moved.Date)
	assert.Equal(t, "11:00", moved.TimeSlot)
	assert.Equal(t, b.CreatedAt, moved.CreatedAt, "created_at is preserved")
	assert.Equal(t, models.StatusPending, moved.Status)

	// old slot is free again
	_, err = f.book("pat-2", "2026-02-02", "09:00")
	assert.NoError(t, err)
}

func TestRescheduleKeepsHoldExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.book("pat-1", "2026-02-02", "09:00")
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	_, err = f.engine.RescheduleBooking(ctx, b.ID, "2026-02-02", "10:00")
	require.NoError(t, err)

	f.clock.Advance(6 * time.Minute)
	_, err = f.engine.RescheduleBooking(ctx, b.ID, "2026-02-02", "10:30")
	assert.ErrorIs(t, err, scheduling.ErrInvalidTransition, "hold expired 15 minutes after creation")
}

func TestRescheduleRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine, err := f.book("pat-1", "2026-02-02", "09:00")
	require.NoError(t, err)
	_, err = f.book("pat-2", "2026-02-02", "09:30")
	require.NoError(t, err)
	_, err = f.book("pat-1", "2026-02-03", "09:00")
	require.NoError(t, err)

	_, err = f.engine.RescheduleBooking(ctx, mine.ID, "2026-02-02", "09:30")
	assert.ErrorIs(t, err, scheduling.ErrSlotUnavailable)

	_, err = f.engine.RescheduleBooking(ctx, mine.ID, "2026-02-03", "10:00")
	assert.ErrorIs(t, err, scheduling.ErrAlreadyBooked)

	_, err = f.engine.RescheduleBooking(ctx, mine.ID, "2026-02-07", "10:00")
	assert.ErrorIs(t, err, scheduling.ErrDayClosed)

	_, err = f.engine.RescheduleBooking(ctx, "missing", "2026-02-04", "10:00")
	assert.ErrorIs(t, err, scheduling.ErrBookingNotFound)

	same, err := f.engine.RescheduleBooking(ctx, mine.ID, "2026-02-02", "9:00")
	require.NoError(t, err)
	assert.Equal(t, "09:00", same.TimeSlot)
}

func TestRescheduleRejectionLogsBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var buf bytes.Buffer
	engine := scheduling.NewEngine(f.store, scheduling.WithClock(f.clock), scheduling.WithLogger(zerolog.New(&buf)))

	mine, err := f.book("pat-1", "2026-02-02", "09:00")
	require.NoError(t, err)
	_, err = f.book("pat-2", "2026-02-02", "09:30")
	require.NoError(t, err)

	_, err = engine.RescheduleBooking(ctx, mine.ID, "2026-02-02", "09:30")
	require.ErrorIs(t, err, scheduling.ErrSlotUnavailable)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "booking rejected", entry["message"])
	assert.Equal(t, mine.ID, entry["booking_id"])
	assert.Equal(t, f.clinic.ID, entry["clinic_id"])
	assert.Equal(t, f.clinic.DoctorID, entry["doctor_id"])
	assert.Equal(t, "09:30", entry["slot"])
}

func TestRescheduleCancelledBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.book("pat-1", "2026-02-02", "09:00")
	require.NoError(t, err)
	_, err = f.engine.UpdateStatus(ctx, b.ID, models.StatusCancelled)
	require.NoError(t, err)

	_, err = f.engine.RescheduleBooking(ctx, b.ID, "2026-02-03", "09:00")
	assert.ErrorIs(t, err, scheduling.ErrInvalidTransition)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.book("pat-1", "2026-02-02", "09:00")
	require.NoError(t, err)

	confirmed, err := f.engine.UpdateStatus(ctx, b.ID, models.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, confirmed.Status)

	// confirmed bookings never expire
	f.clock.Advance(time.Hour)
	day, err := f.engine.ListAvailableSlots(ctx, f.clinic.ID, f.clinic.DoctorID, "2026-02-02")
	require.NoError(t, err)
	assert.Equal(t, scheduling.SlotBooked, stateOf(day, "09:00"))

	_, err = f.engine.UpdateStatus(ctx, b.ID, models.StatusPending)
	assert.ErrorIs(t, err, scheduling.ErrInvalidTransition)

	done, err := f.engine.UpdateStatus(ctx, b.ID, models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)

	_, err = f.engine.UpdateStatus(ctx, b.ID, models.StatusCancelled)
	assert.ErrorIs(t, err, scheduling.ErrInvalidTransition)
}

func TestConfirmingExpiredHoldFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.book("pat-1", "2026-02-02", "09:00")
	require.NoError(t, err)

	f.clock.Advance(16 * time.Minute)
	_, err = f.engine.UpdateStatus(ctx, b.ID, models.StatusConfirmed)
	assert.ErrorIs(t, err, scheduling.ErrInvalidTransition)

	got, err := f.store.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
}

type failingStore struct {
	*memstore.Store
}

var errDown = errors.New("connection refused")

func (s failingStore) FetchBookings(ctx context.Context, doctorID, clinicID string, r scheduling.DateRange) ([]models.Booking, error) {
	return nil, fmt.Errorf("fetch bookings: %w: %w", scheduling.ErrStoreUnavailable, errDown)
}

func (s failingStore) WithinTx(ctx context.Context, fn func(tx scheduling.Store) error) error {
	return s.Store.WithinTx(ctx, func(tx scheduling.Store) error {
		return fn(failingStore{Store: tx.(*memstore.Store)})
	})
}

func TestStoreFailurePropagates(t *testing.T) {
	f := newFixture(t)
	engine := scheduling.NewEngine(failingStore{Store: f.store}, scheduling.WithClock(f.clock))
	ctx := context.Background()

	_, err := engine.ListAvailableSlots(ctx, f.clinic.ID, f.clinic.DoctorID, "2026-02-02")
	assert.ErrorIs(t, err, scheduling.ErrStoreUnavailable)

	_, err = engine.AttemptBooking(ctx, scheduling.BookingRequest{
		PatientID: "pat-1", ClinicID: f.clinic.ID, DoctorID: f.clinic.DoctorID, Date: "2026-02-02", Slot: "09:00",
	})
	assert.ErrorIs(t, err, scheduling.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, scheduling.ErrSlotUnavailable)
}
