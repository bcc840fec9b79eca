package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meinhoongagan/clinic-booking/models"
	"github.com/meinhoongagan/clinic-booking/scheduling"
)

type stubStore struct {
	completedBefore string
	remindersOn     string
	bookings        []models.Booking
	err             error
}

func (s *stubStore) CompleteBookingsBefore(ctx context.Context, date string) (int64, error) {
	s.completedBefore = date
	return 3, s.err
}

func (s *stubStore) ConfirmedBookingsOn(ctx context.Context, date string) ([]models.Booking, error) {
	s.remindersOn = date
	return s.bookings, s.err
}

type stubReminder struct {
	sent []string
	fail map[string]bool
}

func (r *stubReminder) Reminder(ctx context.Context, patient models.User, b models.Booking) error {
	if r.fail[b.ID] {
		return errors.New("smtp down")
	}
	r.sent = append(r.sent, b.ID)
	return nil
}

func newJobs(t *testing.T, store *stubStore, r *stubReminder, now time.Time) *Jobs {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	j := New(store, r, loc, zerolog.Nop())
	j.clock = scheduling.FixedClock(now)
	return j
}

func TestCompletePastUsesClinicToday(t *testing.T) {
	store := &stubStore{}
	// 20:00 UTC on Feb 1 is already Feb 2 in Kolkata
	j := newJobs(t, store, &stubReminder{}, time.Date(2026, 2, 1, 20, 0, 0, 0, time.UTC))

	assert.Equal(t, int64(3), j.CompletePast(context.Background()))
	assert.Equal(t, "2026-02-02", store.completedBefore)
}

func TestCompletePastStoreError(t *testing.T) {
	store := &stubStore{err: errors.New("db down")}
	j := newJobs(t, store, &stubReminder{}, time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC))

	assert.Zero(t, j.CompletePast(context.Background()))
}

func TestSendRemindersForTomorrow(t *testing.T) {
	p := &models.User{ID: "p1", Email: "p1@example.com"}
	store := &stubStore{bookings: []models.Booking{
		{ID: "b1", Patient: p},
		{ID: "b2"},
		{ID: "b3", Patient: p},
	}}
	r := &stubReminder{fail: map[string]bool{"b3": true}}
	j := newJobs(t, store, r, time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC))

	sent := j.SendReminders(context.Background())
	assert.Equal(t, 1, sent)
	assert.Equal(t, "2026-02-02", store.remindersOn)
	assert.Equal(t, []string{"b1"}, r.sent)
}

func TestStartAndStop(t *testing.T) {
	j := newJobs(t, &stubStore{}, &stubReminder{}, time.Now())
	require.NoError(t, j.Start())
	assert.Len(t, j.cron.Entries(), 2)
	j.Stop()
}
