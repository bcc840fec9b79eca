package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/meinhoongagan/clinic-booking/models"
	"github.com/meinhoongagan/clinic-booking/scheduling"
)

// JobStore is the persistence the background jobs need.
type JobStore interface {
	CompleteBookingsBefore(ctx context.Context, date string) (int64, error)
	ConfirmedBookingsOn(ctx context.Context, date string) ([]models.Booking, error)
}

type Reminder interface {
	Reminder(ctx context.Context, patient models.User, b models.Booking) error
}

// Jobs runs the periodic booking maintenance. Pending-hold expiry is not
// one of them; that happens on every read and write.
type Jobs struct {
	store    JobStore
	reminder Reminder
	loc      *time.Location
	clock    scheduling.Clock
	log      zerolog.Logger
	cron     *cron.Cron
}

func New(store JobStore, reminder Reminder, loc *time.Location, log zerolog.Logger) *Jobs {
	if loc == nil {
		loc = time.UTC
	}
	return &Jobs{
		store:    store,
		reminder: reminder,
		loc:      loc,
		clock:    scheduling.SystemClock,
		log:      log,
		cron:     cron.New(cron.WithLocation(loc)),
	}
}

// Start schedules the jobs: completion every 15 minutes, reminders daily at 18:00.
func (j *Jobs) Start() error {
	if _, err := j.cron.AddFunc("*/15 * * * *", func() { j.CompletePast(context.Background()) }); err != nil {
		return err
	}
	if _, err := j.cron.AddFunc("0 18 * * *", func() { j.SendReminders(context.Background()) }); err != nil {
		return err
	}
	j.cron.Start()
	j.log.Info().Str("timezone", j.loc.String()).Msg("cron jobs started")
	return nil
}

// Stop waits for running jobs to finish.
func (j *Jobs) Stop() {
	<-j.cron.Stop().Done()
}

func (j *Jobs) today() string {
	return scheduling.DateIn(j.clock.Now(), j.loc)
}

// CompletePast marks confirmed bookings on earlier dates as completed.
func (j *Jobs) CompletePast(ctx context.Context) int64 {
	n, err := j.store.CompleteBookingsBefore(ctx, j.today())
	if err != nil {
		j.log.Error().Err(err).Msg("completing past bookings failed")
		return 0
	}
	if n > 0 {
		j.log.Info().Int64("completed", n).Msg("completed past bookings")
	}
	return n
}

// SendReminders emails every patient with a confirmed booking tomorrow.
func (j *Jobs) SendReminders(ctx context.Context) int {
	tomorrow := scheduling.DateIn(j.clock.Now().In(j.loc).AddDate(0, 0, 1), j.loc)
	bookings, err := j.store.ConfirmedBookingsOn(ctx, tomorrow)
	if err != nil {
		j.log.Error().Err(err).Msg("fetching bookings for reminders failed")
		return 0
	}

	sent := 0
	for _, b := range bookings {
		if b.Patient == nil {
			continue
		}
		if err := j.reminder.Reminder(ctx, *b.Patient, b); err != nil {
			j.log.Warn().Err(err).Str("booking_id", b.ID).Msg("failed to send reminder")
			continue
		}
		sent++
	}
	j.log.Info().Str("date", tomorrow).Int("found", len(bookings)).Int("sent", sent).Msg("sent appointment reminders")
	return sent
}
