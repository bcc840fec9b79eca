package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/rs/zerolog"

	"github.com/meinhoongagan/clinic-booking/models"
)

var (
	heldTmpl = template.Must(template.New("held").Parse(`
<p>Dear {{.Name}},</p>
<p>We are holding <strong>{{.Slot}}</strong> on <strong>{{.Date}}</strong> for you.</p>
<p>The clinic will confirm your appointment shortly. Unconfirmed holds are released after {{.HoldMinutes}} minutes.</p>
<p>Your Appointment Team</p>`))

	statusTmpl = template.Must(template.New("status").Parse(`
<p>Dear {{.Name}},</p>
<p>Your appointment on <strong>{{.Date}}</strong> at <strong>{{.Slot}}</strong> is now <strong>{{.Status}}</strong>.</p>
<p>Your Appointment Team</p>`))

	reminderTmpl = template.Must(template.New("reminder").Parse(`
<p>Dear {{.Name}},</p>
<p>This is a reminder for your appointment tomorrow, <strong>{{.Date}}</strong> at <strong>{{.Slot}}</strong>.</p>
<p>Please arrive on time. If you need to reschedule or cancel, contact us as soon as possible.</p>
<p>Your Appointment Team</p>`))
)

type mailData struct {
	Name        string
	Date        string
	Slot        string
	Status      models.BookingStatus
	HoldMinutes int
}

// Notifier emails patients about their bookings. Every send is best effort:
// failures are logged and never returned to the caller.
type Notifier struct {
	mailer      Mailer
	log         zerolog.Logger
	holdMinutes int
}

func NewNotifier(mailer Mailer, log zerolog.Logger, holdMinutes int) *Notifier {
	return &Notifier{mailer: mailer, log: log, holdMinutes: holdMinutes}
}

func (n *Notifier) BookingHeld(ctx context.Context, patient models.User, b models.Booking) {
	n.send(ctx, patient, b, "Your appointment slot is on hold", heldTmpl)
}

func (n *Notifier) StatusChanged(ctx context.Context, patient models.User, b models.Booking) {
	n.send(ctx, patient, b, fmt.Sprintf("Your appointment is %s", b.Status), statusTmpl)
}

func (n *Notifier) Reminder(ctx context.Context, patient models.User, b models.Booking) error {
	return n.render(ctx, patient, b, "Reminder: upcoming appointment", reminderTmpl)
}

func (n *Notifier) send(ctx context.Context, patient models.User, b models.Booking, subject string, tmpl *template.Template) {
	if n == nil {
		return
	}
	if err := n.render(ctx, patient, b, subject, tmpl); err != nil {
		n.log.Warn().Err(err).Str("booking_id", b.ID).Msg("notification failed")
	}
}

func (n *Notifier) render(ctx context.Context, patient models.User, b models.Booking, subject string, tmpl *template.Template) error {
	if patient.Email == "" {
		return fmt.Errorf("patient %s has no email", patient.ID)
	}
	var body bytes.Buffer
	err := tmpl.Execute(&body, mailData{
		Name:        patient.Name,
		Date:        b.Date,
		Slot:        b.TimeSlot,
		Status:      b.Status,
		HoldMinutes: n.holdMinutes,
	})
	if err != nil {
		return fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	return n.mailer.Send(ctx, patient.Email, subject, body.String())
}
