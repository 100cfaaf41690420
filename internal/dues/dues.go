// Package dues reminds students of upcoming fee deadlines and applies late
// payment penalties.
package dues

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"math"
	"time"

	"hostel-allocation-backend/config"
	"hostel-allocation-backend/internal/metrics"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/notification"
	"hostel-allocation-backend/internal/store"
)

// Store is the subset of the store used by the scheduler.
type Store interface {
	ListUnpaidPayments(ctx context.Context) ([]model.Payment, error)
	GetStudentByUser(ctx context.Context, userID int64) (*model.Student, error)
	ApplyPenalty(ctx context.Context, paymentID int64, penalty float64, now time.Time) (bool, error)
}

// Notifier queues notifications.
type Notifier interface {
	Dispatch(msg notification.Message) bool
}

var (
	reminderTmpl = template.Must(template.New("reminder").Parse(`<p>Dear {{.Name}},</p>
<p>This is a reminder that your payment of Rs. {{printf "%.2f" .Amount}} is due on {{.DueDate}}.</p>
<p>Please note that a penalty of Rs. {{printf "%.2f" .Rate}} per day will be charged for overdue payments.</p>
<p>Thank you,</p>
<p>Hostel Management</p>
`))

	penaltyTmpl = template.Must(template.New("penalty").Parse(`<p>Dear {{.Name}},</p>
<p>Your payment of Rs. {{printf "%.2f" .Amount}} was due on {{.DueDate}} and is now overdue by {{.DaysOverdue}} day(s).</p>
<p>A penalty of Rs. {{printf "%.2f" .Penalty}} has been added to your account.</p>
<p>Please make the payment as soon as possible to avoid further penalties.</p>
<p>Thank you,</p>
<p>Hostel Management</p>
`))
)

type emailData struct {
	Name        string
	Amount      float64
	DueDate     string
	Rate        float64
	Penalty     float64
	DaysOverdue int
}

// Service walks unpaid payments on a fixed interval.
type Service struct {
	cfg      config.DuesConfig
	store    Store
	notifier Notifier
	metrics  *metrics.Metrics
	loc      *time.Location
	now      func() time.Time
}

// NewService creates the dues scheduler. An unknown timezone falls back to UTC.
func NewService(cfg config.DuesConfig, s Store, n Notifier, m *metrics.Metrics) *Service {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("Warning: unknown dues timezone %q, using UTC: %v", cfg.Timezone, err)
		loc = time.UTC
	}
	return &Service{cfg: cfg, store: s, notifier: n, metrics: m, loc: loc, now: time.Now}
}

// Run processes payments immediately and then on every interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Println("Dues scheduler is disabled. Not starting.")
		return
	}
	log.Println("Starting dues scheduler...")

	s.ProcessOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Dues scheduler shutting down.")
			return
		case <-timer.C:
			s.ProcessOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// Result counts what a pass did.
type Result struct {
	Reminders int
	Penalties int
}

// ProcessOnce performs a single pass over unpaid payments. Failures on one
// payment are logged and do not stop the pass.
func (s *Service) ProcessOnce(ctx context.Context) Result {
	log.Println("Processing unpaid payments...")
	var res Result

	payments, err := s.store.ListUnpaidPayments(ctx)
	if err != nil {
		log.Printf("Error listing unpaid payments: %v", err)
		return res
	}

	now := s.now()
	today := startOfDay(now.In(s.loc))

	for _, p := range payments {
		if p.User == nil {
			continue
		}
		student, err := s.store.GetStudentByUser(ctx, p.UserID)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				log.Printf("Error loading student for payment %d: %v", p.ID, err)
			}
			continue
		}

		due := startOfDay(p.DueDate.In(s.loc))
		dayDiff := DayDiff(today, due)
		data := emailData{
			Name:    student.FullName,
			Amount:  p.Amount,
			DueDate: due.Format("02 Jan 2006"),
			Rate:    s.cfg.PenaltyPerDay,
		}

		switch {
		case dayDiff == 1:
			if s.send(p, "Payment Reminder", reminderTmpl, data) {
				res.Reminders++
			}
		case dayDiff < -1:
			daysOverdue := int(math.Abs(float64(dayDiff))) - 1
			penalty := float64(daysOverdue) * s.cfg.PenaltyPerDay
			if penalty <= p.Penalty {
				continue
			}
			applied, err := s.store.ApplyPenalty(ctx, p.ID, penalty, now)
			if err != nil {
				log.Printf("Error applying penalty to payment %d: %v", p.ID, err)
				continue
			}
			if !applied {
				continue
			}
			res.Penalties++
			s.metrics.PenaltyApplied()
			data.Penalty = penalty
			data.DaysOverdue = daysOverdue
			s.send(p, "Payment Overdue", penaltyTmpl, data)
		}
	}

	log.Printf("Dues pass complete: %d reminders, %d penalties", res.Reminders, res.Penalties)
	return res
}

func (s *Service) send(p model.Payment, subject string, tmpl *template.Template, data emailData) bool {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		log.Printf("Error rendering %q for payment %d: %v", subject, p.ID, err)
		return false
	}
	return s.notifier.Dispatch(notification.Message{
		To:      p.User.Email,
		Subject: subject,
		HTML:    buf.String(),
		UserID:  p.UserID,
		Push:    fmt.Sprintf("%s: Rs. %.2f due %s", subject, p.Amount, data.DueDate),
	})
}

// DayDiff returns the calendar days from today until due, each read in its
// own location. Clock changes between the two dates do not shift the count.
func DayDiff(today, due time.Time) int {
	return int(calendarDate(due).Sub(calendarDate(today)).Hours() / 24)
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
