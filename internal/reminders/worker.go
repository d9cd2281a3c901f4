package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/physiocare/booking-platform/internal/bookings"
	"github.com/physiocare/booking-platform/pkg/logging"
)

// Worker finds confirmed bookings starting within the reminder window and
// sends the patient an in-app notification plus a queued reminder email.
type Worker struct {
	store      *Store
	dispatcher bookings.Dispatcher
	logger     *logging.Logger

	window   time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewWorker creates a reminder worker.
func NewWorker(store *Store, dispatcher bookings.Dispatcher, logger *logging.Logger) *Worker {
	if store == nil {
		panic("reminders: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
		window:     24 * time.Hour,
		interval:   15 * time.Minute,
		now:        time.Now,
	}
}

// WithWindow overrides how far ahead reminders are sent.
func (w *Worker) WithWindow(d time.Duration) *Worker {
	if d > 0 {
		w.window = d
	}
	return w
}

// WithInterval overrides the poll interval.
func (w *Worker) WithInterval(d time.Duration) *Worker {
	if d > 0 {
		w.interval = d
	}
	return w
}

// WithClock overrides the time source, used by tests.
func (w *Worker) WithClock(now func() time.Time) *Worker {
	if now != nil {
		w.now = now
	}
	return w
}

// Start runs the worker loop until the context is cancelled.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.ProcessDue(ctx); err != nil {
				w.logger.Error("reminder pass failed", "error", err)
			}
		}
	}
}

// ProcessDue sends reminders for every booking starting within the window.
// Returns the number of reminders sent.
func (w *Worker) ProcessDue(ctx context.Context) (int, error) {
	now := w.now()
	until := now.Add(w.window)

	candidates, err := w.store.ListCandidates(ctx, now, until)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	sent := 0
	for _, c := range candidates {
		start, err := appointmentStart(c.AppointmentDate, c.AppointmentTime)
		if err != nil {
			w.logger.Warn("reminder skipped: unparsable appointment time",
				"booking_id", c.ID, "appointment_time", c.AppointmentTime)
			continue
		}
		if start.Before(now) || start.After(until) {
			continue
		}

		claimed, err := w.store.MarkReminded(ctx, c.ID)
		if err != nil {
			w.logger.Error("reminder claim failed", "error", err, "booking_id", c.ID)
			continue
		}
		if !claimed {
			continue
		}

		if w.dispatcher != nil {
			w.dispatcher.Notify(ctx, c.PatientID,
				"Upcoming session reminder",
				fmt.Sprintf("Your session with %s is on %s at %s (ref %s)",
					c.TherapistName, c.AppointmentDate, c.AppointmentTime, c.Reference),
				"reminder")
			w.dispatcher.EnqueueEmail(ctx, bookings.EmailEvent{
				Kind:          bookings.EmailBookingReminder,
				Recipient:     c.PatientEmail,
				RecipientName: c.PatientName,
				Reference:     c.Reference,
				Date:          c.AppointmentDate,
				Time:          c.AppointmentTime,
				Amount:        c.TotalAmount,
				PatientName:   c.PatientName,
				TherapistName: c.TherapistName,
				ClinicID:      c.ClinicID,
			})
		}

		w.logger.Info("reminder sent", "booking_id", c.ID, "reference", c.Reference)
		sent++
	}
	return sent, nil
}

// appointmentStart mirrors the booking core's stored date/time parsing.
func appointmentStart(date, timeOfDay string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 15:04:05", "2006-01-02 3:04"} {
		if ts, err := time.ParseInLocation(layout, date+" "+timeOfDay, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, errors.New("reminders: unparsable appointment time")
}
