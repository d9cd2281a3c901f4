package bookings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/physiocare/booking-platform/internal/observability/metrics"
	"github.com/physiocare/booking-platform/pkg/logging"
)

var bookingsTracer = otel.Tracer("physio.internal.bookings")

// Store is the persistence surface the lifecycle service needs.
// *Repository implements it; tests inject stubs.
type Store interface {
	CreateBooking(ctx context.Context, p CreateParams) (*Booking, error)
	GetBooking(ctx context.Context, id int64) (*Booking, error)
	UpdateBooking(ctx context.Context, id int64, mutate func(*Booking) error) (*Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
	ReferenceExists(ctx context.Context, ref string) (bool, error)
	SlotTaken(ctx context.Context, physioID int64, date, timeOfDay string, excludeID int64) (bool, error)
}

// PaymentLookup answers whether a booking is protected by a completed payment.
type PaymentLookup interface {
	HasCompletedPayment(ctx context.Context, bookingID int64) (bool, error)
}

// Email event kinds produced by the lifecycle service.
const (
	EmailBookingCreated     = "booking_created"
	EmailBookingConfirmed   = "booking_confirmed"
	EmailBookingCancelled   = "booking_cancelled"
	EmailBookingRescheduled = "booking_rescheduled"
	EmailBookingDeleted     = "booking_deleted"
	EmailBookingReminder    = "booking_reminder"
)

// EmailEvent carries everything the email channel needs to render and send
// one message about a booking.
type EmailEvent struct {
	Kind          string  `json:"kind"`
	Recipient     string  `json:"recipient"`
	RecipientName string  `json:"recipient_name"`
	Reference     string  `json:"reference"`
	Date          string  `json:"date"`
	Time          string  `json:"time"`
	Amount        float64 `json:"amount"`
	PatientName   string  `json:"patient_name"`
	TherapistName string  `json:"therapist_name"`
	ClinicID      int64   `json:"clinic_id"`
	Notes         string  `json:"notes,omitempty"`
	Actor         string  `json:"actor,omitempty"`
	Reason        string  `json:"reason,omitempty"`
}

// Dispatcher fans out in-app notifications and email side effects.
// Implementations are best-effort: they log failures and never return them.
type Dispatcher interface {
	Notify(ctx context.Context, userID int64, title, message, typ string)
	NotifyAdmins(ctx context.Context, title, message, typ string)
	EnqueueEmail(ctx context.Context, evt EmailEvent)
}

// Service orchestrates the booking lifecycle: create, accept, reject,
// cancel, reschedule and delete, enforcing ownership, status guards and the
// slot uniqueness invariant.
type Service struct {
	store      Store
	payments   PaymentLookup
	dispatcher Dispatcher
	metrics    *metrics.BookingMetrics
	logger     *logging.Logger

	now             func() time.Time
	cancelWindow    time.Duration
	refAttempts     int
	defaultAmount   float64
	defaultDuration int
}

// NewService constructs the lifecycle service.
func NewService(store Store, payments PaymentLookup, dispatcher Dispatcher, m *metrics.BookingMetrics, logger *logging.Logger) *Service {
	if store == nil {
		panic("bookings: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:           store,
		payments:        payments,
		dispatcher:      dispatcher,
		metrics:         m,
		logger:          logger,
		now:             time.Now,
		cancelWindow:    24 * time.Hour,
		refAttempts:     10,
		defaultAmount:   50,
		defaultDuration: 60,
	}
}

// WithClock overrides the time source, used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// WithCancellationWindow overrides the minimum lead time for patient cancels.
func (s *Service) WithCancellationWindow(d time.Duration) *Service {
	if d > 0 {
		s.cancelWindow = d
	}
	return s
}

// WithDefaultAmount overrides the fallback amount for unparsable input.
func (s *Service) WithDefaultAmount(amount float64) *Service {
	if amount >= 0 {
		s.defaultAmount = amount
	}
	return s
}

// WithReferenceAttempts overrides the bounded retry count for reference
// generation.
func (s *Service) WithReferenceAttempts(n int) *Service {
	if n > 0 {
		s.refAttempts = n
	}
	return s
}

// WithDefaultDuration overrides the session length used when the request
// does not carry one.
func (s *Service) WithDefaultDuration(minutes int) *Service {
	if minutes > 0 {
		s.defaultDuration = minutes
	}
	return s
}

// Get returns a booking by id.
func (s *Service) Get(ctx context.Context, id int64) (*Booking, error) {
	return s.store.GetBooking(ctx, id)
}

// Create validates input, generates a unique reference and inserts a pending
// booking. The partial unique slot index is the authoritative conflict
// signal; the SlotTaken pre-check is a fast path only.
func (s *Service) Create(ctx context.Context, req *CreateBookingRequest) (*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.create")
	defer span.End()
	start := s.now()

	if err := req.Validate(); err != nil {
		s.metrics.ObserveTransition("create", "invalid")
		return nil, err
	}

	timeOfDay := NormalizeTime(req.AppointmentTime)
	duration := req.DurationMinutes
	if duration <= 0 {
		duration = s.defaultDuration
	}
	amount, err := strconv.ParseFloat(req.TotalAmount, 64)
	if err != nil || amount < 0 {
		amount = s.defaultAmount
	}

	span.SetAttributes(
		attribute.Int64("physio.therapist_id", req.PhysiotherapistID),
		attribute.String("physio.slot", req.AppointmentDate+" "+timeOfDay),
	)

	if taken, err := s.store.SlotTaken(ctx, req.PhysiotherapistID, req.AppointmentDate, timeOfDay, 0); err == nil && taken {
		s.metrics.ObserveSlotConflict()
		s.metrics.ObserveTransition("create", "conflict")
		return nil, ErrSlotConflict
	}

	var booking *Booking
	for attempt := 0; attempt < s.refAttempts; attempt++ {
		ref := GenerateReference()
		if exists, err := s.store.ReferenceExists(ctx, ref); err != nil {
			s.metrics.ObserveTransition("create", "error")
			return nil, errors.Join(ErrCreationFailed, err)
		} else if exists {
			continue
		}

		booking, err = s.store.CreateBooking(ctx, CreateParams{
			Reference:         ref,
			PatientID:         req.PatientID,
			PhysiotherapistID: req.PhysiotherapistID,
			ClinicID:          req.ClinicID,
			AppointmentDate:   req.AppointmentDate,
			AppointmentTime:   timeOfDay,
			DurationMinutes:   duration,
			TreatmentTypeID:   req.TreatmentTypeID,
			TotalAmount:       amount,
			PatientNotes:      req.PatientNotes,
		})
		if errors.Is(err, errDuplicateReference) {
			continue
		}
		if errors.Is(err, ErrSlotConflict) {
			s.metrics.ObserveSlotConflict()
			s.metrics.ObserveTransition("create", "conflict")
			return nil, ErrSlotConflict
		}
		if err != nil {
			span.RecordError(err)
			s.metrics.ObserveTransition("create", "error")
			return nil, errors.Join(ErrCreationFailed, err)
		}
		break
	}
	if booking == nil {
		s.metrics.ObserveTransition("create", "error")
		return nil, ErrReferenceExhausted
	}

	s.metrics.ObserveTransition("create", "success")
	s.metrics.ObserveOperationLatency("create", s.now().Sub(start).Seconds())
	s.logger.Info("booking created",
		"booking_id", booking.ID, "reference", booking.Reference,
		"therapist_id", booking.PhysiotherapistID, "slot", booking.AppointmentDate+" "+booking.AppointmentTime)

	if s.dispatcher != nil {
		s.dispatcher.Notify(ctx, booking.PhysiotherapistID,
			"New booking request",
			fmt.Sprintf("%s requested a session on %s at %s (ref %s)",
				booking.PatientName, booking.AppointmentDate, booking.AppointmentTime, booking.Reference),
			"booking")
		s.dispatcher.NotifyAdmins(ctx, "New booking",
			fmt.Sprintf("Booking %s created for %s with %s",
				booking.Reference, booking.PatientName, booking.TherapistName),
			"booking")
		s.dispatcher.EnqueueEmail(ctx, s.emailEvent(booking, EmailBookingCreated, booking.TherapistEmail, booking.TherapistName, "", ""))
	}
	return booking, nil
}

// Accept confirms a pending booking on behalf of its therapist.
func (s *Service) Accept(ctx context.Context, bookingID, therapistID int64) (*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.accept")
	defer span.End()
	span.SetAttributes(attribute.Int64("physio.booking_id", bookingID))

	booking, err := s.store.UpdateBooking(ctx, bookingID, func(b *Booking) error {
		if b.PhysiotherapistID != therapistID {
			return ErrUnauthorized
		}
		if b.Status != StatusPending {
			return ErrInvalidTransition
		}
		b.Status = StatusConfirmed
		return nil
	})
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveTransition("accept", outcomeFor(err))
		return nil, err
	}

	s.metrics.ObserveTransition("accept", "success")
	s.logger.Info("booking confirmed", "booking_id", booking.ID, "reference", booking.Reference)

	if s.dispatcher != nil {
		s.dispatcher.Notify(ctx, booking.PatientID,
			"Booking confirmed",
			fmt.Sprintf("Your session on %s at %s with %s is confirmed (ref %s)",
				booking.AppointmentDate, booking.AppointmentTime, booking.TherapistName, booking.Reference),
			"booking")
		s.dispatcher.EnqueueEmail(ctx, s.emailEvent(booking, EmailBookingConfirmed, booking.PatientEmail, booking.PatientName, "", ""))
	}
	return booking, nil
}

// Reject cancels a booking on behalf of its therapist, recording the reason.
func (s *Service) Reject(ctx context.Context, bookingID, therapistID int64, reason string) (*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.reject")
	defer span.End()
	span.SetAttributes(attribute.Int64("physio.booking_id", bookingID))

	if reason == "" {
		reason = "Not specified"
	}

	booking, err := s.store.UpdateBooking(ctx, bookingID, func(b *Booking) error {
		if b.PhysiotherapistID != therapistID {
			return ErrUnauthorized
		}
		if b.Status == StatusCancelled {
			return ErrAlreadyCancelled
		}
		if b.Status == StatusCompleted {
			return ErrAlreadyCompleted
		}
		now := s.now().UTC()
		b.Status = StatusCancelled
		b.CancellationReason = reason
		b.CancelledAt = &now
		return nil
	})
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveTransition("reject", outcomeFor(err))
		return nil, err
	}

	s.metrics.ObserveTransition("reject", "success")
	s.logger.Info("booking rejected", "booking_id", booking.ID, "reference", booking.Reference, "reason", reason)

	if s.dispatcher != nil {
		s.dispatcher.Notify(ctx, booking.PatientID,
			"Booking cancelled",
			fmt.Sprintf("Your session on %s at %s was cancelled by the therapist: %s",
				booking.AppointmentDate, booking.AppointmentTime, reason),
			"booking")
		s.dispatcher.EnqueueEmail(ctx, s.emailEvent(booking, EmailBookingCancelled, booking.PatientEmail, booking.PatientName, "Therapist", reason))
	}
	return booking, nil
}

// Cancel cancels a booking on behalf of its patient. Paid bookings are
// protected, and the appointment must be at least the cancellation window
// away. When the stored appointment time cannot be parsed the window guard
// is skipped rather than blocking the patient.
func (s *Service) Cancel(ctx context.Context, bookingID, patientID int64) (*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.cancel")
	defer span.End()
	span.SetAttributes(attribute.Int64("physio.booking_id", bookingID))

	current, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		s.metrics.ObserveTransition("cancel", outcomeFor(err))
		return nil, err
	}
	if current.PatientID != patientID {
		s.metrics.ObserveTransition("cancel", "unauthorized")
		return nil, ErrUnauthorized
	}

	if s.payments != nil {
		paid, err := s.payments.HasCompletedPayment(ctx, bookingID)
		if err != nil {
			span.RecordError(err)
			s.metrics.ObserveTransition("cancel", "error")
			return nil, fmt.Errorf("bookings: check payment status: %w", err)
		}
		if paid {
			s.metrics.ObserveTransition("cancel", "paid_protected")
			return nil, ErrPaidBookingProtected
		}
	}

	booking, err := s.store.UpdateBooking(ctx, bookingID, func(b *Booking) error {
		if b.PatientID != patientID {
			return ErrUnauthorized
		}
		if b.Status == StatusCancelled {
			return ErrAlreadyCancelled
		}
		if b.Status == StatusCompleted {
			return ErrAlreadyCompleted
		}
		if start, perr := appointmentStart(b.AppointmentDate, b.AppointmentTime); perr != nil {
			// Deliberate leniency carried over from the original product
			// behavior: an unparsable time skips the window guard.
			s.logger.Warn("cancellation window check skipped: unparsable appointment time",
				"booking_id", b.ID, "appointment_time", b.AppointmentTime)
		} else if start.Sub(s.now()) < s.cancelWindow {
			return ErrCancellationWindowExpired
		}
		now := s.now().UTC()
		b.Status = StatusCancelled
		b.CancellationReason = "Cancelled by patient"
		b.CancelledAt = &now
		return nil
	})
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveTransition("cancel", outcomeFor(err))
		return nil, err
	}

	s.metrics.ObserveTransition("cancel", "success")
	s.logger.Info("booking cancelled by patient", "booking_id", booking.ID, "reference", booking.Reference)

	if s.dispatcher != nil {
		s.dispatcher.Notify(ctx, booking.PhysiotherapistID,
			"Booking cancelled",
			fmt.Sprintf("%s cancelled the session on %s at %s (ref %s)",
				booking.PatientName, booking.AppointmentDate, booking.AppointmentTime, booking.Reference),
			"booking")
		s.dispatcher.EnqueueEmail(ctx, s.emailEvent(booking, EmailBookingCancelled, booking.TherapistEmail, booking.TherapistName, "Patient", booking.CancellationReason))
	}
	return booking, nil
}

// Reschedule moves a booking to a new date/time on behalf of its therapist.
func (s *Service) Reschedule(ctx context.Context, bookingID, therapistID int64, newDate, newTime string) (*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.reschedule")
	defer span.End()
	span.SetAttributes(attribute.Int64("physio.booking_id", bookingID))

	if _, err := time.Parse("2006-01-02", newDate); err != nil {
		s.metrics.ObserveTransition("reschedule", "invalid")
		return nil, fmt.Errorf("%w: new appointment_date must be YYYY-MM-DD", ErrValidation)
	}
	timeOfDay := NormalizeTime(newTime)
	if timeOfDay == "" {
		s.metrics.ObserveTransition("reschedule", "invalid")
		return nil, fmt.Errorf("%w: new appointment_time is required", ErrValidation)
	}

	booking, err := s.store.UpdateBooking(ctx, bookingID, func(b *Booking) error {
		if b.PhysiotherapistID != therapistID {
			return ErrUnauthorized
		}
		if b.Status == StatusCancelled {
			return ErrAlreadyCancelled
		}
		if b.Status == StatusCompleted {
			return ErrAlreadyCompleted
		}
		taken, err := s.store.SlotTaken(ctx, b.PhysiotherapistID, newDate, timeOfDay, b.ID)
		if err != nil {
			return fmt.Errorf("bookings: check new slot: %w", err)
		}
		if taken {
			return ErrSlotConflict
		}
		b.AppointmentDate = newDate
		b.AppointmentTime = timeOfDay
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSlotConflict) {
			s.metrics.ObserveSlotConflict()
		}
		span.RecordError(err)
		s.metrics.ObserveTransition("reschedule", outcomeFor(err))
		return nil, err
	}

	s.metrics.ObserveTransition("reschedule", "success")
	s.logger.Info("booking rescheduled", "booking_id", booking.ID, "reference", booking.Reference,
		"new_slot", newDate+" "+timeOfDay)

	if s.dispatcher != nil {
		s.dispatcher.Notify(ctx, booking.PatientID,
			"Booking rescheduled",
			fmt.Sprintf("Your session (ref %s) was moved to %s at %s",
				booking.Reference, newDate, timeOfDay),
			"booking")
		s.dispatcher.EnqueueEmail(ctx, s.emailEvent(booking, EmailBookingRescheduled, booking.PatientEmail, booking.PatientName, "Therapist", ""))
	}
	return booking, nil
}

// Delete hard-deletes a cancelled booking and its dependent rows on behalf
// of its therapist.
func (s *Service) Delete(ctx context.Context, bookingID, therapistID int64) error {
	ctx, span := bookingsTracer.Start(ctx, "bookings.delete")
	defer span.End()
	span.SetAttributes(attribute.Int64("physio.booking_id", bookingID))

	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		s.metrics.ObserveTransition("delete", outcomeFor(err))
		return err
	}
	if booking.PhysiotherapistID != therapistID {
		s.metrics.ObserveTransition("delete", "unauthorized")
		return ErrUnauthorized
	}
	if booking.Status != StatusCancelled {
		s.metrics.ObserveTransition("delete", "invalid_transition")
		return ErrInvalidTransition
	}

	if err := s.store.DeleteBooking(ctx, bookingID); err != nil {
		span.RecordError(err)
		s.metrics.ObserveTransition("delete", outcomeFor(err))
		return err
	}

	s.metrics.ObserveTransition("delete", "success")
	s.logger.Info("booking deleted", "booking_id", booking.ID, "reference", booking.Reference)

	if s.dispatcher != nil {
		s.dispatcher.Notify(ctx, booking.PatientID,
			"Booking record removed",
			fmt.Sprintf("The cancelled booking %s was removed from your history", booking.Reference),
			"booking")
		s.dispatcher.NotifyAdmins(ctx, "Booking deleted",
			fmt.Sprintf("Booking %s (therapist %s) was hard-deleted", booking.Reference, booking.TherapistName),
			"booking")
		s.dispatcher.EnqueueEmail(ctx, s.emailEvent(booking, EmailBookingDeleted, booking.PatientEmail, booking.PatientName, "Therapist", ""))
	}
	return nil
}

func (s *Service) emailEvent(b *Booking, kind, recipient, recipientName, actor, reason string) EmailEvent {
	return EmailEvent{
		Kind:          kind,
		Recipient:     recipient,
		RecipientName: recipientName,
		Reference:     b.Reference,
		Date:          b.AppointmentDate,
		Time:          b.AppointmentTime,
		Amount:        b.TotalAmount,
		PatientName:   b.PatientName,
		TherapistName: b.TherapistName,
		ClinicID:      b.ClinicID,
		Notes:         b.PatientNotes,
		Actor:         actor,
		Reason:        reason,
	}
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, ErrBookingNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrSlotConflict):
		return "conflict"
	case errors.Is(err, ErrAlreadyCancelled), errors.Is(err, ErrAlreadyCompleted), errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrCancellationWindowExpired):
		return "window_expired"
	case errors.Is(err, ErrPaidBookingProtected):
		return "paid_protected"
	default:
		return "error"
	}
}
