package bookings

import "errors"

// Sentinel errors returned by the lifecycle service. Handlers map these to
// HTTP status codes; callers use errors.Is.
var (
	// ErrValidation tags malformed caller input so handlers can keep it
	// apart from infrastructure failures.
	ErrValidation = errors.New("bookings: invalid input")

	// ErrBookingNotFound indicates the booking id does not exist.
	ErrBookingNotFound = errors.New("bookings: booking not found")

	// ErrUnauthorized indicates the acting user does not own the booking.
	ErrUnauthorized = errors.New("bookings: actor does not own booking")

	// ErrInvalidTransition indicates the requested status change is not
	// permitted from the booking's current status.
	ErrInvalidTransition = errors.New("bookings: invalid status transition")

	// ErrAlreadyCancelled indicates the booking was cancelled earlier.
	ErrAlreadyCancelled = errors.New("bookings: booking already cancelled")

	// ErrAlreadyCompleted indicates the booking session already took place.
	ErrAlreadyCompleted = errors.New("bookings: booking already completed")

	// ErrPaidBookingProtected indicates a completed payment exists; paid
	// sessions go through the refund workflow instead of plain cancellation.
	ErrPaidBookingProtected = errors.New("bookings: booking has a completed payment")

	// ErrCancellationWindowExpired indicates the appointment starts too soon
	// for a patient-initiated cancellation.
	ErrCancellationWindowExpired = errors.New("bookings: cancellation window expired")

	// ErrSlotConflict indicates another non-cancelled booking occupies the
	// requested therapist/date/time slot.
	ErrSlotConflict = errors.New("bookings: slot already booked")

	// ErrReferenceExhausted indicates reference generation kept colliding
	// with stored references after the maximum number of attempts.
	ErrReferenceExhausted = errors.New("bookings: reference generation exhausted")

	// ErrCreationFailed indicates the storage write for a new booking
	// failed; the underlying cause is joined in for diagnostics.
	ErrCreationFailed = errors.New("bookings: booking creation failed")

	// errDuplicateReference is the internal retry signal for a reference
	// uniqueness collision at insert time.
	errDuplicateReference = errors.New("bookings: duplicate booking reference")
)
