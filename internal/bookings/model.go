package bookings

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Booking is one scheduled physiotherapy session.
type Booking struct {
	ID                int64   `json:"id"`
	Reference         string  `json:"booking_reference"`
	PatientID         int64   `json:"patient_id"`
	PhysiotherapistID int64   `json:"physiotherapist_id"`
	ClinicID          int64   `json:"clinic_id"`
	AppointmentDate   string  `json:"appointment_date"` // YYYY-MM-DD
	AppointmentTime   string  `json:"appointment_time"` // HH:MM, no AM/PM suffix
	DurationMinutes   int     `json:"duration_minutes"`
	TreatmentTypeID   *int64  `json:"treatment_type_id,omitempty"`
	TotalAmount       float64 `json:"total_amount"`
	PatientNotes      string  `json:"patient_notes,omitempty"`
	TherapistNotes    string  `json:"therapist_notes,omitempty"`
	Status            Status  `json:"status"`

	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`

	// Party display fields resolved from the users table.
	PatientName    string `json:"patient_name"`
	PatientEmail   string `json:"-"`
	TherapistName  string `json:"therapist_name"`
	TherapistEmail string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateBookingRequest carries validated caller input for booking creation.
type CreateBookingRequest struct {
	PatientID         int64  `json:"patient_id"`
	PhysiotherapistID int64  `json:"physiotherapist_id"`
	ClinicID          int64  `json:"clinic_id"`
	AppointmentDate   string `json:"appointment_date"`
	AppointmentTime   string `json:"appointment_time"`
	DurationMinutes   int    `json:"duration_minutes"`
	TreatmentTypeID   *int64 `json:"treatment_type_id,omitempty"`
	PatientNotes      string `json:"patient_notes,omitempty"`
	TotalAmount       string `json:"total_amount"`
}

// Validate checks that all required fields are present and well formed.
func (r *CreateBookingRequest) Validate() error {
	if r.PatientID <= 0 {
		return fmt.Errorf("%w: patient_id is required", ErrValidation)
	}
	if r.PhysiotherapistID <= 0 {
		return fmt.Errorf("%w: physiotherapist_id is required", ErrValidation)
	}
	if r.ClinicID <= 0 {
		return fmt.Errorf("%w: clinic_id is required", ErrValidation)
	}
	if strings.TrimSpace(r.AppointmentDate) == "" {
		return fmt.Errorf("%w: appointment_date is required", ErrValidation)
	}
	if _, err := time.Parse("2006-01-02", r.AppointmentDate); err != nil {
		return fmt.Errorf("%w: appointment_date must be YYYY-MM-DD", ErrValidation)
	}
	if strings.TrimSpace(r.AppointmentTime) == "" {
		return fmt.Errorf("%w: appointment_time is required", ErrValidation)
	}
	return nil
}

// NormalizeTime strips any trailing AM/PM marker so times are stored as bare
// clock values, matching what callers see back on every read.
func NormalizeTime(t string) string {
	t = strings.TrimSpace(t)
	upper := strings.ToUpper(t)
	for _, suffix := range []string{" AM", " PM", "AM", "PM"} {
		if strings.HasSuffix(upper, suffix) {
			return strings.TrimSpace(t[:len(t)-len(suffix)])
		}
	}
	return t
}

// appointmentStart combines the stored date and time into a wall-clock start.
// Stored times have no AM/PM suffix but historical rows may carry seconds.
func appointmentStart(date, timeOfDay string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 15:04:05", "2006-01-02 3:04"} {
		if ts, err := time.ParseInLocation(layout, date+" "+timeOfDay, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, errors.New("bookings: unparsable appointment time")
}
