// Package reminders sends patients a heads-up before confirmed sessions.
package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DueBooking is the slice of a confirmed booking the reminder worker needs.
type DueBooking struct {
	ID              int64
	Reference       string
	PatientID       int64
	PatientName     string
	PatientEmail    string
	TherapistName   string
	ClinicID        int64
	AppointmentDate string
	AppointmentTime string
	TotalAmount     float64
}

// Store reads reminder candidates and records sent reminders.
type Store struct {
	db DB
}

// NewStore creates a reminder store.
func NewStore(db DB) *Store {
	if db == nil {
		panic("reminders: db required")
	}
	return &Store{db: db}
}

// ListCandidates returns confirmed, not-yet-reminded bookings whose
// appointment date falls in the inclusive range. The worker narrows the
// result to the exact time window after parsing the stored clock values.
func (s *Store) ListCandidates(ctx context.Context, fromDate, toDate time.Time) ([]DueBooking, error) {
	query := `
		SELECT b.id, b.booking_reference, b.patient_id, p.name, p.email,
		       t.name, b.clinic_id, b.appointment_date::text, b.appointment_time,
		       b.total_amount
		FROM bookings b
		JOIN users p ON p.id = b.patient_id
		JOIN users t ON t.id = b.physiotherapist_id
		WHERE b.status = 'confirmed'
		  AND b.reminder_sent_at IS NULL
		  AND b.appointment_date BETWEEN $1::date AND $2::date
		ORDER BY b.appointment_date, b.appointment_time
	`
	rows, err := s.db.Query(ctx, query, fromDate.Format("2006-01-02"), toDate.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("reminders: list candidates: %w", err)
	}
	defer rows.Close()

	var due []DueBooking
	for rows.Next() {
		var d DueBooking
		if err := rows.Scan(
			&d.ID, &d.Reference, &d.PatientID, &d.PatientName, &d.PatientEmail,
			&d.TherapistName, &d.ClinicID, &d.AppointmentDate, &d.AppointmentTime,
			&d.TotalAmount,
		); err != nil {
			return nil, fmt.Errorf("reminders: scan candidate: %w", err)
		}
		due = append(due, d)
	}
	return due, rows.Err()
}

// MarkReminded records that the reminder went out. Returns false when
// another worker already claimed the booking.
func (s *Store) MarkReminded(ctx context.Context, bookingID int64) (bool, error) {
	query := `
		UPDATE bookings
		SET reminder_sent_at = now()
		WHERE id = $1 AND reminder_sent_at IS NULL
	`
	ct, err := s.db.Exec(ctx, query, bookingID)
	if err != nil {
		return false, fmt.Errorf("reminders: mark reminded: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}
