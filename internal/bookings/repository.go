package bookings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository persists bookings in the relational database. Status and slot
// mutations happen inside row-locked transactions; the partial unique index
// on (physiotherapist_id, appointment_date, appointment_time) for
// non-cancelled rows is the authoritative slot-conflict signal.
type Repository struct {
	db DB
}

// NewRepository creates a repository backed by pgx.
func NewRepository(db DB) *Repository {
	if db == nil {
		panic("bookings: db required")
	}
	return &Repository{db: db}
}

const bookingColumns = `
	b.id, b.booking_reference, b.patient_id, b.physiotherapist_id, b.clinic_id,
	b.appointment_date::text, b.appointment_time, b.duration_minutes,
	b.treatment_type_id, b.total_amount,
	COALESCE(b.patient_notes, ''), COALESCE(b.therapist_notes, ''),
	b.status, COALESCE(b.cancellation_reason, ''), b.cancelled_at,
	p.name, p.email, t.name, t.email,
	b.created_at, b.updated_at`

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(
		&b.ID, &b.Reference, &b.PatientID, &b.PhysiotherapistID, &b.ClinicID,
		&b.AppointmentDate, &b.AppointmentTime, &b.DurationMinutes,
		&b.TreatmentTypeID, &b.TotalAmount,
		&b.PatientNotes, &b.TherapistNotes,
		&b.Status, &b.CancellationReason, &b.CancelledAt,
		&b.PatientName, &b.PatientEmail, &b.TherapistName, &b.TherapistEmail,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateParams is the insert shape for a new pending booking.
type CreateParams struct {
	Reference         string
	PatientID         int64
	PhysiotherapistID int64
	ClinicID          int64
	AppointmentDate   string
	AppointmentTime   string
	DurationMinutes   int
	TreatmentTypeID   *int64
	TotalAmount       float64
	PatientNotes      string
}

// CreateBooking inserts a pending booking row and returns it with party
// display fields resolved.
func (r *Repository) CreateBooking(ctx context.Context, p CreateParams) (*Booking, error) {
	query := `
		INSERT INTO bookings (
			booking_reference, patient_id, physiotherapist_id, clinic_id,
			appointment_date, appointment_time, duration_minutes,
			treatment_type_id, total_amount, patient_notes, status
		)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9, NULLIF($10, ''), $11)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRow(ctx, query,
		p.Reference, p.PatientID, p.PhysiotherapistID, p.ClinicID,
		p.AppointmentDate, p.AppointmentTime, p.DurationMinutes,
		p.TreatmentTypeID, p.TotalAmount, p.PatientNotes, string(StatusPending),
	).Scan(&id)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("bookings: insert failed: %w", err)
	}
	return r.GetBooking(ctx, id)
}

// GetBooking fetches a booking by id with party names joined in.
func (r *Repository) GetBooking(ctx context.Context, id int64) (*Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings b
		JOIN users p ON p.id = b.patient_id
		JOIN users t ON t.id = b.physiotherapist_id
		WHERE b.id = $1
	`
	b, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("bookings: select failed: %w", err)
	}
	return b, nil
}

// UpdateBooking re-reads the booking under a row lock, applies mutate, and
// writes the mutable lifecycle fields back, all in one transaction. mutate
// returning an error aborts the transaction with no state change.
func (r *Repository) UpdateBooking(ctx context.Context, id int64, mutate func(*Booking) error) (*Booking, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("bookings: begin update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		SELECT ` + bookingColumns + `
		FROM bookings b
		JOIN users p ON p.id = b.patient_id
		JOIN users t ON t.id = b.physiotherapist_id
		WHERE b.id = $1
		FOR UPDATE OF b
	`
	b, err := scanBooking(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("bookings: select for update failed: %w", err)
	}

	if err := mutate(b); err != nil {
		return nil, err
	}

	update := `
		UPDATE bookings
		SET status = $2,
		    cancellation_reason = NULLIF($3, ''),
		    cancelled_at = $4,
		    appointment_date = $5::date,
		    appointment_time = $6,
		    therapist_notes = NULLIF($7, ''),
		    updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err = tx.QueryRow(ctx, update,
		b.ID, string(b.Status), b.CancellationReason, b.CancelledAt,
		b.AppointmentDate, b.AppointmentTime, b.TherapistNotes,
	).Scan(&b.UpdatedAt)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("bookings: update failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("bookings: commit update: %w", err)
	}
	return b, nil
}

// DeleteBooking hard-deletes a cancelled booking and its dependent payment,
// review and session rows. The cancelled-only guard is re-checked under the
// row lock so a concurrent transition cannot race the delete.
func (r *Repository) DeleteBooking(ctx context.Context, id int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("bookings: begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM bookings WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrBookingNotFound
		}
		return fmt.Errorf("bookings: select for delete failed: %w", err)
	}
	if Status(status) != StatusCancelled {
		return ErrInvalidTransition
	}

	for _, table := range []string{"payments", "reviews", "sessions"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE booking_id = $1`, id); err != nil {
			return fmt.Errorf("bookings: delete dependent %s: %w", table, err)
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id); err != nil {
		return fmt.Errorf("bookings: delete row: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("bookings: commit delete: %w", err)
	}
	return nil
}

// ReferenceExists checks whether a generated reference is already taken.
func (r *Repository) ReferenceExists(ctx context.Context, ref string) (bool, error) {
	var exists int
	err := r.db.QueryRow(ctx, `SELECT 1 FROM bookings WHERE booking_reference = $1`, ref).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("bookings: check reference: %w", err)
	}
	return true, nil
}

// SlotTaken reports whether any non-cancelled booking occupies the slot,
// optionally excluding one booking id (pass 0 for no exclusion). This is the
// fast-path check; the partial unique index remains authoritative.
func (r *Repository) SlotTaken(ctx context.Context, physioID int64, date, timeOfDay string, excludeID int64) (bool, error) {
	query := `
		SELECT 1 FROM bookings
		WHERE physiotherapist_id = $1
		  AND appointment_date = $2::date
		  AND appointment_time = $3
		  AND status <> 'cancelled'
		  AND ($4 = 0 OR id <> $4)
		LIMIT 1
	`
	var exists int
	err := r.db.QueryRow(ctx, query, physioID, date, timeOfDay, excludeID).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("bookings: check slot: %w", err)
	}
	return true, nil
}

// BookedSlots returns the occupied times per date for a therapist over an
// inclusive date range, counting only non-cancelled bookings.
func (r *Repository) BookedSlots(ctx context.Context, physioID int64, fromDate, toDate string) (map[string][]string, error) {
	query := `
		SELECT appointment_date::text, appointment_time
		FROM bookings
		WHERE physiotherapist_id = $1
		  AND appointment_date BETWEEN $2::date AND $3::date
		  AND status <> 'cancelled'
	`
	rows, err := r.db.Query(ctx, query, physioID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("bookings: list booked slots: %w", err)
	}
	defer rows.Close()

	booked := make(map[string][]string)
	for rows.Next() {
		var date, timeOfDay string
		if err := rows.Scan(&date, &timeOfDay); err != nil {
			return nil, fmt.Errorf("bookings: scan booked slot: %w", err)
		}
		booked[date] = append(booked[date], timeOfDay)
	}
	return booked, rows.Err()
}

// mapUniqueViolation translates constraint violations into domain errors.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	switch pgErr.ConstraintName {
	case "bookings_slot_active_idx":
		return ErrSlotConflict
	case "bookings_booking_reference_key":
		return errDuplicateReference
	}
	return nil
}
