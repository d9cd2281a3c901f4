// Package payments exposes read access to the payment records owned by the
// external payment collaborator. The booking core only needs to know whether
// a booking is protected by a completed payment; capture and refunds happen
// elsewhere.
package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// StatusCompleted is the payment status that protects a booking from plain
// cancellation.
const StatusCompleted = "completed"

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads payment state for bookings.
type Store struct {
	db DB
}

// NewStore creates a payment store backed by pgx.
func NewStore(db DB) *Store {
	if db == nil {
		panic("payments: db required")
	}
	return &Store{db: db}
}

// HasCompletedPayment reports whether any payment for the booking completed.
func (s *Store) HasCompletedPayment(ctx context.Context, bookingID int64) (bool, error) {
	query := `SELECT 1 FROM payments WHERE booking_id = $1 AND status = $2 LIMIT 1`
	var exists int
	if err := s.db.QueryRow(ctx, query, bookingID, StatusCompleted).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("payments: check completed: %w", err)
	}
	return true, nil
}
