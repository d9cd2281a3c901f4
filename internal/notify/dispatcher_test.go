package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/physiocare/booking-platform/internal/bookings"
	"github.com/physiocare/booking-platform/pkg/logging"
)

type stubQueue struct {
	inserted []bookings.EmailEvent
	err      error
}

func (q *stubQueue) Insert(_ context.Context, _ string, payload any) (uuid.UUID, error) {
	if q.err != nil {
		return uuid.Nil, q.err
	}
	q.inserted = append(q.inserted, payload.(bookings.EmailEvent))
	return uuid.New(), nil
}

func TestDispatcherNotify(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	d := NewDispatcher(NewStore(mock), nil, nil, logging.New("error"))

	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(pgxmock.AnyArg(), int64(5), "Booking confirmed", "details", "booking").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	d.Notify(context.Background(), 5, "Booking confirmed", "details", "booking")

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDispatcherNotifyAdminsFansOut(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	d := NewDispatcher(NewStore(mock), nil, nil, logging.New("error"))

	mock.ExpectQuery("SELECT id FROM users").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(10)).AddRow(int64(11)))
	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(pgxmock.AnyArg(), int64(10), "New booking", "body", "booking").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(pgxmock.AnyArg(), int64(11), "New booking", "body", "booking").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	d.NotifyAdmins(context.Background(), "New booking", "body", "booking")

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDispatcherNotifySwallowsStorageErrors(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	d := NewDispatcher(NewStore(mock), nil, nil, logging.New("error"))

	mock.ExpectExec("INSERT INTO notifications").WillReturnError(errors.New("down"))

	// Must not panic or propagate; side effects never fail a transition.
	d.Notify(context.Background(), 5, "title", "body", "booking")
}

func TestDispatcherEnqueueEmail(t *testing.T) {
	queue := &stubQueue{}
	d := NewDispatcher(nil, queue, nil, logging.New("error"))

	evt := bookings.EmailEvent{Kind: bookings.EmailBookingCreated, Recipient: "terry@example.com", Reference: "PBTESTREF"}
	d.EnqueueEmail(context.Background(), evt)

	if len(queue.inserted) != 1 || queue.inserted[0].Reference != "PBTESTREF" {
		t.Fatalf("expected enqueued event, got %+v", queue.inserted)
	}
}

func TestDispatcherEnqueueEmailDropsEmptyRecipient(t *testing.T) {
	queue := &stubQueue{}
	d := NewDispatcher(nil, queue, nil, logging.New("error"))

	d.EnqueueEmail(context.Background(), bookings.EmailEvent{Kind: bookings.EmailBookingCreated})

	if len(queue.inserted) != 0 {
		t.Fatalf("expected drop, got %+v", queue.inserted)
	}
}

func TestDispatcherEnqueueEmailSwallowsQueueErrors(t *testing.T) {
	queue := &stubQueue{err: errors.New("outbox down")}
	d := NewDispatcher(nil, queue, nil, logging.New("error"))

	d.EnqueueEmail(context.Background(), bookings.EmailEvent{Kind: bookings.EmailBookingCreated, Recipient: "x@example.com"})
}
