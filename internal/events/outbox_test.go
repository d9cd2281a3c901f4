package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/physiocare/booking-platform/pkg/logging"
)

func TestOutboxStoreFlow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newOutboxStoreWithExec(mock)

	mock.ExpectExec("INSERT INTO email_outbox").
		WithArgs(pgxmock.AnyArg(), "booking_confirmed", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	if _, err := store.Insert(context.Background(), "booking_confirmed", map[string]string{"recipient": "pat@example.com"}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	now := time.Now().UTC()
	id := uuid.New()
	rows := pgxmock.NewRows([]string{"id", "kind", "payload", "created_at"}).
		AddRow(id, "booking_confirmed", []byte(`{"recipient":"pat@example.com"}`), now)
	mock.ExpectQuery("SELECT id").WithArgs(int32(10)).WillReturnRows(rows)

	entries, err := store.FetchPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("fetch pending failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != id {
		t.Fatalf("unexpected entries: %#v", entries)
	}

	mock.ExpectExec("UPDATE email_outbox").WithArgs(id).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ok, err := store.MarkDelivered(context.Background(), id)
	if err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}
	if !ok {
		t.Fatal("expected mark delivered to report success")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMarkDeliveredAlreadyClaimed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newOutboxStoreWithExec(mock)
	id := uuid.New()
	mock.ExpectExec("UPDATE email_outbox").WithArgs(id).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := store.MarkDelivered(context.Background(), id)
	if err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}
	if ok {
		t.Fatal("expected already-claimed entry to report false")
	}
}

type recordingHandler struct {
	mu      sync.Mutex
	handled []uuid.UUID
	fail    map[uuid.UUID]bool
}

func (h *recordingHandler) Handle(_ context.Context, entry OutboxEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fail[entry.ID] {
		return errors.New("delivery failed")
	}
	h.handled = append(h.handled, entry.ID)
	return nil
}

func TestDelivererDrainSkipsFailedEntries(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newOutboxStoreWithExec(mock)
	good, bad := uuid.New(), uuid.New()
	handler := &recordingHandler{fail: map[uuid.UUID]bool{bad: true}}
	d := NewDeliverer(store, handler, logging.New("error")).WithBatchSize(5)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "kind", "payload", "created_at"}).
		AddRow(bad, "booking_created", []byte(`{}`), now).
		AddRow(good, "booking_confirmed", []byte(`{}`), now)
	mock.ExpectQuery("SELECT id").WithArgs(int32(5)).WillReturnRows(rows)
	// Only the successful entry is marked; the failed one stays pending.
	mock.ExpectExec("UPDATE email_outbox").WithArgs(good).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	d.drain(context.Background())

	if len(handler.handled) != 1 || handler.handled[0] != good {
		t.Fatalf("unexpected handled set: %v", handler.handled)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
