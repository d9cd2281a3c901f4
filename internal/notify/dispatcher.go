package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/physiocare/booking-platform/internal/bookings"
	"github.com/physiocare/booking-platform/internal/observability/metrics"
	"github.com/physiocare/booking-platform/pkg/logging"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists in-app notification rows.
type Store struct {
	db DB
}

// NewStore creates a notification store backed by pgx.
func NewStore(db DB) *Store {
	if db == nil {
		panic("notify: db required")
	}
	return &Store{db: db}
}

// Insert creates one notification row addressed to a user.
func (s *Store) Insert(ctx context.Context, userID int64, title, message, typ string) error {
	query := `
		INSERT INTO notifications (id, user_id, title, message, type)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.db.Exec(ctx, query, uuid.New(), userID, title, message, typ); err != nil {
		return fmt.Errorf("notify: insert notification: %w", err)
	}
	return nil
}

// AdminUserIDs returns the ids of every user holding the admin role.
func (s *Store) AdminUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM users WHERE role = 'admin'`)
	if err != nil {
		return nil, fmt.Errorf("notify: list admins: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("notify: scan admin id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// EmailQueue accepts email jobs for asynchronous delivery. The events outbox
// implements it.
type EmailQueue interface {
	Insert(ctx context.Context, kind string, payload any) (uuid.UUID, error)
}

// Dispatcher fans out in-app notifications and enqueues email side effects.
// Every method is best-effort: failures are logged and counted, never
// returned, so a broken notification channel can never fail a booking
// transition.
type Dispatcher struct {
	store   *Store
	queue   EmailQueue
	metrics *metrics.BookingMetrics
	logger  *logging.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(store *Store, queue EmailQueue, m *metrics.BookingMetrics, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{store: store, queue: queue, metrics: m, logger: logger}
}

// Notify creates a durable in-app notification for one user.
func (d *Dispatcher) Notify(ctx context.Context, userID int64, title, message, typ string) {
	if d.store == nil {
		return
	}
	if err := d.store.Insert(ctx, userID, title, message, typ); err != nil {
		d.metrics.ObserveSideEffectFailure("notification")
		d.logger.Error("notification insert failed", "error", err, "user_id", userID, "title", title)
	}
}

// NotifyAdmins fans the message out to every admin user.
func (d *Dispatcher) NotifyAdmins(ctx context.Context, title, message, typ string) {
	if d.store == nil {
		return
	}
	ids, err := d.store.AdminUserIDs(ctx)
	if err != nil {
		d.metrics.ObserveSideEffectFailure("notification")
		d.logger.Error("admin fanout failed", "error", err, "title", title)
		return
	}
	for _, id := range ids {
		d.Notify(ctx, id, title, message, typ)
	}
}

// EnqueueEmail puts an email job on the durable outbox; the background
// deliverer sends it independently of the calling request.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, evt bookings.EmailEvent) {
	if d.queue == nil {
		return
	}
	if evt.Recipient == "" {
		d.logger.Warn("email event without recipient dropped", "kind", evt.Kind, "reference", evt.Reference)
		return
	}
	if _, err := d.queue.Insert(ctx, evt.Kind, evt); err != nil {
		d.metrics.ObserveSideEffectFailure("email")
		d.logger.Error("email enqueue failed", "error", err, "kind", evt.Kind, "reference", evt.Reference)
	}
}

// Ensure the dispatcher satisfies the lifecycle service's contract.
var _ bookings.Dispatcher = (*Dispatcher)(nil)
