package payments

import (
	"context"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestHasCompletedPayment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock)

	mock.ExpectQuery("SELECT 1 FROM payments").WithArgs(int64(7), StatusCompleted).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(1))
	paid, err := store.HasCompletedPayment(context.Background(), 7)
	if err != nil || !paid {
		t.Fatalf("expected paid, got %v %v", paid, err)
	}

	mock.ExpectQuery("SELECT 1 FROM payments").WithArgs(int64(8), StatusCompleted).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}))
	paid, err = store.HasCompletedPayment(context.Background(), 8)
	if err != nil || paid {
		t.Fatalf("expected unpaid, got %v %v", paid, err)
	}

	mock.ExpectQuery("SELECT 1 FROM payments").WithArgs(int64(9), StatusCompleted).
		WillReturnError(errors.New("down"))
	if _, err := store.HasCompletedPayment(context.Background(), 9); err == nil {
		t.Fatal("expected error to propagate")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
