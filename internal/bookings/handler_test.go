package bookings

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	httpmiddleware "github.com/physiocare/booking-platform/internal/http/middleware"
	"github.com/physiocare/booking-platform/pkg/logging"
)

func testHandlerRouter(store Store, payments PaymentLookup) http.Handler {
	logger := logging.New("error")
	svc := NewService(store, payments, nil, nil, logger)
	h := NewHandler(svc, nil, logger)

	r := chi.NewRouter()
	r.Post("/bookings", h.Create)
	r.Get("/bookings/{id}", h.Get)
	r.Post("/bookings/{id}/cancel", h.Cancel)
	r.Delete("/bookings/{id}", h.Delete)
	return r
}

// withActor injects the actor directly instead of round-tripping a token.
func withActor(req *http.Request, userID int64, role string) *http.Request {
	ctx := httpmiddleware.WithActor(req.Context(), httpmiddleware.Actor{UserID: userID, Role: role})
	return req.WithContext(ctx)
}

func TestHandlerGetNotFound(t *testing.T) {
	r := testHandlerRouter(newFakeStore(), nil)

	req := withActor(httptest.NewRequest(http.MethodGet, "/bookings/99", nil), 1, "patient")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestHandlerCreateOverridesPatientFromToken(t *testing.T) {
	store := newFakeStore()
	r := testHandlerRouter(store, nil)

	// Body claims patient 999; the verified token says 1.
	body := `{"patient_id":999,"physiotherapist_id":2,"clinic_id":3,"appointment_date":"2026-04-20","appointment_time":"10:00","total_amount":"75"}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body)), 1, "patient")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if store.rows[1].PatientID != 1 {
		t.Fatalf("expected token patient id, got %d", store.rows[1].PatientID)
	}
}

func TestHandlerErrorMapping(t *testing.T) {
	store := newFakeStore()
	r := testHandlerRouter(store, &stubPayments{paid: true})

	body := `{"physiotherapist_id":2,"clinic_id":3,"appointment_date":"2026-04-20","appointment_time":"10:00","total_amount":"75"}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body)), 1, "patient")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create failed: %d", rr.Code)
	}

	// Paid bookings are protected from plain cancellation.
	req = withActor(httptest.NewRequest(http.MethodPost, "/bookings/1/cancel", nil), 1, "patient")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for paid booking, got %d", rr.Code)
	}

	// Foreign booking access maps to 403.
	req = withActor(httptest.NewRequest(http.MethodPost, "/bookings/1/cancel", nil), 42, "patient")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign booking, got %d", rr.Code)
	}

	// Deleting a non-cancelled booking maps to 409.
	req = withActor(httptest.NewRequest(http.MethodDelete, "/bookings/1", nil), 2, "physiotherapist")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for pending delete, got %d", rr.Code)
	}

	// Invalid booking ids are rejected before touching the service.
	req = withActor(httptest.NewRequest(http.MethodGet, "/bookings/zero", nil), 1, "patient")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rr.Code)
	}
}

type errorStore struct {
	*fakeStore
	getErr error
}

func (s *errorStore) GetBooking(ctx context.Context, id int64) (*Booking, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.fakeStore.GetBooking(ctx, id)
}

func TestHandlerValidationMapsTo400(t *testing.T) {
	r := testHandlerRouter(newFakeStore(), nil)

	body := `{"physiotherapist_id":2,"clinic_id":3,"appointment_date":"20-04-2026","appointment_time":"10:00","total_amount":"75"}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body)), 1, "patient")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed date, got %d", rr.Code)
	}
}

func TestHandlerStorageFailureMapsTo500(t *testing.T) {
	store := &errorStore{
		fakeStore: newFakeStore(),
		getErr:    fmt.Errorf("bookings: select failed: %w", context.DeadlineExceeded),
	}
	r := testHandlerRouter(store, nil)

	req := withActor(httptest.NewRequest(http.MethodGet, "/bookings/1", nil), 1, "patient")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for storage failure, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "select failed") {
		t.Fatalf("storage detail leaked to the client: %q", rr.Body.String())
	}
}
