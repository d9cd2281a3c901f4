package bookings

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	httpmiddleware "github.com/physiocare/booking-platform/internal/http/middleware"
	"github.com/physiocare/booking-platform/pkg/logging"
)

// Handler handles HTTP requests for the booking lifecycle.
type Handler struct {
	service      *Service
	availability *Availability
	logger       *logging.Logger
}

// NewHandler creates a new bookings handler.
func NewHandler(service *Service, availability *Availability, logger *logging.Logger) *Handler {
	if service == nil {
		panic("bookings: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, availability: availability, logger: logger}
}

// Create handles POST /bookings. The acting patient is taken from the
// verified token, never from the request body.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpmiddleware.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "missing actor", http.StatusUnauthorized)
		return
	}

	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.PatientID = actor.UserID

	booking, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

// Get handles GET /bookings/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	booking, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// Accept handles POST /bookings/{id}/accept.
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id, actorID int64) (*Booking, error) {
		return h.service.Accept(r.Context(), id, actorID)
	})
}

// Reject handles POST /bookings/{id}/reject.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	h.transition(w, r, func(id, actorID int64) (*Booking, error) {
		return h.service.Reject(r.Context(), id, actorID, body.Reason)
	})
}

// Cancel handles POST /bookings/{id}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id, actorID int64) (*Booking, error) {
		return h.service.Cancel(r.Context(), id, actorID)
	})
}

// Reschedule handles POST /bookings/{id}/reschedule.
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AppointmentDate string `json:"appointment_date"`
		AppointmentTime string `json:"appointment_time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.transition(w, r, func(id, actorID int64) (*Booking, error) {
		return h.service.Reschedule(r.Context(), id, actorID, body.AppointmentDate, body.AppointmentTime)
	})
}

// Delete handles DELETE /bookings/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpmiddleware.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "missing actor", http.StatusUnauthorized)
		return
	}
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id, actor.UserID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AvailableDates handles GET /therapists/{therapistID}/availability/dates.
func (h *Handler) AvailableDates(w http.ResponseWriter, r *http.Request) {
	if h.availability == nil {
		http.Error(w, "availability not configured", http.StatusServiceUnavailable)
		return
	}
	therapistID, err := strconv.ParseInt(chi.URLParam(r, "therapistID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid therapist id", http.StatusBadRequest)
		return
	}
	clinicID, _ := strconv.ParseInt(r.URL.Query().Get("clinic_id"), 10, 64)
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	month, _ := strconv.Atoi(r.URL.Query().Get("month"))
	if clinicID <= 0 || year < 2000 || month < 1 || month > 12 {
		http.Error(w, "clinic_id, year and month are required", http.StatusBadRequest)
		return
	}

	dates, err := h.availability.AvailableDatesForMonth(r.Context(), clinicID, therapistID, year, time.Month(month))
	if err != nil {
		h.logger.Error("availability month query failed", "error", err, "therapist_id", therapistID)
		http.Error(w, "failed to compute availability", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dates": dates})
}

// AvailableSlots handles GET /therapists/{therapistID}/availability/slots.
func (h *Handler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	if h.availability == nil {
		http.Error(w, "availability not configured", http.StatusServiceUnavailable)
		return
	}
	therapistID, err := strconv.ParseInt(chi.URLParam(r, "therapistID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid therapist id", http.StatusBadRequest)
		return
	}
	clinicID, _ := strconv.ParseInt(r.URL.Query().Get("clinic_id"), 10, 64)
	date := r.URL.Query().Get("date")
	if clinicID <= 0 || date == "" {
		http.Error(w, "clinic_id and date are required", http.StatusBadRequest)
		return
	}

	slots, err := h.availability.AvailableSlotsForDate(r.Context(), clinicID, therapistID, date)
	if err != nil {
		h.logger.Error("availability day query failed", "error", err, "therapist_id", therapistID, "date", date)
		http.Error(w, "failed to compute availability", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "slots": slots})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(id, actorID int64) (*Booking, error)) {
	actor, ok := httpmiddleware.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "missing actor", http.StatusUnauthorized)
		return
	}
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	booking, err := op(id, actor.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBookingNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrSlotConflict),
		errors.Is(err, ErrAlreadyCancelled),
		errors.Is(err, ErrAlreadyCompleted),
		errors.Is(err, ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrPaidBookingProtected),
		errors.Is(err, ErrCancellationWindowExpired):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrCreationFailed), errors.Is(err, ErrReferenceExhausted):
		h.logger.Error("booking operation failed", "error", err)
		http.Error(w, "booking operation failed", http.StatusInternalServerError)
	default:
		// Anything unrecognized is an infrastructure failure, not caller input.
		h.logger.Error("booking operation failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func bookingID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid booking id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
