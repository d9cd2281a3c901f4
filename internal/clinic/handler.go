package clinic

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/physiocare/booking-platform/pkg/logging"
)

// Handler exposes clinic config over HTTP for admin tooling.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates a clinic config handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if store == nil {
		panic("clinic: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// GetConfig handles GET /clinics/{clinicID}/config.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	clinicID, err := strconv.ParseInt(chi.URLParam(r, "clinicID"), 10, 64)
	if err != nil || clinicID <= 0 {
		http.Error(w, "invalid clinic id", http.StatusBadRequest)
		return
	}
	cfg, err := h.store.Get(r.Context(), clinicID)
	if err != nil {
		h.logger.Error("clinic config read failed", "error", err, "clinic_id", clinicID)
		http.Error(w, "failed to load clinic config", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(cfg)
}

// UpdateConfig handles PUT /clinics/{clinicID}/config.
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	clinicID, err := strconv.ParseInt(chi.URLParam(r, "clinicID"), 10, 64)
	if err != nil || clinicID <= 0 {
		http.Error(w, "invalid clinic id", http.StatusBadRequest)
		return
	}
	var cfg Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cfg.ClinicID = clinicID
	if cfg.SlotMinutes <= 0 {
		cfg.SlotMinutes = 60
	}
	if err := h.store.Set(r.Context(), &cfg); err != nil {
		h.logger.Error("clinic config write failed", "error", err, "clinic_id", clinicID)
		http.Error(w, "failed to save clinic config", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(&cfg)
}
