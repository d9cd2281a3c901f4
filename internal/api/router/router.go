package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/physiocare/booking-platform/internal/bookings"
	"github.com/physiocare/booking-platform/internal/clinic"
	httpmiddleware "github.com/physiocare/booking-platform/internal/http/middleware"
	"github.com/physiocare/booking-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	BookingsHandler    *bookings.Handler
	ClinicHandler      *clinic.Handler
	AuthJWTSecret      string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitRPS > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}

	// Public endpoints (health checks, metrics)
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Authenticated API routes
	r.Group(func(api chi.Router) {
		api.Use(httpmiddleware.ActorJWT(cfg.AuthJWTSecret))

		if cfg.BookingsHandler != nil {
			api.Route("/bookings", func(r chi.Router) {
				r.With(requireRole("patient", "admin")).Post("/", cfg.BookingsHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", cfg.BookingsHandler.Get)
					r.With(requireRole("physiotherapist", "admin")).Post("/accept", cfg.BookingsHandler.Accept)
					r.With(requireRole("physiotherapist", "admin")).Post("/reject", cfg.BookingsHandler.Reject)
					r.With(requireRole("patient", "admin")).Post("/cancel", cfg.BookingsHandler.Cancel)
					r.With(requireRole("physiotherapist", "admin")).Post("/reschedule", cfg.BookingsHandler.Reschedule)
					r.With(requireRole("physiotherapist", "admin")).Delete("/", cfg.BookingsHandler.Delete)
				})
			})
			api.Route("/therapists/{therapistID}/availability", func(r chi.Router) {
				r.Get("/dates", cfg.BookingsHandler.AvailableDates)
				r.Get("/slots", cfg.BookingsHandler.AvailableSlots)
			})
		}

		if cfg.ClinicHandler != nil {
			api.Route("/clinics/{clinicID}/config", func(r chi.Router) {
				r.Get("/", cfg.ClinicHandler.GetConfig)
				r.With(requireRole("admin")).Put("/", cfg.ClinicHandler.UpdateConfig)
			})
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
