package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/physiocare/booking-platform/internal/api/router"
	"github.com/physiocare/booking-platform/internal/app/bootstrap"
	"github.com/physiocare/booking-platform/internal/bookings"
	"github.com/physiocare/booking-platform/internal/clinic"
	appconfig "github.com/physiocare/booking-platform/internal/config"
	"github.com/physiocare/booking-platform/internal/events"
	"github.com/physiocare/booking-platform/internal/notify"
	"github.com/physiocare/booking-platform/internal/observability/metrics"
	"github.com/physiocare/booking-platform/internal/payments"
	"github.com/physiocare/booking-platform/internal/reminders"
	"github.com/physiocare/booking-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shared infrastructure
	pool, err := bootstrap.BuildDatabasePool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	clinicStore := bootstrap.BuildClinicStore(redisClient)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	bookingMetrics := metrics.NewBookingMetrics(registry)

	// Stores and services
	bookingRepo := bookings.NewRepository(pool)
	paymentStore := payments.NewStore(pool)
	outbox := events.NewOutboxStore(pool)
	notifyStore := notify.NewStore(pool)
	dispatcher := notify.NewDispatcher(notifyStore, outbox, bookingMetrics, logger)

	bookingService := bookings.NewService(bookingRepo, paymentStore, dispatcher, bookingMetrics, logger).
		WithCancellationWindow(cfg.CancellationWindow).
		WithReferenceAttempts(cfg.ReferenceMaxAttempts).
		WithDefaultAmount(cfg.DefaultAmount).
		WithDefaultDuration(cfg.DefaultSlotMinutes)

	var availability *bookings.Availability
	var clinicHandler *clinic.Handler
	var clinicNames notify.ClinicNames
	if clinicStore != nil {
		availability = bookings.NewAvailability(bookingRepo, clinicStore)
		clinicHandler = clinic.NewHandler(clinicStore, logger)
		clinicNames = clinicStore
	} else {
		logger.Warn("redis unavailable; availability endpoints disabled")
	}

	// Background email delivery from the outbox
	emailSender := bootstrap.BuildEmailSender(ctx, cfg, logger)
	emailHandler := notify.NewEmailDeliveryHandler(emailSender, clinicNames, logger)
	deliverer := events.NewDeliverer(outbox, emailHandler, logger).
		WithInterval(cfg.OutboxInterval).
		WithBatchSize(int32(cfg.OutboxBatchSize))
	go deliverer.Start(ctx)

	// Session reminders
	reminderWorker := reminders.NewWorker(reminders.NewStore(pool), dispatcher, logger).
		WithWindow(cfg.ReminderWindow).
		WithInterval(cfg.ReminderInterval)
	go reminderWorker.Start(ctx)

	// Setup router
	routerCfg := &router.Config{
		Logger:             logger,
		BookingsHandler:    bookings.NewHandler(bookingService, availability, logger),
		ClinicHandler:      clinicHandler,
		AuthJWTSecret:      cfg.AuthJWTSecret,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
