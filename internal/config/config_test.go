package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.CancellationWindow != 24*time.Hour {
		t.Errorf("expected 24h cancellation window, got %v", cfg.CancellationWindow)
	}
	if cfg.ReferenceMaxAttempts != 10 {
		t.Errorf("expected 10 reference attempts, got %d", cfg.ReferenceMaxAttempts)
	}
	if cfg.EmailProvider != "stub" {
		t.Errorf("expected stub email provider, got %q", cfg.EmailProvider)
	}
	if cfg.DefaultAmount != 50 {
		t.Errorf("expected default amount 50, got %v", cfg.DefaultAmount)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("CANCELLATION_WINDOW", "48h")
	t.Setenv("EMAIL_PROVIDER", " SendGrid ")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg := Load()

	if cfg.Port != "9999" {
		t.Errorf("expected port 9999, got %q", cfg.Port)
	}
	if cfg.CancellationWindow != 48*time.Hour {
		t.Errorf("expected 48h window, got %v", cfg.CancellationWindow)
	}
	if cfg.EmailProvider != "sendgrid" {
		t.Errorf("expected normalized provider, got %q", cfg.EmailProvider)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Errorf("expected rps 2.5, got %v", cfg.RateLimitRPS)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("OUTBOX_BATCH_SIZE", "lots")
	t.Setenv("REMINDER_WINDOW", "soonish")

	cfg := Load()

	if cfg.OutboxBatchSize != 25 {
		t.Errorf("expected fallback batch size 25, got %d", cfg.OutboxBatchSize)
	}
	if cfg.ReminderWindow != 24*time.Hour {
		t.Errorf("expected fallback reminder window, got %v", cfg.ReminderWindow)
	}
}
