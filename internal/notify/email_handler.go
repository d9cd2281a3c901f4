package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/physiocare/booking-platform/internal/bookings"
	"github.com/physiocare/booking-platform/internal/events"
	"github.com/physiocare/booking-platform/pkg/logging"
)

// ClinicNames resolves clinic display names for email copy.
type ClinicNames interface {
	ClinicName(ctx context.Context, clinicID int64) (string, error)
}

// EmailDeliveryHandler renders and sends queued booking emails. It plugs
// into the events deliverer; a returned error leaves the job pending so the
// next drain retries it.
type EmailDeliveryHandler struct {
	sender  EmailSender
	clinics ClinicNames
	logger  *logging.Logger
}

// NewEmailDeliveryHandler creates a handler for the email outbox.
func NewEmailDeliveryHandler(sender EmailSender, clinics ClinicNames, logger *logging.Logger) *EmailDeliveryHandler {
	if sender == nil {
		panic("notify: email sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &EmailDeliveryHandler{sender: sender, clinics: clinics, logger: logger}
}

// Handle sends one queued email job.
func (h *EmailDeliveryHandler) Handle(ctx context.Context, entry events.OutboxEntry) error {
	var evt bookings.EmailEvent
	if err := json.Unmarshal(entry.Payload, &evt); err != nil {
		// Malformed payloads would retry forever; log and drop.
		h.logger.Error("email job payload unmarshal failed", "error", err, "event_id", entry.ID)
		return nil
	}
	if evt.Recipient == "" {
		h.logger.Warn("email job without recipient dropped", "event_id", entry.ID, "kind", entry.Kind)
		return nil
	}

	clinicName := ""
	if h.clinics != nil {
		name, err := h.clinics.ClinicName(ctx, evt.ClinicID)
		if err != nil {
			h.logger.Warn("clinic name lookup failed", "error", err, "clinic_id", evt.ClinicID)
		} else {
			clinicName = name
		}
	}

	msg := RenderEmail(evt, clinicName)
	if err := h.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: deliver %s email: %w", entry.Kind, err)
	}
	return nil
}

var _ events.DeliveryHandler = (*EmailDeliveryHandler)(nil)
