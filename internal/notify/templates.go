package notify

import (
	"fmt"
	"strings"

	"github.com/physiocare/booking-platform/internal/bookings"
)

// RenderEmail turns a booking email event into a sendable message. The copy
// keeps to plain text with a minimal HTML variant; anything fancier belongs
// to the out-of-scope template layer.
func RenderEmail(evt bookings.EmailEvent, clinicName string) EmailMessage {
	if clinicName == "" {
		clinicName = "your clinic"
	}
	slot := fmt.Sprintf("%s at %s", evt.Date, evt.Time)
	amount := fmt.Sprintf("$%.2f", evt.Amount)

	var subject, intro string
	switch evt.Kind {
	case bookings.EmailBookingCreated:
		subject = fmt.Sprintf("New booking request %s", evt.Reference)
		intro = fmt.Sprintf("%s requested a session with %s on %s.", evt.PatientName, evt.TherapistName, slot)
	case bookings.EmailBookingConfirmed:
		subject = fmt.Sprintf("Booking %s confirmed", evt.Reference)
		intro = fmt.Sprintf("Your session with %s on %s is confirmed.", evt.TherapistName, slot)
	case bookings.EmailBookingCancelled:
		subject = fmt.Sprintf("Booking %s cancelled", evt.Reference)
		intro = fmt.Sprintf("The session on %s was cancelled by %s.", slot, strings.ToLower(orDefault(evt.Actor, "the clinic")))
		if evt.Reason != "" {
			intro += fmt.Sprintf(" Reason: %s.", evt.Reason)
		}
	case bookings.EmailBookingRescheduled:
		subject = fmt.Sprintf("Booking %s rescheduled", evt.Reference)
		intro = fmt.Sprintf("Your session was moved to %s.", slot)
	case bookings.EmailBookingDeleted:
		subject = fmt.Sprintf("Booking %s removed", evt.Reference)
		intro = fmt.Sprintf("The cancelled booking %s was removed from your history.", evt.Reference)
	case bookings.EmailBookingReminder:
		subject = fmt.Sprintf("Reminder: session %s tomorrow", evt.Reference)
		intro = fmt.Sprintf("This is a reminder of your upcoming session with %s on %s.", evt.TherapistName, slot)
	default:
		subject = fmt.Sprintf("Update on booking %s", evt.Reference)
		intro = fmt.Sprintf("There is an update on your session scheduled for %s.", slot)
	}

	body := fmt.Sprintf(`Hi %s,

%s

Reference: %s
Patient: %s
Therapist: %s
When: %s
Amount: %s
`, orDefault(evt.RecipientName, "there"), intro, evt.Reference, evt.PatientName, evt.TherapistName, slot, amount)

	if evt.Notes != "" {
		body += fmt.Sprintf("Notes: %s\n", evt.Notes)
	}
	body += fmt.Sprintf("\n— %s", clinicName)

	html := fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<p>Hi %s,</p>
<p>%s</p>
<table style="border-collapse: collapse; margin: 16px 0;">
  <tr><td style="padding: 6px;"><strong>Reference:</strong></td><td style="padding: 6px;">%s</td></tr>
  <tr><td style="padding: 6px;"><strong>Patient:</strong></td><td style="padding: 6px;">%s</td></tr>
  <tr><td style="padding: 6px;"><strong>Therapist:</strong></td><td style="padding: 6px;">%s</td></tr>
  <tr><td style="padding: 6px;"><strong>When:</strong></td><td style="padding: 6px;">%s</td></tr>
  <tr><td style="padding: 6px;"><strong>Amount:</strong></td><td style="padding: 6px;">%s</td></tr>
</table>
<p style="color: #6b7280; font-size: 12px;">— %s</p>
</div>`,
		orDefault(evt.RecipientName, "there"), intro, evt.Reference, evt.PatientName, evt.TherapistName, slot, amount, clinicName)

	return EmailMessage{
		To:      evt.Recipient,
		ToName:  evt.RecipientName,
		Subject: subject,
		Body:    body,
		HTML:    html,
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
