package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/oakhurst-labs/frontdesk/internal/config"
	"github.com/oakhurst-labs/frontdesk/internal/domain"
	"github.com/oakhurst-labs/frontdesk/internal/extract"
)

// Templates is the deterministic utterance source. It needs no external
// dependency and is always ready within a turn's budget, so it is the
// floor the AI path races against.
type Templates struct {
	business config.BusinessConfig
	now      func() time.Time
}

// NewTemplates builds the template engine for a business.
func NewTemplates(business config.BusinessConfig) *Templates {
	return &Templates{business: business, now: time.Now}
}

// Greeting opens the call, personalized for repeat callers.
func (t *Templates) Greeting(profile *domain.CallerProfile) string {
	part := "Hello"
	switch h := t.now().In(t.business.Location()).Hour(); {
	case h < 12:
		part = "Good morning"
	case h < 17:
		part = "Good afternoon"
	default:
		part = "Good evening"
	}

	if profile != nil && profile.Name != "" {
		if profile.VIP {
			return fmt.Sprintf("%s %s, always great to hear from you! Thanks for calling %s. What can I do for you today?",
				part, profile.Name, t.business.Name)
		}
		return fmt.Sprintf("%s %s, welcome back to %s! How can I help you today?",
			part, profile.Name, t.business.Name)
	}
	return fmt.Sprintf("%s, thank you for calling %s! How can I help you today?", part, t.business.Name)
}

// Prompt asks for the next missing field, with an empathy prefix when
// the caller sounded distressed.
func (t *Templates) Prompt(sess *domain.CallSession) string {
	prefix := extract.EmpathyPrefix(sess.Field(domain.FieldEmotion))

	var body string
	switch sess.NextState() {
	case domain.StateGatheringName:
		body = "Can I get your name, please?"
	case domain.StateGatheringService:
		body = fmt.Sprintf("What can we do for you? We offer %s.", t.serviceList())
	case domain.StateGatheringDate:
		body = fmt.Sprintf("What day works best for you, %s?", sess.Field(domain.FieldName))
	case domain.StateGatheringTime:
		body = fmt.Sprintf("What time on %s would you like?", sess.Field(domain.FieldDate))
	default:
		body = "How can I help you?"
	}

	return prefix + body
}

// Confirmation announces a committed booking.
func (t *Templates) Confirmation(appt *domain.Appointment) string {
	return fmt.Sprintf("Perfect, %s! Your %s is booked for %s at %s. We'll see you then. Goodbye!",
		appt.CustomerName, strings.ToLower(appt.Service), appt.Date, appt.Time)
}

// ConflictRecovery apologizes for a taken slot and offers alternatives.
func (t *Templates) ConflictRecovery(date, timeStr string, alternatives []string) string {
	if len(alternatives) == 0 {
		return fmt.Sprintf("I'm sorry, %s at %s is already taken, and that day looks full. Is there another day that works?",
			date, timeStr)
	}
	return fmt.Sprintf("I'm sorry, %s at %s is already taken. I do have %s open. Would one of those work?",
		date, timeStr, spokenList(alternatives))
}

// PendingManual tells the caller their booking will be confirmed by a
// person, used when the calendar backend is unreachable.
func (t *Templates) PendingManual(appt *domain.Appointment) string {
	return fmt.Sprintf("Thanks, %s. I've noted your %s for %s at %s, and a member of our team will call you shortly to confirm. Goodbye!",
		appt.CustomerName, strings.ToLower(appt.Service), appt.Date, appt.Time)
}

// CancelPrompt asks the caller to confirm a cancellation.
func (t *Templates) CancelPrompt(appt *domain.Appointment) string {
	return fmt.Sprintf("I found your %s on %s at %s. Just to confirm, you'd like to cancel it?",
		strings.ToLower(appt.Service), appt.Date, appt.Time)
}

// Cancelled confirms a completed cancellation.
func (t *Templates) Cancelled(appt *domain.Appointment) string {
	return fmt.Sprintf("All done, your %s on %s has been cancelled. We hope to see you another time. Goodbye!",
		strings.ToLower(appt.Service), appt.Date)
}

// ReschedulePrompt starts the re-booking conversation for a found
// appointment.
func (t *Templates) ReschedulePrompt(appt *domain.Appointment) string {
	return fmt.Sprintf("I found your %s on %s at %s. What day would you like to move it to?",
		strings.ToLower(appt.Service), appt.Date, appt.Time)
}

// Rescheduled confirms a moved booking.
func (t *Templates) Rescheduled(appt *domain.Appointment) string {
	return fmt.Sprintf("You're all set, %s. Your %s is now on %s at %s. Goodbye!",
		appt.CustomerName, strings.ToLower(appt.Service), appt.Date, appt.Time)
}

// NotFound covers lookup misses during modification.
func (t *Templates) NotFound() string {
	return "I'm sorry, I couldn't find an appointment under your number or name. Could you give me the name it was booked under?"
}

// Refusal politely ends a call that is going nowhere.
func (t *Templates) Refusal() string {
	return fmt.Sprintf("I'm sorry, I'm having trouble understanding. Please call %s back later or reach us another way. Goodbye!",
		t.business.Name)
}

// Apology is the generic internal-fault closer.
func (t *Templates) Apology() string {
	return "I'm so sorry, something went wrong on our end. Please call back in a few minutes. Goodbye!"
}

func (t *Templates) serviceList() string {
	names := make([]string, 0, len(t.business.Services))
	for _, s := range t.business.Services {
		names = append(names, strings.ToLower(s.Name))
	}
	return spokenList(names)
}

// spokenList joins items the way a person would say them.
func spokenList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " or " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", or " + items[len(items)-1]
	}
}
