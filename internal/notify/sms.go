// Package notify sends booking confirmations over SMS.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oakhurst-labs/frontdesk/internal/config"
	"github.com/oakhurst-labs/frontdesk/internal/domain"
	"github.com/oakhurst-labs/frontdesk/internal/logging"
)

// Sender delivers a booking confirmation to the caller.
type Sender interface {
	ConfirmBooking(ctx context.Context, appt *domain.Appointment, businessName string) error
}

// Noop is used when SMS is not configured.
type Noop struct{}

func (Noop) ConfirmBooking(context.Context, *domain.Appointment, string) error { return nil }

// TwilioSMS sends confirmations through Twilio's Messages REST API.
type TwilioSMS struct {
	accountSID string
	authToken  string
	from       string
	client     *http.Client
	log        *logging.Logger
}

// NewTwilioSMS creates a sender from SMS config.
func NewTwilioSMS(cfg config.SMSConfig, log *logging.Logger) *TwilioSMS {
	return &TwilioSMS{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.FromNumber,
		client:     &http.Client{Timeout: 10 * time.Second},
		log:        log.Sub("sms"),
	}
}

// ConfirmBooking texts the appointment details to the caller. Callers
// without a number on file are skipped silently.
func (t *TwilioSMS) ConfirmBooking(ctx context.Context, appt *domain.Appointment, businessName string) error {
	if appt.Phone == "" {
		return nil
	}

	body := fmt.Sprintf("%s: your %s is confirmed for %s at %s. Reply or call us to change it.",
		businessName, strings.ToLower(appt.Service), appt.Date, appt.Time)

	form := url.Values{}
	form.Set("To", appt.Phone)
	form.Set("From", t.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", t.accountSID)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(msg))
	}

	t.log.Info().Str("to", appt.Phone).Msg("confirmation sent")
	return nil
}
