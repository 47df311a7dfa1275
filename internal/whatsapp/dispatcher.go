package whatsapp

import (
	"context"

	"github.com/chitrakala/auth-service/internal/config"
	"github.com/sirupsen/logrus"
)

// DeliveryResult is the only signal the auth core needs from out-of-band
// delivery.
type DeliveryResult struct {
	MessageID   string
	PhoneNumber string
	Method      string
}

// Dispatcher delivers a one-time code to the user out of band. Failures are
// tolerated by the auth flow; they degrade to a warning, never abort it.
type Dispatcher interface {
	SendOTP(ctx context.Context, phoneNumber, code string) (*DeliveryResult, error)
}

// NewFromConfig returns the Twilio dispatcher when credentials are present
// and the log-only demo dispatcher otherwise.
func NewFromConfig(cfg *config.WhatsAppConfig, logger *logrus.Logger) Dispatcher {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.FromNumber == "" {
		logger.Warn("WhatsApp dispatcher running in demo mode; set TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_WHATSAPP_NUMBER for real delivery")
		return NewLogDispatcher(logger)
	}
	return NewTwilioDispatcher(cfg, logger)
}

// normalizePhone strips a leading + and defaults bare 10-digit numbers to
// the Indian country code, matching what the client app sends.
func normalizePhone(phoneNumber string) string {
	formatted := phoneNumber
	if len(formatted) > 0 && formatted[0] == '+' {
		formatted = formatted[1:]
	}
	if len(formatted) == 10 {
		formatted = "91" + formatted
	}
	return formatted
}
