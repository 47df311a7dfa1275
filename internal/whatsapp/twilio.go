package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chitrakala/auth-service/internal/config"
	"github.com/sirupsen/logrus"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// TwilioDispatcher sends the code as a WhatsApp message through Twilio's
// REST API.
type TwilioDispatcher struct {
	accountSID string
	authToken  string
	fromNumber string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewTwilioDispatcher(cfg *config.WhatsAppConfig, logger *logrus.Logger) *TwilioDispatcher {
	return &TwilioDispatcher{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		fromNumber: cfg.FromNumber,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (d *TwilioDispatcher) SendOTP(ctx context.Context, phoneNumber, code string) (*DeliveryResult, error) {
	formatted := normalizePhone(phoneNumber)
	body := fmt.Sprintf("Your verification code is: %s\n\nThis code will expire in 10 minutes. Do not share this code with anyone.", code)

	form := url.Values{}
	form.Set("From", d.fromNumber)
	form.Set("To", "whatsapp:+"+formatted)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", twilioAPIBase, d.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build Twilio request: %w", err)
	}
	req.SetBasicAuth(d.accountSID, d.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send WhatsApp message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("twilio API returned status %d", resp.StatusCode)
	}

	var twilioResp struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&twilioResp); err != nil {
		return nil, fmt.Errorf("failed to decode Twilio response: %w", err)
	}

	d.logger.WithFields(logrus.Fields{
		"phone":      "+" + formatted,
		"message_id": twilioResp.SID,
		"status":     twilioResp.Status,
	}).Info("WhatsApp OTP dispatched")

	return &DeliveryResult{
		MessageID:   twilioResp.SID,
		PhoneNumber: "+" + formatted,
		Method:      "whatsapp",
	}, nil
}
