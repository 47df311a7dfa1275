package whatsapp

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// LogDispatcher logs the code instead of delivering it. Used in demo mode
// and in tests.
type LogDispatcher struct {
	logger *logrus.Logger
}

func NewLogDispatcher(logger *logrus.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) SendOTP(ctx context.Context, phoneNumber, code string) (*DeliveryResult, error) {
	formatted := normalizePhone(phoneNumber)

	d.logger.WithFields(logrus.Fields{
		"phone": "+" + formatted,
		"otp":   code,
	}).Info("WhatsApp OTP sent (demo mode)")

	return &DeliveryResult{
		MessageID:   fmt.Sprintf("demo_%d", time.Now().UnixMilli()),
		PhoneNumber: "+" + formatted,
		Method:      "whatsapp",
	}, nil
}
