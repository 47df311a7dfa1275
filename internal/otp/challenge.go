package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Challenge manages one-time codes: generation, storage behind the injected
// Store, verification and expiry. Verification fails uniformly — callers
// cannot tell a missing record from an expired one or a wrong code.
type Challenge struct {
	store       Store
	expiry      time.Duration
	maxAttempts int
	logger      *logrus.Logger
}

func NewChallenge(store Store, expiry time.Duration, maxAttempts int, logger *logrus.Logger) *Challenge {
	return &Challenge{
		store:       store,
		expiry:      expiry,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Generate draws a 4-digit code uniformly from [1000, 9999].
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+1000), nil
}

// Issue generates a fresh code for the phone number and stores its hash,
// overwriting any prior unconsumed code. Expired records are swept
// opportunistically before the new one is written.
func (c *Challenge) Issue(ctx context.Context, phone string) (string, error) {
	if removed := c.store.SweepExpired(ctx); removed > 0 {
		c.logger.WithField("removed", removed).Debug("Swept expired OTP records")
	}

	code, err := Generate()
	if err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash OTP: %w", err)
	}

	now := time.Now()
	record := Record{
		Phone:     phone,
		CodeHash:  string(hash),
		Attempts:  0,
		CreatedAt: now,
		ExpiresAt: now.Add(c.expiry),
	}

	if err := c.store.Save(ctx, phone, record, c.expiry); err != nil {
		c.logger.WithError(err).Error("Failed to store OTP")
		return "", err
	}

	return code, nil
}

// Verify consumes the live record for the phone number when the candidate
// matches. The record is deleted on success (single use), on expiry and
// once the attempt cap is exceeded. The boolean result is the only signal
// surfaced to callers.
func (c *Challenge) Verify(ctx context.Context, phone, candidate string) bool {
	record, err := c.store.Get(ctx, phone)
	if err != nil {
		c.logger.WithError(err).Error("Failed to load OTP record")
		return false
	}
	if record == nil {
		return false
	}

	if time.Now().After(record.ExpiresAt) {
		c.store.Delete(ctx, phone)
		return false
	}

	if record.Attempts >= c.maxAttempts {
		c.store.Delete(ctx, phone)
		return false
	}

	if err := bcrypt.CompareHashAndPassword([]byte(record.CodeHash), []byte(candidate)); err != nil {
		record.Attempts++
		if saveErr := c.store.Save(ctx, phone, *record, time.Until(record.ExpiresAt)); saveErr != nil {
			c.logger.WithError(saveErr).Error("Failed to record OTP attempt")
		}
		return false
	}

	if err := c.store.Delete(ctx, phone); err != nil {
		c.logger.WithError(err).Error("Failed to consume OTP record")
		return false
	}
	return true
}

// Sweep removes expired records. Wired to the cron scheduler so memory is
// bounded even when no new codes are being issued.
func (c *Challenge) Sweep(ctx context.Context) int {
	return c.store.SweepExpired(ctx)
}
