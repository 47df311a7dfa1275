package otp

import (
	"context"
	"time"
)

// Record is a live OTP challenge for one phone number. The code itself is
// never stored; only its bcrypt hash is.
type Record struct {
	Phone     string    `json:"phone"`
	CodeHash  string    `json:"code_hash"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store holds at most one live Record per phone number. Save overwrites any
// prior record for the phone, silently discarding an unconsumed code. Get
// returns (nil, nil) when no record exists.
//
// Implementations: an in-process map for single-instance deployments and a
// redis store with native TTL eviction for multi-instance ones.
type Store interface {
	Save(ctx context.Context, phone string, record Record, ttl time.Duration) error
	Get(ctx context.Context, phone string) (*Record, error)
	Delete(ctx context.Context, phone string) error

	// SweepExpired removes records whose expiry has passed and returns how
	// many were removed. Stores with native TTL eviction may treat this as
	// a no-op.
	SweepExpired(ctx context.Context) int
}
