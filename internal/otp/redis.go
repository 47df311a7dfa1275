package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore holds live records as JSON values with a redis TTL, so a fleet
// of instances shares one challenge per phone and eviction is handled by
// redis itself.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func otpKey(phone string) string {
	return fmt.Sprintf("otp:%s", phone)
}

func (s *RedisStore) Save(ctx context.Context, phone string, record Record, ttl time.Duration) error {
	dataJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal OTP record: %w", err)
	}

	if err := s.client.Set(ctx, otpKey(phone), dataJSON, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store OTP record: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, phone string) (*Record, error) {
	dataJSON, err := s.client.Get(ctx, otpKey(phone)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get OTP record: %w", err)
	}

	var record Record
	if err := json.Unmarshal([]byte(dataJSON), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal OTP record: %w", err)
	}
	return &record, nil
}

func (s *RedisStore) Delete(ctx context.Context, phone string) error {
	if err := s.client.Del(ctx, otpKey(phone)).Err(); err != nil {
		return fmt.Errorf("failed to delete OTP record: %w", err)
	}
	return nil
}

// SweepExpired is a no-op: redis evicts keys on TTL natively.
func (s *RedisStore) SweepExpired(ctx context.Context) int {
	return 0
}
