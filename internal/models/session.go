package models

import "time"

type Session struct {
	ID        string    `json:"id" dynamodbav:"id"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Token     string    `json:"token" dynamodbav:"token"`
	ExpiresAt time.Time `json:"expires_at" dynamodbav:"expires_at"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
}

// Expired reports whether the session is no longer valid at the given
// instant. Expiry is enforced lazily at read time; expired rows stay in
// the store until explicitly deleted.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
