package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/chitrakala/auth-service/internal/models"
	"github.com/chitrakala/auth-service/internal/store"
	"github.com/sirupsen/logrus"
)

// Sessions issues and resolves opaque bearer tokens backed by the
// persistence store. Tokens carry no claims; the session row is the source
// of truth, which makes revocation take effect immediately.
type Sessions struct {
	store       store.Store
	ttl         time.Duration
	tokenLength int
	logger      *logrus.Logger
}

func NewSessions(st store.Store, ttl time.Duration, tokenLength int, logger *logrus.Logger) *Sessions {
	return &Sessions{
		store:       st,
		ttl:         ttl,
		tokenLength: tokenLength,
		logger:      logger,
	}
}

// Issue creates a session for the user with a cryptographically random
// token and a fixed absolute expiry.
func (s *Sessions) Issue(ctx context.Context, userID string) (*models.Session, error) {
	token, err := generateToken(s.tokenLength)
	if err != nil {
		return nil, err
	}

	session, err := s.store.CreateSession(ctx, userID, token, time.Now().Add(s.ttl))
	if err != nil {
		s.logger.WithError(err).Error("Failed to create session")
		return nil, err
	}
	return session, nil
}

// FindByToken returns the session only while it is unexpired; otherwise
// (nil, nil). Expiry is discovered lazily here, never by a background job.
func (s *Sessions) FindByToken(ctx context.Context, token string) (*models.Session, error) {
	return s.store.GetSessionByToken(ctx, token)
}

// Revoke deletes the session row. Revoking an unknown token is not an
// error, so logout is idempotent.
func (s *Sessions) Revoke(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

func generateToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
