package store

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func newMemoryStore() *MemoryStore {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewMemoryStore(logger)
}

func TestUserRoundTrip(t *testing.T) {
	s := newMemoryStore()
	ctx := context.Background()

	created, err := s.CreateUser(ctx, "9876543210")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("created user should have an id")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatal("created user should carry timestamps")
	}

	byPhone, err := s.GetUserByPhone(ctx, "9876543210")
	if err != nil {
		t.Fatalf("get by phone failed: %v", err)
	}
	if byPhone == nil || *byPhone != *created {
		t.Fatalf("lookup by phone mismatch: got %+v want %+v", byPhone, created)
	}

	byID, err := s.GetUserByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get by id failed: %v", err)
	}
	if byID == nil || *byID != *created {
		t.Fatalf("lookup by id mismatch: got %+v want %+v", byID, created)
	}
}

func TestCreateUserDuplicatePhone(t *testing.T) {
	s := newMemoryStore()
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, "9876543210"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err := s.CreateUser(ctx, "9876543210")
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestUserLookupMissReturnsNil(t *testing.T) {
	s := newMemoryStore()
	ctx := context.Background()

	user, err := s.GetUserByPhone(ctx, "9000000000")
	if err != nil {
		t.Fatalf("get by phone failed: %v", err)
	}
	if user != nil {
		t.Fatalf("expected nil for unknown phone, got %+v", user)
	}

	user, err = s.GetUserByID(ctx, "no-such-id")
	if err != nil {
		t.Fatalf("get by id failed: %v", err)
	}
	if user != nil {
		t.Fatalf("expected nil for unknown id, got %+v", user)
	}
}

func TestUpdateUserLanguage(t *testing.T) {
	s := newMemoryStore()
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "9876543210")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := s.UpdateUserLanguage(ctx, user.ID, "hindi"); err != nil {
		t.Fatalf("update language failed: %v", err)
	}

	updated, err := s.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if updated.Language != "hindi" {
		t.Fatalf("language not updated: got %q", updated.Language)
	}
	if updated.UpdatedAt.Before(user.UpdatedAt) {
		t.Fatal("updated_at should be refreshed")
	}

	if err := s.UpdateUserLanguage(ctx, "no-such-id", "en"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newMemoryStore()
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "9876543210")
	if err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	expiresAt := time.Now().Add(30 * 24 * time.Hour)
	session, err := s.CreateSession(ctx, user.ID, "tok_abc", expiresAt)
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	if session.UserID != user.ID || session.Token != "tok_abc" {
		t.Fatalf("unexpected session: %+v", session)
	}
	if !session.ExpiresAt.Equal(expiresAt) {
		t.Fatalf("expiry mismatch: got %v want %v", session.ExpiresAt, expiresAt)
	}

	got, err := s.GetSessionByToken(ctx, "tok_abc")
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if got == nil || got.ID != session.ID {
		t.Fatalf("session lookup mismatch: %+v", got)
	}

	if err := s.DeleteSession(ctx, "tok_abc"); err != nil {
		t.Fatalf("delete session failed: %v", err)
	}
	got, err = s.GetSessionByToken(ctx, "tok_abc")
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if got != nil {
		t.Fatal("session should be gone after delete")
	}

	// Deleting again is not an error.
	if err := s.DeleteSession(ctx, "tok_abc"); err != nil {
		t.Fatalf("repeat delete should be idempotent: %v", err)
	}
}

func TestExpiredSessionIsInvisible(t *testing.T) {
	s := newMemoryStore()
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "9876543210")
	if err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	if _, err := s.CreateSession(ctx, user.ID, "tok_old", time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("create session failed: %v", err)
	}

	got, err := s.GetSessionByToken(ctx, "tok_old")
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if got != nil {
		t.Fatal("expired session should read as absent")
	}
}

func TestUnknownTokenReturnsNil(t *testing.T) {
	s := newMemoryStore()

	got, err := s.GetSessionByToken(context.Background(), "tok_never")
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for unknown token, got %+v", got)
	}
}
