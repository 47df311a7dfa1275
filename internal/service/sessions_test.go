package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/chitrakala/auth-service/internal/models"
	"github.com/chitrakala/auth-service/internal/store"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newSessionsFixture(t *testing.T) (*Sessions, *Users, store.Store) {
	t.Helper()
	backend := store.NewMemoryStore(testLogger())
	sessions := NewSessions(backend, 30*24*time.Hour, 32, testLogger())
	users := NewUsers(backend, testLogger())
	return sessions, users, backend
}

func TestIssueCreatesThirtyDaySession(t *testing.T) {
	sessions, users, _ := newSessionsFixture(t)
	ctx := context.Background()

	user, err := users.GetOrCreate(ctx, "9876543210")
	if err != nil {
		t.Fatalf("get-or-create failed: %v", err)
	}

	before := time.Now()
	session, err := sessions.Issue(ctx, user.ID)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	after := time.Now()

	if session.UserID != user.ID {
		t.Fatalf("session bound to wrong user: %q", session.UserID)
	}
	if session.Token == "" {
		t.Fatal("session should carry a token")
	}
	// 32 random bytes base64url-encoded without padding.
	if len(session.Token) != 43 {
		t.Fatalf("unexpected token length %d", len(session.Token))
	}

	ttl := 30 * 24 * time.Hour
	if session.ExpiresAt.Before(before.Add(ttl)) || session.ExpiresAt.After(after.Add(ttl)) {
		t.Fatalf("expiry not 30 days out: %v", session.ExpiresAt)
	}
}

func TestIssuedTokensAreUnique(t *testing.T) {
	sessions, users, _ := newSessionsFixture(t)
	ctx := context.Background()

	user, err := users.GetOrCreate(ctx, "9876543210")
	if err != nil {
		t.Fatalf("get-or-create failed: %v", err)
	}

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		session, err := sessions.Issue(ctx, user.ID)
		if err != nil {
			t.Fatalf("issue failed: %v", err)
		}
		if seen[session.Token] {
			t.Fatalf("duplicate token issued: %q", session.Token)
		}
		seen[session.Token] = true
	}
}

func TestFindByTokenAfterRevoke(t *testing.T) {
	sessions, users, _ := newSessionsFixture(t)
	ctx := context.Background()

	user, err := users.GetOrCreate(ctx, "9876543210")
	if err != nil {
		t.Fatalf("get-or-create failed: %v", err)
	}
	session, err := sessions.Issue(ctx, user.ID)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	found, err := sessions.FindByToken(ctx, session.Token)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found == nil {
		t.Fatal("fresh session should resolve")
	}

	if err := sessions.Revoke(ctx, session.Token); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	found, err = sessions.FindByToken(ctx, session.Token)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found != nil {
		t.Fatal("revoked session should be invisible immediately")
	}

	// Revoking an unknown token is not an error.
	if err := sessions.Revoke(ctx, session.Token); err != nil {
		t.Fatalf("repeat revoke should be idempotent: %v", err)
	}
}

func TestGetOrCreateReturnsExistingUser(t *testing.T) {
	_, users, _ := newSessionsFixture(t)
	ctx := context.Background()

	first, err := users.GetOrCreate(ctx, "9876543210")
	if err != nil {
		t.Fatalf("get-or-create failed: %v", err)
	}
	second, err := users.GetOrCreate(ctx, "9876543210")
	if err != nil {
		t.Fatalf("get-or-create failed: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected the same user, got %q and %q", first.ID, second.ID)
	}
}

func TestGetOrCreateRetriesOnConflict(t *testing.T) {
	backend := store.NewMemoryStore(testLogger())
	users := NewUsers(&racingStore{Store: backend}, testLogger())

	user, err := users.GetOrCreate(context.Background(), "9876543210")
	if err != nil {
		t.Fatalf("get-or-create should absorb the conflict: %v", err)
	}
	if user == nil || user.PhoneNumber != "9876543210" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

// racingStore simulates a concurrent request winning the unique-phone race:
// the first lookup misses, then the create collides with the winner's row.
type racingStore struct {
	store.Store
	lookups int
}

func (s *racingStore) GetUserByPhone(ctx context.Context, phoneNumber string) (*models.User, error) {
	s.lookups++
	if s.lookups == 1 {
		// Winner inserts between our lookup and our create.
		if _, err := s.Store.CreateUser(ctx, phoneNumber); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return s.Store.GetUserByPhone(ctx, phoneNumber)
}
