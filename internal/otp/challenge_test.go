package otp

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestChallenge(t *testing.T) (*Challenge, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return NewChallenge(store, 10*time.Minute, 5, testLogger()), store
}

func TestGenerateProducesFourDigits(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := Generate()
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}
		if len(code) != 4 {
			t.Fatalf("expected 4-digit code, got %q", code)
		}
		if code[0] == '0' {
			t.Fatalf("code %q outside [1000,9999]", code)
		}
	}
}

func TestIssueAndVerify(t *testing.T) {
	challenge, _ := newTestChallenge(t)
	ctx := context.Background()

	code, err := challenge.Issue(ctx, "9876543210")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if !challenge.Verify(ctx, "9876543210", code) {
		t.Fatal("expected verification to succeed")
	}
}

func TestVerifyIsSingleUse(t *testing.T) {
	challenge, _ := newTestChallenge(t)
	ctx := context.Background()

	code, err := challenge.Issue(ctx, "9876543210")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if !challenge.Verify(ctx, "9876543210", code) {
		t.Fatal("first verification should succeed")
	}
	if challenge.Verify(ctx, "9876543210", code) {
		t.Fatal("replay of a consumed code should fail")
	}
}

func TestReissueInvalidatesPriorCode(t *testing.T) {
	challenge, _ := newTestChallenge(t)
	ctx := context.Background()

	first, err := challenge.Issue(ctx, "9876543210")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	second, err := challenge.Issue(ctx, "9876543210")
	if err != nil {
		t.Fatalf("reissue failed: %v", err)
	}

	if first != second && challenge.Verify(ctx, "9876543210", first) {
		t.Fatal("first code should be invalid after reissue")
	}
	if !challenge.Verify(ctx, "9876543210", second) {
		t.Fatal("second code should verify")
	}
}

func TestVerifyRejectsExpiredCode(t *testing.T) {
	challenge, store := newTestChallenge(t)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	record := Record{
		Phone:     "9876543210",
		CodeHash:  string(hash),
		CreatedAt: time.Now().Add(-11 * time.Minute),
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	if err := store.Save(ctx, "9876543210", record, time.Minute); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if challenge.Verify(ctx, "9876543210", "1234") {
		t.Fatal("expired code should be rejected")
	}

	// The expired record is consumed by the failed attempt.
	got, err := store.Get(ctx, "9876543210")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != nil {
		t.Fatal("expired record should have been deleted on verify")
	}
}

func TestVerifyUnknownPhoneFails(t *testing.T) {
	challenge, _ := newTestChallenge(t)

	if challenge.Verify(context.Background(), "9000000000", "1234") {
		t.Fatal("verification without a live record should fail")
	}
}

func TestVerifyWrongCodeFails(t *testing.T) {
	challenge, _ := newTestChallenge(t)
	ctx := context.Background()

	code, err := challenge.Issue(ctx, "9876543210")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	wrong := "0000"
	if wrong == code {
		wrong = "0001"
	}
	if challenge.Verify(ctx, "9876543210", wrong) {
		t.Fatal("wrong code should be rejected")
	}
	if !challenge.Verify(ctx, "9876543210", code) {
		t.Fatal("correct code should still verify within the attempt cap")
	}
}

func TestVerifyAttemptCapConsumesRecord(t *testing.T) {
	store := NewMemoryStore()
	challenge := NewChallenge(store, 10*time.Minute, 2, testLogger())
	ctx := context.Background()

	code, err := challenge.Issue(ctx, "9876543210")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	wrong := "0000"
	if wrong == code {
		wrong = "0001"
	}

	challenge.Verify(ctx, "9876543210", wrong)
	challenge.Verify(ctx, "9876543210", wrong)

	// Cap reached: even the right code is refused now.
	if challenge.Verify(ctx, "9876543210", code) {
		t.Fatal("code should be refused once the attempt cap is exceeded")
	}
}

func TestChallengesAreIndependentPerPhone(t *testing.T) {
	challenge, _ := newTestChallenge(t)
	ctx := context.Background()

	codeA, err := challenge.Issue(ctx, "9111111111")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	codeB, err := challenge.Issue(ctx, "9222222222")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if !challenge.Verify(ctx, "9111111111", codeA) {
		t.Fatal("phone A code should verify")
	}
	if !challenge.Verify(ctx, "9222222222", codeB) {
		t.Fatal("phone B code should verify independently")
	}
}

func TestSweepExpiredRemovesOnlyExpired(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	live := Record{Phone: "9111111111", ExpiresAt: time.Now().Add(time.Minute)}
	dead := Record{Phone: "9222222222", ExpiresAt: time.Now().Add(-time.Minute)}
	store.Save(ctx, live.Phone, live, time.Minute)
	store.Save(ctx, dead.Phone, dead, time.Minute)

	if removed := store.SweepExpired(ctx); removed != 1 {
		t.Fatalf("expected 1 record swept, got %d", removed)
	}

	if got, _ := store.Get(ctx, live.Phone); got == nil {
		t.Fatal("live record should survive the sweep")
	}
	if got, _ := store.Get(ctx, dead.Phone); got != nil {
		t.Fatal("expired record should be swept")
	}
}
