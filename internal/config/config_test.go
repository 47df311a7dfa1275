package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Database.Backend != BackendPostgres {
		t.Fatalf("default backend should be postgres, got %q", cfg.Database.Backend)
	}
	if cfg.OTP.Store != OTPStoreMemory {
		t.Fatalf("default OTP store should be memory, got %q", cfg.OTP.Store)
	}
	if cfg.OTP.Expiry != 10*time.Minute {
		t.Fatalf("default OTP expiry should be 10m, got %v", cfg.OTP.Expiry)
	}
	if cfg.Session.TTL != 30*24*time.Hour {
		t.Fatalf("default session TTL should be 30 days, got %v", cfg.Session.TTL)
	}
	if cfg.TestMode.Enabled {
		t.Fatal("test mode must be off by default")
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("DB_BACKEND", "mongodb")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}

func TestLoadRejectsUnknownOTPStore(t *testing.T) {
	t.Setenv("OTP_STORE", "dynamo")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for an unknown OTP store")
	}
}

func TestLoadRejectsShortTokenLength(t *testing.T) {
	t.Setenv("SESSION_TOKEN_LENGTH", "8")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a short token length")
	}
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("DB_BACKEND", BackendMemory)
	t.Setenv("OTP_EXPIRY", "2m")
	t.Setenv("TEST_MODE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Database.Backend != BackendMemory {
		t.Fatalf("backend override not applied: %q", cfg.Database.Backend)
	}
	if cfg.OTP.Expiry != 2*time.Minute {
		t.Fatalf("expiry override not applied: %v", cfg.OTP.Expiry)
	}
	if !cfg.TestMode.Enabled {
		t.Fatal("test mode override not applied")
	}
}
