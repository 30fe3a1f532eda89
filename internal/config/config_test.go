package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CRDB_DSN", "postgresql://root@localhost:26257/campus")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.CRDBDSN != "postgresql://root@localhost:26257/campus" {
		t.Fatalf("unexpected dsn %q", cfg.CRDBDSN)
	}
	if cfg.MongoDB != "campus" {
		t.Fatalf("expected default mongo db, got %q", cfg.MongoDB)
	}
	if cfg.StoreTimeout != 3*time.Second {
		t.Fatalf("expected 3s store timeout, got %v", cfg.StoreTimeout)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected :8080, got %q", cfg.HTTPAddr)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_TIMEOUT", "750ms")
	t.Setenv("STORE_RETRIES", "5")
	t.Setenv("SCAN_GUARD_TTL", "10s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.StoreTimeout != 750*time.Millisecond {
		t.Fatalf("expected 750ms, got %v", cfg.StoreTimeout)
	}
	if cfg.StoreRetries != 5 {
		t.Fatalf("expected 5 retries, got %d", cfg.StoreRetries)
	}
	if cfg.ScanGuardTTL != 10*time.Second {
		t.Fatalf("expected 10s, got %v", cfg.ScanGuardTTL)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("ARCHIVE_INTERVAL", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("expected parse error for invalid duration")
	}
}
