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

	if cfg.MaxPrice != 10 {
		t.Errorf("expected default max price 10, got %d", cfg.MaxPrice)
	}
	if cfg.SearchPages != 5 {
		t.Errorf("expected default 5 search pages, got %d", cfg.SearchPages)
	}
	if cfg.PageSize != 50 {
		t.Errorf("expected default page size 50, got %d", cfg.PageSize)
	}
	if cfg.RequestInterval != 2*time.Second {
		t.Errorf("expected default 2s request interval, got %v", cfg.RequestInterval)
	}
	if cfg.QuoteAttempts != 5 {
		t.Errorf("expected default 5 quote attempts, got %d", cfg.QuoteAttempts)
	}
	if cfg.CleanupThreshold != -10 {
		t.Errorf("expected default cleanup threshold -10, got %d", cfg.CleanupThreshold)
	}
	if cfg.WatchSchedule != "@every 6h" {
		t.Errorf("expected default watch schedule, got %q", cfg.WatchSchedule)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STEAM_LOGIN_SECURE", "secret")
	t.Setenv("SEARCH_PAGES", "3")
	t.Setenv("REQUEST_INTERVAL", "500ms")
	t.Setenv("CLEANUP_THRESHOLD", "-25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.SessionSecret != "secret" {
		t.Errorf("expected session secret from env, got %q", cfg.SessionSecret)
	}
	if cfg.SearchPages != 3 {
		t.Errorf("expected 3 search pages, got %d", cfg.SearchPages)
	}
	if cfg.RequestInterval != 500*time.Millisecond {
		t.Errorf("expected 500ms interval, got %v", cfg.RequestInterval)
	}
	if cfg.CleanupThreshold != -25 {
		t.Errorf("expected threshold -25, got %d", cfg.CleanupThreshold)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("SEARCH_PAGES", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero search pages")
	}
}

func TestLoadIgnoresUnparsableNumbers(t *testing.T) {
	t.Setenv("SEARCH_PAGE_SIZE", "not-a-number")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.PageSize != 50 {
		t.Errorf("expected fallback page size 50, got %d", cfg.PageSize)
	}
}
