package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ORDER_CACHE_TTL_SECONDS", "")
	t.Setenv("POST_TIMEOUT_SECONDS", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("Address() = %q, want :8080", cfg.Address())
	}
	if cfg.OrderCacheTTLSeconds != 300 {
		t.Fatalf("OrderCacheTTLSeconds = %d, want 300", cfg.OrderCacheTTLSeconds)
	}
	if cfg.PostTimeoutSeconds != 5 {
		t.Fatalf("PostTimeoutSeconds = %d, want 5", cfg.PostTimeoutSeconds)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ORDER_CACHE_TTL_SECONDS", "60")
	t.Setenv("POST_TIMEOUT_SECONDS", "2")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.OrderCacheTTLSeconds != 60 {
		t.Fatalf("OrderCacheTTLSeconds = %d, want 60", cfg.OrderCacheTTLSeconds)
	}
	if cfg.PostTimeoutSeconds != 2 {
		t.Fatalf("PostTimeoutSeconds = %d, want 2", cfg.PostTimeoutSeconds)
	}
}

func TestLoadFloorsZeroPostTimeout(t *testing.T) {
	t.Setenv("POST_TIMEOUT_SECONDS", "0")
	t.Setenv("ORDER_CACHE_TTL_SECONDS", "0")

	cfg := Load()
	if cfg.PostTimeoutSeconds != 5 {
		t.Fatalf("PostTimeoutSeconds = %d, want fallback 5 for a zero timeout", cfg.PostTimeoutSeconds)
	}
	// Zero stays valid for the cache TTL: redis treats it as no expiry.
	if cfg.OrderCacheTTLSeconds != 0 {
		t.Fatalf("OrderCacheTTLSeconds = %d, want 0", cfg.OrderCacheTTLSeconds)
	}
}

func TestLoadRejectsBadInts(t *testing.T) {
	t.Setenv("ORDER_CACHE_TTL_SECONDS", "not-a-number")
	t.Setenv("POST_TIMEOUT_SECONDS", "-3")

	cfg := Load()
	if cfg.OrderCacheTTLSeconds != 300 {
		t.Fatalf("OrderCacheTTLSeconds = %d, want fallback 300", cfg.OrderCacheTTLSeconds)
	}
	if cfg.PostTimeoutSeconds != 5 {
		t.Fatalf("PostTimeoutSeconds = %d, want fallback 5", cfg.PostTimeoutSeconds)
	}
}
