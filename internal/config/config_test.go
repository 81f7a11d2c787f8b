package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ServiceName != "tunedeck" {
		t.Fatalf("expected default service name, got %q", cfg.ServiceName)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("expected default addr, got %q", cfg.HTTP.Addr)
	}
	if !cfg.Ingest.AllowLoopback {
		t.Fatalf("expected loopback allowance on by default")
	}
	if cfg.Plan.ResolveTimeout != 500*time.Millisecond {
		t.Fatalf("expected default resolve timeout, got %v", cfg.Plan.ResolveTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("INGEST_ALLOW_LOOPBACK", "false")
	t.Setenv("INGEST_RATE_LIMIT", "30")
	t.Setenv("HTTP_CORS_ORIGINS", "https://app.tunedeck.io, https://staging.tunedeck.io")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected production environment")
	}
	if cfg.Ingest.AllowLoopback {
		t.Fatalf("expected loopback allowance off")
	}
	if cfg.Ingest.RateLimit != 30 {
		t.Fatalf("expected rate limit 30, got %d", cfg.Ingest.RateLimit)
	}
	if len(cfg.HTTP.CORSOrigins) != 2 {
		t.Fatalf("expected 2 cors origins, got %v", cfg.HTTP.CORSOrigins)
	}
}

func TestLoadTierOverrides(t *testing.T) {
	t.Setenv("TIER_PRO_TTL", "2h")
	t.Setenv("TIER_FREE_REALTIME", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Tiers.Pro.TTL != 2*time.Hour {
		t.Fatalf("expected pro TTL override, got %v", cfg.Tiers.Pro.TTL)
	}
	if !cfg.Tiers.Free.RealtimeEnabled {
		t.Fatalf("expected free realtime override")
	}
	if cfg.Tiers.Basic.TTL != 15*time.Minute {
		t.Fatalf("expected default basic TTL, got %v", cfg.Tiers.Basic.TTL)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("PLAN_RESOLVE_TIMEOUT", "not-a-duration")
	t.Setenv("INGEST_RATE_LIMIT", "many")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Plan.ResolveTimeout != 500*time.Millisecond {
		t.Fatalf("expected fallback resolve timeout, got %v", cfg.Plan.ResolveTimeout)
	}
	if cfg.Ingest.RateLimit != 120 {
		t.Fatalf("expected fallback rate limit, got %d", cfg.Ingest.RateLimit)
	}
}
