package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/tunedeck/tunedeck/internal/config"
	plandomain "github.com/tunedeck/tunedeck/internal/plan/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupPlanTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(
		`CREATE TABLE tenant_subscriptions (
			id INTEGER PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			tier TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMP,
			updated_at TIMESTAMP
		)`,
	).Error; err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func insertSubscription(t *testing.T, db *gorm.DB, id int64, tenantID, tier, status string, updatedAt time.Time) {
	t.Helper()
	if err := db.Exec(
		`INSERT INTO tenant_subscriptions (id, tenant_id, tier, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, tenantID, tier, status, updatedAt, updatedAt,
	).Error; err != nil {
		t.Fatalf("insert subscription: %v", err)
	}
}

func newTestResolver(t *testing.T, db *gorm.DB) plandomain.Resolver {
	t.Helper()
	return NewResolver(Params{
		DB:     db,
		Log:    zap.NewNop(),
		Config: config.Config{Plan: config.PlanConfig{ResolveTimeout: time.Second}},
	})
}

func TestResolveTierActiveSubscription(t *testing.T) {
	db := setupPlanTestDB(t)
	insertSubscription(t, db, 1, "g1", "pro", "active", time.Now().UTC())

	resolver := newTestResolver(t, db)
	tier, err := resolver.ResolveTier(context.Background(), "g1")
	if err != nil {
		t.Fatalf("resolve tier: %v", err)
	}
	if tier != plandomain.TierPro {
		t.Fatalf("expected pro, got %q", tier)
	}
}

func TestResolveTierPicksLatestActive(t *testing.T) {
	db := setupPlanTestDB(t)
	now := time.Now().UTC()
	insertSubscription(t, db, 1, "g1", "basic", "active", now.Add(-time.Hour))
	insertSubscription(t, db, 2, "g1", "pro", "active", now)

	resolver := newTestResolver(t, db)
	tier, err := resolver.ResolveTier(context.Background(), "g1")
	if err != nil {
		t.Fatalf("resolve tier: %v", err)
	}
	if tier != plandomain.TierPro {
		t.Fatalf("expected latest subscription to win, got %q", tier)
	}
}

func TestResolveTierMissingFallsBackToFree(t *testing.T) {
	db := setupPlanTestDB(t)

	resolver := newTestResolver(t, db)
	tier, err := resolver.ResolveTier(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("resolve tier: %v", err)
	}
	if tier != plandomain.TierFree {
		t.Fatalf("expected free fallback, got %q", tier)
	}
}

func TestResolveTierIgnoresInactive(t *testing.T) {
	db := setupPlanTestDB(t)
	insertSubscription(t, db, 1, "g1", "pro", "canceled", time.Now().UTC())

	resolver := newTestResolver(t, db)
	tier, err := resolver.ResolveTier(context.Background(), "g1")
	if err != nil {
		t.Fatalf("resolve tier: %v", err)
	}
	if tier != plandomain.TierFree {
		t.Fatalf("expected free for canceled subscription, got %q", tier)
	}
}

func TestResolveTierUnknownValueFallsBackToFree(t *testing.T) {
	db := setupPlanTestDB(t)
	insertSubscription(t, db, 1, "g1", "platinum", "active", time.Now().UTC())

	resolver := newTestResolver(t, db)
	tier, err := resolver.ResolveTier(context.Background(), "g1")
	if err != nil {
		t.Fatalf("resolve tier: %v", err)
	}
	if tier != plandomain.TierFree {
		t.Fatalf("expected free for unknown tier value, got %q", tier)
	}
}

func TestResolveTierEmptyTenant(t *testing.T) {
	db := setupPlanTestDB(t)

	resolver := newTestResolver(t, db)
	if _, err := resolver.ResolveTier(context.Background(), "  "); err != plandomain.ErrInvalidTenant {
		t.Fatalf("expected ErrInvalidTenant, got %v", err)
	}
}

func TestPolicyTableUnknownTierUsesFree(t *testing.T) {
	policies := plandomain.DefaultPolicies()
	free := policies.For(plandomain.TierFree)
	got := policies.For(plandomain.Tier("platinum"))
	if got != free {
		t.Fatalf("expected free policy for unknown tier, got %+v", got)
	}
	if free.RealtimeEnabled {
		t.Fatalf("free tier must not permit realtime")
	}
	if policies.For(plandomain.TierPro).TTL <= policies.For(plandomain.TierBasic).TTL {
		t.Fatalf("higher tiers must retain longer")
	}
}
