package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/tunedeck/tunedeck/internal/apikey/domain"
	plandomain "github.com/tunedeck/tunedeck/internal/plan/domain"
	"gorm.io/gorm"
)

const (
	demoTenantID = "demo-guild"
	// Development-only credential; never seeded in production.
	demoIngestToken = "dev-ingest-token"
)

// EnsureDevFixtures seeds a demo tenant with a pro subscription and a
// known ingest token so a fresh checkout can push and read snapshots
// immediately. Idempotent; skipped entirely in production.
func EnsureDevFixtures(db *gorm.DB, node *snowflake.Node) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if node == nil {
		return errors.New("seed id generator is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureDemoSubscription(tx, node); err != nil {
			return err
		}
		return ensureDemoToken(tx, node)
	})
}

func ensureDemoSubscription(tx *gorm.DB, node *snowflake.Node) error {
	var count int64
	if err := tx.Table("tenant_subscriptions").
		Where("tenant_id = ?", demoTenantID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	return tx.Exec(
		`INSERT INTO tenant_subscriptions (id, tenant_id, tier, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		node.Generate(),
		demoTenantID,
		plandomain.TierPro,
		plandomain.SubscriptionStatusActive,
		now,
		now,
	).Error
}

func ensureDemoToken(tx *gorm.DB, node *snowflake.Node) error {
	hash := apikeydomain.HashToken(demoIngestToken)

	var count int64
	if err := tx.Table("ingest_tokens").
		Where("token_hash = ?", hash).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return tx.Exec(
		`INSERT INTO ingest_tokens (id, tenant_id, token_hash, is_active, expires_at, created_at)
		 VALUES (?, ?, ?, true, NULL, ?)`,
		node.Generate(),
		demoTenantID,
		hash,
		time.Now().UTC(),
	).Error
}
