package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tunedeck/tunedeck/internal/config"
	plandomain "github.com/tunedeck/tunedeck/internal/plan/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Config config.Config
}

// ResolverImpl resolves tiers from the tenant_subscriptions table with a
// bounded timeout. Any failure degrades to the free tier; the snapshot
// write path must stay available even when the plan database is slow.
type ResolverImpl struct {
	db      *gorm.DB
	log     *zap.Logger
	timeout time.Duration
}

func NewResolver(p Params) plandomain.Resolver {
	timeout := p.Config.Plan.ResolveTimeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &ResolverImpl{
		db:      p.DB,
		log:     p.Log.Named("plan.resolver"),
		timeout: timeout,
	}
}

func (r *ResolverImpl) ResolveTier(ctx context.Context, tenantID string) (plandomain.Tier, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return plandomain.TierFree, plandomain.ErrInvalidTenant
	}
	if r.db == nil {
		return plandomain.TierFree, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row struct {
		Tier plandomain.Tier `gorm:"column:tier"`
	}
	err := r.db.WithContext(ctx).Raw(
		`SELECT tier
		 FROM tenant_subscriptions
		 WHERE tenant_id = ? AND status = ?
		 ORDER BY updated_at DESC
		 LIMIT 1`,
		tenantID,
		plandomain.SubscriptionStatusActive,
	).Scan(&row).Error
	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			r.log.Warn("tier lookup failed, falling back to free",
				zap.String("tenant_id", tenantID),
				zap.Error(err),
			)
		} else {
			r.log.Warn("tier lookup timed out, falling back to free",
				zap.String("tenant_id", tenantID),
			)
		}
		return plandomain.TierFree, nil
	}

	if !row.Tier.Valid() {
		return plandomain.TierFree, nil
	}
	return row.Tier, nil
}
