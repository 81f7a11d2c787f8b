package domain

import "context"

// Resolver maps a tenant to its current tier. Implementations must be
// bounded in time; callers treat any failure as the free tier so the write
// path never blocks on plan lookup.
type Resolver interface {
	ResolveTier(ctx context.Context, tenantID string) (Tier, error)
}
