package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Tier is a subscription plan level. It controls snapshot retention and
// whether realtime fan-out is permitted for a tenant.
type Tier string

const (
	TierFree  Tier = "free"
	TierBasic Tier = "basic"
	TierPro   Tier = "pro"
)

func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierBasic, TierPro:
		return true
	default:
		return false
	}
}

// Policy is the retention and delivery policy attached to a tier.
type Policy struct {
	TTL             time.Duration
	RealtimeEnabled bool
}

// PolicyTable maps tiers to policies. Unknown tiers resolve to the free
// policy so a bad row can never widen retention or unlock realtime.
type PolicyTable map[Tier]Policy

func DefaultPolicies() PolicyTable {
	return PolicyTable{
		TierFree:  {TTL: 2 * time.Minute, RealtimeEnabled: false},
		TierBasic: {TTL: 15 * time.Minute, RealtimeEnabled: true},
		TierPro:   {TTL: time.Hour, RealtimeEnabled: true},
	}
}

func (p PolicyTable) For(tier Tier) Policy {
	if policy, ok := p[tier]; ok {
		return policy
	}
	return p[TierFree]
}

// Subscription is the persisted plan assignment for a tenant.
type Subscription struct {
	ID        snowflake.ID `gorm:"column:id;primaryKey"`
	TenantID  string       `gorm:"column:tenant_id"`
	Tier      Tier         `gorm:"column:tier"`
	Status    string       `gorm:"column:status"`
	CreatedAt time.Time    `gorm:"column:created_at"`
	UpdatedAt time.Time    `gorm:"column:updated_at"`
}

func (Subscription) TableName() string { return "tenant_subscriptions" }

const SubscriptionStatusActive = "active"
