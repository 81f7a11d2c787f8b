package plan

import (
	"github.com/tunedeck/tunedeck/internal/config"
	plandomain "github.com/tunedeck/tunedeck/internal/plan/domain"
	"github.com/tunedeck/tunedeck/internal/plan/service"
	"go.uber.org/fx"
)

// PoliciesFromConfig builds the tier policy table from configuration.
// Tiers left unset (non-positive TTL) keep their compiled-in defaults.
func PoliciesFromConfig(cfg config.Config) plandomain.PolicyTable {
	policies := plandomain.DefaultPolicies()
	apply := func(tier plandomain.Tier, tc config.TierConfig) {
		if tc.TTL <= 0 {
			return
		}
		policies[tier] = plandomain.Policy{
			TTL:             tc.TTL,
			RealtimeEnabled: tc.RealtimeEnabled,
		}
	}
	apply(plandomain.TierFree, cfg.Tiers.Free)
	apply(plandomain.TierBasic, cfg.Tiers.Basic)
	apply(plandomain.TierPro, cfg.Tiers.Pro)
	return policies
}

var Module = fx.Module("plan.service",
	fx.Provide(PoliciesFromConfig),
	fx.Provide(service.NewResolver),
)
