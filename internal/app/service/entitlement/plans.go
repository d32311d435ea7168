package entitlement

import (
	"github.com/fatflowers/resumely/pkg/config"
	"github.com/fatflowers/resumely/pkg/types"
)

// Plans is the read-only plan catalogue.
type Plans struct {
	byType  map[types.PlanType]*types.Plan
	byPrice map[string]*types.Plan
}

func NewPlans(cfg *config.Config) *Plans {
	p := &Plans{
		byType:  make(map[types.PlanType]*types.Plan, len(cfg.Plans)),
		byPrice: make(map[string]*types.Plan, len(cfg.Plans)),
	}
	for _, plan := range cfg.Plans {
		if plan == nil || !plan.Type.Valid() {
			continue
		}
		p.byType[plan.Type] = plan
		if plan.PriceID != "" {
			p.byPrice[plan.PriceID] = plan
		}
	}
	return p
}

// ByType returns nil for unknown plan types.
func (p *Plans) ByType(planType types.PlanType) *types.Plan {
	return p.byType[planType]
}

func (p *Plans) ByPriceID(priceID string) (*types.Plan, bool) {
	plan, ok := p.byPrice[priceID]
	return plan, ok
}

// Limit is 0 for an unknown plan or kind.
func (p *Plans) Limit(planType types.PlanType, kind types.UsageKind) int64 {
	return p.ByType(planType).Limit(kind)
}
