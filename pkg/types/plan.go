package types

type PlanType string

const (
	PlanTypeBasic        PlanType = "basic"
	PlanTypeProfessional PlanType = "professional"
)

func (p PlanType) Valid() bool {
	return p == PlanTypeBasic || p == PlanTypeProfessional
}

// Plan describes what one completed purchase grants.
type Plan struct {
	Type PlanType `json:"type" mapstructure:"type"`
	// PriceID is the checkout price identifier that buys this plan.
	PriceID    string `json:"price_id" mapstructure:"price_id"`
	Downloads  int64  `json:"downloads" mapstructure:"downloads"`
	AIRequests int64  `json:"ai_requests" mapstructure:"ai_requests"`
	// DurationHour is the renewal period added on each purchase.
	DurationHour int64 `json:"duration_hour" mapstructure:"duration_hour"`
	// Amount in minor units, used only for display and checkout fallbacks.
	Amount   int64  `json:"amount" mapstructure:"amount"`
	Currency string `json:"currency" mapstructure:"currency"`
}

// Limit returns the allowance of the plan for a usage kind.
func (p *Plan) Limit(kind UsageKind) int64 {
	if p == nil {
		return 0
	}
	switch kind {
	case UsageKindDownload:
		return p.Downloads
	case UsageKindAIRequest:
		return p.AIRequests
	default:
		return 0
	}
}
