package models

import (
	"time"

	"github.com/fatflowers/resumely/pkg/types"

	"gorm.io/datatypes"
)

type PaymentExtra struct {
	// PlanSnapshot is the plan as configured when the record was created.
	PlanSnapshot *types.Plan `json:"plan_snapshot"`
	// PreviousPaymentID is the active record this one stacked on, if any.
	PreviousPaymentID string `json:"previous_payment_id,omitempty"`
	// CarriedDownloads/CarriedAIRequests are the unused allowances carried over.
	CarriedDownloads  int64 `json:"carried_downloads"`
	CarriedAIRequests int64 `json:"carried_ai_requests"`
	// OperatorID is set for admin grants.
	OperatorID    string `json:"operator_id,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
}

// Payment is one purchase (or grant) of a plan. The most recent completed
// payment of a user is their active entitlement. Counters go negative when
// a previous plan's unused allowance was carried over.
type Payment struct {
	ID             string              `gorm:"column:id;primary_key;type:uuid" json:"id"`
	UserID         string              `gorm:"column:user_id;type:varchar(64);not null;index:idx_user_status_created,priority:1" json:"user_id"`
	PlanType       types.PlanType      `gorm:"column:plan_type;type:varchar(32);not null" json:"plan_type"`
	Status         types.PaymentStatus `gorm:"column:status;type:varchar(32);not null;index:idx_user_status_created,priority:2" json:"status"`
	DownloadsUsed  int64               `gorm:"column:downloads_used;type:bigint;not null;default:0" json:"downloads_used"`
	AIRequestsUsed int64               `gorm:"column:ai_requests_used;type:bigint;not null;default:0" json:"ai_requests_used"`
	ExpiresAt      time.Time           `gorm:"column:expires_at;not null" json:"expires_at"`
	// StripeSessionID is the idempotency key of verification. Grants use a synthetic "inner_" id.
	StripeSessionID       string                            `gorm:"column:stripe_session_id;type:varchar(255);not null;uniqueIndex:unique_stripe_session_id" json:"stripe_session_id"`
	StripePaymentIntentID string                            `gorm:"column:stripe_payment_intent_id;type:varchar(255)" json:"stripe_payment_intent_id"`
	ProviderID            types.PaymentProvider             `gorm:"column:provider_id;type:varchar(64);not null" json:"provider_id"`
	Amount                int64                             `gorm:"column:amount;type:bigint;not null;default:0" json:"amount"`
	Currency              string                            `gorm:"column:currency;type:varchar(16)" json:"currency"`
	Extra                 datatypes.JSONType[*PaymentExtra] `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt             time.Time                         `gorm:"column:created_at;index:idx_user_status_created,priority:3,sort:desc" json:"created_at"`
	UpdatedAt             time.Time                         `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payment"
}

// Used returns the counter for a usage kind.
func (p *Payment) Used(kind types.UsageKind) int64 {
	if p == nil {
		return 0
	}
	switch kind {
	case types.UsageKindDownload:
		return p.DownloadsUsed
	case types.UsageKindAIRequest:
		return p.AIRequestsUsed
	default:
		return 0
	}
}

// Remaining returns max(0, limit - used) for the given plan and kind.
func (p *Payment) Remaining(plan *types.Plan, kind types.UsageKind) int64 {
	if p == nil {
		return 0
	}
	if r := plan.Limit(kind) - p.Used(kind); r > 0 {
		return r
	}
	return 0
}

// IsExpired reports whether the expiry lies strictly before now.
func (p *Payment) IsExpired(now time.Time) bool {
	if p == nil {
		return true
	}
	return p.ExpiresAt.Before(now)
}
