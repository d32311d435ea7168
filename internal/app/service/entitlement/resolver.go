package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/resumely/internal/models"
	"github.com/fatflowers/resumely/pkg/logctx"
	"github.com/fatflowers/resumely/pkg/types"
)

type PaymentView struct {
	ID             string         `json:"id"`
	PlanType       types.PlanType `json:"plan_type"`
	DownloadsUsed  int64          `json:"downloads_used"`
	AIRequestsUsed int64          `json:"ai_requests_used"`
	ExpiresAt      time.Time      `json:"expires_at"`
	CreatedAt      time.Time      `json:"created_at"`
	IsExpired      bool           `json:"is_expired"`
}

// View is a user's entitlement as of one read of the ledger.
type View struct {
	HasPaid             bool            `json:"has_paid"`
	PlanType            *types.PlanType `json:"plan_type"`
	Payment             *PaymentView    `json:"payment"`
	DownloadsRemaining  int64           `json:"downloads_remaining"`
	AIRequestsRemaining int64           `json:"ai_requests_remaining"`
	IsExpired           bool            `json:"is_expired"`
	ExpiresAt           *time.Time      `json:"expires_at"`
}

func (v *View) Remaining(kind types.UsageKind) int64 {
	if v == nil {
		return 0
	}
	switch kind {
	case types.UsageKindDownload:
		return v.DownloadsRemaining
	case types.UsageKindAIRequest:
		return v.AIRequestsRemaining
	default:
		return 0
	}
}

// Check is the shared precondition of every usage: an unexpired record with
// allowance left for kind.
func (v *View) Check(kind types.UsageKind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidUsageKind, kind)
	}
	if v == nil || v.Payment == nil {
		return ErrNoActiveEntitlement
	}
	if v.IsExpired {
		return ErrExpired
	}
	if v.Remaining(kind) <= 0 {
		return ErrLimitReached
	}
	return nil
}

type Resolver struct {
	db    *gorm.DB
	plans *Plans
	log   *zap.SugaredLogger
	now   func() time.Time
}

func NewResolver(db *gorm.DB, plans *Plans, log *zap.SugaredLogger) *Resolver {
	return &Resolver{db: db, plans: plans, log: log, now: time.Now}
}

// WithClock returns a copy that reads time from now.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	cp := *r
	cp.now = now
	return &cp
}

// Resolve reads the active record and derives the user's view.
func (r *Resolver) Resolve(ctx context.Context, userID string) (*View, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	p, err := ActivePayment(r.db.WithContext(ctx), userID)
	if err != nil {
		logctx.FromCtx(ctx, r.log).Errorw("failed to resolve entitlement", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrLookup, err)
	}
	return r.ViewOf(p), nil
}

// ViewOf derives a view from a record; nil means the user never paid.
func (r *Resolver) ViewOf(p *models.Payment) *View {
	if p == nil {
		return &View{}
	}
	now := r.now()
	plan := r.plans.ByType(p.PlanType)
	expired := p.IsExpired(now)
	planType := p.PlanType
	expiresAt := p.ExpiresAt
	return &View{
		HasPaid:  !expired,
		PlanType: &planType,
		Payment: &PaymentView{
			ID:             p.ID,
			PlanType:       p.PlanType,
			DownloadsUsed:  p.DownloadsUsed,
			AIRequestsUsed: p.AIRequestsUsed,
			ExpiresAt:      p.ExpiresAt,
			CreatedAt:      p.CreatedAt,
			IsExpired:      expired,
		},
		DownloadsRemaining:  p.Remaining(plan, types.UsageKindDownload),
		AIRequestsRemaining: p.Remaining(plan, types.UsageKindAIRequest),
		IsExpired:           expired,
		ExpiresAt:           &expiresAt,
	}
}

// ActivePayment returns the most recent completed record of a user, or nil.
// db may be a transaction, optionally with a locking clause.
func ActivePayment(db *gorm.DB, userID string) (*models.Payment, error) {
	var p models.Payment
	err := db.Where("user_id = ? AND status = ?", userID, types.PaymentStatusCompleted).
		Order("created_at DESC").Order("id DESC").
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
