package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fatflowers/resumely/internal/app/service/entitlement"
	"github.com/fatflowers/resumely/internal/app/service/payment_log"
	"github.com/fatflowers/resumely/internal/models"
	"github.com/fatflowers/resumely/pkg/logctx"
	"github.com/fatflowers/resumely/pkg/metrics"
	"github.com/fatflowers/resumely/pkg/types"
)

// maxAttempts bounds retries when a newer record supersedes the one we read.
const maxAttempts = 3

var errSuperseded = errors.New("active payment superseded")

type Result struct {
	PaymentID string          `json:"payment_id"`
	Kind      types.UsageKind `json:"kind"`
	NewCount  int64           `json:"new_count"`
	Remaining int64           `json:"remaining"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.SugaredLogger
	plans      *entitlement.Plans
	resolver   *entitlement.Resolver
	paymentLog *payment_log.Service
	now        func() time.Time
}

func NewService(db *gorm.DB, log *zap.SugaredLogger, plans *entitlement.Plans, resolver *entitlement.Resolver, paymentLog *payment_log.Service) *Service {
	return &Service{db: db, log: log, plans: plans, resolver: resolver, paymentLog: paymentLog, now: time.Now}
}

// Record consumes one unit of kind from the user's active record. The
// increment is a single conditional UPDATE, so concurrent callers can never
// push the counter past the plan limit.
func (s *Service) Record(ctx context.Context, userID string, kind types.UsageKind) (*Result, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", entitlement.ErrInvalidUsageKind, kind)
	}
	lg := logctx.FromCtx(ctx, s.log)
	for attempt := 1; ; attempt++ {
		res, err := s.record(ctx, userID, kind)
		if errors.Is(err, errSuperseded) && attempt < maxAttempts {
			lg.Infow("active payment changed during usage record, retrying", "kind", kind, "attempt", attempt)
			continue
		}
		if errors.Is(err, errSuperseded) {
			err = entitlement.ErrLimitReached
		}
		metrics.ObserveUsage(string(kind), resultLabel(err))
		if err != nil {
			return nil, err
		}
		lg.Infow("usage recorded", "kind", kind, "payment_id", res.PaymentID, "new_count", res.NewCount, "remaining", res.Remaining)
		return res, nil
	}
}

func (s *Service) record(ctx context.Context, userID string, kind types.UsageKind) (*Result, error) {
	view, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := view.Check(kind); err != nil {
		return nil, err
	}

	col := kind.Column()
	limit := s.plans.Limit(view.Payment.PlanType, kind)
	paymentID := view.Payment.ID
	var before, after models.Payment

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&before, "id = ?", paymentID).Error; err != nil {
			return fmt.Errorf("failed to load payment: %w", err)
		}
		now := s.now().UTC()
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ? AND expires_at >= ? AND "+col+" < ?", paymentID, types.PaymentStatusCompleted, now, limit).
			Updates(map[string]any{
				col:          gorm.Expr(col + " + 1"),
				"updated_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to increment usage: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			if before.IsExpired(now) {
				return entitlement.ErrExpired
			}
			return entitlement.ErrLimitReached
		}
		active, err := entitlement.ActivePayment(tx, userID)
		if err != nil {
			return fmt.Errorf("failed to reload active payment: %w", err)
		}
		if active == nil || active.ID != paymentID {
			// rolls back the increment
			return errSuperseded
		}
		after = *active
		return nil
	})
	if err != nil {
		if errors.Is(err, entitlement.ErrLimitReached) || errors.Is(err, entitlement.ErrExpired) || errors.Is(err, errSuperseded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", entitlement.ErrLookup, err)
	}

	s.saveChange(ctx, types.PaymentChangeReasonUsage, kind, 1, &before, &after)
	return &Result{
		PaymentID: after.ID,
		Kind:      kind,
		NewCount:  after.Used(kind),
		Remaining: after.Remaining(s.plans.ByType(after.PlanType), kind),
	}, nil
}

// Release gives back one unit recorded by Record against paymentID when the
// action it paid for did not happen. Server-internal only.
//
// When a renewal superseded paymentID in between, the new record's carried
// credit was computed from the charged counter, so the unit is returned to
// the active record instead.
func (s *Service) Release(ctx context.Context, paymentID string, kind types.UsageKind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", entitlement.ErrInvalidUsageKind, kind)
	}
	col := kind.Column()
	var charged, before, after models.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&charged, "id = ?", paymentID).Error; err != nil {
			return fmt.Errorf("failed to load payment: %w", err)
		}
		active, err := entitlement.ActivePayment(tx, charged.UserID)
		if err != nil {
			return fmt.Errorf("failed to load active payment: %w", err)
		}
		before = charged
		if active != nil && active.ID != charged.ID {
			before = *active
		}
		res := tx.Model(&models.Payment{}).
			Where("id = ?", before.ID).
			Updates(map[string]any{
				col:          gorm.Expr(col + " - 1"),
				"updated_at": s.now().UTC(),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to release usage: %w", res.Error)
		}
		return tx.Take(&after, "id = ?", before.ID).Error
	})
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("failed to release usage", "payment_id", paymentID, "kind", kind, "err", err)
		metrics.ObserveUsage(string(kind), "refund_failed")
		return err
	}
	metrics.ObserveUsage(string(kind), "refunded")
	if after.ID != paymentID {
		logctx.FromCtx(ctx, s.log).Infow("usage released to renewed payment", "charged_payment_id", paymentID, "payment_id", after.ID, "kind", kind)
	}
	s.saveChange(ctx, types.PaymentChangeReasonUsageRefund, kind, -1, &before, &after)
	return nil
}

func (s *Service) saveChange(ctx context.Context, reason types.PaymentChangeReason, kind types.UsageKind, delta int64, before, after *models.Payment) {
	s.paymentLog.SaveChange(ctx, &models.PaymentLog{
		UserID:    after.UserID,
		PaymentID: after.ID,
		Reason:    reason,
		Kind:      kind,
		Delta:     delta,
		Before:    datatypes.NewJSONType(before),
		After:     datatypes.NewJSONType(after),
		Extra:     datatypes.JSONMap{"trace_id": logctx.TraceID(ctx)},
	})
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return string(entitlement.KindOf(err))
}

var Module = fx.Options(
	fx.Provide(NewService),
)
