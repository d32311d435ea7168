package entitlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/resumely/internal/models"
	"github.com/fatflowers/resumely/internal/platform/db/dbtest"
	"github.com/fatflowers/resumely/pkg/config"
	"github.com/fatflowers/resumely/pkg/tool"
	"github.com/fatflowers/resumely/pkg/types"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func testPlans() *Plans {
	return NewPlans(&config.Config{Plans: []*types.Plan{
		{Type: types.PlanTypeBasic, PriceID: "price_basic", Downloads: 3, AIRequests: 0, DurationHour: 720},
		{Type: types.PlanTypeProfessional, PriceID: "price_pro", Downloads: 5, AIRequests: 50, DurationHour: 720},
	}})
}

func newResolver(t *testing.T) (*Resolver, *gorm.DB) {
	gdb := dbtest.New(t)
	r := NewResolver(gdb, testPlans(), zap.NewNop().Sugar()).WithClock(func() time.Time { return testNow })
	return r, gdb
}

func seed(t *testing.T, gdb *gorm.DB, p *models.Payment) *models.Payment {
	t.Helper()
	if p.ID == "" {
		p.ID = tool.GenerateUUIDV7()
	}
	if p.Status == "" {
		p.Status = types.PaymentStatusCompleted
	}
	if p.StripeSessionID == "" {
		p.StripeSessionID = "cs_" + p.ID
	}
	if p.ProviderID == "" {
		p.ProviderID = types.PaymentProviderStripe
	}
	require.NoError(t, gdb.Create(p).Error)
	return p
}

func TestPlans(t *testing.T) {
	plans := testPlans()
	require.Equal(t, int64(3), plans.Limit(types.PlanTypeBasic, types.UsageKindDownload))
	require.Equal(t, int64(0), plans.Limit(types.PlanTypeBasic, types.UsageKindAIRequest))
	require.Equal(t, int64(50), plans.Limit(types.PlanTypeProfessional, types.UsageKindAIRequest))
	require.Equal(t, int64(0), plans.Limit("enterprise", types.UsageKindDownload))

	p, ok := plans.ByPriceID("price_pro")
	require.True(t, ok)
	require.Equal(t, types.PlanTypeProfessional, p.Type)
	_, ok = plans.ByPriceID("price_unknown")
	require.False(t, ok)
}

func TestResolve_NoRecord(t *testing.T) {
	r, _ := newResolver(t)
	v, err := r.Resolve(context.Background(), "user-1")
	require.NoError(t, err)
	require.False(t, v.HasPaid)
	require.Nil(t, v.PlanType)
	require.Nil(t, v.Payment)
	require.Zero(t, v.DownloadsRemaining)
	require.Zero(t, v.AIRequestsRemaining)
	require.ErrorIs(t, v.Check(types.UsageKindDownload), ErrNoActiveEntitlement)
}

func TestResolve_Unauthenticated(t *testing.T) {
	r, _ := newResolver(t)
	_, err := r.Resolve(context.Background(), "")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolve_MostRecentCompletedWins(t *testing.T) {
	r, gdb := newResolver(t)
	seed(t, gdb, &models.Payment{UserID: "u", PlanType: types.PlanTypeProfessional, ExpiresAt: testNow.Add(time.Hour), CreatedAt: testNow.Add(-3 * time.Hour)})
	latest := seed(t, gdb, &models.Payment{UserID: "u", PlanType: types.PlanTypeBasic, DownloadsUsed: 1, ExpiresAt: testNow.Add(time.Hour), CreatedAt: testNow.Add(-2 * time.Hour)})
	seed(t, gdb, &models.Payment{UserID: "u", PlanType: types.PlanTypeProfessional, Status: types.PaymentStatusPending, ExpiresAt: testNow.Add(time.Hour), CreatedAt: testNow.Add(-time.Hour)})
	seed(t, gdb, &models.Payment{UserID: "other", PlanType: types.PlanTypeProfessional, ExpiresAt: testNow.Add(time.Hour), CreatedAt: testNow})

	v, err := r.Resolve(context.Background(), "u")
	require.NoError(t, err)
	require.True(t, v.HasPaid)
	require.Equal(t, latest.ID, v.Payment.ID)
	require.Equal(t, types.PlanTypeBasic, *v.PlanType)
	require.Equal(t, int64(2), v.DownloadsRemaining)
	require.Equal(t, int64(0), v.AIRequestsRemaining)
	require.ErrorIs(t, v.Check(types.UsageKindAIRequest), ErrLimitReached)
	require.NoError(t, v.Check(types.UsageKindDownload))
}

func TestResolve_ExpiredGrantsNothing(t *testing.T) {
	r, gdb := newResolver(t)
	seed(t, gdb, &models.Payment{UserID: "u", PlanType: types.PlanTypeProfessional, ExpiresAt: testNow.Add(-time.Minute), CreatedAt: testNow.Add(-time.Hour)})

	v, err := r.Resolve(context.Background(), "u")
	require.NoError(t, err)
	require.False(t, v.HasPaid)
	require.True(t, v.IsExpired)
	require.True(t, v.Payment.IsExpired)
	require.Equal(t, int64(5), v.DownloadsRemaining)
	require.ErrorIs(t, v.Check(types.UsageKindDownload), ErrExpired)
}

func TestResolve_RemainingClampedAndCarried(t *testing.T) {
	r, gdb := newResolver(t)
	seed(t, gdb, &models.Payment{UserID: "u", PlanType: types.PlanTypeProfessional, DownloadsUsed: -2, AIRequestsUsed: 60, ExpiresAt: testNow.Add(time.Hour), CreatedAt: testNow})

	v, err := r.Resolve(context.Background(), "u")
	require.NoError(t, err)
	require.Equal(t, int64(7), v.DownloadsRemaining)
	require.Equal(t, int64(0), v.AIRequestsRemaining)
}

func TestCheck_InvalidKind(t *testing.T) {
	v := &View{}
	require.ErrorIs(t, v.Check("print"), ErrInvalidUsageKind)
}

func TestKindOf(t *testing.T) {
	cases := map[error]Kind{
		ErrUnauthenticated:              KindUnauthenticated,
		ErrNoActiveEntitlement:          KindNoActivePlan,
		ErrLimitReached:                 KindLimitReached,
		ErrExpired:                      KindExpired,
		Upstream(errors.New("timeout")): KindUpstream,
		ErrInvalidUsageKind:             KindInvalidRequest,
		errors.New("boom"):              KindInternal,
	}
	for err, kind := range cases {
		require.Equal(t, kind, KindOf(err), err.Error())
	}
	require.Equal(t, NextActionSubscribe, KindNoActivePlan.NextAction())
	require.Equal(t, NextActionUpgrade, KindLimitReached.NextAction())
	require.Equal(t, NextActionRenew, KindExpired.NextAction())
	require.Equal(t, NextActionRetry, KindUpstream.NextAction())
	require.Equal(t, NextActionLogin, KindUnauthenticated.NextAction())
}
