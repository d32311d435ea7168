package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/resumely/internal/app/service/draft"
	"github.com/fatflowers/resumely/internal/app/service/enhance"
	"github.com/fatflowers/resumely/internal/app/service/entitlement"
	"github.com/fatflowers/resumely/internal/app/service/payment_log"
	"github.com/fatflowers/resumely/internal/app/service/usage"
	"github.com/fatflowers/resumely/internal/models"
	"github.com/fatflowers/resumely/internal/platform/db/dbtest"
	"github.com/fatflowers/resumely/internal/platform/render"
	"github.com/fatflowers/resumely/pkg/config"
	"github.com/fatflowers/resumely/pkg/tool"
	"github.com/fatflowers/resumely/pkg/types"
)

type fakeAI struct {
	calls int
	reply string
	err   error
}

func (f *fakeAI) Generate(_ context.Context, system, prompt string) (string, error) {
	f.calls++
	return f.reply, f.err
}

type fakeRenderer struct{ err error }

func (f *fakeRenderer) Render(doc render.Document) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.3 " + doc.Title), nil
}

type env struct {
	svc      *Service
	db       *gorm.DB
	ai       *fakeAI
	renderer *fakeRenderer
	drafts   *draft.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gdb := dbtest.New(t)
	log := zap.NewNop().Sugar()
	plans := entitlement.NewPlans(&config.Config{Plans: []*types.Plan{
		{Type: types.PlanTypeBasic, Downloads: 3, AIRequests: 0, DurationHour: 720},
		{Type: types.PlanTypeProfessional, Downloads: 5, AIRequests: 50, DurationHour: 720},
	}})
	resolver := entitlement.NewResolver(gdb, plans, log)
	ledger := usage.NewService(gdb, log, plans, resolver, payment_log.New(gdb, log))
	e := &env{db: gdb, ai: &fakeAI{reply: "نص محسن"}, renderer: &fakeRenderer{}, drafts: draft.NewService(gdb, log)}
	e.svc = NewService(log, ledger, e.ai, e.renderer, e.drafts)
	return e
}

func (e *env) buy(t *testing.T, userID string, plan types.PlanType) *models.Payment {
	t.Helper()
	id := tool.GenerateUUIDV7()
	p := &models.Payment{
		ID: id, UserID: userID, PlanType: plan, Status: types.PaymentStatusCompleted,
		ExpiresAt: time.Now().Add(24 * time.Hour), StripeSessionID: "cs_" + id,
		ProviderID: types.PaymentProviderStripe, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, e.db.Create(p).Error)
	return p
}

func (e *env) reload(t *testing.T, p *models.Payment) *models.Payment {
	t.Helper()
	var out models.Payment
	require.NoError(t, e.db.Take(&out, "id = ?", p.ID).Error)
	return &out
}

func TestEnhance(t *testing.T) {
	e := newEnv(t)
	p := e.buy(t, "u", types.PlanTypeProfessional)

	res, err := e.svc.Enhance(context.Background(), "u", &EnhanceRequest{Type: enhance.TypeSummary, Text: "مطور"})
	require.NoError(t, err)
	require.Equal(t, "نص محسن", res.EnhancedText)
	require.Equal(t, int64(1), res.Usage.NewCount)
	require.Equal(t, int64(49), res.Usage.Remaining)
	require.Equal(t, int64(1), e.reload(t, p).AIRequestsUsed)
}

func TestEnhance_NotEntitled(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.Enhance(context.Background(), "nobody", &EnhanceRequest{Text: "x"})
	require.ErrorIs(t, err, entitlement.ErrNoActiveEntitlement)

	e.buy(t, "basic-user", types.PlanTypeBasic)
	_, err = e.svc.Enhance(context.Background(), "basic-user", &EnhanceRequest{Text: "x"})
	require.ErrorIs(t, err, entitlement.ErrLimitReached)
	require.Equal(t, entitlement.NextActionUpgrade, entitlement.KindOf(err).NextAction())

	_, err = e.svc.Enhance(context.Background(), "", &EnhanceRequest{Text: "x"})
	require.ErrorIs(t, err, entitlement.ErrUnauthenticated)

	require.Zero(t, e.ai.calls)
}

func TestEnhance_EmptyTextSpendsNothing(t *testing.T) {
	e := newEnv(t)
	p := e.buy(t, "u", types.PlanTypeProfessional)

	_, err := e.svc.Enhance(context.Background(), "u", &EnhanceRequest{Text: "  "})
	require.ErrorIs(t, err, enhance.ErrEmptyText)
	require.Zero(t, e.ai.calls)
	require.Equal(t, int64(0), e.reload(t, p).AIRequestsUsed)
}

func TestEnhance_ProviderFailureReleasesUsage(t *testing.T) {
	e := newEnv(t)
	p := e.buy(t, "u", types.PlanTypeProfessional)
	e.ai.err = errors.New("503 from provider")

	_, err := e.svc.Enhance(context.Background(), "u", &EnhanceRequest{Text: "x"})
	require.ErrorIs(t, err, entitlement.ErrUpstream)
	require.Equal(t, 1, e.ai.calls)
	require.Equal(t, int64(0), e.reload(t, p).AIRequestsUsed)
}

func TestDownload(t *testing.T) {
	e := newEnv(t)
	p := e.buy(t, "u", types.PlanTypeBasic)
	d, err := e.drafts.Save(context.Background(), "u", &draft.SaveRequest{Title: "سيرتي الذاتية 2026"})
	require.NoError(t, err)

	res, err := e.svc.Download(context.Background(), "u", d.ID)
	require.NoError(t, err)
	require.Equal(t, "سيرتي-الذاتية-2026.pdf", res.Filename)
	require.NotEmpty(t, res.PDF)
	require.Equal(t, int64(2), res.Usage.Remaining)
	require.Equal(t, int64(1), e.reload(t, p).DownloadsUsed)
}

func TestDownload_Failures(t *testing.T) {
	e := newEnv(t)
	p := e.buy(t, "u", types.PlanTypeBasic)

	_, err := e.svc.Download(context.Background(), "u", "missing")
	require.ErrorIs(t, err, draft.ErrDraftNotFound)
	require.Equal(t, int64(0), e.reload(t, p).DownloadsUsed)

	d, err := e.drafts.Save(context.Background(), "u", &draft.SaveRequest{Title: "cv"})
	require.NoError(t, err)
	e.renderer.err = errors.New("font missing")
	_, err = e.svc.Download(context.Background(), "u", d.ID)
	require.Error(t, err)
	require.Equal(t, int64(0), e.reload(t, p).DownloadsUsed)

	other, err := e.drafts.Save(context.Background(), "nobody", &draft.SaveRequest{Title: "cv"})
	require.NoError(t, err)
	_, err = e.svc.Download(context.Background(), "nobody", other.ID)
	require.ErrorIs(t, err, entitlement.ErrNoActiveEntitlement)
}

func TestFilename(t *testing.T) {
	require.Equal(t, "cv.pdf", filename(&models.CVDraft{Title: "  ///  "}))
	require.Equal(t, "John_Doe-CV.pdf", filename(&models.CVDraft{Title: "John_Doe CV"}))
}
