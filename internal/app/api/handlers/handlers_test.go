package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/resumely/internal/app/service/draft"
	"github.com/fatflowers/resumely/internal/app/service/enhance"
	"github.com/fatflowers/resumely/internal/app/service/entitlement"
	"github.com/fatflowers/resumely/internal/app/service/gate"
	"github.com/fatflowers/resumely/internal/app/service/payment"
	"github.com/fatflowers/resumely/internal/app/service/statistics"
	"github.com/fatflowers/resumely/internal/app/service/usage"
	"github.com/fatflowers/resumely/internal/models"
	"github.com/fatflowers/resumely/pkg/logctx"
	"github.com/fatflowers/resumely/pkg/response"
	"github.com/fatflowers/resumely/pkg/types"
)

var nopLog = zap.NewNop().Sugar()

type stubResolver struct {
	view *entitlement.View
	err  error
}

func (s *stubResolver) Resolve(_ context.Context, userID string) (*entitlement.View, error) {
	if userID == "" {
		return nil, entitlement.ErrUnauthenticated
	}
	return s.view, s.err
}

type stubRecorder struct {
	gotUser string
	err     error
}

func (s *stubRecorder) Record(_ context.Context, userID string, kind types.UsageKind) (*usage.Result, error) {
	s.gotUser = userID
	if s.err != nil {
		return nil, s.err
	}
	return &usage.Result{PaymentID: "p1", Kind: kind, NewCount: 1, Remaining: 2}, nil
}

type stubManager struct {
	verifyErr  error
	webhookErr error
	grant      *payment.GrantRequest
	scanErr    error
}

func (s *stubManager) VerifyAndRecord(_ context.Context, userID, sessionID string) (*payment.VerifyResult, error) {
	if s.verifyErr != nil {
		return nil, s.verifyErr
	}
	return &payment.VerifyResult{
		Status: payment.VerifyStatusCompleted, PlanType: types.PlanTypeProfessional,
		Payment: &models.Payment{ID: "pay-1", UserID: userID}, Duplicate: sessionID == "cs_dup",
	}, nil
}

func (s *stubManager) CreateCheckout(_ context.Context, userID, email string, planType types.PlanType) (*payment.CheckoutResult, error) {
	return &payment.CheckoutResult{SessionID: "cs_new", URL: "https://checkout/" + userID + "/" + string(planType)}, nil
}

func (s *stubManager) HandleWebhook(_ context.Context, _ []byte, _ string) (*payment.WebhookResult, error) {
	if s.webhookErr != nil {
		return nil, s.webhookErr
	}
	return &payment.WebhookResult{EventID: "evt", Type: "checkout.session.completed", Handled: true}, nil
}

func (s *stubManager) Grant(_ context.Context, req *payment.GrantRequest) (*models.Payment, error) {
	s.grant = req
	return &models.Payment{ID: "gift", UserID: req.UserID, PlanType: req.PlanType}, nil
}

func (s *stubManager) ScanPayments(_ context.Context, _ *payment.ScanPaymentsRequest) (*payment.ScanPaymentsResponse, error) {
	if s.scanErr != nil {
		return nil, s.scanErr
	}
	return &payment.ScanPaymentsResponse{Items: []*models.Payment{{ID: "a"}}, Total: 1}, nil
}

type stubGate struct{ err error }

func (s *stubGate) Enhance(_ context.Context, _ string, req *gate.EnhanceRequest) (*gate.EnhanceResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &gate.EnhanceResult{Output: &enhance.Output{EnhancedText: "better " + req.Text}}, nil
}

func (s *stubGate) Download(_ context.Context, _ string, draftID string) (*gate.DownloadResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &gate.DownloadResult{Filename: "cv.pdf", PDF: []byte("%PDF-" + draftID), Usage: &usage.Result{Remaining: 4}}, nil
}

type stubDrafts struct{}

func (stubDrafts) List(context.Context, string) ([]*models.CVDraft, error) { return nil, nil }
func (stubDrafts) Get(_ context.Context, _, id string) (*models.CVDraft, error) {
	return nil, draft.ErrDraftNotFound
}
func (stubDrafts) Save(_ context.Context, userID string, req *draft.SaveRequest) (*models.CVDraft, error) {
	return &models.CVDraft{ID: "d1", UserID: userID, Title: req.Title}, nil
}
func (stubDrafts) Delete(context.Context, string, string) error { return nil }

type stubStats struct{}

func (stubStats) GetPaymentStatistic(context.Context, *statistics.PaymentStatisticRequest) (*statistics.PaymentStatisticResponse, error) {
	return &statistics.PaymentStatisticResponse{}, nil
}

// asUser stands in for the auth middleware.
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set(logctx.UserIDKey, userID)
		}
		c.Next()
	}
}

func newTestRouter(userID string, register func(g *gin.RouterGroup)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	register(r.Group("/api/v1", asUser(userID)))
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) response.APIResponse[T] {
	t.Helper()
	var out response.APIResponse[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestApiGetEntitlement(t *testing.T) {
	plan := types.PlanTypeBasic
	res := &stubResolver{view: &entitlement.View{HasPaid: true, PlanType: &plan, DownloadsRemaining: 3}}
	register := func(g *gin.RouterGroup) { RegisterEntitlementRoutes(g, res, &stubRecorder{}, nopLog) }

	w := do(t, newTestRouter("u", register), http.MethodGet, "/api/v1/entitlement", nil)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode[entitlement.View](t, w)
	require.Equal(t, response.APIResponseCodeOK, out.Code)
	require.True(t, out.Data.HasPaid)
	require.Equal(t, int64(3), out.Data.DownloadsRemaining)

	w = do(t, newTestRouter("", register), http.MethodGet, "/api/v1/entitlement", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	errOut := decode[response.ErrorData](t, w)
	require.Equal(t, response.APIResponseCodeUnauthenticated, errOut.Code)
	require.Equal(t, "login", errOut.Data.NextAction)
}

func TestApiRecordUsage(t *testing.T) {
	rec := &stubRecorder{}
	r := newTestRouter("u", func(g *gin.RouterGroup) { RegisterEntitlementRoutes(g, &stubResolver{}, rec, nopLog) })

	w := do(t, r, http.MethodPost, "/api/v1/usage", map[string]string{"type": "download", "user_id": "someone-else"})
	out := decode[usage.Result](t, w)
	require.Equal(t, response.APIResponseCodeOK, out.Code)
	require.Equal(t, int64(2), out.Data.Remaining)
	require.Equal(t, "u", rec.gotUser, "user id comes from the token only")

	rec.err = fmt.Errorf("wrapped: %w", entitlement.ErrLimitReached)
	errOut := decode[response.ErrorData](t, do(t, r, http.MethodPost, "/api/v1/usage", map[string]string{"type": "download"}))
	require.Equal(t, response.APIResponseCodeLimitReached, errOut.Code)
	require.Equal(t, "limit_reached", errOut.Data.Kind)
	require.Equal(t, "upgrade", errOut.Data.NextAction)

	errOut = decode[response.ErrorData](t, do(t, r, http.MethodPost, "/api/v1/usage", map[string]string{}))
	require.Equal(t, response.APIResponseCodeBadRequest, errOut.Code)
}

func TestApiVerifyPayment(t *testing.T) {
	mgr := &stubManager{}
	r := newTestRouter("u", func(g *gin.RouterGroup) { RegisterPaymentRoutes(g.Group("/payments"), mgr, nopLog) })

	out := decode[VerifyPaymentResponse](t, do(t, r, http.MethodPost, "/api/v1/payments/verify", map[string]string{"session_id": "cs_1"}))
	require.Equal(t, response.APIResponseCodeOK, out.Code)
	require.Equal(t, payment.VerifyStatusCompleted, out.Data.Status)
	require.Equal(t, "pay-1", out.Data.PaymentID)
	require.False(t, out.Data.Duplicate)

	out = decode[VerifyPaymentResponse](t, do(t, r, http.MethodPost, "/api/v1/payments/verify", map[string]string{"session_id": "cs_dup"}))
	require.Equal(t, response.APIResponseCodeOK, out.Code)
	require.True(t, out.Data.Duplicate)

	errOut := decode[response.ErrorData](t, do(t, r, http.MethodPost, "/api/v1/payments/verify", map[string]string{}))
	require.Equal(t, response.APIResponseCodeBadRequest, errOut.Code)

	mgr.verifyErr = entitlement.Upstream(errors.New("stripe down"))
	errOut = decode[response.ErrorData](t, do(t, r, http.MethodPost, "/api/v1/payments/verify", map[string]string{"session_id": "cs_1"}))
	require.Equal(t, response.APIResponseCodeUpstream, errOut.Code)
	require.Equal(t, "retry", errOut.Data.NextAction)

	checkout := decode[payment.CheckoutResult](t, do(t, r, http.MethodPost, "/api/v1/payments/checkout", map[string]string{"plan_type": "professional"}))
	require.Equal(t, "https://checkout/u/professional", checkout.Data.URL)
}

func TestApiStripeWebhook(t *testing.T) {
	mgr := &stubManager{}
	r := newTestRouter("", func(g *gin.RouterGroup) { RegisterWebhookRoutes(g.Group("/webhook"), mgr, nopLog) })

	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/api/v1/webhook/stripe", map[string]string{"id": "evt"}).Code)

	mgr.webhookErr = fmt.Errorf("%w: bad", payment.ErrInvalidSignature)
	require.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/v1/webhook/stripe", nil).Code)

	mgr.webhookErr = errors.New("db down")
	require.Equal(t, http.StatusInternalServerError, do(t, r, http.MethodPost, "/api/v1/webhook/stripe", nil).Code)
}

func TestGatedRoutes(t *testing.T) {
	g := &stubGate{}
	r := newTestRouter("u", func(rg *gin.RouterGroup) { RegisterGatedRoutes(rg, g, nopLog) })

	out := decode[gate.EnhanceResult](t, do(t, r, http.MethodPost, "/api/v1/ai/enhance", map[string]string{"type": "summary", "text": "x"}))
	require.Equal(t, response.APIResponseCodeOK, out.Code)
	require.Equal(t, "better x", out.Data.EnhancedText)

	w := do(t, r, http.MethodPost, "/api/v1/downloads", map[string]string{"draft_id": "d1"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	require.Equal(t, "%PDF-d1", w.Body.String())
	require.Contains(t, w.Header().Get("Content-Disposition"), "cv.pdf")
	require.Equal(t, "4", w.Header().Get("X-Downloads-Remaining"))

	g.err = entitlement.ErrNoActiveEntitlement
	errOut := decode[response.ErrorData](t, do(t, r, http.MethodPost, "/api/v1/ai/enhance", map[string]string{"text": "x"}))
	require.Equal(t, response.APIResponseCodeNoActiveEntitlement, errOut.Code)
	require.Equal(t, "subscribe", errOut.Data.NextAction)

	g.err = entitlement.ErrExpired
	errOut = decode[response.ErrorData](t, do(t, r, http.MethodPost, "/api/v1/downloads", map[string]string{"draft_id": "d1"}))
	require.Equal(t, response.APIResponseCodeExpired, errOut.Code)
	require.Equal(t, "renew", errOut.Data.NextAction)

	g.err = enhance.ErrEmptyText
	errOut = decode[response.ErrorData](t, do(t, r, http.MethodPost, "/api/v1/ai/enhance", map[string]string{"text": " "}))
	require.Equal(t, response.APIResponseCodeBadRequest, errOut.Code)
}

func TestDraftRoutes(t *testing.T) {
	r := newTestRouter("u", func(g *gin.RouterGroup) { RegisterDraftRoutes(g.Group("/drafts"), stubDrafts{}, nopLog) })

	saved := decode[models.CVDraft](t, do(t, r, http.MethodPost, "/api/v1/drafts", map[string]any{"title": "cv", "cv_data": map[string]any{}}))
	require.Equal(t, "u", saved.Data.UserID)

	errOut := decode[response.ErrorData](t, do(t, r, http.MethodGet, "/api/v1/drafts/missing", nil))
	require.Equal(t, response.APIResponseCodeNotFound, errOut.Code)

	require.Equal(t, response.APIResponseCodeOK, decode[any](t, do(t, r, http.MethodDelete, "/api/v1/drafts/d1", nil)).Code)
}

func TestAdminRoutes(t *testing.T) {
	mgr := &stubManager{}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterAdminRoutes(r.Group("/api/v1/admin", gin.BasicAuth(gin.Accounts{"ops": "secret"})), mgr, stubStats{}, nopLog)

	w := do(t, r, http.MethodPost, "/api/v1/admin/grant_plan", map[string]string{"user_id": "u", "plan_type": "basic"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/grant_plan", bytes.NewBufferString(`{"user_id":"u","plan_type":"professional"}`))
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth("ops", "secret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ops", mgr.grant.OperatorID)
	require.Equal(t, types.PlanTypeProfessional, mgr.grant.PlanType)
}

func TestErrorResponse(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   response.APIResponseCode
	}{
		{entitlement.ErrUnauthenticated, http.StatusUnauthorized, response.APIResponseCodeUnauthenticated},
		{fmt.Errorf("x: %w", entitlement.ErrLookup), http.StatusOK, response.APIResponseCodeError},
		{payment.ErrSessionMismatch, http.StatusOK, response.APIResponseCodeBadRequest},
		{fmt.Errorf("%w: price_x", payment.ErrUnknownPrice), http.StatusOK, response.APIResponseCodeBadRequest},
		{draft.ErrDraftNotFound, http.StatusOK, response.APIResponseCodeNotFound},
		{entitlement.ErrInvalidUsageKind, http.StatusOK, response.APIResponseCodeBadRequest},
	}
	for _, tc := range cases {
		status, code, data := errorResponse(tc.err)
		require.Equal(t, tc.status, status, tc.err.Error())
		require.Equal(t, tc.code, code, tc.err.Error())
		require.NotEmpty(t, data.Kind)
	}
}

type stubPinger struct{ err error }

func (s stubPinger) PingContext(context.Context) error { return s.err }

func TestHealthRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, tc := range []struct {
		name   string
		err    error
		status int
	}{
		{"ready", nil, http.StatusOK},
		{"db down", errors.New("refused"), http.StatusServiceUnavailable},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			RegisterHealthRoutes(r, stubPinger{err: tc.err})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			require.Equal(t, tc.status, w.Code)

			w = httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			require.Equal(t, http.StatusOK, w.Code)
		})
	}
}
