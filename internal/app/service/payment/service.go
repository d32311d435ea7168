package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/resumely/internal/app/service/entitlement"
	"github.com/fatflowers/resumely/internal/app/service/payment_log"
	"github.com/fatflowers/resumely/internal/models"
	"github.com/fatflowers/resumely/internal/platform/lock"
	stripeclient "github.com/fatflowers/resumely/internal/platform/stripe"
	"github.com/fatflowers/resumely/pkg/config"
	"github.com/fatflowers/resumely/pkg/logctx"
	"github.com/fatflowers/resumely/pkg/metrics"
	"github.com/fatflowers/resumely/pkg/tool"
	"github.com/fatflowers/resumely/pkg/types"
)

const (
	lockTTL         = 30 * time.Second
	defaultCurrency = "SAR"
)

type Service struct {
	cfg        *config.Config
	db         *gorm.DB
	log        *zap.SugaredLogger
	plans      *entitlement.Plans
	checkout   CheckoutProvider
	locker     lock.Locker
	paymentLog *payment_log.Service
	now        func() time.Time
}

func NewService(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger, plans *entitlement.Plans, checkout CheckoutProvider, locker lock.Locker, paymentLog *payment_log.Service) *Service {
	return &Service{cfg: cfg, db: db, log: log, plans: plans, checkout: checkout, locker: locker, paymentLog: paymentLog, now: time.Now}
}

// recordInput describes one new payment record before stacking is applied.
type recordInput struct {
	UserID          string
	Plan            *types.Plan
	SessionID       string
	PaymentIntentID string
	Provider        types.PaymentProvider
	Amount          int64
	Currency        string
	Email           string
	OperatorID      string
	Reason          types.PaymentChangeReason
}

// VerifyAndRecord implements PaymentManager.
func (s *Service) VerifyAndRecord(ctx context.Context, userID, sessionID string) (*VerifyResult, error) {
	res, err := s.verifyAndRecord(ctx, userID, sessionID)
	switch {
	case err != nil:
		metrics.ObserveVerification(string(entitlement.KindOf(err)))
	case res.Duplicate:
		metrics.ObserveVerification("duplicate")
	default:
		metrics.ObserveVerification(string(res.Status))
	}
	return res, err
}

func (s *Service) verifyAndRecord(ctx context.Context, userID, sessionID string) (*VerifyResult, error) {
	if userID == "" {
		return nil, entitlement.ErrUnauthenticated
	}
	if sessionID == "" {
		return nil, ErrMissingSessionID
	}
	if tool.IsInnerSessionID(sessionID) {
		return nil, fmt.Errorf("%w: reserved session id", ErrMissingSessionID)
	}
	lg := logctx.FromCtx(ctx, s.log).With("session_id", sessionID)

	existing, err := s.findBySession(ctx, s.db, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entitlement.ErrLookup, err)
	}
	if existing != nil {
		return s.duplicateResult(existing, userID)
	}

	event := &models.PaymentEventLog{
		ProviderID: string(types.PaymentProviderStripe),
		UserID:     &userID,
		SessionID:  sessionID,
		EventType:  "verify",
		EventTime:  s.now().UTC(),
		Status:     models.PaymentEventLogStatusReceived,
	}
	sess, err := s.checkout.RetrieveSession(ctx, sessionID)
	if err != nil {
		lg.Errorw("failed to retrieve checkout session", "err", err)
		s.saveEvent(ctx, event, nil, err)
		return nil, entitlement.Upstream(err)
	}
	if data := payment_log.JSON(sess); data != nil {
		event.Data = *data
	}

	if !sess.IsPaid() {
		lg.Infow("checkout session not paid", "payment_status", sess.PaymentStatus)
		res := &VerifyResult{Status: VerifyStatusNotCompleted}
		s.saveEvent(ctx, event, res, nil)
		return res, nil
	}
	if sess.ClientReferenceID != "" && sess.ClientReferenceID != userID {
		s.saveEvent(ctx, event, nil, ErrSessionMismatch)
		return nil, ErrSessionMismatch
	}
	plan, ok := s.plans.ByPriceID(sess.PriceID)
	if !ok {
		lg.Errorw("checkout session price does not map to a plan", "price_id", sess.PriceID)
		err := fmt.Errorf("%w: %s", ErrUnknownPrice, sess.PriceID)
		s.saveEvent(ctx, event, nil, err)
		return nil, err
	}

	currency := sess.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	p, dup, err := s.record(ctx, &recordInput{
		UserID:          userID,
		Plan:            plan,
		SessionID:       sess.ID,
		PaymentIntentID: sess.PaymentIntentID,
		Provider:        types.PaymentProviderStripe,
		Amount:          sess.AmountTotal,
		Currency:        currency,
		Email:           sess.CustomerEmail,
		Reason:          types.PaymentChangeReasonPurchase,
	})
	if err != nil {
		s.saveEvent(ctx, event, nil, err)
		return nil, err
	}
	if dup {
		return s.duplicateResult(p, userID)
	}
	res := &VerifyResult{Status: VerifyStatusCompleted, PlanType: p.PlanType, Payment: p}
	s.saveEvent(ctx, event, res, nil)
	lg.Infow("payment recorded", "payment_id", p.ID, "plan_type", p.PlanType, "expires_at", p.ExpiresAt)
	return res, nil
}

func (s *Service) duplicateResult(p *models.Payment, userID string) (*VerifyResult, error) {
	if p.UserID != userID {
		return nil, ErrSessionMismatch
	}
	return &VerifyResult{Status: VerifyStatusCompleted, PlanType: p.PlanType, Payment: p, Duplicate: true}, nil
}

// record inserts a completed payment for in.UserID, carrying over the
// remaining allowance of the prior active record and extending its expiry.
// It returns the existing row and true when the session was already recorded.
func (s *Service) record(ctx context.Context, in *recordInput) (*models.Payment, bool, error) {
	release, err := s.locker.Acquire(ctx, "payment:"+in.UserID, lockTTL)
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire payment lock: %w", err)
	}
	defer release()

	var (
		created   *models.Payment
		prior     *models.Payment
		duplicate bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.findBySession(ctx, tx, in.SessionID)
		if err != nil {
			return err
		}
		if existing != nil {
			created, duplicate = existing, true
			return nil
		}

		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		prior, err = entitlement.ActivePayment(q, in.UserID)
		if err != nil {
			return fmt.Errorf("failed to load active payment: %w", err)
		}

		p := s.stack(in, prior)
		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("failed to insert payment: %w", err)
		}
		created = p
		return nil
	})
	if err != nil {
		// a concurrent insert of the same session lost the unique index race
		if existing, findErr := s.findBySession(ctx, s.db, in.SessionID); findErr == nil && existing != nil {
			return existing, true, nil
		}
		return nil, false, fmt.Errorf("%w: %v", entitlement.ErrLookup, err)
	}
	if !duplicate {
		s.paymentLog.SaveChange(ctx, &models.PaymentLog{
			UserID:    created.UserID,
			PaymentID: created.ID,
			Reason:    in.Reason,
			Before:    datatypes.NewJSONType(prior),
			After:     datatypes.NewJSONType(created),
			Extra:     datatypes.JSONMap{"trace_id": logctx.TraceID(ctx), "session_id": in.SessionID},
		})
	}
	return created, duplicate, nil
}

// stack builds the new record. Unused allowance of the prior record (expired
// or not) is carried as a negative starting counter; expiry extends from the
// prior expiry while it is still in the future.
func (s *Service) stack(in *recordInput, prior *models.Payment) *models.Payment {
	now := s.now().UTC()
	period := time.Duration(in.Plan.DurationHour) * time.Hour
	expiresAt := now.Add(period)
	extra := &models.PaymentExtra{
		PlanSnapshot:  in.Plan,
		OperatorID:    in.OperatorID,
		CustomerEmail: in.Email,
	}
	if prior != nil {
		priorPlan := s.plans.ByType(prior.PlanType)
		extra.PreviousPaymentID = prior.ID
		extra.CarriedDownloads = prior.Remaining(priorPlan, types.UsageKindDownload)
		extra.CarriedAIRequests = prior.Remaining(priorPlan, types.UsageKindAIRequest)
		if prior.ExpiresAt.After(now) {
			expiresAt = prior.ExpiresAt.UTC().Add(period)
		}
	}
	return &models.Payment{
		ID:                    tool.GenerateUUIDV7(),
		UserID:                in.UserID,
		PlanType:              in.Plan.Type,
		Status:                types.PaymentStatusCompleted,
		DownloadsUsed:         -extra.CarriedDownloads,
		AIRequestsUsed:        -extra.CarriedAIRequests,
		ExpiresAt:             expiresAt,
		StripeSessionID:       in.SessionID,
		StripePaymentIntentID: in.PaymentIntentID,
		ProviderID:            in.Provider,
		Amount:                in.Amount,
		Currency:              in.Currency,
		Extra:                 datatypes.NewJSONType(extra),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

func (s *Service) findBySession(ctx context.Context, db *gorm.DB, sessionID string) (*models.Payment, error) {
	var p models.Payment
	err := db.WithContext(ctx).Where("stripe_session_id = ?", sessionID).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateCheckout implements PaymentManager.
func (s *Service) CreateCheckout(ctx context.Context, userID, email string, planType types.PlanType) (*CheckoutResult, error) {
	if userID == "" {
		return nil, entitlement.ErrUnauthenticated
	}
	plan := s.plans.ByType(planType)
	if plan == nil || plan.PriceID == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlan, planType)
	}
	sess, err := s.checkout.CreateSession(ctx, stripeclient.CreateSessionInput{
		UserID:     userID,
		Email:      email,
		PriceID:    plan.PriceID,
		PlanType:   string(plan.Type),
		SuccessURL: s.checkout.SuccessURL(),
		CancelURL:  s.checkout.CancelURL(),
	})
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("failed to create checkout session", "plan_type", planType, "err", err)
		return nil, entitlement.Upstream(err)
	}
	return &CheckoutResult{SessionID: sess.ID, URL: sess.URL}, nil
}

// HandleWebhook implements PaymentManager. Completed checkouts go through the
// same verification path as the client-side return.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	ev, err := s.checkout.ConstructEvent(payload, signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	lg := logctx.FromCtx(ctx, s.log).With("event_id", ev.ID, "event_type", ev.Type)
	res := &WebhookResult{EventID: ev.ID, Type: ev.Type}
	event := &models.PaymentEventLog{
		ProviderID: string(types.PaymentProviderStripe),
		EventType:  ev.Type,
		EventTime:  s.now().UTC(),
		Data:       datatypes.JSON(ev.Raw),
		Status:     models.PaymentEventLogStatusReceived,
	}

	if ev.Type != stripeclient.EventCheckoutSessionCompleted || ev.Session == nil {
		lg.Infow("ignoring webhook event")
		s.saveEvent(ctx, event, res, nil)
		return res, nil
	}
	event.SessionID = ev.Session.ID
	userID := ev.Session.ClientReferenceID
	if userID == "" {
		// acknowledged so the processor stops retrying; nothing can be credited
		lg.Warnw("checkout session without client reference id", "session_id", ev.Session.ID)
		s.saveEvent(ctx, event, nil, ErrMissingClientRefID)
		return res, nil
	}
	event.UserID = &userID

	verify, err := s.VerifyAndRecord(logctx.WithUserID(ctx, userID), userID, ev.Session.ID)
	if isPermanent(err) {
		// redelivery cannot succeed; keep the failed event and acknowledge
		lg.Warnw("webhook checkout cannot be recorded", "session_id", ev.Session.ID, "err", err)
		s.saveEvent(ctx, event, nil, err)
		return res, nil
	}
	if err != nil {
		lg.Errorw("failed to record webhook checkout", "err", err)
		s.saveEvent(ctx, event, res, err)
		return nil, err
	}
	res.Handled = true
	res.Verify = verify
	s.saveEvent(ctx, event, res, nil)
	return res, nil
}

// Grant implements PaymentManager. Grants stack exactly like purchases.
func (s *Service) Grant(ctx context.Context, req *GrantRequest) (*models.Payment, error) {
	if req == nil || req.UserID == "" || req.OperatorID == "" {
		return nil, errors.New("missing user_id or operator_id")
	}
	plan := s.plans.ByType(req.PlanType)
	if plan == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlan, req.PlanType)
	}
	p, _, err := s.record(ctx, &recordInput{
		UserID:     req.UserID,
		Plan:       plan,
		SessionID:  tool.InnerSessionID(),
		Provider:   types.PaymentProviderInner,
		Currency:   plan.Currency,
		OperatorID: req.OperatorID,
		Reason:     types.PaymentChangeReasonGift,
	})
	if err != nil {
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infow("plan granted", "user_id", req.UserID, "plan_type", plan.Type, "operator_id", req.OperatorID, "payment_id", p.ID)
	return p, nil
}

func isPermanent(err error) bool {
	return errors.Is(err, ErrUnknownPrice) || errors.Is(err, ErrSessionMismatch)
}

func (s *Service) saveEvent(ctx context.Context, event *models.PaymentEventLog, result any, err error) {
	if err != nil {
		event.Status = models.PaymentEventLogStatusHandleFailed
		event.Result = payment_log.JSON(map[string]any{"error": err.Error(), "kind": entitlement.KindOf(err)})
	} else {
		event.Status = models.PaymentEventLogStatusHandled
		event.Result = payment_log.JSON(result)
	}
	s.paymentLog.SaveEvent(ctx, event)
}

func newCheckoutProvider(c *stripeclient.Client) CheckoutProvider { return c }

var Module = fx.Options(
	fx.Provide(newCheckoutProvider),
	fx.Provide(NewService),
	fx.Provide(func(s *Service) PaymentManager { return s }),
)
