package payment

import (
	"context"
	"errors"

	models "github.com/fatflowers/resumely/internal/models"
	stripeclient "github.com/fatflowers/resumely/internal/platform/stripe"
	types "github.com/fatflowers/resumely/pkg/types"
)

var (
	ErrMissingSessionID   = errors.New("session id is required")
	ErrUnknownPrice       = errors.New("unknown price")
	ErrUnknownPlan        = errors.New("unknown plan")
	ErrSessionMismatch    = errors.New("checkout session belongs to another user")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrMissingClientRefID = errors.New("checkout session has no client reference id")
	ErrInvalidScanRequest = errors.New("invalid scan request")
)

type VerifyStatus string

const (
	VerifyStatusCompleted    VerifyStatus = "completed"
	VerifyStatusNotCompleted VerifyStatus = "not_completed"
)

type VerifyResult struct {
	Status    VerifyStatus    `json:"status"`
	PlanType  types.PlanType  `json:"plan_type,omitempty"`
	Payment   *models.Payment `json:"payment,omitempty"`
	Duplicate bool            `json:"duplicate"`
}

type CheckoutResult struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

type WebhookResult struct {
	EventID string        `json:"event_id"`
	Type    string        `json:"type"`
	Handled bool          `json:"handled"`
	Verify  *VerifyResult `json:"verify,omitempty"`
}

type GrantRequest struct {
	UserID     string         `json:"user_id"`
	PlanType   types.PlanType `json:"plan_type"`
	OperatorID string         `json:"operator_id"`
}

type ScanPaymentsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanPaymentsResponse struct {
	Items []*models.Payment `json:"items"`
	Total int64             `json:"total"`
}

// CheckoutProvider is the payment processor as seen by the ledger.
type CheckoutProvider interface {
	RetrieveSession(ctx context.Context, sessionID string) (*stripeclient.CheckoutSession, error)
	CreateSession(ctx context.Context, in stripeclient.CreateSessionInput) (*stripeclient.CheckoutSession, error)
	ConstructEvent(payload []byte, signature string) (*stripeclient.Event, error)
	SuccessURL() string
	CancelURL() string
}

// PaymentManager verifies checkouts and writes new payment records.
type PaymentManager interface {
	// Confirm a checkout session and record the purchase, stacking on the prior record.
	VerifyAndRecord(ctx context.Context, userID, sessionID string) (*VerifyResult, error)
	// Start a hosted checkout for a plan.
	CreateCheckout(ctx context.Context, userID, email string, planType types.PlanType) (*CheckoutResult, error)
	// Handle a signed processor webhook delivery.
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error)
	// Grant a plan without payment (admin).
	Grant(ctx context.Context, req *GrantRequest) (*models.Payment, error)
	// Scan payments (used by admin list pages).
	ScanPayments(ctx context.Context, req *ScanPaymentsRequest) (*ScanPaymentsResponse, error)
}
