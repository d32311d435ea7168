package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	stripeapi "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/fatflowers/resumely/pkg/config"
)

const (
	PaymentStatusPaid = "paid"

	EventCheckoutSessionCompleted = "checkout.session.completed"
)

var ErrWebhookNotConfigured = errors.New("stripe webhook secret is not configured")

// CheckoutSession is the subset of a processor checkout session the ledger needs.
type CheckoutSession struct {
	ID                string `json:"id"`
	URL               string `json:"url,omitempty"`
	PaymentStatus     string `json:"payment_status"`
	ClientReferenceID string `json:"client_reference_id,omitempty"`
	CustomerEmail     string `json:"customer_email,omitempty"`
	PaymentIntentID   string `json:"payment_intent_id,omitempty"`
	PriceID           string `json:"price_id,omitempty"`
	AmountTotal       int64  `json:"amount_total"`
	Currency          string `json:"currency,omitempty"`
}

// IsPaid reports whether the processor considers the session paid.
func (s *CheckoutSession) IsPaid() bool {
	return s != nil && s.PaymentStatus == PaymentStatusPaid
}

type CreateSessionInput struct {
	UserID     string
	Email      string
	PriceID    string
	PlanType   string
	SuccessURL string
	CancelURL  string
}

// Event is a verified webhook event. Session is set for checkout events.
type Event struct {
	ID      string
	Type    string
	Raw     json.RawMessage
	Session *CheckoutSession
}

type Client struct {
	cfg *cfgpkg.Config
	log *zap.SugaredLogger
}

func NewClient(cfg *cfgpkg.Config, log *zap.SugaredLogger) *Client {
	stripeapi.Key = cfg.Stripe.SecretKey
	return &Client{cfg: cfg, log: log}
}

// RetrieveSession fetches a checkout session with its line items expanded.
func (c *Client) RetrieveSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	params := &stripeapi.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items")
	sess, err := session.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve checkout session: %w", err)
	}
	return FromStripe(sess), nil
}

// CreateSession starts a one-time hosted checkout for a plan price.
func (c *Client) CreateSession(ctx context.Context, in CreateSessionInput) (*CheckoutSession, error) {
	params := &stripeapi.CheckoutSessionParams{
		Mode:              stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		ClientReferenceID: stripeapi.String(in.UserID),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{
			{
				Price:    stripeapi.String(in.PriceID),
				Quantity: stripeapi.Int64(1),
			},
		},
		SuccessURL: stripeapi.String(in.SuccessURL),
		CancelURL:  stripeapi.String(in.CancelURL),
	}
	if in.Email != "" {
		params.CustomerEmail = stripeapi.String(in.Email)
	}
	params.Context = ctx
	params.AddMetadata("user_id", in.UserID)
	params.AddMetadata("plan_type", in.PlanType)

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return FromStripe(sess), nil
}

// ConstructEvent verifies the webhook signature and decodes checkout events.
func (c *Client) ConstructEvent(payload []byte, signature string) (*Event, error) {
	return ConstructEvent(payload, signature, c.cfg.Stripe.WebhookSecret)
}

// SuccessURL and CancelURL are built from the configured frontend origin.
func (c *Client) SuccessURL() string {
	return strings.TrimRight(c.cfg.Stripe.FrontendURL, "/") + "/payment-success?session_id={CHECKOUT_SESSION_ID}"
}

func (c *Client) CancelURL() string {
	return strings.TrimRight(c.cfg.Stripe.FrontendURL, "/") + "/pricing"
}

func ConstructEvent(payload []byte, signature, secret string) (*Event, error) {
	if secret == "" {
		return nil, ErrWebhookNotConfigured
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to verify webhook signature: %w", err)
	}
	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data != nil {
		out.Raw = ev.Data.Raw
	}
	if out.Type == EventCheckoutSessionCompleted && len(out.Raw) > 0 {
		var sess stripeapi.CheckoutSession
		if err := json.Unmarshal(out.Raw, &sess); err != nil {
			return nil, fmt.Errorf("failed to decode checkout session: %w", err)
		}
		out.Session = FromStripe(&sess)
	}
	return out, nil
}

// FromStripe flattens a stripe checkout session.
func FromStripe(sess *stripeapi.CheckoutSession) *CheckoutSession {
	if sess == nil {
		return nil
	}
	out := &CheckoutSession{
		ID:                sess.ID,
		URL:               sess.URL,
		PaymentStatus:     string(sess.PaymentStatus),
		ClientReferenceID: sess.ClientReferenceID,
		CustomerEmail:     sess.CustomerEmail,
		AmountTotal:       sess.AmountTotal,
		Currency:          strings.ToUpper(string(sess.Currency)),
	}
	if out.CustomerEmail == "" && sess.CustomerDetails != nil {
		out.CustomerEmail = sess.CustomerDetails.Email
	}
	if sess.PaymentIntent != nil {
		out.PaymentIntentID = sess.PaymentIntent.ID
	}
	if sess.LineItems != nil {
		for _, item := range sess.LineItems.Data {
			if item != nil && item.Price != nil && item.Price.ID != "" {
				out.PriceID = item.Price.ID
				break
			}
		}
	}
	if out.PriceID == "" {
		out.PriceID = sess.Metadata["price_id"]
	}
	return out
}

var Module = fx.Options(
	fx.Provide(NewClient),
)
