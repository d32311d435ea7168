package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/resumely/internal/app/api/middleware"
	"github.com/fatflowers/resumely/internal/app/service/payment"
	"github.com/fatflowers/resumely/pkg/logctx"
	"github.com/fatflowers/resumely/pkg/response"
	"github.com/fatflowers/resumely/pkg/types"
)

// maxWebhookBody matches the processor's documented maximum event size.
const maxWebhookBody = 65536

type VerifyPaymentRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

type VerifyPaymentResponse struct {
	Status    payment.VerifyStatus `json:"status"`
	PlanType  types.PlanType       `json:"plan_type,omitempty"`
	Duplicate bool                 `json:"duplicate"`
	PaymentID string               `json:"payment_id,omitempty"`
}

type CreateCheckoutRequest struct {
	PlanType types.PlanType `json:"plan_type" binding:"required" enums:"basic,professional"`
}

// @Summary      Verify Payment
// @Description  Confirms a completed checkout session and records the purchase. Repeated calls for the same session are idempotent.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body VerifyPaymentRequest true "Checkout session"
// @Success      200  {object}  handlers.RespVerifyPayment
// @Router       /api/v1/payments/verify [post]
func ApiVerifyPayment(mgr payment.PaymentManager, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req VerifyPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, log, payment.ErrMissingSessionID)
			return
		}
		res, err := mgr.VerifyAndRecord(c.Request.Context(), currentUserID(c), req.SessionID)
		if err != nil {
			writeError(c, log, err)
			return
		}
		out := VerifyPaymentResponse{Status: res.Status, PlanType: res.PlanType, Duplicate: res.Duplicate}
		if res.Payment != nil {
			out.PaymentID = res.Payment.ID
		}
		c.JSON(http.StatusOK, response.OKT(out))
	}
}

// @Summary      Create Checkout
// @Description  Creates a hosted checkout session for a plan and returns its URL.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateCheckoutRequest true "Plan to buy"
// @Success      200  {object}  handlers.RespCheckout
// @Router       /api/v1/payments/checkout [post]
func ApiCreateCheckout(mgr payment.PaymentManager, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateCheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBadRequest(c, err)
			return
		}
		res, err := mgr.CreateCheckout(c.Request.Context(), currentUserID(c), c.GetString(middleware.EmailKey), req.PlanType)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Stripe Webhook
// @Description  Receives signed processor events. Completed checkout sessions are recorded like a client-side verification.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature header string true "Webhook signature"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/webhook/stripe [post]
func ApiStripeWebhook(mgr payment.PaymentManager, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		lg := logctx.FromGin(c, log)
		payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, nil))
			return
		}

		res, err := mgr.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
		if errors.Is(err, payment.ErrInvalidSignature) {
			lg.Warnw("webhook_stripe_invalid_signature", "err", err)
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, nil))
			return
		}
		if err != nil {
			// non-2xx makes the processor redeliver
			lg.Errorw("webhook_stripe_handle_error", "err", err)
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, nil))
			return
		}
		lg.Infow("webhook_stripe_handled", "event_id", res.EventID, "type", res.Type, "handled", res.Handled)
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterPaymentRoutes(r gin.IRouter, mgr payment.PaymentManager, log *zap.SugaredLogger) {
	r.POST("/verify", ApiVerifyPayment(mgr, log))
	r.POST("/checkout", ApiCreateCheckout(mgr, log))
}

func RegisterWebhookRoutes(r gin.IRouter, mgr payment.PaymentManager, log *zap.SugaredLogger) {
	r.POST("/stripe", ApiStripeWebhook(mgr, log))
}
