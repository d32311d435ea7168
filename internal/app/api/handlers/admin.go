package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/resumely/internal/app/service/payment"
	"github.com/fatflowers/resumely/internal/app/service/statistics"
	"github.com/fatflowers/resumely/pkg/response"
	"github.com/fatflowers/resumely/pkg/types"
)

type PaymentStatistics interface {
	GetPaymentStatistic(ctx context.Context, req *statistics.PaymentStatisticRequest) (*statistics.PaymentStatisticResponse, error)
}

type ListPaymentsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order" enums:"asc,desc"`
}

type GrantPlanRequest struct {
	UserID   string         `json:"user_id" binding:"required"`
	PlanType types.PlanType `json:"plan_type" binding:"required" enums:"basic,professional"`
}

// @Summary      List Payments (Admin)
// @Description  Retrieves a paginated and filterable list of payment records.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BasicAuth
// @Param        request body ListPaymentsRequest true "Filters, pagination and sorting"
// @Success      200  {object}  handlers.RespListPayments
// @Router       /api/v1/admin/list_payments [post]
func ApiListPayments(mgr payment.PaymentManager, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ListPaymentsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBadRequest(c, err)
			return
		}
		res, err := mgr.ScanPayments(c.Request.Context(), &payment.ScanPaymentsRequest{
			Filters: req.Filters, From: req.From, Size: req.Size, SortBy: req.SortBy, SortOrder: req.SortOrder,
		})
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get Payment Statistics (Admin)
// @Description  Computes daily payment, revenue, payer and usage statistics.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BasicAuth
// @Param        request body statistics.PaymentStatisticRequest true "Statistic request parameters"
// @Success      200  {object}  handlers.RespPaymentStatistic
// @Router       /api/v1/admin/get_payment_statistic [post]
func ApiGetPaymentStatistic(svc PaymentStatistics, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.PaymentStatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBadRequest(c, err)
			return
		}
		if err := req.Validate(); err != nil {
			writeBadRequest(c, err)
			return
		}
		res, err := svc.GetPaymentStatistic(c.Request.Context(), &req)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Grant Plan (Admin)
// @Description  Grants a plan without payment. The grant stacks on the user's current plan like a purchase.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BasicAuth
// @Param        request body GrantPlanRequest true "User and plan"
// @Success      200  {object}  handlers.RespGrant
// @Router       /api/v1/admin/grant_plan [post]
func ApiGrantPlan(mgr payment.PaymentManager, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GrantPlanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBadRequest(c, err)
			return
		}
		p, err := mgr.Grant(c.Request.Context(), &payment.GrantRequest{
			UserID:     req.UserID,
			PlanType:   req.PlanType,
			OperatorID: c.GetString(gin.AuthUserKey),
		})
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(p))
	}
}

func RegisterAdminRoutes(r gin.IRouter, mgr payment.PaymentManager, stats PaymentStatistics, log *zap.SugaredLogger) {
	r.POST("/list_payments", ApiListPayments(mgr, log))
	r.POST("/get_payment_statistic", ApiGetPaymentStatistic(stats, log))
	r.POST("/grant_plan", ApiGrantPlan(mgr, log))
}
