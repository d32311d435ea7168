package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/resumely/internal/app/service/entitlement"
	"github.com/fatflowers/resumely/internal/app/service/usage"
	"github.com/fatflowers/resumely/pkg/response"
	"github.com/fatflowers/resumely/pkg/types"
)

type EntitlementResolver interface {
	Resolve(ctx context.Context, userID string) (*entitlement.View, error)
}

type UsageRecorder interface {
	Record(ctx context.Context, userID string, kind types.UsageKind) (*usage.Result, error)
}

type RecordUsageRequest struct {
	Type types.UsageKind `json:"type" binding:"required" enums:"download,ai_request"`
}

// @Summary      Get Entitlement
// @Description  Returns the caller's active plan, remaining allowances and expiry.
// @Tags         Entitlement
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespEntitlement
// @Router       /api/v1/entitlement [get]
func ApiGetEntitlement(resolver EntitlementResolver, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := resolver.Resolve(c.Request.Context(), currentUserID(c))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(view))
	}
}

// @Summary      Record Usage
// @Description  Consumes one unit of the given allowance from the caller's active plan.
// @Tags         Entitlement
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body RecordUsageRequest true "Usage kind"
// @Success      200  {object}  handlers.RespUsage
// @Router       /api/v1/usage [post]
func ApiRecordUsage(recorder UsageRecorder, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RecordUsageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBadRequest(c, err)
			return
		}
		res, err := recorder.Record(c.Request.Context(), currentUserID(c), req.Type)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterEntitlementRoutes(r gin.IRouter, resolver EntitlementResolver, recorder UsageRecorder, log *zap.SugaredLogger) {
	r.GET("/entitlement", ApiGetEntitlement(resolver, log))
	r.POST("/usage", ApiRecordUsage(recorder, log))
}
