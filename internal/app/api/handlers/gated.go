package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/resumely/internal/app/service/gate"
	"github.com/fatflowers/resumely/pkg/response"
)

type GatedActions interface {
	Enhance(ctx context.Context, userID string, req *gate.EnhanceRequest) (*gate.EnhanceResult, error)
	Download(ctx context.Context, userID, draftID string) (*gate.DownloadResult, error)
}

type DownloadRequest struct {
	DraftID string `json:"draft_id" binding:"required"`
}

// @Summary      AI Enhance
// @Description  Rewrites or generates résumé text. Requires a plan with AI requests left; one request is spent per call and given back if the AI provider fails.
// @Tags         AI
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body gate.EnhanceRequest true "Enhancement type and text"
// @Success      200  {object}  handlers.RespEnhance
// @Router       /api/v1/ai/enhance [post]
func ApiEnhance(actions GatedActions, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req gate.EnhanceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBadRequest(c, err)
			return
		}
		res, err := actions.Enhance(c.Request.Context(), currentUserID(c), &req)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Download Draft
// @Description  Spends one download and returns the draft rendered as PDF. Errors use the JSON envelope.
// @Tags         Download
// @Accept       json
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        request body DownloadRequest true "Draft to render"
// @Success      200  {file}  file
// @Router       /api/v1/downloads [post]
func ApiDownload(actions GatedActions, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DownloadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBadRequest(c, err)
			return
		}
		res, err := actions.Download(c.Request.Context(), currentUserID(c), req.DraftID)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(res.Filename)))
		c.Header("X-Downloads-Remaining", fmt.Sprint(res.Usage.Remaining))
		c.Data(http.StatusOK, "application/pdf", res.PDF)
	}
}

func RegisterGatedRoutes(r gin.IRouter, actions GatedActions, log *zap.SugaredLogger) {
	r.POST("/ai/enhance", ApiEnhance(actions, log))
	r.POST("/downloads", ApiDownload(actions, log))
}
