package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/resumely/internal/app/service/draft"
	"github.com/fatflowers/resumely/internal/models"
	"github.com/fatflowers/resumely/pkg/response"
)

type DraftStore interface {
	List(ctx context.Context, userID string) ([]*models.CVDraft, error)
	Get(ctx context.Context, userID, id string) (*models.CVDraft, error)
	Save(ctx context.Context, userID string, req *draft.SaveRequest) (*models.CVDraft, error)
	Delete(ctx context.Context, userID, id string) error
}

// @Summary      List Drafts
// @Tags         Drafts
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespDrafts
// @Router       /api/v1/drafts [get]
func ApiListDrafts(store DraftStore, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		drafts, err := store.List(c.Request.Context(), currentUserID(c))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(drafts))
	}
}

// @Summary      Get Draft
// @Tags         Drafts
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Draft id"
// @Success      200  {object}  handlers.RespDraft
// @Router       /api/v1/drafts/{id} [get]
func ApiGetDraft(store DraftStore, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := store.Get(c.Request.Context(), currentUserID(c), c.Param("id"))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(d))
	}
}

// @Summary      Save Draft
// @Description  Creates a draft, or updates the caller's draft when id is set.
// @Tags         Drafts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body draft.SaveRequest true "Draft"
// @Success      200  {object}  handlers.RespDraft
// @Router       /api/v1/drafts [post]
func ApiSaveDraft(store DraftStore, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req draft.SaveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBadRequest(c, err)
			return
		}
		d, err := store.Save(c.Request.Context(), currentUserID(c), &req)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(d))
	}
}

// @Summary      Delete Draft
// @Tags         Drafts
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Draft id"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/drafts/{id} [delete]
func ApiDeleteDraft(store DraftStore, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.Delete(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterDraftRoutes(r gin.IRouter, store DraftStore, log *zap.SugaredLogger) {
	r.GET("", ApiListDrafts(store, log))
	r.POST("", ApiSaveDraft(store, log))
	r.GET("/:id", ApiGetDraft(store, log))
	r.DELETE("/:id", ApiDeleteDraft(store, log))
}
