package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/resumely/internal/app/service/draft"
	"github.com/fatflowers/resumely/internal/app/service/enhance"
	"github.com/fatflowers/resumely/internal/app/service/entitlement"
	"github.com/fatflowers/resumely/internal/app/service/payment"
	"github.com/fatflowers/resumely/pkg/logctx"
	"github.com/fatflowers/resumely/pkg/response"
)

var badRequestErrors = []error{
	entitlement.ErrInvalidUsageKind,
	enhance.ErrEmptyText,
	draft.ErrInvalidDraft,
	payment.ErrMissingSessionID,
	payment.ErrUnknownPlan,
	payment.ErrUnknownPrice,
	payment.ErrSessionMismatch,
	payment.ErrInvalidScanRequest,
}

// errorResponse maps a service error to an HTTP status, envelope code and
// machine-readable error data.
func errorResponse(err error) (int, response.APIResponseCode, *response.ErrorData) {
	if errors.Is(err, draft.ErrDraftNotFound) {
		return http.StatusOK, response.APIResponseCodeNotFound, &response.ErrorData{
			Kind: string(entitlement.KindInvalidRequest), Detail: err.Error(),
		}
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusOK, response.APIResponseCodeBadRequest, &response.ErrorData{
				Kind: string(entitlement.KindInvalidRequest), Detail: err.Error(),
			}
		}
	}

	kind := entitlement.KindOf(err)
	data := &response.ErrorData{Kind: string(kind), NextAction: string(kind.NextAction())}
	switch kind {
	case entitlement.KindUnauthenticated:
		return http.StatusUnauthorized, response.APIResponseCodeUnauthenticated, data
	case entitlement.KindNoActivePlan:
		return http.StatusOK, response.APIResponseCodeNoActiveEntitlement, data
	case entitlement.KindLimitReached:
		return http.StatusOK, response.APIResponseCodeLimitReached, data
	case entitlement.KindExpired:
		return http.StatusOK, response.APIResponseCodeExpired, data
	case entitlement.KindUpstream:
		return http.StatusOK, response.APIResponseCodeUpstream, data
	default:
		return http.StatusOK, response.APIResponseCodeError, data
	}
}

func writeError(c *gin.Context, log *zap.SugaredLogger, err error) {
	status, code, data := errorResponse(err)
	lg := logctx.FromGin(c, log)
	if code == response.APIResponseCodeError {
		lg.Errorw("request failed", "path", c.FullPath(), "err", err)
	} else {
		lg.Infow("request rejected", "path", c.FullPath(), "code", code, "kind", data.Kind, "err", err)
	}
	c.JSON(status, response.ErrorT(code, data))
}

func writeBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusOK, response.ErrorT(response.APIResponseCodeBadRequest, &response.ErrorData{
		Kind: string(entitlement.KindInvalidRequest), Detail: err.Error(),
	}))
}

func currentUserID(c *gin.Context) string {
	return c.GetString(logctx.UserIDKey)
}
