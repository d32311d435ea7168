package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/resumely/internal/app/service/entitlement"
	"github.com/fatflowers/resumely/internal/platform/identity"
	"github.com/fatflowers/resumely/pkg/logctx"
	"github.com/fatflowers/resumely/pkg/response"
)

const EmailKey = "email"

// AuthMiddleware verifies the bearer token and exposes the user id under
// logctx.UserIDKey. The user id is never taken from the request body.
func AuthMiddleware(v identity.Verifier, base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		lg := logctx.FromGin(c, base)
		id, err := v.Verify(identity.BearerToken(c.GetHeader("Authorization")))
		if err != nil {
			lg.Infow("rejected unauthenticated request", "path", c.FullPath(), "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT(response.APIResponseCodeUnauthenticated, &response.ErrorData{
				Kind:       string(entitlement.KindUnauthenticated),
				NextAction: string(entitlement.NextActionLogin),
			}))
			return
		}

		c.Set(logctx.UserIDKey, id.UserID)
		c.Set(EmailKey, id.Email)
		c.Request = c.Request.WithContext(logctx.WithUserID(c.Request.Context(), id.UserID))
		setLogger(c, lg.With("user_id", id.UserID))
		c.Next()
	}
}
