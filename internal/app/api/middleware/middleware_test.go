package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fatflowers/resumely/internal/platform/identity"
	"github.com/fatflowers/resumely/pkg/logctx"
	"github.com/fatflowers/resumely/pkg/response"
)

type stubVerifier struct{}

func (stubVerifier) Verify(token string) (*identity.Identity, error) {
	if token != "good" {
		return nil, identity.ErrInvalidToken
	}
	return &identity.Identity{UserID: "user-1", Email: "u@example.com"}, nil
}

func newRouter(base *zap.SugaredLogger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TraceMiddleware(), RequestLoggerMiddleware(base), AccessLogMiddleware(base))
	g := r.Group("/", AuthMiddleware(stubVerifier{}, base))
	g.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":     c.GetString(logctx.UserIDKey),
			"ctx_user_id": logctx.UserID(c.Request.Context()),
			"trace_id":    logctx.TraceID(c.Request.Context()),
			"email":       c.GetString(EmailKey),
		})
	})
	return r
}

func TestAuthMiddleware_Accepts(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := newRouter(zap.New(core).Sugar())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	req.Header.Set("X-Request-ID", "trace-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "trace-1", w.Header().Get("X-Request-ID"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "user-1", body["user_id"])
	require.Equal(t, "user-1", body["ctx_user_id"])
	require.Equal(t, "trace-1", body["trace_id"])
	require.Equal(t, "u@example.com", body["email"])

	access := logs.FilterMessage("http_access").All()
	require.Len(t, access, 1)
	fields := access[0].ContextMap()
	require.Equal(t, "trace-1", fields["trace_id"])
	require.Equal(t, "user-1", fields["user_id"])
	require.EqualValues(t, http.StatusOK, fields["status"])
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	r := newRouter(zap.NewNop().Sugar())

	for _, header := range []string{"", "Bearer bad", "Basic good"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusUnauthorized, w.Code, header)
		var body response.APIResponse[response.ErrorData]
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Equal(t, response.APIResponseCodeUnauthenticated, body.Code)
		require.Equal(t, "unauthenticated", body.Data.Kind)
		require.Equal(t, "login", body.Data.NextAction)
	}
}

func TestTraceMiddleware_GeneratesID(t *testing.T) {
	r := newRouter(zap.NewNop().Sugar())
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestTraceMiddleware_ReplacesOversizedID(t *testing.T) {
	r := newRouter(zap.NewNop().Sugar())
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", maxTraceIDLen+1))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	got := w.Header().Get("X-Request-ID")
	require.NotEmpty(t, got)
	require.LessOrEqual(t, len(got), maxTraceIDLen)
}
