package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_CountsRequestsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	p := NewPrometheus(NewPrometheusOptions{
		Registerer: reg,
		ReqCntURLLabelMappingFn: func(c *gin.Context) string {
			return c.FullPath()
		},
	})

	r := gin.New()
	r.Use(p.HandlerFunc())
	r.GET("/drafts/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/drafts/"+id, nil)
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	require.Equal(t, float64(2), testutil.ToFloat64(p.reqCnt.WithLabelValues("200", http.MethodGet, "/drafts/:id", "")))
}

func TestObserveUsage(t *testing.T) {
	before := testutil.ToFloat64(LedgerUsage.WithLabelValues("download", "ok"))
	ObserveUsage("download", "ok")
	require.Equal(t, before+1, testutil.ToFloat64(LedgerUsage.WithLabelValues("download", "ok")))
}
