package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareRecordsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := New("crm", prometheus.NewRegistry())

	r := gin.New()
	r.Use(h.Middleware())
	r.GET("/api/notifications/:id/", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	r.GET("/metrics", h.Handler())

	for _, path := range []string{"/api/notifications/1/", "/api/notifications/2/", "/boom", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(h.requestTotal.WithLabelValues("GET", "/api/notifications/:id/", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.requestTotal.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.errorTotal.WithLabelValues("GET", "/boom", "500")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "crm_http_requests_total")
}
