package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/zfogg/hypechain/backend/internal/metrics"
)

func TestMetricsMiddleware_LabelsByRouteTemplate(t *testing.T) {
	m := metrics.Get()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(MetricsMiddleware())
	router.GET("/metrics-test/shares/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})
	router.GET("/metrics-test/boom", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR"})
	})

	ok := m.HTTPRequestsTotal.WithLabelValues("GET", "/metrics-test/shares/:id", "200")
	failed := m.HTTPRequestsTotal.WithLabelValues("GET", "/metrics-test/boom", "500")
	errs := m.ErrorsTotal.WithLabelValues("http_500", "/metrics-test/boom")
	unmatched := m.HTTPRequestsTotal.WithLabelValues("GET", unmatchedRoute, "404")
	okBefore := testutil.ToFloat64(ok)
	failedBefore := testutil.ToFloat64(failed)
	errsBefore := testutil.ToFloat64(errs)
	unmatchedBefore := testutil.ToFloat64(unmatched)

	for _, path := range []string{"/metrics-test/shares/a", "/metrics-test/shares/b", "/metrics-test/boom", "/nowhere"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	// two different ids land on one series
	assert.Equal(t, okBefore+2, testutil.ToFloat64(ok))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(failed))
	assert.Equal(t, errsBefore+1, testutil.ToFloat64(errs))
	assert.Equal(t, unmatchedBefore+1, testutil.ToFloat64(unmatched))
}
