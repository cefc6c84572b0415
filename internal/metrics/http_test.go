package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	provider, err := NewProvider("http_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	router := gin.New()
	router.Use(HTTPMetricsMiddleware(provider.MeterProvider(), "http_test"))
	router.GET("/v1/vaults/:name/tokens/:token", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"value": "redacted"})
	})

	for _, path := range []string{
		"/v1/vaults/cards/tokens/4111110000001111",
		"/v1/vaults/cards/tokens/4111110000002222",
		"/unknown",
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	output := scrape(t, provider)

	assertMetricLine(t, output, `http_test_http_requests_total`,
		`method="GET".*path="/v1/vaults/:name/tokens/:token".*status_code="200"`, `2`)
	assertMetricLine(t, output, `http_test_http_requests_total`,
		`path="unmatched".*status_code="404"`, `1`)
	assert.Contains(t, output, "http_test_http_request_duration")
	assert.Contains(t, output, "http_test_http_response_size")
	assert.Contains(t, output, "http_test_http_requests_in_flight")
	assert.False(t, strings.Contains(output, "4111110000001111"), "tokens must not leak into labels")
}

func TestRoutePattern(t *testing.T) {
	assert.Equal(t, "unmatched", routePattern(""))
	assert.Equal(t, "/v1/vaults/:name", routePattern("/v1/vaults/:name"))
}
