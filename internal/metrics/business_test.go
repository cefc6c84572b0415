package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertMetricLine matches one exposition line; labels is a partial regex
// since the exporter adds otel scope labels.
func assertMetricLine(t *testing.T, output, name, labels, value string) {
	t.Helper()
	assert.Regexp(t, name+`\{[^}]*`+labels+`[^}]*\} `+value, output)
}

func scrape(t *testing.T, provider *Provider) string {
	t.Helper()
	w := httptest.NewRecorder()
	provider.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestBusinessMetrics(t *testing.T) {
	provider, err := NewProvider("engine_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "engine_test")
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordOperation(ctx, "vault", "tokenize", "success")
	bm.RecordOperation(ctx, "vault", "tokenize", "success")
	bm.RecordOperation(ctx, "vault", "detokenize", "fault")
	bm.RecordOperation(ctx, "governance", "check", "deny")
	bm.RecordDuration(ctx, "vault", "tokenize", 5*time.Millisecond, "success")
	bm.RecordDuration(ctx, "vault", "tokenize", 7*time.Millisecond, "success")

	output := scrape(t, provider)

	assertMetricLine(t, output, `engine_test_operations_total`,
		`domain="vault".*operation="tokenize".*status="success"`, `2`)
	assertMetricLine(t, output, `engine_test_operations_total`,
		`domain="vault".*operation="detokenize".*status="fault"`, `1`)
	assertMetricLine(t, output, `engine_test_operations_total`,
		`domain="governance".*operation="check".*status="deny"`, `1`)
	assertMetricLine(t, output, `engine_test_operation_duration_seconds_count`,
		`domain="vault".*operation="tokenize".*status="success"`, `2`)
}

func TestNoOpBusinessMetrics(t *testing.T) {
	bm := NewNoOpBusinessMetrics()
	assert.IsType(t, &NoOpBusinessMetrics{}, bm)

	assert.NotPanics(t, func() {
		bm.RecordOperation(context.Background(), "vault", "tokenize", "success")
		bm.RecordDuration(context.Background(), "vault", "tokenize", time.Millisecond, "success")
	})
}
