package governance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/allisson/token-rest/internal/metrics"
	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

func newTestRequest() Request {
	return Request{
		VaultName:      "cards",
		Token:          "4000123412341234",
		Classification: vaultDomain.ClassificationPAN,
		Requester: vaultDomain.RequesterContext{
			ClientID:   uuid.New(),
			ClientName: "billing-api",
			RequestID:  "req-1",
		},
	}
}

func newTestGate(evaluator Evaluator, timeout time.Duration) *Gate {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewGate(evaluator, timeout, logger, metrics.NewNoOpBusinessMetrics())
}

func TestGate_Check(t *testing.T) {
	tests := []struct {
		name      string
		evaluator EvaluatorFunc
		allow     bool
		reason    string
	}{
		{
			name: "Success_Allow",
			evaluator: func(ctx context.Context, req Request) (Decision, error) {
				return Allow("billing"), nil
			},
			allow: true,
		},
		{
			name: "Success_Deny",
			evaluator: func(ctx context.Context, req Request) (Decision, error) {
				return Deny(ReasonPolicyDenied), nil
			},
			reason: ReasonPolicyDenied,
		},
		{
			name: "Error_EvaluatorErrorFailsClosed",
			evaluator: func(ctx context.Context, req Request) (Decision, error) {
				return Allow(""), errors.New("policy store unavailable")
			},
			reason: ReasonEvaluationFailed,
		},
		{
			name: "Error_PanicFailsClosed",
			evaluator: func(ctx context.Context, req Request) (Decision, error) {
				panic("boom")
			},
			reason: ReasonEvaluationFailed,
		},
		{
			name: "Error_TimeoutFailsClosed",
			evaluator: func(ctx context.Context, req Request) (Decision, error) {
				<-ctx.Done()
				return Allow(""), nil
			},
			reason: ReasonEvaluationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := newTestGate(tt.evaluator, 50*time.Millisecond)

			decision := gate.Check(context.Background(), newTestRequest())

			assert.Equal(t, tt.allow, decision.Allow)
			assert.Equal(t, tt.reason, decision.Reason)
		})
	}
}

func TestGate_CheckHonorsCallerCancellation(t *testing.T) {
	gate := newTestGate(EvaluatorFunc(func(ctx context.Context, req Request) (Decision, error) {
		<-ctx.Done()
		return Decision{}, ctx.Err()
	}), time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	decision := gate.Check(ctx, newTestRequest())

	assert.False(t, decision.Allow)
	assert.Less(t, time.Since(start), time.Second)
}
