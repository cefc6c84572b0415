package governance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/allisson/token-rest/internal/metrics"
)

// Gate bounds an evaluator with a timeout and fails closed.
type Gate struct {
	evaluator Evaluator
	timeout   time.Duration
	logger    *slog.Logger
	metrics   metrics.BusinessMetrics
}

// NewGate creates a Gate.
func NewGate(
	evaluator Evaluator,
	timeout time.Duration,
	logger *slog.Logger,
	businessMetrics metrics.BusinessMetrics,
) *Gate {
	return &Gate{
		evaluator: evaluator,
		timeout:   timeout,
		logger:    logger,
		metrics:   businessMetrics,
	}
}

type result struct {
	decision Decision
	err      error
}

// Check returns the evaluator decision, or a deny with ReasonEvaluationFailed
// when the evaluator errors, panics or misses the deadline.
func (g *Gate) Check(ctx context.Context, req Request) Decision {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("evaluator panic: %v", r)}
			}
		}()
		decision, err := g.evaluator.Evaluate(ctx, req)
		done <- result{decision: decision, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		res = result{err: ctx.Err()}
	}

	decision := res.decision
	if res.err != nil {
		g.logger.Warn("governance evaluation failed",
			slog.String("vault", req.VaultName),
			slog.String("client_id", req.Requester.ClientID.String()),
			slog.String("request_id", req.Requester.RequestID),
			slog.Any("error", res.err),
		)
		decision = Deny(ReasonEvaluationFailed)
	}

	status := "allow"
	if !decision.Allow {
		status = "deny"
	}
	g.metrics.RecordOperation(ctx, "governance", "check", status)
	g.metrics.RecordDuration(ctx, "governance", "check", time.Since(start), status)

	return decision
}
