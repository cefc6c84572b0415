package governance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

type remoteRequest struct {
	Vault          string `json:"vault"`
	Classification string `json:"classification"`
	ClientID       string `json:"client_id"`
	ClientName     string `json:"client_name"`
	RequestID      string `json:"request_id"`
	RemoteAddr     string `json:"remote_addr,omitempty"`
}

type remoteResponse struct {
	Allow  *bool  `json:"allow"`
	Reason string `json:"reason"`
	Scope  string `json:"scope"`
}

// RemoteEvaluator asks an external decision service. The token itself is not sent.
type RemoteEvaluator struct {
	client *retryablehttp.Client
	url    string
}

// NewRemoteEvaluator creates a RemoteEvaluator posting to url.
func NewRemoteEvaluator(url string, timeout time.Duration, retryMax int, logger *slog.Logger) *RemoteEvaluator {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = timeout
	retryClient.RetryMax = retryMax
	retryClient.RetryWaitMin = 50 * time.Millisecond
	retryClient.RetryWaitMax = 500 * time.Millisecond
	retryClient.Logger = logger
	return &RemoteEvaluator{client: retryClient, url: url}
}

// Evaluate implements Evaluator. A non-200 status or a body without "allow" is an error.
func (e *RemoteEvaluator) Evaluate(ctx context.Context, req Request) (Decision, error) {
	body, err := json.Marshal(remoteRequest{
		Vault:          req.VaultName,
		Classification: string(req.Classification),
		ClientID:       req.Requester.ClientID.String(),
		ClientName:     req.Requester.ClientName,
		RequestID:      req.Requester.RequestID,
		RemoteAddr:     req.Requester.RemoteAddr,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("failed to marshal governance request: %w", err)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to create governance request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return Decision{}, fmt.Errorf("governance request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to read governance response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Decision{}, fmt.Errorf("governance service returned status %d", resp.StatusCode)
	}

	var decoded remoteResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return Decision{}, fmt.Errorf("failed to decode governance response: %w", err)
	}
	if decoded.Allow == nil {
		return Decision{}, fmt.Errorf("governance response has no decision")
	}

	if *decoded.Allow {
		return Allow(decoded.Scope), nil
	}
	reason := decoded.Reason
	if reason == "" {
		reason = ReasonPolicyDenied
	}
	return Deny(reason), nil
}
