// Package governance decides whether a detokenize request may see plaintext.
//
// A Gate wraps one Evaluator with a deadline and turns every failure into a
// deny. Three evaluators exist: client policies, a YAML rules file and a
// remote HTTP decision service.
package governance

import (
	"context"
	"fmt"

	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

// Deny reasons.
const (
	ReasonEvaluationFailed = "evaluation_failed"
	ReasonPolicyDenied     = "policy_denied"
	ReasonUnknownClient    = "unknown_client"
	ReasonClientInactive   = "client_inactive"
	ReasonNoMatchingRule   = "no_matching_rule"
)

// Request describes one detokenize attempt.
type Request struct {
	VaultName      string
	Token          string
	Classification vaultDomain.Classification
	Requester      vaultDomain.RequesterContext
}

// Decision is the outcome of an evaluation. Scope is an optional label the
// evaluator attaches to an allow.
type Decision struct {
	Allow  bool
	Reason string
	Scope  string
}

// Evaluator makes the authorization decision. Returning an error means no
// decision could be made.
type Evaluator interface {
	Evaluate(ctx context.Context, req Request) (Decision, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(ctx context.Context, req Request) (Decision, error)

// Evaluate calls f.
func (f EvaluatorFunc) Evaluate(ctx context.Context, req Request) (Decision, error) {
	return f(ctx, req)
}

// Allow returns an allowing decision.
func Allow(scope string) Decision {
	return Decision{Allow: true, Scope: scope}
}

// Deny returns a denying decision.
func Deny(reason string) Decision {
	return Decision{Allow: false, Reason: reason}
}

// ClassificationPath is the policy path a client needs the detokenize
// capability on to read plaintext of a classification in a vault.
func ClassificationPath(vaultName string, classification vaultDomain.Classification) string {
	return fmt.Sprintf("/v1/vaults/%s/classifications/%s", vaultName, classification)
}
