package governance

import (
	"context"

	"github.com/google/uuid"

	authDomain "github.com/allisson/token-rest/internal/auth/domain"
	apperrors "github.com/allisson/token-rest/internal/errors"
)

// ClientGetter loads a client by id.
type ClientGetter interface {
	Get(ctx context.Context, clientID uuid.UUID) (*authDomain.Client, error)
}

// ClientPolicyEvaluator allows a request when the requesting client holds the
// detokenize capability on the classification path of the vault.
type ClientPolicyEvaluator struct {
	clients ClientGetter
}

// NewClientPolicyEvaluator creates a ClientPolicyEvaluator.
func NewClientPolicyEvaluator(clients ClientGetter) *ClientPolicyEvaluator {
	return &ClientPolicyEvaluator{clients: clients}
}

// Evaluate implements Evaluator.
func (e *ClientPolicyEvaluator) Evaluate(ctx context.Context, req Request) (Decision, error) {
	client, err := e.clients.Get(ctx, req.Requester.ClientID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return Deny(ReasonUnknownClient), nil
		}
		return Decision{}, err
	}

	if !client.IsActive {
		return Deny(ReasonClientInactive), nil
	}

	path := ClassificationPath(req.VaultName, req.Classification)
	if !client.IsAllowed(path, authDomain.DetokenizeCapability) {
		return Deny(ReasonPolicyDenied), nil
	}
	return Allow(path), nil
}
