package governance

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/token-rest/internal/auth/domain"
)

type stubClients map[uuid.UUID]*authDomain.Client

func (s stubClients) Get(_ context.Context, clientID uuid.UUID) (*authDomain.Client, error) {
	if c, ok := s[clientID]; ok {
		return c, nil
	}
	return nil, authDomain.ErrClientNotFound
}

type failingClients struct{}

func (failingClients) Get(context.Context, uuid.UUID) (*authDomain.Client, error) {
	return nil, errors.New("connection refused")
}

func TestClientPolicyEvaluator_Evaluate(t *testing.T) {
	ctx := context.Background()
	req := newTestRequest()

	detokenizePAN := []authDomain.PolicyDocument{{
		Path:         "/v1/vaults/*/classifications/PAN",
		Capabilities: []authDomain.Capability{authDomain.DetokenizeCapability},
	}}
	tokenizeOnly := []authDomain.PolicyDocument{{
		Path:         "*",
		Capabilities: []authDomain.Capability{authDomain.TokenizeCapability, authDomain.ReadCapability},
	}}

	t.Run("Success_Allowed", func(t *testing.T) {
		e := NewClientPolicyEvaluator(stubClients{
			req.Requester.ClientID: {ID: req.Requester.ClientID, IsActive: true, Policies: detokenizePAN},
		})

		decision, err := e.Evaluate(ctx, req)
		require.NoError(t, err)
		assert.True(t, decision.Allow)
		assert.Equal(t, "/v1/vaults/cards/classifications/PAN", decision.Scope)
	})

	t.Run("Success_TokenizeDoesNotImplyDetokenize", func(t *testing.T) {
		e := NewClientPolicyEvaluator(stubClients{
			req.Requester.ClientID: {ID: req.Requester.ClientID, IsActive: true, Policies: tokenizeOnly},
		})

		decision, err := e.Evaluate(ctx, req)
		require.NoError(t, err)
		assert.False(t, decision.Allow)
		assert.Equal(t, ReasonPolicyDenied, decision.Reason)
	})

	t.Run("Success_InactiveClientDenied", func(t *testing.T) {
		e := NewClientPolicyEvaluator(stubClients{
			req.Requester.ClientID: {ID: req.Requester.ClientID, IsActive: false, Policies: detokenizePAN},
		})

		decision, err := e.Evaluate(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, ReasonClientInactive, decision.Reason)
	})

	t.Run("Success_UnknownClientDenied", func(t *testing.T) {
		decision, err := NewClientPolicyEvaluator(stubClients{}).Evaluate(ctx, req)
		require.NoError(t, err)
		assert.False(t, decision.Allow)
		assert.Equal(t, ReasonUnknownClient, decision.Reason)
	})

	t.Run("Error_StoreFailure", func(t *testing.T) {
		_, err := NewClientPolicyEvaluator(failingClients{}).Evaluate(ctx, req)
		assert.Error(t, err)
	})
}
