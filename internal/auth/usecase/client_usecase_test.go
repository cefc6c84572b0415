package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/token-rest/internal/auth/domain"
	"github.com/allisson/token-rest/internal/auth/usecase/mocks"
	apperrors "github.com/allisson/token-rest/internal/errors"
)

var detokenizePolicy = []authDomain.PolicyDocument{{
	Path:         "/v1/vaults/cards/classifications/PAN",
	Capabilities: []authDomain.Capability{authDomain.DetokenizeCapability},
}}

func TestClientUseCase_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_ReturnsPlainSecretOnce", func(t *testing.T) {
		repo := &mocks.MockClientRepository{}
		secrets := &mocks.MockSecretService{}
		secrets.On("GenerateSecret").Return("plain", "hashed", nil).Once()
		repo.On("Create", ctx, mock.MatchedBy(func(c *authDomain.Client) bool {
			return c.Secret == "hashed" && c.Name == "billing" && c.IsActive
		})).Return(nil).Once()

		out, err := NewClientUseCase(repo, secrets).Create(ctx, &authDomain.CreateClientInput{
			Name: "billing", IsActive: true, Policies: detokenizePolicy,
		})
		require.NoError(t, err)
		assert.Equal(t, "plain", out.PlainSecret)
		assert.NotEqual(t, uuid.Nil, out.ID)
		repo.AssertExpectations(t)
	})

	invalid := map[string]*authDomain.CreateClientInput{
		"Error_NoName":     {Policies: detokenizePolicy},
		"Error_NoPolicies": {Name: "billing"},
		"Error_BadCapability": {Name: "billing", Policies: []authDomain.PolicyDocument{{
			Path: "*", Capabilities: []authDomain.Capability{"sudo"},
		}}},
	}
	for name, input := range invalid {
		t.Run(name, func(t *testing.T) {
			repo := &mocks.MockClientRepository{}
			_, err := NewClientUseCase(repo, &mocks.MockSecretService{}).Create(ctx, input)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestClientUseCase_Update(t *testing.T) {
	ctx := context.Background()
	client := activeClient()

	t.Run("Success_Deactivate", func(t *testing.T) {
		repo := &mocks.MockClientRepository{}
		repo.On("Get", ctx, client.ID).Return(client, nil).Once()
		repo.On("Update", ctx, mock.MatchedBy(func(c *authDomain.Client) bool {
			return !c.IsActive && c.Name == "billing" && c.Secret == "hashed"
		})).Return(nil).Once()

		err := NewClientUseCase(repo, &mocks.MockSecretService{}).Update(ctx, client.ID, &authDomain.UpdateClientInput{
			IsActive: false, Policies: detokenizePolicy,
		})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		repo := &mocks.MockClientRepository{}
		repo.On("Get", ctx, client.ID).Return(nil, authDomain.ErrClientNotFound).Once()

		err := NewClientUseCase(repo, &mocks.MockSecretService{}).Update(ctx, client.ID, &authDomain.UpdateClientInput{
			Policies: detokenizePolicy,
		})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}
