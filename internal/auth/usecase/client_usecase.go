package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/token-rest/internal/auth/domain"
	authService "github.com/allisson/token-rest/internal/auth/service"
	apperrors "github.com/allisson/token-rest/internal/errors"
)

type clientUseCase struct {
	clientRepo    ClientRepository
	secretService authService.SecretService
}

// NewClientUseCase creates a ClientUseCase.
func NewClientUseCase(clientRepo ClientRepository, secretService authService.SecretService) ClientUseCase {
	return &clientUseCase{clientRepo: clientRepo, secretService: secretService}
}

func validatePolicies(policies []authDomain.PolicyDocument) error {
	if len(policies) == 0 {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "at least one policy is required")
	}
	for _, policy := range policies {
		if policy.Path == "" || len(policy.Capabilities) == 0 {
			return apperrors.Wrap(apperrors.ErrInvalidInput, "policy needs a path and capabilities")
		}
		for _, capability := range policy.Capabilities {
			if _, err := authDomain.ParseCapability(string(capability)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *clientUseCase) Create(
	ctx context.Context,
	input *authDomain.CreateClientInput,
) (*authDomain.CreateClientOutput, error) {
	if input.Name == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "client name is required")
	}
	if err := validatePolicies(input.Policies); err != nil {
		return nil, err
	}

	plainSecret, hashedSecret, err := c.secretService.GenerateSecret()
	if err != nil {
		return nil, err
	}

	client := &authDomain.Client{
		ID:        uuid.Must(uuid.NewV7()),
		Secret:    hashedSecret,
		Name:      input.Name,
		IsActive:  input.IsActive,
		Policies:  input.Policies,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.clientRepo.Create(ctx, client); err != nil {
		return nil, err
	}

	return &authDomain.CreateClientOutput{ID: client.ID, PlainSecret: plainSecret}, nil
}

func (c *clientUseCase) Update(ctx context.Context, clientID uuid.UUID, input *authDomain.UpdateClientInput) error {
	if err := validatePolicies(input.Policies); err != nil {
		return err
	}

	client, err := c.clientRepo.Get(ctx, clientID)
	if err != nil {
		return err
	}
	if input.Name != "" {
		client.Name = input.Name
	}
	client.IsActive = input.IsActive
	client.Policies = input.Policies

	return c.clientRepo.Update(ctx, client)
}

func (c *clientUseCase) Get(ctx context.Context, clientID uuid.UUID) (*authDomain.Client, error) {
	return c.clientRepo.Get(ctx, clientID)
}

func (c *clientUseCase) List(ctx context.Context, offset, limit int) ([]*authDomain.Client, error) {
	return c.clientRepo.List(ctx, offset, limit)
}
