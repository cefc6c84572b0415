package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/token-rest/internal/auth/domain"
	authService "github.com/allisson/token-rest/internal/auth/service"
	"github.com/allisson/token-rest/internal/config"
	apperrors "github.com/allisson/token-rest/internal/errors"
)

type tokenUseCase struct {
	config        *config.Config
	clientRepo    ClientRepository
	tokenRepo     TokenRepository
	secretService authService.SecretService
	tokenService  authService.TokenService
	now           func() time.Time
}

// NewTokenUseCase creates a TokenUseCase. Issued tokens live for
// Config.AuthTokenExpiration.
func NewTokenUseCase(
	config *config.Config,
	clientRepo ClientRepository,
	tokenRepo TokenRepository,
	secretService authService.SecretService,
	tokenService authService.TokenService,
) TokenUseCase {
	return &tokenUseCase{
		config:        config,
		clientRepo:    clientRepo,
		tokenRepo:     tokenRepo,
		secretService: secretService,
		tokenService:  tokenService,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Issue verifies the client credentials and stores a new bearer token.
//
// An unknown client and a wrong secret both return ErrInvalidCredentials so
// callers cannot enumerate client ids.
func (t *tokenUseCase) Issue(
	ctx context.Context,
	input *authDomain.IssueTokenInput,
) (*authDomain.IssueTokenOutput, error) {
	client, err := t.AuthenticateSecret(ctx, input.ClientID, input.ClientSecret)
	if err != nil {
		return nil, err
	}

	plainToken, tokenHash, err := t.tokenService.GenerateToken()
	if err != nil {
		return nil, err
	}

	now := t.now()
	token := &authDomain.Token{
		ID:        uuid.Must(uuid.NewV7()),
		TokenHash: tokenHash,
		ClientID:  client.ID,
		ExpiresAt: now.Add(t.config.AuthTokenExpiration),
		CreatedAt: now,
	}
	if err := t.tokenRepo.Create(ctx, token); err != nil {
		return nil, apperrors.Wrap(err, "failed to store auth token")
	}

	return &authDomain.IssueTokenOutput{PlainToken: plainToken, ExpiresAt: token.ExpiresAt}, nil
}

func (t *tokenUseCase) AuthenticateSecret(
	ctx context.Context,
	clientID uuid.UUID,
	secret string,
) (*authDomain.Client, error) {
	client, err := t.clientRepo.Get(ctx, clientID)
	if err != nil {
		if apperrors.Is(err, authDomain.ErrClientNotFound) {
			return nil, authDomain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !t.secretService.CompareSecret(secret, client.Secret) {
		return nil, authDomain.ErrInvalidCredentials
	}
	if !client.IsActive {
		return nil, authDomain.ErrClientInactive
	}
	return client, nil
}

func (t *tokenUseCase) Authenticate(ctx context.Context, tokenHash string) (*authDomain.Client, error) {
	token, err := t.tokenRepo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if apperrors.Is(err, authDomain.ErrTokenNotFound) {
			return nil, authDomain.ErrInvalidToken
		}
		return nil, err
	}
	if !token.IsValid(t.now()) {
		return nil, authDomain.ErrInvalidToken
	}

	client, err := t.clientRepo.Get(ctx, token.ClientID)
	if err != nil {
		if apperrors.Is(err, authDomain.ErrClientNotFound) {
			return nil, authDomain.ErrInvalidToken
		}
		return nil, err
	}
	if !client.IsActive {
		return nil, authDomain.ErrClientInactive
	}
	return client, nil
}
