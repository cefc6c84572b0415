// Package usecase implements client management, bearer token issuance and the
// signed audit log.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/token-rest/internal/auth/domain"
	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

// ClientRepository persists API clients.
type ClientRepository interface {
	Create(ctx context.Context, client *authDomain.Client) error
	Update(ctx context.Context, client *authDomain.Client) error

	// Get returns ErrClientNotFound when the client does not exist.
	Get(ctx context.Context, clientID uuid.UUID) (*authDomain.Client, error)

	List(ctx context.Context, offset, limit int) ([]*authDomain.Client, error)
}

// TokenRepository persists issued bearer tokens by hash.
type TokenRepository interface {
	Create(ctx context.Context, token *authDomain.Token) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*authDomain.Token, error)
}

// AuditLogRepository persists signed audit entries. List returns the newest
// entries first; nil bounds are open.
type AuditLogRepository interface {
	Create(ctx context.Context, auditLog *authDomain.AuditLog) error
	List(ctx context.Context, offset, limit int, createdAtFrom, createdAtTo *time.Time) ([]*authDomain.AuditLog, error)
}

// ClientUseCase manages API clients.
type ClientUseCase interface {
	// Create stores a client with a generated secret. The plain secret is only
	// returned here.
	Create(ctx context.Context, input *authDomain.CreateClientInput) (*authDomain.CreateClientOutput, error)

	// Update replaces the name, active flag and policies of a client.
	Update(ctx context.Context, clientID uuid.UUID, input *authDomain.UpdateClientInput) error

	Get(ctx context.Context, clientID uuid.UUID) (*authDomain.Client, error)
	List(ctx context.Context, offset, limit int) ([]*authDomain.Client, error)
}

// TokenUseCase issues and validates credentials.
type TokenUseCase interface {
	Issue(ctx context.Context, input *authDomain.IssueTokenInput) (*authDomain.IssueTokenOutput, error)

	// Authenticate resolves a bearer token hash to its active client.
	Authenticate(ctx context.Context, tokenHash string) (*authDomain.Client, error)

	// AuthenticateSecret resolves client credentials sent with HTTP Basic auth.
	AuthenticateSecret(ctx context.Context, clientID uuid.UUID, secret string) (*authDomain.Client, error)
}

// AuditLogUseCase writes and verifies the signed audit log.
type AuditLogUseCase interface {
	// Create signs entry with the active master key and stores it.
	Create(ctx context.Context, entry *authDomain.AuditLog) error

	List(ctx context.Context, offset, limit int, createdAtFrom, createdAtTo *time.Time) ([]*authDomain.AuditLog, error)

	// Verify checks the signature of every entry in the window.
	Verify(ctx context.Context, createdAtFrom, createdAtTo *time.Time) (*authDomain.AuditVerification, error)

	// RecordAccess stores one entry for a detokenize attempt.
	RecordAccess(ctx context.Context, event vaultDomain.AccessEvent) error
}
