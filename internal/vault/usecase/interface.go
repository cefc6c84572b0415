// Package usecase implements the tokenization engine and vault lifecycle.
//
// Tokenize, Detokenize and Delete go through TokenizationUseCase. Vault creation,
// listing, status, key rotation and rewrapping go through VaultUseCase. Both
// depend only on the repository, crypto provider, gate and audit interfaces
// declared here.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/token-rest/internal/crypto/domain"
	"github.com/allisson/token-rest/internal/governance"
	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

// TxManager runs fn inside a database transaction.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// VaultRepository persists vault definitions.
type VaultRepository interface {
	Create(ctx context.Context, vault *vaultDomain.Vault) error
	GetByName(ctx context.Context, name string) (*vaultDomain.Vault, error)
	GetByID(ctx context.Context, id uuid.UUID) (*vaultDomain.Vault, error)
	List(ctx context.Context, offset, limit int) ([]*vaultDomain.Vault, error)
	UpdateActiveKeyVersion(ctx context.Context, vaultID uuid.UUID, version int) error
	UpdateMacKey(ctx context.Context, vaultID uuid.UUID, macKey cryptoDomain.WrappedKey) error
}

// VaultKeyRepository persists versioned vault keys. Versions are append only;
// Update only replaces the wrapping of an existing version.
type VaultKeyRepository interface {
	Create(ctx context.Context, key *vaultDomain.VaultKey) error
	GetKey(ctx context.Context, vaultID uuid.UUID, version int) (*vaultDomain.VaultKey, error)
	ListByVault(ctx context.Context, vaultID uuid.UUID) ([]*vaultDomain.VaultKey, error)
	Update(ctx context.Context, key *vaultDomain.VaultKey) error
}

// TokenRepository is the vault store.
type TokenRepository interface {
	// InsertIfAbsent stores record unless (vault, token) already exists. It
	// reports false on a collision and never overwrites.
	InsertIfAbsent(ctx context.Context, record *vaultDomain.TokenRecord) (bool, error)

	// Get returns the record with its quarantine state, or ErrTokenNotFound.
	Get(ctx context.Context, vaultID uuid.UUID, token string) (*vaultDomain.TokenRecord, error)

	// Delete removes a record. It reports whether a record existed.
	Delete(ctx context.Context, vaultID uuid.UUID, token string) (bool, error)

	TouchLastAccessed(ctx context.Context, vaultID uuid.UUID, token string, at time.Time) error
	Quarantine(ctx context.Context, vaultID uuid.UUID, token, reason string, at time.Time) error

	ListByValueDigest(
		ctx context.Context,
		vaultID uuid.UUID,
		digest []byte,
		offset, limit int,
	) ([]*vaultDomain.TokenRecord, error)

	// DeleteExpired removes records whose expiry is before the given time. With
	// dryRun it only counts them.
	DeleteExpired(ctx context.Context, before time.Time, dryRun bool) (int64, error)

	CountByVault(ctx context.Context, vaultID uuid.UUID) (int64, error)
}

// CryptoProvider seals and opens record payloads with versioned vault keys.
type CryptoProvider interface {
	Encrypt(ctx context.Context, ref vaultDomain.KeyRef, plaintext, aad []byte) (*vaultDomain.Sealed, error)
	Decrypt(ctx context.Context, ref vaultDomain.KeyRef, sealed *vaultDomain.Sealed, aad []byte) ([]byte, error)
	RandomBytes(n int) ([]byte, error)
	Forget(vaultID uuid.UUID)
}

// ValueDigester computes the per vault keyed digest used by Query.
type ValueDigester interface {
	Digest(ctx context.Context, vault *vaultDomain.Vault, plaintext []byte) ([]byte, error)
}

// Gate decides whether a detokenize request may proceed.
type Gate interface {
	Check(ctx context.Context, req governance.Request) governance.Decision
}

// AuditRecorder writes one entry per detokenize attempt.
type AuditRecorder interface {
	RecordAccess(ctx context.Context, event vaultDomain.AccessEvent) error
}

// TokenizationUseCase is the tokenization engine.
type TokenizationUseCase interface {
	// Tokenize validates plaintext against the vault classification, issues a
	// fresh token and stores the sealed record. The token is returned only
	// after the store accepted the record.
	Tokenize(
		ctx context.Context,
		vaultName string,
		input *vaultDomain.TokenizeInput,
	) (*vaultDomain.TokenizeOutput, error)

	// Detokenize returns the plaintext of token when the gate allows it.
	// Callers must zero the returned plaintext after use.
	Detokenize(
		ctx context.Context,
		vaultName, token string,
		requester vaultDomain.RequesterContext,
	) (*vaultDomain.DetokenizeOutput, error)

	Delete(ctx context.Context, vaultName, token string) (bool, error)

	// Query lists records holding value. Plaintext is never returned.
	Query(ctx context.Context, vaultName string, value []byte, offset, limit int) ([]*vaultDomain.TokenRecord, error)

	CleanupExpired(ctx context.Context, before time.Time, dryRun bool) (int64, error)
}

// VaultUseCase manages vaults and their keys.
type VaultUseCase interface {
	Create(ctx context.Context, input *vaultDomain.CreateVaultInput) (*vaultDomain.Vault, error)
	Get(ctx context.Context, name string) (*vaultDomain.Vault, error)
	List(ctx context.Context, offset, limit int) ([]*vaultDomain.Vault, error)
	Status(ctx context.Context, name string) (*vaultDomain.VaultStatus, error)

	// RotateKey creates the next key version and makes it active. Existing
	// records keep decrypting with the version they were sealed under.
	RotateKey(ctx context.Context, name string) (*vaultDomain.Vault, error)

	// RewrapKeys rewraps every vault key and MAC key with the active master key.
	// It returns the number of keys rewrapped.
	RewrapKeys(ctx context.Context) (int, error)
}
