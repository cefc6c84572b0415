// Package mocks provides testify mocks of the vault use case dependencies.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/allisson/token-rest/internal/crypto/domain"
	"github.com/allisson/token-rest/internal/governance"
	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

// MockTxManager runs fn directly after recording the call.
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}

// MockVaultRepository is a mock implementation of VaultRepository.
type MockVaultRepository struct {
	mock.Mock
}

func (m *MockVaultRepository) Create(ctx context.Context, vault *vaultDomain.Vault) error {
	return m.Called(ctx, vault).Error(0)
}

func (m *MockVaultRepository) GetByName(ctx context.Context, name string) (*vaultDomain.Vault, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.Vault), args.Error(1)
}

func (m *MockVaultRepository) GetByID(ctx context.Context, id uuid.UUID) (*vaultDomain.Vault, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.Vault), args.Error(1)
}

func (m *MockVaultRepository) List(ctx context.Context, offset, limit int) ([]*vaultDomain.Vault, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*vaultDomain.Vault), args.Error(1)
}

func (m *MockVaultRepository) UpdateActiveKeyVersion(ctx context.Context, vaultID uuid.UUID, version int) error {
	return m.Called(ctx, vaultID, version).Error(0)
}

func (m *MockVaultRepository) UpdateMacKey(
	ctx context.Context,
	vaultID uuid.UUID,
	macKey cryptoDomain.WrappedKey,
) error {
	return m.Called(ctx, vaultID, macKey).Error(0)
}

// MockVaultKeyRepository is a mock implementation of VaultKeyRepository.
type MockVaultKeyRepository struct {
	mock.Mock
}

func (m *MockVaultKeyRepository) Create(ctx context.Context, key *vaultDomain.VaultKey) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockVaultKeyRepository) GetKey(
	ctx context.Context,
	vaultID uuid.UUID,
	version int,
) (*vaultDomain.VaultKey, error) {
	args := m.Called(ctx, vaultID, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.VaultKey), args.Error(1)
}

func (m *MockVaultKeyRepository) ListByVault(ctx context.Context, vaultID uuid.UUID) ([]*vaultDomain.VaultKey, error) {
	args := m.Called(ctx, vaultID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*vaultDomain.VaultKey), args.Error(1)
}

func (m *MockVaultKeyRepository) Update(ctx context.Context, key *vaultDomain.VaultKey) error {
	return m.Called(ctx, key).Error(0)
}

// MockTokenRepository is a mock implementation of TokenRepository.
type MockTokenRepository struct {
	mock.Mock
}

func (m *MockTokenRepository) InsertIfAbsent(ctx context.Context, record *vaultDomain.TokenRecord) (bool, error) {
	args := m.Called(ctx, record)
	return args.Bool(0), args.Error(1)
}

func (m *MockTokenRepository) Get(
	ctx context.Context,
	vaultID uuid.UUID,
	token string,
) (*vaultDomain.TokenRecord, error) {
	args := m.Called(ctx, vaultID, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.TokenRecord), args.Error(1)
}

func (m *MockTokenRepository) Delete(ctx context.Context, vaultID uuid.UUID, token string) (bool, error) {
	args := m.Called(ctx, vaultID, token)
	return args.Bool(0), args.Error(1)
}

func (m *MockTokenRepository) TouchLastAccessed(
	ctx context.Context,
	vaultID uuid.UUID,
	token string,
	at time.Time,
) error {
	return m.Called(ctx, vaultID, token, at).Error(0)
}

func (m *MockTokenRepository) Quarantine(
	ctx context.Context,
	vaultID uuid.UUID,
	token, reason string,
	at time.Time,
) error {
	return m.Called(ctx, vaultID, token, reason, at).Error(0)
}

func (m *MockTokenRepository) ListByValueDigest(
	ctx context.Context,
	vaultID uuid.UUID,
	digest []byte,
	offset, limit int,
) ([]*vaultDomain.TokenRecord, error) {
	args := m.Called(ctx, vaultID, digest, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*vaultDomain.TokenRecord), args.Error(1)
}

func (m *MockTokenRepository) DeleteExpired(ctx context.Context, before time.Time, dryRun bool) (int64, error) {
	args := m.Called(ctx, before, dryRun)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTokenRepository) CountByVault(ctx context.Context, vaultID uuid.UUID) (int64, error) {
	args := m.Called(ctx, vaultID)
	return args.Get(0).(int64), args.Error(1)
}

// MockCryptoProvider is a mock implementation of CryptoProvider and ValueDigester.
type MockCryptoProvider struct {
	mock.Mock
}

func (m *MockCryptoProvider) Encrypt(
	ctx context.Context,
	ref vaultDomain.KeyRef,
	plaintext, aad []byte,
) (*vaultDomain.Sealed, error) {
	args := m.Called(ctx, ref, plaintext, aad)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.Sealed), args.Error(1)
}

func (m *MockCryptoProvider) Decrypt(
	ctx context.Context,
	ref vaultDomain.KeyRef,
	sealed *vaultDomain.Sealed,
	aad []byte,
) ([]byte, error) {
	args := m.Called(ctx, ref, sealed, aad)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCryptoProvider) RandomBytes(n int) ([]byte, error) {
	args := m.Called(n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCryptoProvider) Forget(vaultID uuid.UUID) {
	m.Called(vaultID)
}

func (m *MockCryptoProvider) Digest(
	ctx context.Context,
	vault *vaultDomain.Vault,
	plaintext []byte,
) ([]byte, error) {
	args := m.Called(ctx, vault, plaintext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockGate is a mock implementation of Gate.
type MockGate struct {
	mock.Mock
}

func (m *MockGate) Check(ctx context.Context, req governance.Request) governance.Decision {
	return m.Called(ctx, req).Get(0).(governance.Decision)
}

// MockAuditRecorder is a mock implementation of AuditRecorder.
type MockAuditRecorder struct {
	mock.Mock
}

func (m *MockAuditRecorder) RecordAccess(ctx context.Context, event vaultDomain.AccessEvent) error {
	return m.Called(ctx, event).Error(0)
}

// MockTokenizationUseCase is a mock implementation of TokenizationUseCase.
type MockTokenizationUseCase struct {
	mock.Mock
}

func (m *MockTokenizationUseCase) Tokenize(
	ctx context.Context,
	vaultName string,
	input *vaultDomain.TokenizeInput,
) (*vaultDomain.TokenizeOutput, error) {
	args := m.Called(ctx, vaultName, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.TokenizeOutput), args.Error(1)
}

func (m *MockTokenizationUseCase) Detokenize(
	ctx context.Context,
	vaultName, token string,
	requester vaultDomain.RequesterContext,
) (*vaultDomain.DetokenizeOutput, error) {
	args := m.Called(ctx, vaultName, token, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.DetokenizeOutput), args.Error(1)
}

func (m *MockTokenizationUseCase) Delete(ctx context.Context, vaultName, token string) (bool, error) {
	args := m.Called(ctx, vaultName, token)
	return args.Bool(0), args.Error(1)
}

func (m *MockTokenizationUseCase) Query(
	ctx context.Context,
	vaultName string,
	value []byte,
	offset, limit int,
) ([]*vaultDomain.TokenRecord, error) {
	args := m.Called(ctx, vaultName, value, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*vaultDomain.TokenRecord), args.Error(1)
}

func (m *MockTokenizationUseCase) CleanupExpired(ctx context.Context, before time.Time, dryRun bool) (int64, error) {
	args := m.Called(ctx, before, dryRun)
	return args.Get(0).(int64), args.Error(1)
}

// MockVaultUseCase is a mock implementation of VaultUseCase.
type MockVaultUseCase struct {
	mock.Mock
}

func (m *MockVaultUseCase) Create(ctx context.Context, input *vaultDomain.CreateVaultInput) (*vaultDomain.Vault, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.Vault), args.Error(1)
}

func (m *MockVaultUseCase) Get(ctx context.Context, name string) (*vaultDomain.Vault, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.Vault), args.Error(1)
}

func (m *MockVaultUseCase) List(ctx context.Context, offset, limit int) ([]*vaultDomain.Vault, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*vaultDomain.Vault), args.Error(1)
}

func (m *MockVaultUseCase) Status(ctx context.Context, name string) (*vaultDomain.VaultStatus, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.VaultStatus), args.Error(1)
}

func (m *MockVaultUseCase) RotateKey(ctx context.Context, name string) (*vaultDomain.Vault, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.Vault), args.Error(1)
}

func (m *MockVaultUseCase) RewrapKeys(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
