package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/token-rest/internal/crypto/domain"
	cryptoService "github.com/allisson/token-rest/internal/crypto/service"
	apperrors "github.com/allisson/token-rest/internal/errors"
	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
	"github.com/allisson/token-rest/internal/vault/usecase/mocks"
)

func TestVaultUseCase_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_StoresVaultMacKeyAndFirstVersion", func(t *testing.T) {
		e := newEngine(t)

		vault, err := e.vaultUC.Create(ctx, &vaultDomain.CreateVaultInput{
			Name:           "cards",
			Classification: vaultDomain.ClassificationPAN,
			Format:         vaultDomain.FormatPAN,
			Algorithm:      cryptoDomain.ChaCha20,
			TokenTTL:       time.Hour,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, vault.ActiveKeyVersion)
		assert.Equal(t, cryptoDomain.ChaCha20, vault.Algorithm)
		assert.Equal(t, "mk1", vault.MacKey.MasterKeyID)

		key, err := e.vaults.Keys().GetKey(ctx, vault.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, "mk1", key.Wrapped.MasterKeyID)
		assert.Equal(t, cryptoDomain.ChaCha20, key.Wrapped.Algorithm)

		stored, err := e.vaultUC.Get(ctx, "cards")
		require.NoError(t, err)
		assert.Equal(t, time.Hour, stored.TokenTTL)
	})

	t.Run("Success_DefaultsToAESGCM", func(t *testing.T) {
		e := newEngine(t)
		vault := e.createVault(t, "notes", vaultDomain.ClassificationGeneric, vaultDomain.FormatUUID)
		assert.Equal(t, cryptoDomain.AESGCM, vault.Algorithm)
	})

	invalid := []struct {
		name  string
		input vaultDomain.CreateVaultInput
		err   error
	}{
		{"Error_BadName", vaultDomain.CreateVaultInput{
			Name: "Cards!", Classification: vaultDomain.ClassificationPAN, Format: vaultDomain.FormatPAN,
		}, vaultDomain.ErrInvalidVaultName},
		{"Error_BadClassification", vaultDomain.CreateVaultInput{
			Name: "cards", Classification: "ssn", Format: vaultDomain.FormatPAN,
		}, vaultDomain.ErrInvalidClassification},
		{"Error_BadFormat", vaultDomain.CreateVaultInput{
			Name: "cards", Classification: vaultDomain.ClassificationPAN, Format: "luhn",
		}, vaultDomain.ErrInvalidFormatType},
		{"Error_PANFormatOnGeneric", vaultDomain.CreateVaultInput{
			Name: "notes", Classification: vaultDomain.ClassificationGeneric, Format: vaultDomain.FormatPAN,
		}, vaultDomain.ErrIncompatibleFormat},
		{"Error_NumericFormatOnPAN", vaultDomain.CreateVaultInput{
			Name: "cards", Classification: vaultDomain.ClassificationPAN, Format: vaultDomain.FormatNumeric,
		}, vaultDomain.ErrIncompatibleFormat},
		{"Error_LengthOutOfRange", vaultDomain.CreateVaultInput{
			Name: "ids", Classification: vaultDomain.ClassificationGeneric, Format: vaultDomain.FormatNumeric,
			TokenLength: 5,
		}, vaultDomain.ErrInvalidTokenLength},
		{"Error_BadAlgorithm", vaultDomain.CreateVaultInput{
			Name: "cards", Classification: vaultDomain.ClassificationPAN, Format: vaultDomain.FormatPAN,
			Algorithm: "des",
		}, cryptoDomain.ErrUnsupportedAlgorithm},
		{"Error_NegativeTTL", vaultDomain.CreateVaultInput{
			Name: "cards", Classification: vaultDomain.ClassificationPAN, Format: vaultDomain.FormatPAN,
			TokenTTL: -time.Second,
		}, apperrors.ErrInvalidInput},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t)
			input := tt.input

			_, err := e.vaultUC.Create(ctx, &input)
			assert.ErrorIs(t, err, tt.err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

			vaults, err := e.vaultUC.List(ctx, 0, 10)
			require.NoError(t, err)
			assert.Empty(t, vaults)
		})
	}

	t.Run("Error_DuplicateName", func(t *testing.T) {
		e := newEngine(t)
		e.createVault(t, "cards", vaultDomain.ClassificationPAN, vaultDomain.FormatPAN)

		_, err := e.vaultUC.Create(ctx, &vaultDomain.CreateVaultInput{
			Name: "cards", Classification: vaultDomain.ClassificationPAN, Format: vaultDomain.FormatUUID,
		})
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("Error_TransactionFailure", func(t *testing.T) {
		chain := newChain(t, "mk1", "mk1")
		txManager := &mocks.MockTxManager{}
		vaultRepo := &mocks.MockVaultRepository{}
		keyRepo := &mocks.MockVaultKeyRepository{}
		txErr := errors.New("begin failed")
		txManager.On("WithTx", mock.Anything, mock.Anything).Return(txErr).Once()

		uc := NewVaultUseCase(txManager, vaultRepo, keyRepo, &mocks.MockTokenRepository{}, &mocks.MockCryptoProvider{},
			cryptoService.NewKeyWrapper(cryptoService.NewAEADManager()), chain, discardLogger())

		_, err := uc.Create(ctx, &vaultDomain.CreateVaultInput{
			Name: "cards", Classification: vaultDomain.ClassificationPAN, Format: vaultDomain.FormatPAN,
		})
		assert.ErrorIs(t, err, txErr)
		vaultRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestVaultUseCase_ListAndStatus(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	e.createVault(t, "zeta", vaultDomain.ClassificationGeneric, vaultDomain.FormatUUID)
	e.createVault(t, "alpha", vaultDomain.ClassificationPAN, vaultDomain.FormatPAN)

	vaults, err := e.vaultUC.List(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, vaults, 2)
	assert.Equal(t, "alpha", vaults[0].Name)

	vaults, err = e.vaultUC.List(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, vaults, 1)
	assert.Equal(t, "zeta", vaults[0].Name)

	status, err := e.vaultUC.Status(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, 1, status.KeyVersions)
	assert.Zero(t, status.TokenCount)

	_, err = e.vaultUC.Status(ctx, "missing")
	assert.ErrorIs(t, err, vaultDomain.ErrVaultNotFound)
}

func TestVaultUseCase_RotateKey(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_ForgetsCachedKeys", func(t *testing.T) {
		chain := newChain(t, "mk1", "mk1")
		e := newEngine(t)
		vault := e.createVault(t, "cards", vaultDomain.ClassificationPAN, vaultDomain.FormatPAN)

		crypto := &mocks.MockCryptoProvider{}
		crypto.On("Forget", vault.ID).Once()
		uc := NewVaultUseCase(directTx{}, e.vaults, e.vaults.Keys(), e.tokens, crypto,
			cryptoService.NewKeyWrapper(cryptoService.NewAEADManager()), chain, discardLogger())

		rotated, err := uc.RotateKey(ctx, "cards")
		require.NoError(t, err)
		assert.Equal(t, 2, rotated.ActiveKeyVersion)
		crypto.AssertExpectations(t)

		for version := 1; version <= 2; version++ {
			_, err := e.vaults.Keys().GetKey(ctx, vault.ID, version)
			assert.NoError(t, err)
		}
	})

	t.Run("Error_UnknownVault", func(t *testing.T) {
		e := newEngine(t)
		_, err := e.vaultUC.RotateKey(ctx, "missing")
		assert.ErrorIs(t, err, vaultDomain.ErrVaultNotFound)
	})

	t.Run("Error_VersionRaceLeavesActiveVersion", func(t *testing.T) {
		e := newEngine(t)
		vault := e.createVault(t, "cards", vaultDomain.ClassificationPAN, vaultDomain.FormatPAN)

		// a concurrent rotation already stored version 2
		require.NoError(t, e.vaults.Keys().Create(ctx, &vaultDomain.VaultKey{VaultID: vault.ID, Version: 2}))

		_, err := e.vaultUC.RotateKey(ctx, "cards")
		assert.ErrorIs(t, err, apperrors.ErrConflict)

		current, err := e.vaultUC.Get(ctx, "cards")
		require.NoError(t, err)
		assert.Equal(t, 1, current.ActiveKeyVersion)
	})
}

func TestVaultUseCase_RewrapKeys(t *testing.T) {
	ctx := context.Background()

	old := newEngine(t)
	old.createVault(t, "cards", vaultDomain.ClassificationPAN, vaultDomain.FormatPAN)
	_, err := old.vaultUC.RotateKey(ctx, "cards")
	require.NoError(t, err)
	out, err := old.tokenUC.Tokenize(ctx, "cards", &vaultDomain.TokenizeInput{Plaintext: []byte(testPAN)})
	require.NoError(t, err)

	// the operator adds mk2 and makes it active; mk1 stays loaded for unwrapping
	rotatedChain := newChain(t, "mk2", "mk1", "mk2")
	current := newEngineWith(t, rotatedChain, old.vaults, old.tokens)

	n, err := current.vaultUC.RewrapKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n) // mac key + versions 1 and 2

	vault, err := current.vaultUC.Get(ctx, "cards")
	require.NoError(t, err)
	assert.Equal(t, "mk2", vault.MacKey.MasterKeyID)
	keys, err := current.vaults.Keys().ListByVault(ctx, vault.ID)
	require.NoError(t, err)
	for _, key := range keys {
		assert.Equal(t, "mk2", key.Wrapped.MasterKeyID)
	}

	n, err = current.vaultUC.RewrapKeys(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// mk1 can now be retired
	onlyNew := newChain(t, "mk2", "mk2")
	retired := newEngineWith(t, onlyNew, current.vaults, current.tokens)

	detok, err := retired.tokenUC.Detokenize(ctx, "cards", out.Token, retired.requester)
	require.NoError(t, err)
	assert.Equal(t, testPAN, string(detok.Plaintext))

	records, err := retired.tokenUC.Query(ctx, "cards", []byte(testPAN), 0, 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
