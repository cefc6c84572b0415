package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/token-rest/internal/crypto/domain"
	cryptoService "github.com/allisson/token-rest/internal/crypto/service"
	apperrors "github.com/allisson/token-rest/internal/errors"
	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
	vaultService "github.com/allisson/token-rest/internal/vault/service"
)

type vaultUseCase struct {
	txManager    TxManager
	vaultRepo    VaultRepository
	vaultKeyRepo VaultKeyRepository
	tokenRepo    TokenRepository
	crypto       CryptoProvider
	keyWrapper   cryptoService.KeyWrapper
	chain        *cryptoDomain.MasterKeyChain
	logger       *slog.Logger
}

// NewVaultUseCase creates a VaultUseCase.
func NewVaultUseCase(
	txManager TxManager,
	vaultRepo VaultRepository,
	vaultKeyRepo VaultKeyRepository,
	tokenRepo TokenRepository,
	crypto CryptoProvider,
	keyWrapper cryptoService.KeyWrapper,
	chain *cryptoDomain.MasterKeyChain,
	logger *slog.Logger,
) VaultUseCase {
	return &vaultUseCase{
		txManager:    txManager,
		vaultRepo:    vaultRepo,
		vaultKeyRepo: vaultKeyRepo,
		tokenRepo:    tokenRepo,
		crypto:       crypto,
		keyWrapper:   keyWrapper,
		chain:        chain,
		logger:       logger,
	}
}

// Create validates input and stores a vault with its MAC key and key version 1.
func (v *vaultUseCase) Create(
	ctx context.Context,
	input *vaultDomain.CreateVaultInput,
) (*vaultDomain.Vault, error) {
	if !vaultDomain.ValidVaultName(input.Name) {
		return nil, vaultDomain.ErrInvalidVaultName
	}
	if _, err := vaultDomain.ParseClassification(string(input.Classification)); err != nil {
		return nil, err
	}
	if _, err := vaultDomain.ParseFormatType(string(input.Format)); err != nil {
		return nil, err
	}
	if err := vaultService.ValidateVaultFormat(input.Classification, input.Format, input.TokenLength); err != nil {
		return nil, err
	}
	alg := input.Algorithm
	if alg == "" {
		alg = cryptoDomain.AESGCM
	}
	if _, err := cryptoDomain.ParseAlgorithm(string(alg)); err != nil {
		return nil, err
	}
	if input.TokenTTL < 0 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "token ttl must not be negative")
	}

	masterKey, err := v.chain.Active()
	if err != nil {
		return nil, err
	}

	vault := &vaultDomain.Vault{
		ID:               uuid.Must(uuid.NewV7()),
		Name:             input.Name,
		Classification:   input.Classification,
		Format:           input.Format,
		TokenLength:      input.TokenLength,
		Algorithm:        alg,
		ActiveKeyVersion: 1,
		TokenTTL:         input.TokenTTL,
		CreatedAt:        time.Now().UTC(),
	}

	vault.MacKey, err = v.newWrappedKey(masterKey, alg, vaultDomain.MacKeyAAD(vault.ID))
	if err != nil {
		return nil, err
	}
	firstKey, err := v.newVaultKey(masterKey, vault, 1)
	if err != nil {
		return nil, err
	}

	err = v.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := v.vaultRepo.Create(ctx, vault); err != nil {
			return err
		}
		return v.vaultKeyRepo.Create(ctx, firstKey)
	})
	if err != nil {
		return nil, err
	}

	v.logger.Info("vault created",
		slog.String("vault", vault.Name),
		slog.String("classification", string(vault.Classification)),
		slog.String("format", string(vault.Format)),
		slog.String("master_key_id", masterKey.ID),
	)
	return vault, nil
}

// Get returns a vault by name.
func (v *vaultUseCase) Get(ctx context.Context, name string) (*vaultDomain.Vault, error) {
	return v.vaultRepo.GetByName(ctx, name)
}

// List returns vaults ordered by name.
func (v *vaultUseCase) List(ctx context.Context, offset, limit int) ([]*vaultDomain.Vault, error) {
	return v.vaultRepo.List(ctx, offset, limit)
}

// Status returns the vault with its key and record counts.
func (v *vaultUseCase) Status(ctx context.Context, name string) (*vaultDomain.VaultStatus, error) {
	vault, err := v.vaultRepo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	keys, err := v.vaultKeyRepo.ListByVault(ctx, vault.ID)
	if err != nil {
		return nil, err
	}

	count, err := v.tokenRepo.CountByVault(ctx, vault.ID)
	if err != nil {
		return nil, err
	}

	return &vaultDomain.VaultStatus{
		Vault:       vault,
		KeyVersions: len(keys),
		TokenCount:  count,
	}, nil
}

// RotateKey adds key version active+1 and activates it in one transaction.
// Records sealed under older versions are left untouched.
func (v *vaultUseCase) RotateKey(ctx context.Context, name string) (*vaultDomain.Vault, error) {
	masterKey, err := v.chain.Active()
	if err != nil {
		return nil, err
	}

	var rotated *vaultDomain.Vault
	err = v.txManager.WithTx(ctx, func(ctx context.Context) error {
		vault, err := v.vaultRepo.GetByName(ctx, name)
		if err != nil {
			return err
		}

		next := vault.ActiveKeyVersion + 1
		key, err := v.newVaultKey(masterKey, vault, next)
		if err != nil {
			return err
		}
		if err := v.vaultKeyRepo.Create(ctx, key); err != nil {
			return err
		}
		if err := v.vaultRepo.UpdateActiveKeyVersion(ctx, vault.ID, next); err != nil {
			return err
		}

		vault.ActiveKeyVersion = next
		rotated = vault
		return nil
	})
	if err != nil {
		return nil, err
	}

	v.crypto.Forget(rotated.ID)
	v.logger.Info("vault key rotated",
		slog.String("vault", rotated.Name),
		slog.Int("active_key_version", rotated.ActiveKeyVersion),
	)
	return rotated, nil
}

// RewrapKeys moves every vault key and MAC key wrapped by a non-active master
// key onto the active one. Key material is unchanged.
func (v *vaultUseCase) RewrapKeys(ctx context.Context) (int, error) {
	masterKey, err := v.chain.Active()
	if err != nil {
		return 0, err
	}

	const pageSize = 100
	rewrapped := 0

	for offset := 0; ; offset += pageSize {
		vaults, err := v.vaultRepo.List(ctx, offset, pageSize)
		if err != nil {
			return rewrapped, err
		}

		for _, vault := range vaults {
			n, err := v.rewrapVault(ctx, masterKey, vault)
			rewrapped += n
			if err != nil {
				return rewrapped, apperrors.Wrapf(err, "failed to rewrap vault %s", vault.Name)
			}
		}

		if len(vaults) < pageSize {
			break
		}
	}

	v.logger.Info("vault keys rewrapped",
		slog.Int("keys", rewrapped),
		slog.String("master_key_id", masterKey.ID),
	)
	return rewrapped, nil
}

func (v *vaultUseCase) rewrapVault(
	ctx context.Context,
	masterKey *cryptoDomain.MasterKey,
	vault *vaultDomain.Vault,
) (int, error) {
	rewrapped := 0
	err := v.txManager.WithTx(ctx, func(ctx context.Context) error {
		rewrapped = 0

		if vault.MacKey.MasterKeyID != masterKey.ID {
			macKey, err := v.rewrap(masterKey, vault.MacKey, vaultDomain.MacKeyAAD(vault.ID))
			if err != nil {
				return err
			}
			if err := v.vaultRepo.UpdateMacKey(ctx, vault.ID, macKey); err != nil {
				return err
			}
			rewrapped++
		}

		keys, err := v.vaultKeyRepo.ListByVault(ctx, vault.ID)
		if err != nil {
			return err
		}
		for _, key := range keys {
			if key.Wrapped.MasterKeyID == masterKey.ID {
				continue
			}
			wrapped, err := v.rewrap(masterKey, key.Wrapped, vaultDomain.VaultKeyAAD(vault.ID, key.Version))
			if err != nil {
				return err
			}
			key.Wrapped = wrapped
			if err := v.vaultKeyRepo.Update(ctx, key); err != nil {
				return err
			}
			rewrapped++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rewrapped, nil
}

func (v *vaultUseCase) rewrap(
	masterKey *cryptoDomain.MasterKey,
	wrapped cryptoDomain.WrappedKey,
	aad []byte,
) (cryptoDomain.WrappedKey, error) {
	raw, err := v.keyWrapper.Unwrap(v.chain, wrapped, aad)
	if err != nil {
		return cryptoDomain.WrappedKey{}, err
	}
	defer cryptoDomain.Zero(raw)

	return v.keyWrapper.Wrap(masterKey, wrapped.Algorithm, raw, aad)
}

func (v *vaultUseCase) newVaultKey(
	masterKey *cryptoDomain.MasterKey,
	vault *vaultDomain.Vault,
	version int,
) (*vaultDomain.VaultKey, error) {
	wrapped, err := v.newWrappedKey(masterKey, vault.Algorithm, vaultDomain.VaultKeyAAD(vault.ID, version))
	if err != nil {
		return nil, err
	}
	return &vaultDomain.VaultKey{
		VaultID:   vault.ID,
		Version:   version,
		Wrapped:   wrapped,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (v *vaultUseCase) newWrappedKey(
	masterKey *cryptoDomain.MasterKey,
	alg cryptoDomain.Algorithm,
	aad []byte,
) (cryptoDomain.WrappedKey, error) {
	raw, err := v.keyWrapper.GenerateKey()
	if err != nil {
		return cryptoDomain.WrappedKey{}, err
	}
	defer cryptoDomain.Zero(raw)

	return v.keyWrapper.Wrap(masterKey, alg, raw, aad)
}
