// Package service implements the vault primitives: token generators,
// classification shape rules, and the keyring that acts as the crypto provider.
package service

import (
	"context"

	"github.com/google/uuid"

	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

// TokenGenerator mints surrogate tokens. Implementations draw only from
// crypto/rand and never see the plaintext.
type TokenGenerator interface {
	Generate(length int) (string, error)

	// Validate reports whether token has the shape this generator produces.
	Validate(token string) error
}

// CryptoProvider seals and opens record payloads with versioned vault keys.
// Key material never leaves the provider.
type CryptoProvider interface {
	Encrypt(ctx context.Context, ref vaultDomain.KeyRef, plaintext, aad []byte) (*vaultDomain.Sealed, error)

	// Decrypt fails with an error matching errors.ErrIntegrity on any
	// authentication failure.
	Decrypt(ctx context.Context, ref vaultDomain.KeyRef, sealed *vaultDomain.Sealed, aad []byte) ([]byte, error)

	RandomBytes(n int) ([]byte, error)

	// Forget drops cached key material of a vault.
	Forget(vaultID uuid.UUID)
}

// ValueDigester computes the keyed lookup digest of a plaintext.
type ValueDigester interface {
	Digest(ctx context.Context, vault *vaultDomain.Vault, plaintext []byte) ([]byte, error)
}

// VaultKeyReader loads wrapped vault keys.
type VaultKeyReader interface {
	GetKey(ctx context.Context, vaultID uuid.UUID, version int) (*vaultDomain.VaultKey, error)
}
