package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/singleflight"

	cryptoDomain "github.com/allisson/token-rest/internal/crypto/domain"
	cryptoService "github.com/allisson/token-rest/internal/crypto/service"
	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

// Keyring is the crypto provider of the vault. It unwraps vault keys lazily with
// the master key chain and caches one AEAD per key version; unwrapped key bytes
// are zeroed as soon as the cipher is built.
type Keyring struct {
	chain       *cryptoDomain.MasterKeyChain
	keys        VaultKeyReader
	wrapper     cryptoService.KeyWrapper
	aeadManager cryptoService.AEADManager

	ciphers sync.Map // vaultDomain.KeyRef -> cryptoService.AEAD
	macKeys sync.Map // uuid.UUID -> []byte
	group   singleflight.Group
}

// NewKeyring creates a Keyring.
func NewKeyring(
	chain *cryptoDomain.MasterKeyChain,
	keys VaultKeyReader,
	wrapper cryptoService.KeyWrapper,
	aeadManager cryptoService.AEADManager,
) *Keyring {
	return &Keyring{
		chain:       chain,
		keys:        keys,
		wrapper:     wrapper,
		aeadManager: aeadManager,
	}
}

// Encrypt seals plaintext with the key version in ref. The AEAD output is split
// into ciphertext and tag.
func (k *Keyring) Encrypt(
	ctx context.Context,
	ref vaultDomain.KeyRef,
	plaintext, aad []byte,
) (*vaultDomain.Sealed, error) {
	aead, err := k.cipher(ctx, ref)
	if err != nil {
		return nil, err
	}

	out, nonce, err := aead.Encrypt(plaintext, aad)
	if err != nil {
		return nil, err
	}

	split := len(out) - cryptoDomain.TagSize
	return &vaultDomain.Sealed{
		Ciphertext: out[:split:split],
		Tag:        out[split:],
		Nonce:      nonce,
	}, nil
}

// Decrypt opens a sealed payload.
func (k *Keyring) Decrypt(
	ctx context.Context,
	ref vaultDomain.KeyRef,
	sealed *vaultDomain.Sealed,
	aad []byte,
) ([]byte, error) {
	if sealed == nil || len(sealed.Tag) != cryptoDomain.TagSize {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	aead, err := k.cipher(ctx, ref)
	if err != nil {
		return nil, err
	}

	joined := make([]byte, 0, len(sealed.Ciphertext)+len(sealed.Tag))
	joined = append(joined, sealed.Ciphertext...)
	joined = append(joined, sealed.Tag...)

	return aead.Decrypt(joined, sealed.Nonce, aad)
}

// RandomBytes returns n bytes from crypto/rand.
func (k *Keyring) RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}

// Forget drops every cached cipher of a vault. MAC keys survive since rotation
// and rewrapping never change them.
func (k *Keyring) Forget(vaultID uuid.UUID) {
	k.ciphers.Range(func(key, _ any) bool {
		if key.(vaultDomain.KeyRef).VaultID == vaultID {
			k.ciphers.Delete(key)
		}
		return true
	})
}

// Digest returns the keyed BLAKE3 digest of plaintext under the vault MAC key.
func (k *Keyring) Digest(_ context.Context, vault *vaultDomain.Vault, plaintext []byte) ([]byte, error) {
	macKey, err := k.macKey(vault)
	if err != nil {
		return nil, err
	}

	hasher, err := blake3.NewKeyed(macKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create keyed hasher: %w", err)
	}
	_, _ = hasher.Write(plaintext)
	return hasher.Sum(nil), nil
}

func (k *Keyring) cipher(ctx context.Context, ref vaultDomain.KeyRef) (cryptoService.AEAD, error) {
	if v, ok := k.ciphers.Load(ref); ok {
		return v.(cryptoService.AEAD), nil
	}

	// The load is shared by every waiter, so one caller's cancellation must not end it.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := k.group.Do(fmt.Sprintf("%s/%d", ref.VaultID, ref.Version), func() (any, error) {
		if v, ok := k.ciphers.Load(ref); ok {
			return v, nil
		}

		vaultKey, err := k.keys.GetKey(loadCtx, ref.VaultID, ref.Version)
		if err != nil {
			return nil, err
		}

		raw, err := k.wrapper.Unwrap(k.chain, vaultKey.Wrapped, vaultDomain.VaultKeyAAD(ref.VaultID, ref.Version))
		if err != nil {
			return nil, fmt.Errorf("failed to unwrap vault key: %w", err)
		}
		defer cryptoDomain.Zero(raw)

		aead, err := k.aeadManager.CreateCipher(raw, vaultKey.Wrapped.Algorithm)
		if err != nil {
			return nil, err
		}

		k.ciphers.Store(ref, aead)
		return aead, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(cryptoService.AEAD), nil
}

func (k *Keyring) macKey(vault *vaultDomain.Vault) ([]byte, error) {
	if v, ok := k.macKeys.Load(vault.ID); ok {
		return v.([]byte), nil
	}

	key, err := k.wrapper.Unwrap(k.chain, vault.MacKey, vaultDomain.MacKeyAAD(vault.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap vault mac key: %w", err)
	}

	actual, loaded := k.macKeys.LoadOrStore(vault.ID, key)
	if loaded {
		cryptoDomain.Zero(key)
	}
	return actual.([]byte), nil
}
