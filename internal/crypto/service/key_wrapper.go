package service

import (
	"crypto/rand"
	"fmt"

	cryptoDomain "github.com/allisson/token-rest/internal/crypto/domain"
)

// KeyWrapperService seals symmetric keys under master keys.
type KeyWrapperService struct {
	aeadManager AEADManager
}

// NewKeyWrapper creates a KeyWrapperService.
func NewKeyWrapper(aeadManager AEADManager) *KeyWrapperService {
	return &KeyWrapperService{aeadManager: aeadManager}
}

// GenerateKey returns 32 bytes from crypto/rand.
func (kw *KeyWrapperService) GenerateKey() ([]byte, error) {
	key := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

// Wrap seals key under masterKey. aad binds the wrapped key to its owner so a
// wrapped key cannot be moved to another vault or version.
func (kw *KeyWrapperService) Wrap(
	masterKey *cryptoDomain.MasterKey,
	alg cryptoDomain.Algorithm,
	key, aad []byte,
) (cryptoDomain.WrappedKey, error) {
	aead, err := kw.aeadManager.CreateCipher(masterKey.Key, alg)
	if err != nil {
		return cryptoDomain.WrappedKey{}, err
	}

	ciphertext, nonce, err := aead.Encrypt(key, aad)
	if err != nil {
		return cryptoDomain.WrappedKey{}, fmt.Errorf("failed to wrap key: %w", err)
	}

	return cryptoDomain.WrappedKey{
		MasterKeyID: masterKey.ID,
		Algorithm:   alg,
		Ciphertext:  ciphertext,
		Nonce:       nonce,
	}, nil
}

// Unwrap opens a wrapped key with the master key it names.
func (kw *KeyWrapperService) Unwrap(
	chain *cryptoDomain.MasterKeyChain,
	wrapped cryptoDomain.WrappedKey,
	aad []byte,
) ([]byte, error) {
	masterKey, ok := chain.Get(wrapped.MasterKeyID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", cryptoDomain.ErrMasterKeyNotFound, wrapped.MasterKeyID)
	}

	aead, err := kw.aeadManager.CreateCipher(masterKey.Key, wrapped.Algorithm)
	if err != nil {
		return nil, err
	}

	return aead.Decrypt(wrapped.Ciphertext, wrapped.Nonce, aad)
}
