// Package service provides the AEAD ciphers and key wrapping primitives used to
// seal vault data and vault keys.
package service

import (
	cryptoDomain "github.com/allisson/token-rest/internal/crypto/domain"
)

// AEAD seals and opens data with a fresh random nonce per call.
type AEAD interface {
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt fails with cryptoDomain.ErrDecryptionFailed when the ciphertext,
	// nonce or aad were modified.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager builds an AEAD for a key and algorithm.
type AEADManager interface {
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// KeyWrapper generates symmetric keys and seals them under master keys.
type KeyWrapper interface {
	GenerateKey() ([]byte, error)

	Wrap(masterKey *cryptoDomain.MasterKey, alg cryptoDomain.Algorithm, key, aad []byte) (cryptoDomain.WrappedKey, error)

	Unwrap(chain *cryptoDomain.MasterKeyChain, wrapped cryptoDomain.WrappedKey, aad []byte) ([]byte, error)
}
