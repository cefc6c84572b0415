// Package domain holds the key material types shared by every component that
// seals or unseals data: AEAD algorithms, master keys, and wrapped keys.
package domain

// Algorithm identifies an AEAD construction.
type Algorithm string

const (
	// AESGCM is AES-256 in Galois/Counter Mode.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 is ChaCha20-Poly1305.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

const (
	// KeySize is the size in bytes of every symmetric key in the vault.
	KeySize = 32

	// TagSize is the authentication tag size of both supported algorithms.
	TagSize = 16
)

// ParseAlgorithm validates an algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case AESGCM, ChaCha20:
		return Algorithm(s), nil
	default:
		return "", ErrUnsupportedAlgorithm
	}
}
