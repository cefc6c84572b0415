// Package service provides client secret hashing, bearer token generation and
// audit log signing.
package service

import (
	authDomain "github.com/allisson/token-rest/internal/auth/domain"
)

// SecretService generates and verifies client secrets.
type SecretService interface {
	// GenerateSecret returns a new random secret and its Argon2id hash. The plain
	// secret is shown to the operator once and never stored.
	GenerateSecret() (plainSecret string, hashedSecret string, err error)

	HashSecret(plainSecret string) (hashedSecret string, err error)

	// CompareSecret reports whether plainSecret matches hashedSecret.
	CompareSecret(plainSecret string, hashedSecret string) bool
}

// TokenService generates bearer tokens. Only the SHA-256 hash is persisted.
type TokenService interface {
	GenerateToken() (plainToken string, tokenHash string, err error)
	HashToken(plainToken string) string
}

// AuditSigner signs audit entries with a key derived from a master key.
type AuditSigner interface {
	Sign(masterKey []byte, log *authDomain.AuditLog) ([]byte, error)

	// Verify returns authDomain.ErrSignatureInvalid when the entry changed after
	// signing.
	Verify(masterKey []byte, log *authDomain.AuditLog) error
}
