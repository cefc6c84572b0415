package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	apperrors "github.com/allisson/token-rest/internal/errors"
)

const bearerTokenSize = 32

type tokenService struct{}

// NewTokenService creates a TokenService issuing 256-bit URL-safe tokens.
func NewTokenService() TokenService {
	return &tokenService{}
}

func (t *tokenService) GenerateToken() (string, string, error) {
	raw := make([]byte, bearerTokenSize)
	if _, err := rand.Read(raw); err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate bearer token")
	}
	plainToken := base64.URLEncoding.EncodeToString(raw)
	return plainToken, t.HashToken(plainToken), nil
}

// HashToken returns the hex SHA-256 of plainToken.
func (t *tokenService) HashToken(plainToken string) string {
	sum := sha256.Sum256([]byte(plainToken))
	return hex.EncodeToString(sum[:])
}
