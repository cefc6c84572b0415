package service

import (
	"fmt"

	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

const (
	base62Chars               = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	alphanumericMinLength     = 8
	alphanumericDefaultLength = 32
)

type alphanumericGenerator struct{}

// NewAlphanumericGenerator returns a generator of random base62 strings.
func NewAlphanumericGenerator() TokenGenerator {
	return &alphanumericGenerator{}
}

func (g *alphanumericGenerator) Generate(length int) (string, error) {
	if length < alphanumericMinLength || length > vaultDomain.MaxTokenLength {
		return "", fmt.Errorf("%w: alphanumeric tokens need %d to %d characters",
			vaultDomain.ErrInvalidTokenLength, alphanumericMinLength, vaultDomain.MaxTokenLength)
	}

	token := make([]byte, length)
	for i := range token {
		n, err := randomIndex(len(base62Chars))
		if err != nil {
			return "", err
		}
		token[i] = base62Chars[n]
	}
	return string(token), nil
}

func (g *alphanumericGenerator) Validate(token string) error {
	if token == "" || len(token) > vaultDomain.MaxTokenLength {
		return vaultDomain.ErrInvalidToken
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		if !((c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')) {
			return vaultDomain.ErrInvalidToken
		}
	}
	return nil
}
