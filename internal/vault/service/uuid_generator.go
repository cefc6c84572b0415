package service

import (
	"fmt"

	"github.com/google/uuid"

	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

const uuidLength = 36

type uuidGenerator struct{}

// NewUUIDGenerator returns a generator of random version 4 UUIDs. Time ordered
// versions are avoided since they leak issuance time.
func NewUUIDGenerator() TokenGenerator {
	return &uuidGenerator{}
}

func (g *uuidGenerator) Generate(length int) (string, error) {
	if length != uuidLength {
		return "", fmt.Errorf("%w: uuid tokens are %d characters", vaultDomain.ErrInvalidTokenLength, uuidLength)
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate uuid: %w", err)
	}
	return id.String(), nil
}

func (g *uuidGenerator) Validate(token string) error {
	if len(token) != uuidLength {
		return vaultDomain.ErrInvalidToken
	}
	if _, err := uuid.Parse(token); err != nil {
		return vaultDomain.ErrInvalidToken
	}
	return nil
}
