package service

import (
	"fmt"

	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

const (
	numericMinLength     = 6
	numericMaxLength     = 64
	numericDefaultLength = 16
)

type numericGenerator struct{}

// NewNumericGenerator returns a generator of uniformly random digit strings.
func NewNumericGenerator() TokenGenerator {
	return &numericGenerator{}
}

func (g *numericGenerator) Generate(length int) (string, error) {
	if length < numericMinLength || length > numericMaxLength {
		return "", fmt.Errorf("%w: numeric tokens need %d to %d digits",
			vaultDomain.ErrInvalidTokenLength, numericMinLength, numericMaxLength)
	}

	token := make([]byte, length)
	for i := range token {
		d, err := randomIndex(10)
		if err != nil {
			return "", err
		}
		token[i] = byte('0' + d)
	}
	return string(token), nil
}

func (g *numericGenerator) Validate(token string) error {
	if _, ok := parseDigits(token); !ok || len(token) > numericMaxLength {
		return vaultDomain.ErrInvalidToken
	}
	return nil
}
