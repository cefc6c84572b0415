package service

import (
	"fmt"

	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

const (
	panMinLength = 12
	panMaxLength = 19
)

type panGenerator struct{}

// NewPANGenerator returns a generator of card-shaped digit strings that always
// fail the Luhn check, so a token can never be mistaken for a usable PAN.
func NewPANGenerator() TokenGenerator {
	return &panGenerator{}
}

func (g *panGenerator) Generate(length int) (string, error) {
	if length < panMinLength || length > panMaxLength {
		return "", fmt.Errorf("%w: PAN tokens need %d to %d digits",
			vaultDomain.ErrInvalidTokenLength, panMinLength, panMaxLength)
	}

	digits := make([]int, length)

	first, err := randomIndex(9)
	if err != nil {
		return "", err
	}
	digits[0] = first + 1

	for i := 1; i < length-1; i++ {
		if digits[i], err = randomIndex(10); err != nil {
			return "", err
		}
	}

	// uniform over the nine digits that break the checksum
	check := luhnCheckDigit(digits[:length-1])
	last, err := randomIndex(9)
	if err != nil {
		return "", err
	}
	if last >= check {
		last++
	}
	digits[length-1] = last

	token := make([]byte, length)
	for i, d := range digits {
		token[i] = byte('0' + d)
	}
	return string(token), nil
}

func (g *panGenerator) Validate(token string) error {
	digits, ok := parseDigits(token)
	if !ok || len(token) < panMinLength || len(token) > panMaxLength {
		return vaultDomain.ErrInvalidToken
	}
	if validLuhn(digits) {
		return fmt.Errorf("%w: token passes Luhn", vaultDomain.ErrInvalidToken)
	}
	return nil
}
