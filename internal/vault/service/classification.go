package service

import (
	"fmt"
	"unicode/utf8"

	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

// ValidatePlaintext checks plaintext against the shape rules of classification.
func ValidatePlaintext(classification vaultDomain.Classification, plaintext []byte) error {
	switch classification {
	case vaultDomain.ClassificationPAN:
		if len(plaintext) < panMinLength || len(plaintext) > panMaxLength {
			return fmt.Errorf("%w: PAN must have %d to %d digits",
				vaultDomain.ErrInvalidPlaintext, panMinLength, panMaxLength)
		}
		digits, ok := parseDigits(string(plaintext))
		if !ok {
			return fmt.Errorf("%w: PAN must contain only digits", vaultDomain.ErrInvalidPlaintext)
		}
		if !validLuhn(digits) {
			return fmt.Errorf("%w: PAN fails Luhn check", vaultDomain.ErrInvalidPlaintext)
		}
		return nil

	case vaultDomain.ClassificationGeneric:
		if len(plaintext) == 0 || len(plaintext) > vaultDomain.MaxGenericPlaintextSize {
			return fmt.Errorf("%w: value must have 1 to %d bytes",
				vaultDomain.ErrInvalidPlaintext, vaultDomain.MaxGenericPlaintextSize)
		}
		if !utf8.Valid(plaintext) {
			return fmt.Errorf("%w: value must be valid UTF-8", vaultDomain.ErrInvalidPlaintext)
		}
		return nil

	default:
		return vaultDomain.ErrInvalidClassification
	}
}

// MaskFor returns the display mask stored with a record.
func MaskFor(classification vaultDomain.Classification, plaintext []byte) string {
	if classification == vaultDomain.ClassificationPAN {
		return vaultDomain.MaskPAN(string(plaintext))
	}
	return ""
}
