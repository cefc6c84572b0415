package service

import (
	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

// NewTokenGenerator returns the generator for a format.
func NewTokenGenerator(format vaultDomain.FormatType) (TokenGenerator, error) {
	switch format {
	case vaultDomain.FormatNumeric:
		return NewNumericGenerator(), nil
	case vaultDomain.FormatPAN:
		return NewPANGenerator(), nil
	case vaultDomain.FormatAlphanumeric:
		return NewAlphanumericGenerator(), nil
	case vaultDomain.FormatUUID:
		return NewUUIDGenerator(), nil
	default:
		return nil, vaultDomain.ErrInvalidFormatType
	}
}

// ValidateVaultFormat checks that a vault's format, configured length and
// classification fit together. A zero length means the format default.
//
// PAN vaults never issue plain numeric tokens: uniform digits pass Luhn about
// one time in ten and would look like usable card numbers.
func ValidateVaultFormat(
	classification vaultDomain.Classification,
	format vaultDomain.FormatType,
	length int,
) error {
	switch {
	case classification == vaultDomain.ClassificationGeneric && format == vaultDomain.FormatPAN:
		return vaultDomain.ErrIncompatibleFormat
	case classification == vaultDomain.ClassificationPAN && format == vaultDomain.FormatNumeric:
		return vaultDomain.ErrIncompatibleFormat
	}

	if length == 0 {
		return nil
	}

	var minLen, maxLen int
	switch format {
	case vaultDomain.FormatNumeric:
		minLen, maxLen = numericMinLength, numericMaxLength
	case vaultDomain.FormatPAN:
		minLen, maxLen = panMinLength, panMaxLength
	case vaultDomain.FormatAlphanumeric:
		minLen, maxLen = alphanumericMinLength, vaultDomain.MaxTokenLength
	case vaultDomain.FormatUUID:
		minLen, maxLen = uuidLength, uuidLength
	default:
		return vaultDomain.ErrInvalidFormatType
	}

	if length < minLen || length > maxLen {
		return vaultDomain.ErrInvalidTokenLength
	}
	return nil
}

// ResolveTokenLength returns the token length for one tokenize call. PAN tokens
// default to the plaintext length so they keep the shape of the card number.
func ResolveTokenLength(vault *vaultDomain.Vault, plaintextLen int) int {
	if vault.TokenLength > 0 {
		return vault.TokenLength
	}
	switch vault.Format {
	case vaultDomain.FormatPAN:
		return plaintextLen
	case vaultDomain.FormatNumeric:
		return numericDefaultLength
	case vaultDomain.FormatUUID:
		return uuidLength
	default:
		return alphanumericDefaultLength
	}
}
