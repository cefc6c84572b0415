// Package validation provides jellydator/validation rules shared by the HTTP DTOs.
package validation

import (
	"strings"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/allisson/token-rest/internal/crypto/domain"
	apperrors "github.com/allisson/token-rest/internal/errors"
	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// UUID accepts the canonical textual form of a UUID.
var UUID = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := uuid.Parse(s)
		return err == nil
	},
	validation.NewError("validation_uuid", "must be a valid UUID"),
)

// VaultName accepts lowercase names usable as a URL path segment.
var VaultName = validation.NewStringRuleWithError(
	vaultDomain.ValidVaultName,
	validation.NewError("validation_vault_name",
		"must be 1 to 64 characters of a-z, 0-9, '_' or '-', starting with a letter or digit"),
)

// Classification accepts the supported data classifications.
var Classification = validation.In(
	string(vaultDomain.ClassificationPAN),
	string(vaultDomain.ClassificationGeneric),
).Error("must be 'PAN' or 'generic'")

// FormatType accepts the supported token formats.
var FormatType = validation.In(
	string(vaultDomain.FormatNumeric),
	string(vaultDomain.FormatPAN),
	string(vaultDomain.FormatAlphanumeric),
	string(vaultDomain.FormatUUID),
).Error("must be 'numeric', 'pan', 'alphanumeric' or 'uuid'")

// Algorithm accepts the supported AEAD algorithms.
var Algorithm = validation.In(
	string(cryptoDomain.AESGCM),
	string(cryptoDomain.ChaCha20),
).Error("must be 'aes-gcm' or 'chacha20-poly1305'")
