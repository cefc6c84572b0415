package domain

import (
	"github.com/allisson/token-rest/internal/errors"
)

var (
	ErrVaultNotFound = errors.Wrap(errors.ErrNotFound, "vault not found")

	ErrVaultAlreadyExists = errors.Wrap(errors.ErrConflict, "vault already exists")

	ErrVaultKeyNotFound = errors.Wrap(errors.ErrNotFound, "vault key not found")
	ErrVaultKeyExists   = errors.Wrap(errors.ErrConflict, "vault key version already exists")

	ErrTokenNotFound = errors.Wrap(errors.ErrNotFound, "token not found")

	ErrInvalidVaultName = errors.Wrap(errors.ErrInvalidInput, "invalid vault name")

	ErrInvalidClassification = errors.Wrap(errors.ErrInvalidInput, "invalid classification")

	ErrInvalidFormatType = errors.Wrap(errors.ErrInvalidInput, "invalid format type")

	ErrInvalidTokenLength = errors.Wrap(errors.ErrInvalidInput, "invalid token length")

	ErrIncompatibleFormat = errors.Wrap(errors.ErrInvalidInput, "format not allowed for classification")

	ErrInvalidPlaintext = errors.Wrap(errors.ErrInvalidInput, "plaintext does not match classification")

	ErrInvalidToken = errors.Wrap(errors.ErrInvalidInput, "invalid token")

	ErrAccessDenied = errors.Wrap(errors.ErrUnauthorized, "detokenization denied")

	ErrRecordIntegrity = errors.Wrap(errors.ErrIntegrity, "token record failed integrity check")

	ErrRecordQuarantined = errors.Wrap(errors.ErrIntegrity, "token record is quarantined")

	ErrTokenSpaceExhausted = errors.Wrap(errors.ErrTokenSpaceExhausted, "no free token within retry bound")
)
