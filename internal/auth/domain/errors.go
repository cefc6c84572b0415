package domain

import (
	"github.com/allisson/token-rest/internal/errors"
)

var (
	ErrClientNotFound = errors.Wrap(errors.ErrNotFound, "client not found")

	ErrTokenNotFound = errors.Wrap(errors.ErrNotFound, "auth token not found")

	ErrInvalidCredentials = errors.Wrap(errors.ErrUnauthorized, "invalid client credentials")

	ErrClientInactive = errors.Wrap(errors.ErrUnauthorized, "client is inactive")

	ErrInvalidToken = errors.Wrap(errors.ErrUnauthorized, "invalid or expired token")

	ErrInvalidCapability = errors.Wrap(errors.ErrInvalidInput, "invalid capability")

	// ErrSignatureInvalid means an audit entry was modified after signing.
	ErrSignatureInvalid = errors.Wrap(errors.ErrIntegrity, "audit log signature is invalid")
)
