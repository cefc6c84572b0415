package domain

import (
	"github.com/allisson/token-rest/internal/errors"
)

var (
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrDecryptionFailed is returned whenever an AEAD refuses to open a sealed
	// value. Callers must treat it as tampering or corruption.
	ErrDecryptionFailed = errors.Wrap(errors.ErrIntegrity, "decryption failed")

	ErrMasterKeysNotSet        = errors.New("MASTER_KEYS is not set")
	ErrActiveMasterKeyIDNotSet = errors.New("ACTIVE_MASTER_KEY_ID is not set")
	ErrInvalidMasterKeysFormat = errors.New("invalid MASTER_KEYS format")
	ErrInvalidMasterKeyBase64  = errors.New("invalid master key base64")
	ErrActiveMasterKeyNotFound = errors.New("active master key not found")
	ErrMasterKeyNotFound       = errors.Wrap(errors.ErrNotFound, "master key not found")
)
