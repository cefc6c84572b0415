package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/token-rest/internal/crypto/domain"
)

// Classification describes the kind of data tokenized in a vault and selects
// its shape rules.
type Classification string

const (
	// ClassificationPAN is a primary account number: 12 to 19 digits passing Luhn.
	ClassificationPAN Classification = "PAN"

	// ClassificationGeneric is arbitrary sensitive data.
	ClassificationGeneric Classification = "generic"
)

// FormatType selects the token generator of a vault.
type FormatType string

const (
	// FormatNumeric produces uniformly random digits.
	FormatNumeric FormatType = "numeric"

	// FormatPAN produces digits shaped like a card number that always fail Luhn.
	FormatPAN FormatType = "pan"

	// FormatAlphanumeric produces random base62 strings.
	FormatAlphanumeric FormatType = "alphanumeric"

	// FormatUUID produces random (version 4) UUIDs.
	FormatUUID FormatType = "uuid"
)

var vaultNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// Vault is a named token space with its own classification, token format and
// key history.
type Vault struct {
	ID               uuid.UUID
	Name             string
	Classification   Classification
	Format           FormatType
	TokenLength      int // 0 uses the format default (plaintext length for PAN)
	Algorithm        cryptoDomain.Algorithm
	ActiveKeyVersion int
	TokenTTL         time.Duration // 0 means records never expire
	MacKey           cryptoDomain.WrappedKey
	CreatedAt        time.Time
}

// ParseClassification validates a classification name.
func ParseClassification(s string) (Classification, error) {
	switch Classification(s) {
	case ClassificationPAN, ClassificationGeneric:
		return Classification(s), nil
	default:
		return "", ErrInvalidClassification
	}
}

// ParseFormatType validates a format name.
func ParseFormatType(s string) (FormatType, error) {
	switch FormatType(s) {
	case FormatNumeric, FormatPAN, FormatAlphanumeric, FormatUUID:
		return FormatType(s), nil
	default:
		return "", ErrInvalidFormatType
	}
}

// ValidVaultName reports whether name is usable as a vault name (and URL segment).
func ValidVaultName(name string) bool {
	return vaultNameRegex.MatchString(name)
}

// CreateVaultInput carries the parameters of a new vault.
type CreateVaultInput struct {
	Name           string
	Classification Classification
	Format         FormatType
	TokenLength    int
	Algorithm      cryptoDomain.Algorithm
	TokenTTL       time.Duration
}

// VaultStatus is the operational view of a vault.
type VaultStatus struct {
	Vault       *Vault
	KeyVersions int
	TokenCount  int64
}
