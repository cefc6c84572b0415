package domain

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxTokenLength is the storage limit of a token.
	MaxTokenLength = 255

	// MaxGenericPlaintextSize bounds generic plaintexts in bytes.
	MaxGenericPlaintextSize = 4096

	aadPrefix = "token-rest/v1"
)

// Sealed is the output of the crypto provider for one record.
type Sealed struct {
	Ciphertext []byte
	Tag        []byte
	Nonce      []byte
}

// TokenRecord is the persisted unit of the vault. Every field is immutable
// after insertion except LastAccessedAt.
type TokenRecord struct {
	VaultID        uuid.UUID
	Token          string
	Ciphertext     []byte
	IntegrityTag   []byte
	Nonce          []byte
	KeyVersion     int
	Classification Classification
	ValueDigest    []byte
	Mask           string
	Metadata       map[string]any
	CreatedAt      time.Time
	LastAccessedAt *time.Time
	ExpiresAt      *time.Time
	QuarantinedAt  *time.Time
}

// IsExpired reports whether the record expired at now.
func (r *TokenRecord) IsExpired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// IsQuarantined reports whether an integrity failure was recorded for the token.
func (r *TokenRecord) IsQuarantined() bool {
	return r.QuarantinedAt != nil
}

// Sealed returns the sealed payload of the record.
func (r *TokenRecord) Sealed() *Sealed {
	return &Sealed{Ciphertext: r.Ciphertext, Tag: r.IntegrityTag, Nonce: r.Nonce}
}

// KeyRef returns the vault key version that sealed the record.
func (r *TokenRecord) KeyRef() KeyRef {
	return KeyRef{VaultID: r.VaultID, Version: r.KeyVersion}
}

// AssociatedData binds the sealed payload to the vault, token, key version and
// classification. Moving a ciphertext to another token fails authentication.
func AssociatedData(vaultID uuid.UUID, token string, keyVersion int, classification Classification) []byte {
	buf := make([]byte, 0, len(aadPrefix)+16+4+len(token)+4+4+len(classification))
	buf = append(buf, aadPrefix...)
	buf = append(buf, vaultID[:]...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(token)))
	buf = append(buf, token...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(keyVersion))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(classification)))
	return append(buf, classification...)
}

// MaskPAN keeps the last four digits of a PAN and masks the rest.
func MaskPAN(pan string) string {
	if len(pan) <= 4 {
		return strings.Repeat("*", len(pan))
	}
	return strings.Repeat("*", len(pan)-4) + pan[len(pan)-4:]
}

// TokenizeInput is the request of a tokenize call.
type TokenizeInput struct {
	Plaintext []byte
	Metadata  map[string]any
	TTL       time.Duration // overrides the vault TTL when positive
}

// TokenizeOutput is the result of a tokenize call. It never carries plaintext.
type TokenizeOutput struct {
	Token      string
	KeyVersion int
	Mask       string
	CreatedAt  time.Time
	ExpiresAt  *time.Time
}

// DetokenizeOutput is the result of an authorized detokenize call.
type DetokenizeOutput struct {
	Plaintext      []byte
	Classification Classification
	Metadata       map[string]any
	Scope          string
}

// RequesterContext identifies who is asking for a detokenization.
type RequesterContext struct {
	ClientID   uuid.UUID
	ClientName string
	RequestID  string
	RemoteAddr string
}

// AccessOutcome is the audited result of a detokenize attempt.
type AccessOutcome string

const (
	OutcomeAllowed   AccessOutcome = "allowed"
	OutcomeDenied    AccessOutcome = "denied"
	OutcomeNotFound  AccessOutcome = "not_found"
	OutcomeIntegrity AccessOutcome = "integrity_error"
	OutcomeError     AccessOutcome = "error"
)

// AccessEvent is recorded for every detokenize attempt.
type AccessEvent struct {
	VaultName string
	Token     string
	Requester RequesterContext
	Outcome   AccessOutcome
	Reason    string
	At        time.Time
}
