package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	authDomain "github.com/allisson/token-rest/internal/auth/domain"
	cryptoDomain "github.com/allisson/token-rest/internal/crypto/domain"
)

// auditSigningInfo is the HKDF info label. Bump the version if the canonical
// form changes.
const auditSigningInfo = "token-rest-audit-log-v1"

type auditSigner struct{}

// NewAuditSigner creates an HMAC-SHA256 signer whose key is derived from a
// master key with HKDF-SHA256.
func NewAuditSigner() AuditSigner {
	return &auditSigner{}
}

func (a *auditSigner) deriveSigningKey(masterKey []byte) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, masterKey, nil, []byte(auditSigningInfo)), key); err != nil {
		return nil, err
	}
	return key, nil
}

// canonicalize encodes every signed field in a fixed order. Variable length
// fields are length prefixed.
func (a *auditSigner) canonicalize(log *authDomain.AuditLog) ([]byte, error) {
	buf := make([]byte, 0, 512)
	buf = append(buf, log.ID[:]...)
	buf = append(buf, log.ClientID[:]...)
	buf = appendLengthPrefixed(buf, []byte(log.RequestID))
	buf = appendLengthPrefixed(buf, []byte(log.Capability))
	buf = appendLengthPrefixed(buf, []byte(log.Path))
	buf = appendLengthPrefixed(buf, []byte(log.Outcome))
	buf = appendLengthPrefixed(buf, []byte(log.Reason))

	var metadata []byte
	if log.Metadata != nil {
		// encoding/json sorts map keys, so the encoding is stable
		b, err := json.Marshal(log.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadata = b
	}
	buf = appendLengthPrefixed(buf, metadata)

	return binary.BigEndian.AppendUint64(buf, uint64(log.CreatedAt.UnixNano())), nil
}

func appendLengthPrefixed(buf []byte, data []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(data))) //nolint:gosec // fields are bounded by the schema
	return append(buf, data...)
}

// Sign returns the 32-byte HMAC of the canonical entry.
func (a *auditSigner) Sign(masterKey []byte, log *authDomain.AuditLog) ([]byte, error) {
	signingKey, err := a.deriveSigningKey(masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive signing key: %w", err)
	}
	defer cryptoDomain.Zero(signingKey)

	canonical, err := a.canonicalize(log)
	if err != nil {
		return nil, err
	}

	mac := hmac.New(sha256.New, signingKey)
	mac.Write(canonical)
	return mac.Sum(nil), nil
}

func (a *auditSigner) Verify(masterKey []byte, log *authDomain.AuditLog) error {
	expected, err := a.Sign(masterKey, log)
	if err != nil {
		return err
	}
	if !hmac.Equal(log.Signature, expected) {
		return authDomain.ErrSignatureInvalid
	}
	return nil
}
