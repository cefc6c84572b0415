package domain

import (
	"time"

	"github.com/google/uuid"
)

// Audit outcomes.
const (
	OutcomeAllowed   = "allowed"
	OutcomeDenied    = "denied"
	OutcomeNotFound  = "not_found"
	OutcomeIntegrity = "integrity_error"
	OutcomeError     = "error"
)

// AuditLog is one signed entry of the access log. The signature is an
// HMAC-SHA256 under a key derived from the master key named by MasterKeyID.
type AuditLog struct {
	ID          uuid.UUID
	RequestID   string
	ClientID    uuid.UUID
	Capability  Capability
	Path        string
	Outcome     string
	Reason      string
	Metadata    map[string]any
	Signature   []byte
	MasterKeyID *string
	IsSigned    bool
	CreatedAt   time.Time
}

// HasValidSignature reports whether the entry carries signing material.
// Cryptographic verification happens in the audit signer.
func (a *AuditLog) HasValidSignature() bool {
	return a.IsSigned && a.MasterKeyID != nil && *a.MasterKeyID != "" && len(a.Signature) == 32
}

// AuditVerification summarizes a batch verification run.
type AuditVerification struct {
	Total    int
	Valid    int
	Unsigned int
	Invalid  []uuid.UUID
}
