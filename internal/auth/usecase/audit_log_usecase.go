package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/token-rest/internal/auth/domain"
	authService "github.com/allisson/token-rest/internal/auth/service"
	cryptoDomain "github.com/allisson/token-rest/internal/crypto/domain"
	apperrors "github.com/allisson/token-rest/internal/errors"
	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

const verifyPageSize = 500

type auditLogUseCase struct {
	auditLogRepo AuditLogRepository
	signer       authService.AuditSigner
	chain        *cryptoDomain.MasterKeyChain
}

// NewAuditLogUseCase creates an AuditLogUseCase signing with the active key of
// chain. Verification needs every master key that signed an entry in the window.
func NewAuditLogUseCase(
	auditLogRepo AuditLogRepository,
	signer authService.AuditSigner,
	chain *cryptoDomain.MasterKeyChain,
) AuditLogUseCase {
	return &auditLogUseCase{auditLogRepo: auditLogRepo, signer: signer, chain: chain}
}

func (a *auditLogUseCase) Create(ctx context.Context, entry *authDomain.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.Must(uuid.NewV7())
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	// the stores keep microseconds; sign what will be read back
	entry.CreatedAt = entry.CreatedAt.UTC().Truncate(time.Microsecond)

	masterKey, err := a.chain.Active()
	if err != nil {
		return err
	}
	signature, err := a.signer.Sign(masterKey.Key, entry)
	if err != nil {
		return apperrors.Wrap(err, "failed to sign audit log")
	}
	keyID := masterKey.ID
	entry.Signature = signature
	entry.MasterKeyID = &keyID
	entry.IsSigned = true

	if err := a.auditLogRepo.Create(ctx, entry); err != nil {
		return apperrors.Wrap(err, "failed to create audit log")
	}
	return nil
}

func (a *auditLogUseCase) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*authDomain.AuditLog, error) {
	logs, err := a.auditLogRepo.List(ctx, offset, limit, createdAtFrom, createdAtTo)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	return logs, nil
}

func (a *auditLogUseCase) Verify(
	ctx context.Context,
	createdAtFrom, createdAtTo *time.Time,
) (*authDomain.AuditVerification, error) {
	result := &authDomain.AuditVerification{}

	for offset := 0; ; offset += verifyPageSize {
		logs, err := a.List(ctx, offset, verifyPageSize, createdAtFrom, createdAtTo)
		if err != nil {
			return nil, err
		}
		for _, log := range logs {
			result.Total++
			if !log.IsSigned {
				result.Unsigned++
				continue
			}
			if !log.HasValidSignature() {
				result.Invalid = append(result.Invalid, log.ID)
				continue
			}
			masterKey, ok := a.chain.Get(*log.MasterKeyID)
			if !ok {
				return nil, fmt.Errorf("%w: master key %s is not loaded", cryptoDomain.ErrMasterKeyNotFound, *log.MasterKeyID)
			}
			if err := a.signer.Verify(masterKey.Key, log); err != nil {
				result.Invalid = append(result.Invalid, log.ID)
				continue
			}
			result.Valid++
		}
		if len(logs) < verifyPageSize {
			return result, nil
		}
	}
}

// RecordAccess stores a detokenize attempt. The token itself is a surrogate
// and is kept in the path; plaintext never reaches the audit log.
func (a *auditLogUseCase) RecordAccess(ctx context.Context, event vaultDomain.AccessEvent) error {
	return a.Create(ctx, &authDomain.AuditLog{
		RequestID:  event.Requester.RequestID,
		ClientID:   event.Requester.ClientID,
		Capability: authDomain.DetokenizeCapability,
		Path:       fmt.Sprintf("/v1/vaults/%s/tokens/%s", event.VaultName, event.Token),
		Outcome:    string(event.Outcome),
		Reason:     event.Reason,
		Metadata: map[string]any{
			"vault":       event.VaultName,
			"remote_addr": event.Requester.RemoteAddr,
		},
		CreatedAt: event.At,
	})
}
