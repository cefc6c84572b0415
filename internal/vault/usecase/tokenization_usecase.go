package usecase

import (
	"context"
	"log/slog"
	"time"

	cryptoDomain "github.com/allisson/token-rest/internal/crypto/domain"
	apperrors "github.com/allisson/token-rest/internal/errors"
	"github.com/allisson/token-rest/internal/governance"
	"github.com/allisson/token-rest/internal/metrics"
	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
	vaultService "github.com/allisson/token-rest/internal/vault/service"
)

// DefaultMaxAttempts bounds the generate and insert loop of Tokenize.
const DefaultMaxAttempts = 8

// TokenizationConfig carries the tunables of the tokenization engine.
type TokenizationConfig struct {
	MaxAttempts int
}

type tokenizationUseCase struct {
	vaultRepo   VaultRepository
	tokenRepo   TokenRepository
	crypto      CryptoProvider
	digester    ValueDigester
	gate        Gate
	audit       AuditRecorder
	metrics     metrics.BusinessMetrics
	logger      *slog.Logger
	maxAttempts int
	now         func() time.Time
	generators  func(vaultDomain.FormatType) (vaultService.TokenGenerator, error)
}

// NewTokenizationUseCase creates the tokenization engine.
func NewTokenizationUseCase(
	vaultRepo VaultRepository,
	tokenRepo TokenRepository,
	crypto CryptoProvider,
	digester ValueDigester,
	gate Gate,
	audit AuditRecorder,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
	cfg TokenizationConfig,
) TokenizationUseCase {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &tokenizationUseCase{
		vaultRepo:   vaultRepo,
		tokenRepo:   tokenRepo,
		crypto:      crypto,
		digester:    digester,
		gate:        gate,
		audit:       audit,
		metrics:     businessMetrics,
		logger:      logger,
		maxAttempts: maxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
		generators:  vaultService.NewTokenGenerator,
	}
}

// Tokenize issues a fresh token for input.Plaintext. A collision never
// overwrites: the token is regenerated and the payload resealed, since the
// token is part of the associated data.
func (t *tokenizationUseCase) Tokenize(
	ctx context.Context,
	vaultName string,
	input *vaultDomain.TokenizeInput,
) (*vaultDomain.TokenizeOutput, error) {
	vault, err := t.vaultRepo.GetByName(ctx, vaultName)
	if err != nil {
		return nil, err
	}

	if err := vaultService.ValidatePlaintext(vault.Classification, input.Plaintext); err != nil {
		return nil, err
	}

	generator, err := t.generators(vault.Format)
	if err != nil {
		return nil, err
	}
	length := vaultService.ResolveTokenLength(vault, len(input.Plaintext))

	digest, err := t.digester.Digest(ctx, vault, input.Plaintext)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to digest value")
	}

	now := t.now()
	var expiresAt *time.Time
	ttl := vault.TokenTTL
	if input.TTL > 0 {
		ttl = input.TTL
	}
	if ttl > 0 {
		exp := now.Add(ttl)
		expiresAt = &exp
	}

	ref := vaultDomain.KeyRef{VaultID: vault.ID, Version: vault.ActiveKeyVersion}
	mask := vaultService.MaskFor(vault.Classification, input.Plaintext)

	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		token, err := generator.Generate(length)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to generate token")
		}

		aad := vaultDomain.AssociatedData(vault.ID, token, ref.Version, vault.Classification)
		sealed, err := t.crypto.Encrypt(ctx, ref, input.Plaintext, aad)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to seal value")
		}

		record := &vaultDomain.TokenRecord{
			VaultID:        vault.ID,
			Token:          token,
			Ciphertext:     sealed.Ciphertext,
			IntegrityTag:   sealed.Tag,
			Nonce:          sealed.Nonce,
			KeyVersion:     ref.Version,
			Classification: vault.Classification,
			ValueDigest:    digest,
			Mask:           mask,
			Metadata:       input.Metadata,
			CreatedAt:      now,
			ExpiresAt:      expiresAt,
		}

		inserted, err := t.tokenRepo.InsertIfAbsent(ctx, record)
		if err != nil {
			return nil, err
		}
		if inserted {
			return &vaultDomain.TokenizeOutput{
				Token:      token,
				KeyVersion: ref.Version,
				Mask:       mask,
				CreatedAt:  now,
				ExpiresAt:  expiresAt,
			}, nil
		}

		t.metrics.RecordOperation(ctx, "vault", "token_collision", "retry")
		t.logger.Debug("token collision",
			slog.String("vault", vault.Name),
			slog.Int("attempt", attempt),
		)
	}

	t.metrics.RecordOperation(ctx, "vault", "token_space_exhausted", "error")
	t.logger.Error("token space exhausted",
		slog.String("vault", vault.Name),
		slog.String("format", string(vault.Format)),
		slog.Int("length", length),
		slog.Int("attempts", t.maxAttempts),
		slog.Bool("alert", true),
	)
	return nil, vaultDomain.ErrTokenSpaceExhausted
}

// Detokenize returns the plaintext of token. Every attempt is audited, allowed
// or not. Security Note: callers MUST zero the returned plaintext after use.
func (t *tokenizationUseCase) Detokenize(
	ctx context.Context,
	vaultName, token string,
	requester vaultDomain.RequesterContext,
) (*vaultDomain.DetokenizeOutput, error) {
	event := vaultDomain.AccessEvent{
		VaultName: vaultName,
		Token:     token,
		Requester: requester,
	}

	out, err := t.detokenize(ctx, vaultName, token, requester, &event)

	if err != nil && event.Outcome == "" {
		event.Outcome = vaultDomain.OutcomeError
	}
	event.At = t.now()
	if auditErr := t.audit.RecordAccess(ctx, event); auditErr != nil {
		t.logger.Error("failed to record detokenize audit entry",
			slog.String("vault", vaultName),
			slog.String("request_id", requester.RequestID),
			slog.Any("error", auditErr),
		)
		if err == nil {
			// Plaintext is only released when the access is on record.
			cryptoDomain.Zero(out.Plaintext)
			return nil, apperrors.Wrap(auditErr, "failed to record access")
		}
	}

	return out, err
}

func (t *tokenizationUseCase) detokenize(
	ctx context.Context,
	vaultName, token string,
	requester vaultDomain.RequesterContext,
	event *vaultDomain.AccessEvent,
) (*vaultDomain.DetokenizeOutput, error) {
	vault, err := t.vaultRepo.GetByName(ctx, vaultName)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			event.Outcome = vaultDomain.OutcomeNotFound
		}
		return nil, err
	}

	record, err := t.tokenRepo.Get(ctx, vault.ID, token)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			event.Outcome = vaultDomain.OutcomeNotFound
		}
		return nil, err
	}

	if record.IsExpired(t.now()) {
		event.Outcome = vaultDomain.OutcomeNotFound
		event.Reason = "expired"
		return nil, vaultDomain.ErrTokenNotFound
	}

	decision := t.gate.Check(ctx, governance.Request{
		VaultName:      vault.Name,
		Token:          token,
		Classification: record.Classification,
		Requester:      requester,
	})
	if !decision.Allow {
		event.Outcome = vaultDomain.OutcomeDenied
		event.Reason = decision.Reason
		return nil, vaultDomain.ErrAccessDenied
	}

	// Only an allowed caller may learn that a record is quarantined.
	if record.IsQuarantined() {
		event.Outcome = vaultDomain.OutcomeIntegrity
		event.Reason = "quarantined"
		return nil, vaultDomain.ErrRecordQuarantined
	}

	aad := vaultDomain.AssociatedData(record.VaultID, record.Token, record.KeyVersion, record.Classification)
	plaintext, err := t.crypto.Decrypt(ctx, record.KeyRef(), record.Sealed(), aad)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrIntegrity) {
			return nil, err
		}
		t.quarantine(ctx, vault, record, err)
		event.Outcome = vaultDomain.OutcomeIntegrity
		event.Reason = "authentication_failed"
		return nil, vaultDomain.ErrRecordIntegrity
	}

	if err := t.tokenRepo.TouchLastAccessed(ctx, record.VaultID, record.Token, t.now()); err != nil {
		cryptoDomain.Zero(plaintext)
		return nil, err
	}

	event.Outcome = vaultDomain.OutcomeAllowed
	event.Reason = decision.Scope
	return &vaultDomain.DetokenizeOutput{
		Plaintext:      plaintext,
		Classification: record.Classification,
		Metadata:       record.Metadata,
		Scope:          decision.Scope,
	}, nil
}

func (t *tokenizationUseCase) quarantine(
	ctx context.Context,
	vault *vaultDomain.Vault,
	record *vaultDomain.TokenRecord,
	cause error,
) {
	t.metrics.RecordOperation(ctx, "vault", "integrity_failure", "error")
	t.logger.Error("token record failed authentication",
		slog.String("vault", vault.Name),
		slog.String("vault_id", vault.ID.String()),
		slog.Int("key_version", record.KeyVersion),
		slog.Any("error", cause),
		slog.Bool("alert", true),
	)

	if err := t.tokenRepo.Quarantine(ctx, record.VaultID, record.Token, "authentication_failed", t.now()); err != nil {
		t.logger.Error("failed to quarantine token record",
			slog.String("vault", vault.Name),
			slog.Any("error", err),
			slog.Bool("alert", true),
		)
	}
}

// Delete removes a token. Deleting an absent token is not an error.
func (t *tokenizationUseCase) Delete(ctx context.Context, vaultName, token string) (bool, error) {
	vault, err := t.vaultRepo.GetByName(ctx, vaultName)
	if err != nil {
		return false, err
	}
	return t.tokenRepo.Delete(ctx, vault.ID, token)
}

// Query lists the records holding value in a vault.
func (t *tokenizationUseCase) Query(
	ctx context.Context,
	vaultName string,
	value []byte,
	offset, limit int,
) ([]*vaultDomain.TokenRecord, error) {
	vault, err := t.vaultRepo.GetByName(ctx, vaultName)
	if err != nil {
		return nil, err
	}
	if len(value) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "value is required")
	}

	digest, err := t.digester.Digest(ctx, vault, value)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to digest value")
	}

	records, err := t.tokenRepo.ListByValueDigest(ctx, vault.ID, digest, offset, limit)
	if err != nil {
		return nil, err
	}

	now := t.now()
	out := records[:0]
	for _, r := range records {
		if r.IsExpired(now) {
			continue
		}
		r.Ciphertext, r.IntegrityTag, r.Nonce = nil, nil, nil
		out = append(out, r)
	}
	return out, nil
}

// CleanupExpired deletes records that expired before the given time.
func (t *tokenizationUseCase) CleanupExpired(ctx context.Context, before time.Time, dryRun bool) (int64, error) {
	if before.IsZero() {
		return 0, apperrors.Wrap(apperrors.ErrInvalidInput, "cutoff time is required")
	}
	return t.tokenRepo.DeleteExpired(ctx, before.UTC(), dryRun)
}
