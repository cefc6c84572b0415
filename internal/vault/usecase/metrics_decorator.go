package usecase

import (
	"context"
	"time"

	apperrors "github.com/allisson/token-rest/internal/errors"
	"github.com/allisson/token-rest/internal/metrics"
	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

const metricsDomain = "vault"

// operationStatus labels an outcome without leaking detail. Client errors and
// operational faults are kept apart so alerts can key on the latter.
func operationStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case apperrors.IsOperational(err):
		return "fault"
	case apperrors.Is(err, apperrors.ErrUnauthorized):
		return "denied"
	case apperrors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case apperrors.Is(err, apperrors.ErrInvalidInput):
		return "invalid"
	default:
		return "error"
	}
}

func record(ctx context.Context, m metrics.BusinessMetrics, operation string, start time.Time, err error) {
	status := operationStatus(err)
	m.RecordOperation(ctx, metricsDomain, operation, status)
	m.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

type tokenizationUseCaseWithMetrics struct {
	next    TokenizationUseCase
	metrics metrics.BusinessMetrics
}

// NewTokenizationUseCaseWithMetrics wraps a TokenizationUseCase with metrics recording.
func NewTokenizationUseCaseWithMetrics(useCase TokenizationUseCase, m metrics.BusinessMetrics) TokenizationUseCase {
	return &tokenizationUseCaseWithMetrics{next: useCase, metrics: m}
}

func (t *tokenizationUseCaseWithMetrics) Tokenize(
	ctx context.Context,
	vaultName string,
	input *vaultDomain.TokenizeInput,
) (*vaultDomain.TokenizeOutput, error) {
	start := time.Now()
	out, err := t.next.Tokenize(ctx, vaultName, input)
	record(ctx, t.metrics, "tokenize", start, err)
	return out, err
}

func (t *tokenizationUseCaseWithMetrics) Detokenize(
	ctx context.Context,
	vaultName, token string,
	requester vaultDomain.RequesterContext,
) (*vaultDomain.DetokenizeOutput, error) {
	start := time.Now()
	out, err := t.next.Detokenize(ctx, vaultName, token, requester)
	record(ctx, t.metrics, "detokenize", start, err)
	return out, err
}

func (t *tokenizationUseCaseWithMetrics) Delete(ctx context.Context, vaultName, token string) (bool, error) {
	start := time.Now()
	deleted, err := t.next.Delete(ctx, vaultName, token)
	record(ctx, t.metrics, "delete", start, err)
	return deleted, err
}

func (t *tokenizationUseCaseWithMetrics) Query(
	ctx context.Context,
	vaultName string,
	value []byte,
	offset, limit int,
) ([]*vaultDomain.TokenRecord, error) {
	start := time.Now()
	records, err := t.next.Query(ctx, vaultName, value, offset, limit)
	record(ctx, t.metrics, "query", start, err)
	return records, err
}

func (t *tokenizationUseCaseWithMetrics) CleanupExpired(
	ctx context.Context,
	before time.Time,
	dryRun bool,
) (int64, error) {
	start := time.Now()
	count, err := t.next.CleanupExpired(ctx, before, dryRun)
	record(ctx, t.metrics, "cleanup_expired", start, err)
	return count, err
}

type vaultUseCaseWithMetrics struct {
	next    VaultUseCase
	metrics metrics.BusinessMetrics
}

// NewVaultUseCaseWithMetrics wraps a VaultUseCase with metrics recording.
// Read-only calls are passed through unmeasured.
func NewVaultUseCaseWithMetrics(useCase VaultUseCase, m metrics.BusinessMetrics) VaultUseCase {
	return &vaultUseCaseWithMetrics{next: useCase, metrics: m}
}

func (v *vaultUseCaseWithMetrics) Create(
	ctx context.Context,
	input *vaultDomain.CreateVaultInput,
) (*vaultDomain.Vault, error) {
	start := time.Now()
	vault, err := v.next.Create(ctx, input)
	record(ctx, v.metrics, "create_vault", start, err)
	return vault, err
}

func (v *vaultUseCaseWithMetrics) Get(ctx context.Context, name string) (*vaultDomain.Vault, error) {
	return v.next.Get(ctx, name)
}

func (v *vaultUseCaseWithMetrics) List(ctx context.Context, offset, limit int) ([]*vaultDomain.Vault, error) {
	return v.next.List(ctx, offset, limit)
}

func (v *vaultUseCaseWithMetrics) Status(ctx context.Context, name string) (*vaultDomain.VaultStatus, error) {
	return v.next.Status(ctx, name)
}

func (v *vaultUseCaseWithMetrics) RotateKey(ctx context.Context, name string) (*vaultDomain.Vault, error) {
	start := time.Now()
	vault, err := v.next.RotateKey(ctx, name)
	record(ctx, v.metrics, "rotate", start, err)
	return vault, err
}

func (v *vaultUseCaseWithMetrics) RewrapKeys(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := v.next.RewrapKeys(ctx)
	record(ctx, v.metrics, "rewrap", start, err)
	return n, err
}
