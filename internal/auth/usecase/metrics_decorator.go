package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/token-rest/internal/auth/domain"
	"github.com/allisson/token-rest/internal/metrics"
	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

func record(ctx context.Context, m metrics.BusinessMetrics, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.RecordOperation(ctx, "auth", operation, status)
	m.RecordDuration(ctx, "auth", operation, time.Since(start), status)
}

type clientUseCaseWithMetrics struct {
	next    ClientUseCase
	metrics metrics.BusinessMetrics
}

// NewClientUseCaseWithMetrics wraps a ClientUseCase with metrics recording.
func NewClientUseCaseWithMetrics(useCase ClientUseCase, m metrics.BusinessMetrics) ClientUseCase {
	return &clientUseCaseWithMetrics{next: useCase, metrics: m}
}

func (c *clientUseCaseWithMetrics) Create(
	ctx context.Context,
	input *authDomain.CreateClientInput,
) (*authDomain.CreateClientOutput, error) {
	start := time.Now()
	output, err := c.next.Create(ctx, input)
	record(ctx, c.metrics, "client_create", start, err)
	return output, err
}

func (c *clientUseCaseWithMetrics) Update(
	ctx context.Context,
	clientID uuid.UUID,
	input *authDomain.UpdateClientInput,
) error {
	start := time.Now()
	err := c.next.Update(ctx, clientID, input)
	record(ctx, c.metrics, "client_update", start, err)
	return err
}

func (c *clientUseCaseWithMetrics) Get(ctx context.Context, clientID uuid.UUID) (*authDomain.Client, error) {
	return c.next.Get(ctx, clientID)
}

func (c *clientUseCaseWithMetrics) List(ctx context.Context, offset, limit int) ([]*authDomain.Client, error) {
	return c.next.List(ctx, offset, limit)
}

type tokenUseCaseWithMetrics struct {
	next    TokenUseCase
	metrics metrics.BusinessMetrics
}

// NewTokenUseCaseWithMetrics wraps a TokenUseCase with metrics recording.
func NewTokenUseCaseWithMetrics(useCase TokenUseCase, m metrics.BusinessMetrics) TokenUseCase {
	return &tokenUseCaseWithMetrics{next: useCase, metrics: m}
}

func (t *tokenUseCaseWithMetrics) Issue(
	ctx context.Context,
	input *authDomain.IssueTokenInput,
) (*authDomain.IssueTokenOutput, error) {
	start := time.Now()
	output, err := t.next.Issue(ctx, input)
	record(ctx, t.metrics, "token_issue", start, err)
	return output, err
}

func (t *tokenUseCaseWithMetrics) Authenticate(ctx context.Context, tokenHash string) (*authDomain.Client, error) {
	start := time.Now()
	client, err := t.next.Authenticate(ctx, tokenHash)
	record(ctx, t.metrics, "authenticate", start, err)
	return client, err
}

func (t *tokenUseCaseWithMetrics) AuthenticateSecret(
	ctx context.Context,
	clientID uuid.UUID,
	secret string,
) (*authDomain.Client, error) {
	start := time.Now()
	client, err := t.next.AuthenticateSecret(ctx, clientID, secret)
	record(ctx, t.metrics, "authenticate_basic", start, err)
	return client, err
}

type auditLogUseCaseWithMetrics struct {
	next    AuditLogUseCase
	metrics metrics.BusinessMetrics
}

// NewAuditLogUseCaseWithMetrics wraps an AuditLogUseCase with metrics recording.
func NewAuditLogUseCaseWithMetrics(useCase AuditLogUseCase, m metrics.BusinessMetrics) AuditLogUseCase {
	return &auditLogUseCaseWithMetrics{next: useCase, metrics: m}
}

func (a *auditLogUseCaseWithMetrics) Create(ctx context.Context, entry *authDomain.AuditLog) error {
	start := time.Now()
	err := a.next.Create(ctx, entry)
	record(ctx, a.metrics, "audit_log_create", start, err)
	return err
}

func (a *auditLogUseCaseWithMetrics) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*authDomain.AuditLog, error) {
	start := time.Now()
	logs, err := a.next.List(ctx, offset, limit, createdAtFrom, createdAtTo)
	record(ctx, a.metrics, "audit_log_list", start, err)
	return logs, err
}

func (a *auditLogUseCaseWithMetrics) Verify(
	ctx context.Context,
	createdAtFrom, createdAtTo *time.Time,
) (*authDomain.AuditVerification, error) {
	start := time.Now()
	result, err := a.next.Verify(ctx, createdAtFrom, createdAtTo)
	record(ctx, a.metrics, "audit_log_verify", start, err)
	return result, err
}

func (a *auditLogUseCaseWithMetrics) RecordAccess(ctx context.Context, event vaultDomain.AccessEvent) error {
	start := time.Now()
	err := a.next.RecordAccess(ctx, event)
	record(ctx, a.metrics, "audit_access", start, err)
	return err
}
