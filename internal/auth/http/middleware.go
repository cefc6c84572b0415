package http

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authDomain "github.com/allisson/token-rest/internal/auth/domain"
	authService "github.com/allisson/token-rest/internal/auth/service"
	authUseCase "github.com/allisson/token-rest/internal/auth/usecase"
	apperrors "github.com/allisson/token-rest/internal/errors"
	"github.com/allisson/token-rest/internal/httputil"
)

// AuthenticationMiddleware resolves the Authorization header to a client and
// stores it in the request context.
//
// Two schemes are accepted, both case insensitive:
//
//	Authorization: Bearer <token issued by POST /v1/token>
//	Authorization: Basic base64(<client_id>:<client_secret>)
//
// Missing or malformed headers and bad credentials return 401.
func AuthenticationMiddleware(
	tokenUseCase authUseCase.TokenUseCase,
	tokenService authService.TokenService,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, err := authenticate(c.Request.Context(), c.GetHeader("Authorization"), tokenUseCase, tokenService)
		if err != nil {
			logger.Debug("authentication failed", slog.Any("error", err))
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(WithClient(c.Request.Context(), client))
		c.Next()
	}
}

func authenticate(
	ctx context.Context,
	header string,
	tokenUseCase authUseCase.TokenUseCase,
	tokenService authService.TokenService,
) (*authDomain.Client, error) {
	scheme, credentials, ok := strings.Cut(header, " ")
	credentials = strings.TrimSpace(credentials)
	if !ok || credentials == "" {
		return nil, apperrors.Wrap(apperrors.ErrUnauthorized, "missing or malformed authorization header")
	}

	switch {
	case strings.EqualFold(scheme, "bearer"):
		return tokenUseCase.Authenticate(ctx, tokenService.HashToken(credentials))

	case strings.EqualFold(scheme, "basic"):
		decoded, err := base64.StdEncoding.DecodeString(credentials)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrUnauthorized, "malformed basic credentials")
		}
		rawID, secret, ok := strings.Cut(string(decoded), ":")
		if !ok {
			return nil, apperrors.Wrap(apperrors.ErrUnauthorized, "malformed basic credentials")
		}
		clientID, err := uuid.Parse(rawID)
		if err != nil {
			return nil, authDomain.ErrInvalidCredentials
		}
		return tokenUseCase.AuthenticateSecret(ctx, clientID, secret)

	default:
		return nil, apperrors.Wrap(apperrors.ErrUnauthorized, "unsupported authorization scheme")
	}
}

const policyDeniedKey = "auth.policy_denied"

// AuthorizationMiddleware requires the authenticated client to hold capability
// on the request path. It must run after AuthenticationMiddleware.
func AuthorizationMiddleware(capability authDomain.Capability, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, ok := GetClient(c.Request.Context())
		if !ok || client == nil {
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(WithCapability(c.Request.Context(), capability))

		path := c.Request.URL.Path
		if !client.IsAllowed(path, capability) {
			logger.Debug("authorization failed",
				slog.String("client_id", client.ID.String()),
				slog.String("path", path),
				slog.String("capability", string(capability)))
			c.Set(policyDeniedKey, true)
			httputil.HandleErrorGin(c, apperrors.ErrForbidden, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}

// AuditMiddleware writes a signed audit entry for every authenticated request
// that reached AuthorizationMiddleware, once the handler returns. Detokenize
// requests that passed the policy check are skipped because the engine audits
// them itself with the gate outcome.
func AuditMiddleware(auditLogUseCase authUseCase.AuditLogUseCase, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		ctx := c.Request.Context()
		capability, ok := GetCapability(ctx)
		if !ok {
			return
		}
		if capability == authDomain.DetokenizeCapability && !c.GetBool(policyDeniedKey) {
			return
		}
		client, ok := GetClient(ctx)
		if !ok || client == nil {
			return
		}

		entry := &authDomain.AuditLog{
			RequestID:  requestid.Get(c),
			ClientID:   client.ID,
			Capability: capability,
			Path:       c.Request.URL.Path,
			Outcome:    outcomeFromStatus(c.Writer.Status()),
			Metadata: map[string]any{
				"method":      c.Request.Method,
				"status":      c.Writer.Status(),
				"remote_addr": c.ClientIP(),
			},
		}
		// the response is already written; the request context may be gone
		if err := auditLogUseCase.Create(context.WithoutCancel(ctx), entry); err != nil {
			logger.Error("failed to write audit log",
				slog.Any("error", err),
				slog.String("path", entry.Path),
				slog.Bool("alert", true))
		}
	}
}

func outcomeFromStatus(status int) string {
	switch {
	case status < http.StatusBadRequest:
		return authDomain.OutcomeAllowed
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return authDomain.OutcomeDenied
	case status == http.StatusNotFound:
		return authDomain.OutcomeNotFound
	default:
		return authDomain.OutcomeError
	}
}
