package http

import (
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	authDomain "github.com/allisson/token-rest/internal/auth/domain"
	"github.com/allisson/token-rest/internal/auth/usecase/mocks"
)

func testClient() *authDomain.Client {
	return &authDomain.Client{
		ID:       uuid.Must(uuid.NewV7()),
		Name:     "billing",
		IsActive: true,
		Policies: []authDomain.PolicyDocument{
			{Path: "/v1/vaults/cards/*", Capabilities: []authDomain.Capability{authDomain.TokenizeCapability}},
			{Path: "/v1/vaults", Capabilities: []authDomain.Capability{authDomain.ReadCapability}},
		},
	}
}

func newAuthRouter(tokenUseCase *mocks.MockTokenUseCase, tokenService *mocks.MockTokenService) *gin.Engine {
	r := gin.New()
	r.Use(AuthenticationMiddleware(tokenUseCase, tokenService, testLogger()))
	r.GET("/v1/vaults", func(c *gin.Context) {
		client, ok := GetClient(c.Request.Context())
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, client.ID.String())
	})
	return r
}

func TestAuthenticationMiddleware(t *testing.T) {
	t.Run("Success_Bearer", func(t *testing.T) {
		tokenUseCase := &mocks.MockTokenUseCase{}
		tokenService := &mocks.MockTokenService{}
		client := testClient()

		tokenService.On("HashToken", "plain-token").Return("hashed-token")
		tokenUseCase.On("Authenticate", mock.Anything, "hashed-token").Return(client, nil)

		req := httptest.NewRequest(http.MethodGet, "/v1/vaults", nil)
		req.Header.Set("Authorization", "Bearer plain-token")
		w := httptest.NewRecorder()
		newAuthRouter(tokenUseCase, tokenService).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, client.ID.String(), w.Body.String())
		tokenUseCase.AssertExpectations(t)
		tokenService.AssertExpectations(t)
	})

	t.Run("Success_BearerCaseInsensitive", func(t *testing.T) {
		tokenUseCase := &mocks.MockTokenUseCase{}
		tokenService := &mocks.MockTokenService{}
		client := testClient()

		tokenService.On("HashToken", "plain-token").Return("hashed-token")
		tokenUseCase.On("Authenticate", mock.Anything, "hashed-token").Return(client, nil)

		req := httptest.NewRequest(http.MethodGet, "/v1/vaults", nil)
		req.Header.Set("Authorization", "bearer plain-token")
		w := httptest.NewRecorder()
		newAuthRouter(tokenUseCase, tokenService).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Success_Basic", func(t *testing.T) {
		tokenUseCase := &mocks.MockTokenUseCase{}
		tokenService := &mocks.MockTokenService{}
		client := testClient()

		tokenUseCase.On("AuthenticateSecret", mock.Anything, client.ID, "s3cret:with:colons").Return(client, nil)

		raw := base64.StdEncoding.EncodeToString([]byte(client.ID.String() + ":s3cret:with:colons"))
		req := httptest.NewRequest(http.MethodGet, "/v1/vaults", nil)
		req.Header.Set("Authorization", "Basic "+raw)
		w := httptest.NewRecorder()
		newAuthRouter(tokenUseCase, tokenService).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		tokenUseCase.AssertExpectations(t)
	})

	t.Run("Error_InvalidToken", func(t *testing.T) {
		tokenUseCase := &mocks.MockTokenUseCase{}
		tokenService := &mocks.MockTokenService{}

		tokenService.On("HashToken", "stale").Return("stale-hash")
		tokenUseCase.On("Authenticate", mock.Anything, "stale-hash").Return(nil, authDomain.ErrInvalidToken)

		req := httptest.NewRequest(http.MethodGet, "/v1/vaults", nil)
		req.Header.Set("Authorization", "Bearer stale")
		w := httptest.NewRecorder()
		newAuthRouter(tokenUseCase, tokenService).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"unauthorized","message":"Authentication is required"}`, w.Body.String())
	})

	t.Run("Error_InactiveClientBasic", func(t *testing.T) {
		tokenUseCase := &mocks.MockTokenUseCase{}
		tokenService := &mocks.MockTokenService{}
		clientID := uuid.Must(uuid.NewV7())

		tokenUseCase.On("AuthenticateSecret", mock.Anything, clientID, "secret").
			Return(nil, authDomain.ErrClientInactive)

		raw := base64.StdEncoding.EncodeToString([]byte(clientID.String() + ":secret"))
		req := httptest.NewRequest(http.MethodGet, "/v1/vaults", nil)
		req.Header.Set("Authorization", "Basic "+raw)
		w := httptest.NewRecorder()
		newAuthRouter(tokenUseCase, tokenService).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	malformed := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"scheme only", "Bearer"},
		{"empty credentials", "Bearer   "},
		{"unknown scheme", "Digest abc"},
		{"basic not base64", "Basic %%%"},
		{"basic without colon", "Basic " + base64.StdEncoding.EncodeToString([]byte("nocolon"))},
		{"basic bad client id", "Basic " + base64.StdEncoding.EncodeToString([]byte("client:secret"))},
	}
	for _, tt := range malformed {
		t.Run("Error_Malformed_"+tt.name, func(t *testing.T) {
			tokenUseCase := &mocks.MockTokenUseCase{}
			tokenService := &mocks.MockTokenService{}

			req := httptest.NewRequest(http.MethodGet, "/v1/vaults", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			newAuthRouter(tokenUseCase, tokenService).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			tokenUseCase.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything)
			tokenUseCase.AssertNotCalled(t, "AuthenticateSecret", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func newAuthzRouter(client *authDomain.Client, capability authDomain.Capability) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if client != nil {
			c.Request = c.Request.WithContext(WithClient(c.Request.Context(), client))
		}
		c.Next()
	})
	handler := func(c *gin.Context) {
		got, _ := GetCapability(c.Request.Context())
		c.String(http.StatusOK, string(got))
	}
	r.POST("/v1/vaults/:name/tokens", AuthorizationMiddleware(capability, testLogger()), handler)
	r.GET("/v1/vaults", AuthorizationMiddleware(capability, testLogger()), handler)
	return r
}

func TestAuthorizationMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		client     *authDomain.Client
		capability authDomain.Capability
		method     string
		path       string
		wantStatus int
	}{
		{"allowed by wildcard", testClient(), authDomain.TokenizeCapability, http.MethodPost,
			"/v1/vaults/cards/tokens", http.StatusOK},
		{"allowed exact path", testClient(), authDomain.ReadCapability, http.MethodGet,
			"/v1/vaults", http.StatusOK},
		{"wrong vault", testClient(), authDomain.TokenizeCapability, http.MethodPost,
			"/v1/vaults/ssn/tokens", http.StatusForbidden},
		{"missing capability", testClient(), authDomain.WriteCapability, http.MethodGet,
			"/v1/vaults", http.StatusForbidden},
		{"no client", nil, authDomain.ReadCapability, http.MethodGet,
			"/v1/vaults", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			newAuthzRouter(tt.client, tt.capability).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, string(tt.capability), w.Body.String())
			}
		})
	}
}

func newAuditRouter(
	auditLogUseCase *mocks.MockAuditLogUseCase,
	client *authDomain.Client,
	capability authDomain.Capability,
	status int,
) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		ctx := WithClient(c.Request.Context(), client)
		c.Request = c.Request.WithContext(WithCapability(ctx, capability))
		c.Next()
	})
	r.Use(AuditMiddleware(auditLogUseCase, testLogger()))
	r.Any("/*path", func(c *gin.Context) { c.Status(status) })
	return r
}

func TestAuditMiddleware(t *testing.T) {
	tests := []struct {
		status      int
		wantOutcome string
	}{
		{http.StatusCreated, authDomain.OutcomeAllowed},
		{http.StatusForbidden, authDomain.OutcomeDenied},
		{http.StatusNotFound, authDomain.OutcomeNotFound},
		{http.StatusUnprocessableEntity, authDomain.OutcomeError},
		{http.StatusInternalServerError, authDomain.OutcomeError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			auditLogUseCase := &mocks.MockAuditLogUseCase{}
			client := testClient()

			auditLogUseCase.On("Create", mock.Anything, mock.MatchedBy(func(entry *authDomain.AuditLog) bool {
				return entry.ClientID == client.ID &&
					entry.Capability == authDomain.TokenizeCapability &&
					entry.Path == "/v1/vaults/cards/tokens" &&
					entry.Outcome == tt.wantOutcome &&
					entry.Metadata["method"] == http.MethodPost &&
					entry.Metadata["status"] == tt.status
			})).Return(nil)

			req := httptest.NewRequest(http.MethodPost, "/v1/vaults/cards/tokens", nil)
			w := httptest.NewRecorder()
			newAuditRouter(auditLogUseCase, client, authDomain.TokenizeCapability, tt.status).ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			auditLogUseCase.AssertExpectations(t)
		})
	}

	t.Run("SkipsDetokenize", func(t *testing.T) {
		auditLogUseCase := &mocks.MockAuditLogUseCase{}

		req := httptest.NewRequest(http.MethodGet, "/v1/vaults/cards/tokens/4111110000001111", nil)
		w := httptest.NewRecorder()
		newAuditRouter(auditLogUseCase, testClient(), authDomain.DetokenizeCapability, http.StatusOK).
			ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		auditLogUseCase.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("AuditsDetokenizePolicyDenial", func(t *testing.T) {
		auditLogUseCase := &mocks.MockAuditLogUseCase{}
		client := testClient()

		auditLogUseCase.On("Create", mock.Anything, mock.MatchedBy(func(entry *authDomain.AuditLog) bool {
			return entry.Capability == authDomain.DetokenizeCapability &&
				entry.Outcome == authDomain.OutcomeDenied
		})).Return(nil)

		r := gin.New()
		r.Use(func(c *gin.Context) {
			c.Request = c.Request.WithContext(WithClient(c.Request.Context(), client))
			c.Next()
		})
		r.Use(AuditMiddleware(auditLogUseCase, testLogger()))
		r.GET("/v1/vaults/:name/tokens/:token",
			AuthorizationMiddleware(authDomain.DetokenizeCapability, testLogger()),
			func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/v1/vaults/cards/tokens/4111110000001111", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		auditLogUseCase.AssertExpectations(t)
	})

	t.Run("StoreFailureKeepsResponse", func(t *testing.T) {
		auditLogUseCase := &mocks.MockAuditLogUseCase{}
		auditLogUseCase.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

		req := httptest.NewRequest(http.MethodGet, "/v1/vaults", nil)
		w := httptest.NewRecorder()
		newAuditRouter(auditLogUseCase, testClient(), authDomain.ReadCapability, http.StatusOK).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		auditLogUseCase.AssertExpectations(t)
	})
}

func TestOutcomeFromStatus(t *testing.T) {
	assert.Equal(t, authDomain.OutcomeAllowed, outcomeFromStatus(http.StatusNoContent))
	assert.Equal(t, authDomain.OutcomeDenied, outcomeFromStatus(http.StatusUnauthorized))
	assert.Equal(t, authDomain.OutcomeNotFound, outcomeFromStatus(http.StatusNotFound))
	assert.Equal(t, authDomain.OutcomeError, outcomeFromStatus(http.StatusServiceUnavailable))
}
