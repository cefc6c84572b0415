package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/token-rest/internal/auth/domain"
	"github.com/allisson/token-rest/internal/auth/http/dto"
	"github.com/allisson/token-rest/internal/auth/usecase/mocks"
)

func createTestContext(method, path string, body any) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	return c, w
}

func TestTokenHandler_IssueTokenHandler(t *testing.T) {
	clientID := uuid.Must(uuid.NewV7())

	t.Run("Success", func(t *testing.T) {
		tokenUseCase := &mocks.MockTokenUseCase{}
		handler := NewTokenHandler(tokenUseCase, testLogger())
		expiresAt := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

		tokenUseCase.On("Issue", mock.Anything, &authDomain.IssueTokenInput{
			ClientID:     clientID,
			ClientSecret: "s3cret",
		}).Return(&authDomain.IssueTokenOutput{PlainToken: "plain-token", ExpiresAt: expiresAt}, nil)

		c, w := createTestContext(http.MethodPost, "/v1/token", map[string]string{
			"client_id":     clientID.String(),
			"client_secret": "s3cret",
		})
		handler.IssueTokenHandler(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp dto.IssueTokenResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "plain-token", resp.Token)
		assert.True(t, expiresAt.Equal(resp.ExpiresAt))
		tokenUseCase.AssertExpectations(t)
	})

	t.Run("Error_InvalidCredentials", func(t *testing.T) {
		tokenUseCase := &mocks.MockTokenUseCase{}
		handler := NewTokenHandler(tokenUseCase, testLogger())

		tokenUseCase.On("Issue", mock.Anything, mock.Anything).Return(nil, authDomain.ErrInvalidCredentials)

		c, w := createTestContext(http.MethodPost, "/v1/token", map[string]string{
			"client_id":     clientID.String(),
			"client_secret": "wrong",
		})
		handler.IssueTokenHandler(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Error_InvalidClientID", func(t *testing.T) {
		tokenUseCase := &mocks.MockTokenUseCase{}
		handler := NewTokenHandler(tokenUseCase, testLogger())

		c, w := createTestContext(http.MethodPost, "/v1/token", map[string]string{
			"client_id":     "billing",
			"client_secret": "s3cret",
		})
		handler.IssueTokenHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "client_id")
		tokenUseCase.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything)
	})

	t.Run("Error_MalformedBody", func(t *testing.T) {
		handler := NewTokenHandler(&mocks.MockTokenUseCase{}, testLogger())

		c, w := createTestContext(http.MethodPost, "/v1/token", "not an object")
		handler.IssueTokenHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuditLogHandler_ListHandler(t *testing.T) {
	t.Run("Success_WithFilters", func(t *testing.T) {
		auditLogUseCase := &mocks.MockAuditLogUseCase{}
		handler := NewAuditLogHandler(auditLogUseCase, testLogger())
		masterKeyID := "mk1"
		entry := &authDomain.AuditLog{
			ID:          uuid.Must(uuid.NewV7()),
			RequestID:   "req-1",
			ClientID:    uuid.Must(uuid.NewV7()),
			Capability:  authDomain.DetokenizeCapability,
			Path:        "/v1/vaults/cards/tokens/4111110000001111",
			Outcome:     authDomain.OutcomeDenied,
			Reason:      "governance denied",
			Signature:   []byte("sig"),
			MasterKeyID: &masterKeyID,
			IsSigned:    true,
			CreatedAt:   time.Now().UTC(),
		}
		from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC)

		auditLogUseCase.On("List", mock.Anything, 0, 20, &from, &to).
			Return([]*authDomain.AuditLog{entry}, nil)

		c, w := createTestContext(http.MethodGet,
			"/v1/audit-logs?limit=20&created_at_from=2026-10-01T00:00:00Z&created_at_to=2026-10-02T00:00:00Z", nil)
		handler.ListHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.ListAuditLogsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 1)
		assert.Equal(t, entry.ID.String(), resp.Data[0].ID)
		assert.Equal(t, "mk1", resp.Data[0].MasterKeyID)
		assert.NotContains(t, w.Body.String(), "signature")
		auditLogUseCase.AssertExpectations(t)
	})

	t.Run("Error_InvalidTime", func(t *testing.T) {
		handler := NewAuditLogHandler(&mocks.MockAuditLogUseCase{}, testLogger())

		c, w := createTestContext(http.MethodGet, "/v1/audit-logs?created_at_from=yesterday", nil)
		handler.ListHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "created_at_from")
	})

	t.Run("Error_InvertedRange", func(t *testing.T) {
		handler := NewAuditLogHandler(&mocks.MockAuditLogUseCase{}, testLogger())

		c, w := createTestContext(http.MethodGet,
			"/v1/audit-logs?created_at_from=2026-10-02T00:00:00Z&created_at_to=2026-10-01T00:00:00Z", nil)
		handler.ListHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Error_UseCase", func(t *testing.T) {
		auditLogUseCase := &mocks.MockAuditLogUseCase{}
		handler := NewAuditLogHandler(auditLogUseCase, testLogger())

		auditLogUseCase.On("List", mock.Anything, 0, 50, (*time.Time)(nil), (*time.Time)(nil)).
			Return(nil, errors.New("db down"))

		c, w := createTestContext(http.MethodGet, "/v1/audit-logs", nil)
		handler.ListHandler(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
