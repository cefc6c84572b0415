package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	authHTTP "github.com/allisson/token-rest/internal/auth/http"
	cryptoDomain "github.com/allisson/token-rest/internal/crypto/domain"
	apperrors "github.com/allisson/token-rest/internal/errors"
	"github.com/allisson/token-rest/internal/httputil"
	customValidation "github.com/allisson/token-rest/internal/validation"
	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
	"github.com/allisson/token-rest/internal/vault/http/dto"
	vaultUseCase "github.com/allisson/token-rest/internal/vault/usecase"
)

// TokenHandler handles token operations inside a vault.
type TokenHandler struct {
	tokenizationUseCase vaultUseCase.TokenizationUseCase
	logger              *slog.Logger
}

// NewTokenHandler creates a TokenHandler.
func NewTokenHandler(tokenizationUseCase vaultUseCase.TokenizationUseCase, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{tokenizationUseCase: tokenizationUseCase, logger: logger}
}

// TokenizeHandler stores a value and returns its token. A JSON array body
// tokenizes each item, see tokenizeBatch.
// POST /v1/vaults/:name/tokens - Requires TokenizeCapability. Returns 201 Created.
func (h *TokenHandler) TokenizeHandler(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		httputil.HandleBadRequestGin(c, errors.New("failed to read request body"), h.logger)
		return
	}
	if trimmed := bytes.TrimLeft(body, " \t\r\n"); len(trimmed) > 0 && trimmed[0] == '[' {
		h.tokenizeBatch(c, body)
		return
	}

	var req dto.TokenizeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httputil.HandleBadRequestGin(c, errors.New("request body must be a JSON object or array"), h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input := req.ToInput()
	defer cryptoDomain.Zero(input.Plaintext)

	out, err := h.tokenizationUseCase.Tokenize(c.Request.Context(), c.Param("name"), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapTokenizeOutputToResponse(out))
}

// tokenizeBatch answers with one item per request entry, in order. Every item
// costs one rate limit unit; items past the caller's budget are not tokenized
// and report 429. The response is 201 when all items succeed and 207 otherwise.
func (h *TokenHandler) tokenizeBatch(c *gin.Context, body []byte) {
	var reqs []dto.TokenizeRequest
	if err := json.Unmarshal(body, &reqs); err != nil {
		httputil.HandleBadRequestGin(c, errors.New("request body must be a JSON object or array"), h.logger)
		return
	}
	if len(reqs) == 0 || len(reqs) > dto.MaxBatchSize {
		httputil.HandleBadRequestGin(c,
			fmt.Errorf("batch must hold between 1 and %d items", dto.MaxBatchSize), h.logger)
		return
	}

	ctx := c.Request.Context()
	vaultName := c.Param("name")
	granted := 1 + authHTTP.ConsumeRateLimit(c, len(reqs)-1)

	status := http.StatusCreated
	items := make([]dto.BatchTokenizeItem, len(reqs))
	for i := range reqs {
		item := h.tokenizeItem(ctx, vaultName, &reqs[i], i < granted)
		if item.Status != http.StatusCreated {
			status = http.StatusMultiStatus
		}
		items[i] = item
	}

	c.JSON(status, items)
}

func (h *TokenHandler) tokenizeItem(
	ctx context.Context,
	vaultName string,
	req *dto.TokenizeRequest,
	allowed bool,
) dto.BatchTokenizeItem {
	if !allowed {
		return dto.BatchTokenizeItem{
			Status:  http.StatusTooManyRequests,
			Error:   "rate_limit_exceeded",
			Message: "Item not processed, rate limit exceeded",
		}
	}
	if err := req.Validate(); err != nil {
		return dto.BatchTokenizeItem{
			Status:  http.StatusUnprocessableEntity,
			Error:   "validation_error",
			Message: customValidation.WrapValidationError(err).Error(),
		}
	}

	input := req.ToInput()
	defer cryptoDomain.Zero(input.Plaintext)

	out, err := h.tokenizationUseCase.Tokenize(ctx, vaultName, input)
	if err != nil {
		status, resp := httputil.MapError(err)
		h.logger.Error("batch item failed",
			slog.Int("status_code", status),
			slog.String("error_code", resp.Error),
			slog.Any("error", err),
			slog.Bool("alert", apperrors.IsOperational(err)),
		)
		return dto.BatchTokenizeItem{Status: status, Error: resp.Error, Message: resp.Message}
	}

	resp := dto.MapTokenizeOutputToResponse(out)
	return dto.BatchTokenizeItem{TokenizeResponse: &resp, Status: http.StatusCreated}
}

// DetokenizeHandler returns the value behind a token.
// GET /v1/vaults/:name/tokens/:token - Requires DetokenizeCapability and a
// governance allow. Unknown tokens and denials share one 403 response so the
// caller cannot learn which tokens exist.
func (h *TokenHandler) DetokenizeHandler(c *gin.Context) {
	out, err := h.tokenizationUseCase.Detokenize(
		c.Request.Context(),
		c.Param("name"),
		c.Param("token"),
		requesterFrom(c),
	)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) || apperrors.Is(err, apperrors.ErrUnauthorized) {
			httputil.HandleAccessDeniedGin(c, err, h.logger)
			return
		}
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	// plaintext is zeroed once encoded
	defer cryptoDomain.Zero(out.Plaintext)

	c.JSON(http.StatusOK, dto.DetokenizeResponse{
		Value:          string(out.Plaintext),
		Classification: string(out.Classification),
		Metadata:       out.Metadata,
	})
}

// DeleteHandler removes a token. Deleting an absent token still returns 204.
// DELETE /v1/vaults/:name/tokens/:token - Requires DeleteCapability.
func (h *TokenHandler) DeleteHandler(c *gin.Context) {
	if _, err := h.tokenizationUseCase.Delete(c.Request.Context(), c.Param("name"), c.Param("token")); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// QueryHandler lists the tokens issued for a value, without plaintext.
// POST /v1/vaults/:name/tokens/query?offset=0&limit=50 with {"value": "..."} -
// Requires ReadCapability.
func (h *TokenHandler) QueryHandler(c *gin.Context) {
	var req dto.QueryTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, errors.New("request body must be a JSON object"), h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	records, err := h.tokenizationUseCase.Query(c.Request.Context(), c.Param("name"), []byte(req.Value), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRecordsToListResponse(records))
}

func requesterFrom(c *gin.Context) vaultDomain.RequesterContext {
	requester := vaultDomain.RequesterContext{
		RequestID:  requestid.Get(c),
		RemoteAddr: c.ClientIP(),
	}
	if client, ok := authHTTP.GetClient(c.Request.Context()); ok && client != nil {
		requester.ClientID = client.ID
		requester.ClientName = client.Name
	}
	return requester
}
