// Package http provides the gin handlers of the vault API: vault management
// and token operations.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/token-rest/internal/httputil"
	customValidation "github.com/allisson/token-rest/internal/validation"
	"github.com/allisson/token-rest/internal/vault/http/dto"
	vaultUseCase "github.com/allisson/token-rest/internal/vault/usecase"
)

// VaultHandler handles vault management requests.
type VaultHandler struct {
	vaultUseCase vaultUseCase.VaultUseCase
	logger       *slog.Logger
}

// NewVaultHandler creates a VaultHandler.
func NewVaultHandler(vaultUseCase vaultUseCase.VaultUseCase, logger *slog.Logger) *VaultHandler {
	return &VaultHandler{vaultUseCase: vaultUseCase, logger: logger}
}

// CreateHandler creates a vault with its MAC key and first key version.
// POST /v1/vaults - Requires WriteCapability. Returns 201 Created.
func (h *VaultHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateVaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	vault, err := h.vaultUseCase.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapVaultToResponse(vault))
}

// ListHandler lists vaults ordered by name.
// GET /v1/vaults?offset=0&limit=50 - Requires ReadCapability.
func (h *VaultHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	vaults, err := h.vaultUseCase.List(c.Request.Context(), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapVaultsToListResponse(vaults))
}

// StatusHandler returns a vault with its key version and record counts.
// GET /v1/vaults/:name - Requires ReadCapability.
func (h *VaultHandler) StatusHandler(c *gin.Context) {
	status, err := h.vaultUseCase.Status(c.Request.Context(), c.Param("name"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapVaultStatusToResponse(status))
}

// RotateHandler activates a new key version. Existing records keep their version.
// POST /v1/vaults/:name/rotate - Requires RotateCapability.
func (h *VaultHandler) RotateHandler(c *gin.Context) {
	vault, err := h.vaultUseCase.RotateKey(c.Request.Context(), c.Param("name"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapVaultToResponse(vault))
}
