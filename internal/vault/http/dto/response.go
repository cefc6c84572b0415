package dto

import (
	"time"

	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

// VaultResponse is the public view of a vault. Key material is never included.
type VaultResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Classification   string    `json:"classification"`
	FormatType       string    `json:"format_type"`
	TokenLength      int       `json:"token_length"`
	Algorithm        string    `json:"algorithm"`
	ActiveKeyVersion int       `json:"active_key_version"`
	TokenTTLSeconds  int64     `json:"token_ttl_seconds"`
	CreatedAt        time.Time `json:"created_at"`
}

// MapVaultToResponse converts a vault to its response.
func MapVaultToResponse(v *vaultDomain.Vault) VaultResponse {
	return VaultResponse{
		ID:               v.ID.String(),
		Name:             v.Name,
		Classification:   string(v.Classification),
		FormatType:       string(v.Format),
		TokenLength:      v.TokenLength,
		Algorithm:        string(v.Algorithm),
		ActiveKeyVersion: v.ActiveKeyVersion,
		TokenTTLSeconds:  int64(v.TokenTTL / time.Second),
		CreatedAt:        v.CreatedAt,
	}
}

// ListVaultsResponse wraps a page of vaults.
type ListVaultsResponse struct {
	Data []VaultResponse `json:"data"`
}

// MapVaultsToListResponse converts a page of vaults.
func MapVaultsToListResponse(vaults []*vaultDomain.Vault) ListVaultsResponse {
	data := make([]VaultResponse, 0, len(vaults))
	for _, v := range vaults {
		data = append(data, MapVaultToResponse(v))
	}
	return ListVaultsResponse{Data: data}
}

// VaultStatusResponse adds operational counters to a vault.
type VaultStatusResponse struct {
	VaultResponse
	KeyVersions int   `json:"key_versions"`
	TokenCount  int64 `json:"token_count"`
}

// MapVaultStatusToResponse converts a vault status.
func MapVaultStatusToResponse(s *vaultDomain.VaultStatus) VaultStatusResponse {
	return VaultStatusResponse{
		VaultResponse: MapVaultToResponse(s.Vault),
		KeyVersions:   s.KeyVersions,
		TokenCount:    s.TokenCount,
	}
}

// TokenizeResponse is returned once the record is stored.
type TokenizeResponse struct {
	Token      string     `json:"token"`
	KeyVersion int        `json:"key_version"`
	Mask       string     `json:"mask,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// MapTokenizeOutputToResponse converts a tokenize result.
func MapTokenizeOutputToResponse(out *vaultDomain.TokenizeOutput) TokenizeResponse {
	return TokenizeResponse{
		Token:      out.Token,
		KeyVersion: out.KeyVersion,
		Mask:       out.Mask,
		CreatedAt:  out.CreatedAt,
		ExpiresAt:  out.ExpiresAt,
	}
}

// BatchTokenizeItem is one entry of a batch tokenize response, in request
// order. Status is the HTTP status the item would have had on its own.
type BatchTokenizeItem struct {
	*TokenizeResponse
	Status  int    `json:"status"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// DetokenizeResponse carries the plaintext of an authorized detokenize.
type DetokenizeResponse struct {
	Value          string         `json:"value"`
	Classification string         `json:"classification"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// TokenRecordResponse describes a stored record without its sealed payload.
type TokenRecordResponse struct {
	Token          string         `json:"token"`
	KeyVersion     int            `json:"key_version"`
	Mask           string         `json:"mask,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	LastAccessedAt *time.Time     `json:"last_accessed_at,omitempty"`
	ExpiresAt      *time.Time     `json:"expires_at,omitempty"`
	Quarantined    bool           `json:"quarantined"`
}

// ListTokensResponse wraps a page of token records.
type ListTokensResponse struct {
	Data []TokenRecordResponse `json:"data"`
}

// MapRecordsToListResponse converts query results.
func MapRecordsToListResponse(records []*vaultDomain.TokenRecord) ListTokensResponse {
	data := make([]TokenRecordResponse, 0, len(records))
	for _, r := range records {
		data = append(data, TokenRecordResponse{
			Token:          r.Token,
			KeyVersion:     r.KeyVersion,
			Mask:           r.Mask,
			Metadata:       r.Metadata,
			CreatedAt:      r.CreatedAt,
			LastAccessedAt: r.LastAccessedAt,
			ExpiresAt:      r.ExpiresAt,
			Quarantined:    r.IsQuarantined(),
		})
	}
	return ListTokensResponse{Data: data}
}
