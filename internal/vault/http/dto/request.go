// Package dto provides the request and response bodies of the vault API.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/allisson/token-rest/internal/crypto/domain"
	customValidation "github.com/allisson/token-rest/internal/validation"
	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

const (
	// maxTTLSeconds caps per record and per vault TTLs at ten years.
	maxTTLSeconds = 10 * 365 * 24 * 60 * 60

	// MaxBatchSize bounds the items of one batch tokenize request.
	MaxBatchSize = 100
)

// CreateVaultRequest contains the parameters for creating a vault.
type CreateVaultRequest struct {
	Name            string `json:"name"`
	Classification  string `json:"classification"`         // "PAN" or "generic"
	FormatType      string `json:"format_type"`            // "numeric", "pan", "alphanumeric", "uuid"
	TokenLength     int    `json:"token_length,omitempty"` // 0 uses the format default
	Algorithm       string `json:"algorithm,omitempty"`    // defaults to "aes-gcm"
	TokenTTLSeconds int64  `json:"token_ttl_seconds,omitempty"`
}

// Validate checks if the create vault request is valid.
func (r *CreateVaultRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name,
			validation.Required,
			customValidation.NotBlank,
			customValidation.VaultName,
		),
		validation.Field(&r.Classification,
			validation.Required,
			customValidation.Classification,
		),
		validation.Field(&r.FormatType,
			validation.Required,
			customValidation.FormatType,
		),
		validation.Field(&r.TokenLength,
			validation.Min(0),
			validation.Max(vaultDomain.MaxTokenLength),
		),
		validation.Field(&r.Algorithm,
			customValidation.Algorithm,
		),
		validation.Field(&r.TokenTTLSeconds,
			validation.Min(int64(0)),
			validation.Max(int64(maxTTLSeconds)),
		),
	)
}

// ToInput maps the request onto the domain input.
func (r *CreateVaultRequest) ToInput() *vaultDomain.CreateVaultInput {
	return &vaultDomain.CreateVaultInput{
		Name:           r.Name,
		Classification: vaultDomain.Classification(r.Classification),
		Format:         vaultDomain.FormatType(r.FormatType),
		TokenLength:    r.TokenLength,
		Algorithm:      cryptoDomain.Algorithm(r.Algorithm),
		TokenTTL:       time.Duration(r.TokenTTLSeconds) * time.Second,
	}
}

// TokenizeRequest contains the value to tokenize.
type TokenizeRequest struct {
	Value      string         `json:"value"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	TTLSeconds *int64         `json:"ttl_seconds,omitempty"`
}

// Validate checks if the tokenize request is valid. Shape rules of the vault
// classification are enforced by the use case.
func (r *TokenizeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Value,
			validation.Required,
			validation.Length(1, vaultDomain.MaxGenericPlaintextSize),
		),
		validation.Field(&r.TTLSeconds,
			validation.When(r.TTLSeconds != nil, validation.Min(int64(1)), validation.Max(int64(maxTTLSeconds))),
		),
	)
}

// ToInput maps the request onto the domain input.
func (r *TokenizeRequest) ToInput() *vaultDomain.TokenizeInput {
	input := &vaultDomain.TokenizeInput{
		Plaintext: []byte(r.Value),
		Metadata:  r.Metadata,
	}
	if r.TTLSeconds != nil {
		input.TTL = time.Duration(*r.TTLSeconds) * time.Second
	}
	return input
}

// QueryTokensRequest carries the value to look up. It travels in the body so
// the plaintext never shows up in URLs or access logs.
type QueryTokensRequest struct {
	Value string `json:"value"`
}

// Validate checks if the query request is valid.
func (r *QueryTokensRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Value,
			validation.Required,
			validation.Length(1, vaultDomain.MaxGenericPlaintextSize),
		),
	)
}
