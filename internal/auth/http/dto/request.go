// Package dto provides the request and response bodies of the token and audit
// log endpoints.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/token-rest/internal/validation"
)

// IssueTokenRequest carries client credentials.
type IssueTokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"` //nolint:gosec // request credential
}

// Validate checks if the issue token request is valid.
func (r *IssueTokenRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ClientID,
			validation.Required,
			customValidation.UUID,
		),
		validation.Field(&r.ClientSecret,
			validation.Required,
			customValidation.NotBlank,
		),
	)
}
