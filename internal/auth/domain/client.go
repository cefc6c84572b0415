package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PolicyDocument grants capabilities on a path pattern.
type PolicyDocument struct {
	Path         string       `json:"path"`         // supports "*", trailing "/*" and single segment "*"
	Capabilities []Capability `json:"capabilities"`
}

// Client is an API caller. Secret holds the Argon2id hash, never the plain secret.
type Client struct {
	ID        uuid.UUID
	Secret    string //nolint:gosec // hashed client secret
	Name      string
	IsActive  bool
	Policies  []PolicyDocument
	CreatedAt time.Time
}

// matchPath reports whether requestPath matches policyPath.
//
//   - "*" matches any path
//   - "/v1/vaults/*" matches "/v1/vaults/cards" and "/v1/vaults/cards/tokens"
//   - "/v1/vaults/*/rotate" matches "/v1/vaults/cards/rotate" only
//   - "/v1/vaults/*/classifications/PAN" matches one vault segment
func matchPath(policyPath, requestPath string) bool {
	if policyPath == "*" {
		return true
	}

	if !strings.Contains(policyPath, "*") {
		return policyPath == requestPath
	}

	if strings.HasSuffix(policyPath, "/*") {
		prefix := strings.TrimSuffix(policyPath, "/*")
		return strings.HasPrefix(requestPath, prefix+"/")
	}

	policyParts := strings.Split(policyPath, "/")
	requestParts := strings.Split(requestPath, "/")
	if len(policyParts) != len(requestParts) {
		return false
	}

	for i := range policyParts {
		if policyParts[i] != "*" && policyParts[i] != requestParts[i] {
			return false
		}
	}
	return true
}

// IsAllowed reports whether any policy grants capability on path. Matching is
// case sensitive.
func (c *Client) IsAllowed(path string, capability Capability) bool {
	if path == "" || capability == "" {
		return false
	}

	for _, policy := range c.Policies {
		if matchPath(policy.Path, path) && slices.Contains(policy.Capabilities, capability) {
			return true
		}
	}
	return false
}

// CreateClientInput carries the parameters of a new client. The secret is
// always generated.
type CreateClientInput struct {
	Name     string
	IsActive bool
	Policies []PolicyDocument
}

// UpdateClientInput replaces the mutable fields of a client.
type UpdateClientInput struct {
	Name     string
	IsActive bool
	Policies []PolicyDocument
}

// CreateClientOutput is returned once; the plain secret cannot be retrieved again.
type CreateClientOutput struct {
	ID          uuid.UUID
	PlainSecret string
}
