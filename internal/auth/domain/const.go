// Package domain defines clients, bearer tokens, capabilities and the signed
// audit log of token-rest.
package domain

// Capability is an operation a policy can grant on a path.
type Capability string

const (
	ReadCapability Capability = "read"

	WriteCapability Capability = "write"

	DeleteCapability Capability = "delete"

	// TokenizeCapability allows storing plaintext in a vault.
	TokenizeCapability Capability = "tokenize"

	// DetokenizeCapability allows reading plaintext back. It is never implied by
	// TokenizeCapability.
	DetokenizeCapability Capability = "detokenize"

	RotateCapability Capability = "rotate"
)

// ParseCapability validates a capability name.
func ParseCapability(s string) (Capability, error) {
	switch c := Capability(s); c {
	case ReadCapability, WriteCapability, DeleteCapability,
		TokenizeCapability, DetokenizeCapability, RotateCapability:
		return c, nil
	default:
		return "", ErrInvalidCapability
	}
}
