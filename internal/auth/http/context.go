// Package http provides the authentication, authorization, audit and rate
// limit middleware of the API together with the token and audit log handlers.
package http

import (
	"context"

	authDomain "github.com/allisson/token-rest/internal/auth/domain"
)

type clientKey struct{}

type capabilityKey struct{}

// WithClient stores the authenticated client in ctx.
func WithClient(ctx context.Context, client *authDomain.Client) context.Context {
	return context.WithValue(ctx, clientKey{}, client)
}

// GetClient returns the authenticated client, if any.
func GetClient(ctx context.Context) (*authDomain.Client, bool) {
	client, ok := ctx.Value(clientKey{}).(*authDomain.Client)
	return client, ok
}

// WithCapability records the capability the request was authorized for.
func WithCapability(ctx context.Context, capability authDomain.Capability) context.Context {
	return context.WithValue(ctx, capabilityKey{}, capability)
}

// GetCapability returns the capability set by AuthorizationMiddleware.
func GetCapability(ctx context.Context) (authDomain.Capability, bool) {
	capability, ok := ctx.Value(capabilityKey{}).(authDomain.Capability)
	return capability, ok
}
