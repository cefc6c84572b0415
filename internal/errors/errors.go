// Package errors defines the error taxonomy shared by every module of the vault.
// Use cases return these sentinels (usually wrapped with context) and the HTTP
// layer maps them to status codes; storage and crypto faults keep their kind as
// they propagate so the boundary can tell a retryable fault from a fatal one.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict with existing data (e.g., duplicate name).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates malformed or non-conforming input. Requests failing
	// with it never have side effects.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates missing credentials or a denied authorization check.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the authenticated client lacks the required capability.
	ErrForbidden = errors.New("forbidden")

	// ErrIntegrity indicates tampering or corruption was detected while opening
	// sealed data. It is an operational fault and must never be retried with the
	// same ciphertext.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrTokenSpaceExhausted indicates no free token was found within the retry bound.
	ErrTokenSpaceExhausted = errors.New("token space exhausted")
)

// New creates a new error with the given message.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsOperational reports whether err is a fault that must be alerted on rather
// than reported to the caller as a client error.
func IsOperational(err error) bool {
	return errors.Is(err, ErrIntegrity) || errors.Is(err, ErrTokenSpaceExhausted)
}
