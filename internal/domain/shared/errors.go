// Package shared contains common domain types and errors that are used
// across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
//
// The remote-failure taxonomy is deliberately flat: ErrAuthenticationFailed
// is NOT a sub-case of ErrUnavailable or ErrInvalidResponse. Callers that
// handle remote failures must check the authentication variant explicitly,
// which keeps an expired token from being silently absorbed by a broader
// "remote failed" branch.
var (
	// Entity errors
	ErrNotFound = errors.New("entity not found")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")

	// Remote portal errors
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrUnavailable          = errors.New("remote system unavailable")
	ErrInvalidResponse      = errors.New("invalid response from remote system")

	// Interaction errors
	ErrMalformedState = errors.New("malformed interaction state")
	ErrRejected       = errors.New("interaction rejected")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "parent", "session", "schedule"
	Op      string // Operation that failed, e.g., "EnsureToken", "Fetch"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// IsAuthenticationFailed checks if the error means the portal rejected
// the stored credentials or token. Always check this BEFORE the broader
// remote-failure predicates.
func IsAuthenticationFailed(err error) bool {
	return errors.Is(err, ErrAuthenticationFailed)
}

// IsUnavailable checks if the error is a transient remote/network failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsInvalidResponse checks if the remote returned unparsable data.
func IsInvalidResponse(err error) bool {
	return errors.Is(err, ErrInvalidResponse)
}

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
