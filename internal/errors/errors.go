// Package errors provides error handling utilities.
package errors

import (
	"fmt"
)

// Type identifies the category of error
type Type string

const (
	// TypeInput indicates an input validation error
	TypeInput Type = "INPUT_ERROR"

	// TypeMalformedCatalog indicates unusable catalog data; fatal at startup
	TypeMalformedCatalog Type = "MALFORMED_CATALOG"

	// TypeNoEligibleCandidate indicates no provider satisfies the request
	TypeNoEligibleCandidate Type = "NO_ELIGIBLE_CANDIDATE"

	// TypeImageNotSupported indicates an image alias with no rule for a provider
	TypeImageNotSupported Type = "IMAGE_NOT_SUPPORTED"

	// TypeUnsupportedVersion indicates a strict-mode version validation failure
	TypeUnsupportedVersion Type = "UNSUPPORTED_VERSION"

	// TypeDiscoveryTimeout indicates a discovery call exceeded its deadline
	TypeDiscoveryTimeout Type = "DISCOVERY_TIMEOUT"

	// TypeDiscoveryUnavailable indicates a discovery call failed and no
	// cached or static fallback exists
	TypeDiscoveryUnavailable Type = "DISCOVERY_UNAVAILABLE"

	// TypeInternal indicates an internal error
	TypeInternal Type = "INTERNAL_ERROR"
)

// Error represents a domain error with context
type Error struct {
	Type    Type                   `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e *Error) Is(t Type) bool {
	return e.Type == t
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new error
func New(errType Type, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new formatted error
func Newf(errType Type, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with context
func Wrap(errType Type, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an error with formatted context
func Wrapf(errType Type, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, t Type) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == t
	}
	return false
}

// Input creates an input error
func Input(message string) *Error {
	return New(TypeInput, message)
}

// MalformedCatalog creates a fatal catalog load error
func MalformedCatalog(path string, cause error) *Error {
	return Wrapf(TypeMalformedCatalog, cause, "catalog file unusable: %s", path).
		WithContext("path", path)
}

// NoEligibleCandidate creates a no-candidate error
func NoEligibleCandidate(message string) *Error {
	return New(TypeNoEligibleCandidate, message)
}

// ImageNotSupported creates an image resolution error
func ImageNotSupported(alias, provider string) *Error {
	return Newf(TypeImageNotSupported, "image alias %q has no rule for provider %s", alias, provider).
		WithContext("alias", alias).
		WithContext("provider", provider)
}

// UnsupportedVersion creates a strict-mode version failure. The supported
// list and latest version ride along so callers can self-correct.
func UnsupportedVersion(platform, requested string, supported []string, latest string) *Error {
	return Newf(TypeUnsupportedVersion, "version %q is not supported on platform %s", requested, platform).
		WithContext("platform", platform).
		WithContext("requested", requested).
		WithContext("supported", supported).
		WithContext("latest", latest)
}

// DiscoveryTimeout creates a discovery deadline error
func DiscoveryTimeout(provider, operation string, cause error) *Error {
	return Wrapf(TypeDiscoveryTimeout, cause, "discovery %s timed out for provider %s", operation, provider).
		WithContext("provider", provider).
		WithContext("operation", operation)
}

// DiscoveryUnavailable creates a discovery failure with no usable fallback
func DiscoveryUnavailable(provider, operation string, cause error) *Error {
	return Wrapf(TypeDiscoveryUnavailable, cause, "discovery %s unavailable for provider %s", operation, provider).
		WithContext("provider", provider).
		WithContext("operation", operation)
}

// Internal creates an internal error
func Internal(message string, cause error) *Error {
	return Wrap(TypeInternal, message, cause)
}
