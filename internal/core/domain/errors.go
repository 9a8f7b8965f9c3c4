// Package domain defines the core domain models for TradeGuard.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
//
// Codes have the form TG-<AREA>-<NNNN>; the numeric part mirrors the HTTP
// status family the local API answers with.
type DomainError struct {
	Code    string // Error code (e.g., "TG-OFFR-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Describe returns the message a user should see for err: the details of a
// DomainError when present (they carry remote reasons verbatim), otherwise
// the error text.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var de *DomainError
	if errors.As(err, &de) {
		if de.Details != "" {
			return de.Details
		}
		return de.Message
	}
	return err.Error()
}

// ============================================================================
// Authentication Errors (AUTH)
// ============================================================================

var (
	// ErrAuthRejected indicates the remote service rejected the credentials.
	// Terminal for the attempt; the user must retry.
	ErrAuthRejected = NewDomainError("TG-AUTH-4010", "login rejected")

	// ErrTwoFactorRequired indicates a Steam Guard code is required.
	// Recoverable: the caller supplies a code and retries.
	ErrTwoFactorRequired = NewDomainError("TG-AUTH-4011", "two-factor authentication required")

	// ErrHandshakeFailed indicates credentials were accepted but the web
	// session handshake did not complete.
	ErrHandshakeFailed = NewDomainError("TG-AUTH-5020", "web session handshake failed")
)

// ============================================================================
// Session Errors (SESS)
// ============================================================================

var (
	// ErrNotLoggedIn indicates the command requires an established session.
	ErrNotLoggedIn = NewDomainError("TG-SESS-4010", "not logged in")

	// ErrSessionExpired indicates the remote web session expired.
	// Recoverable: triggers recovery immediately.
	ErrSessionExpired = NewDomainError("TG-SESS-4041", "session expired")

	// ErrLoginInProgress indicates a login attempt is already running.
	ErrLoginInProgress = NewDomainError("TG-SESS-4090", "login already in progress")
)

// ============================================================================
// Connection Errors (CONN)
// ============================================================================

var (
	// ErrTransportDisconnected indicates the underlying transport dropped.
	// Recoverable: triggers recovery after a grace delay.
	ErrTransportDisconnected = NewDomainError("TG-CONN-5030", "transport disconnected")

	// ErrRecoveryExhausted indicates every reconnect attempt failed.
	// Terminal: a fresh manual login is required.
	ErrRecoveryExhausted = NewDomainError("TG-CONN-5031", "reconnection attempts exhausted")
)

// ============================================================================
// Offer Errors (OFFR)
// ============================================================================

var (
	// ErrOfferNotFound indicates the offer id is not in the working set.
	// Expected after the set went stale; the caller refreshes.
	ErrOfferNotFound = NewDomainError("TG-OFFR-4040", "offer not found")
)

// ============================================================================
// Secret Errors (SECR)
// ============================================================================

var (
	// ErrSecretUnavailable indicates no usable authenticator record exists.
	// Recoverable: falls back to manual code entry.
	ErrSecretUnavailable = NewDomainError("TG-SECR-4040", "no authenticator secret available")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternal indicates an unexpected internal failure.
	ErrInternal = NewDomainError("TG-SYS-5000", "internal error")

	// ErrRemote indicates an unclassified remote service failure.
	ErrRemote = NewDomainError("TG-SYS-5020", "remote service error")

	// ErrRateLimited indicates the remote service (or the local API) is
	// throttling requests. Recoverable after a cooldown.
	ErrRateLimited = NewDomainError("TG-SYS-4290", "rate limited")

	// ErrUnauthorized indicates a missing or wrong local API token.
	ErrUnauthorized = NewDomainError("TG-API-4010", "unauthorized")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("TG-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("TG-ARG-1002", "missing required argument")
)
