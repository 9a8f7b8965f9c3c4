package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError("TG-TEST-1000", "test message"),
			expected: "[TG-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError("TG-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[TG-TEST-1001] test message: extra info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	rejected := ErrAuthRejected.WithDetails("InvalidPassword")

	if !errors.Is(rejected, ErrAuthRejected) {
		t.Error("errors.Is should match on code regardless of details")
	}
	if errors.Is(rejected, ErrTwoFactorRequired) {
		t.Error("errors.Is should not match a different code")
	}
	if errors.Is(rejected, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-DomainError")
	}

	wrapped := fmt.Errorf("login: %w", ErrOfferNotFound)
	if !errors.Is(wrapped, ErrOfferNotFound) {
		t.Error("errors.Is should see through fmt wrapping")
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	err := ErrRemote.WithCause(cause)

	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
	}
	if errors.Unwrap(ErrRemote) != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestDomainError_CopiesDoNotMutate(t *testing.T) {
	withDetails := ErrRateLimited.WithDetails("cooldown 60s")
	if ErrRateLimited.Details != "" {
		t.Error("WithDetails modified the shared sentinel")
	}
	withCause := withDetails.WithCause(errors.New("x"))
	if withCause.Details != "cooldown 60s" {
		t.Errorf("WithCause dropped details: %q", withCause.Details)
	}
}

func TestIsDomainErrorAndCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", ErrSecretUnavailable)

	if !IsDomainError(err, "") {
		t.Error("IsDomainError(err, \"\") = false")
	}
	if !IsDomainError(err, "TG-SECR-4040") {
		t.Error("IsDomainError with matching code = false")
	}
	if IsDomainError(errors.New("plain"), "") {
		t.Error("IsDomainError(plain) = true")
	}
	if got := GetErrorCode(err); got != "TG-SECR-4040" {
		t.Errorf("GetErrorCode() = %q", got)
	}
	if got := GetErrorCode(errors.New("plain")); got != "" {
		t.Errorf("GetErrorCode(plain) = %q, want empty", got)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrAuthRejected.WithDetails("InvalidPassword"), "InvalidPassword"},
		{ErrOfferNotFound, "offer not found"},
		{errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		if got := Describe(tt.err); got != tt.want {
			t.Errorf("Describe(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
