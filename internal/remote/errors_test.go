package remote

import (
	"errors"
	"fmt"
	"testing"

	"github.com/yndnr/tradeguard/internal/core/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want *domain.DomainError
	}{
		{"invalid password", NewError(EResultInvalidPassword, "InvalidPassword"), domain.ErrAuthRejected},
		{"guard code needed", NewError(EResultAccountLoginDeniedNeedTwoFactor, "need code"), domain.ErrTwoFactorRequired},
		{"email code needed", NewError(EResultAccountLogonDenied, "denied"), domain.ErrTwoFactorRequired},
		{"wrong code", NewError(EResultTwoFactorCodeMismatch, "mismatch"), domain.ErrTwoFactorRequired},
		{"rate limit", NewError(EResultRateLimitExceeded, "RateLimitExceeded"), domain.ErrRateLimited},
		{"no connection", NewError(EResultNoConnection, "NoConnection"), domain.ErrTransportDisconnected},
		{"other eresult", NewError(EResultFail, "Fail"), domain.ErrRemote},
		{"plain error", errors.New("socket closed"), domain.ErrRemote},
		{"plain rate limit text", errors.New("RateLimitExceeded"), domain.ErrRateLimited},
		{"domain passthrough", domain.ErrOfferNotFound, domain.ErrOfferNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}

	if Classify(nil) != nil {
		t.Error("Classify(nil) should be nil")
	}
}

func TestClassify_KeepsReasonVerbatim(t *testing.T) {
	err := Classify(NewError(EResultInvalidPassword, "InvalidPassword"))
	if got := domain.Describe(err); got != "InvalidPassword" {
		t.Errorf("Describe() = %q, want InvalidPassword", got)
	}
}

func TestIsRateLimited(t *testing.T) {
	if !IsRateLimited(fmt.Errorf("webLogOn: %w", NewError(EResultRateLimitExceeded, ""))) {
		t.Error("wrapped rate-limit error not detected")
	}
	if !IsRateLimited(domain.ErrRateLimited.WithDetails("slow down")) {
		t.Error("domain rate-limit error not detected")
	}
	if IsRateLimited(NewError(EResultFail, "Fail")) || IsRateLimited(nil) {
		t.Error("false positive")
	}
}
