package remote

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yndnr/tradeguard/internal/core/domain"
)

// EResult values the client reacts to. Numbering follows the remote
// service's result enumeration.
const (
	EResultOK                              = 1
	EResultFail                            = 2
	EResultNoConnection                    = 3
	EResultInvalidPassword                 = 5
	EResultServiceUnavailable              = 20
	EResultAccountLogonDenied              = 63
	EResultInvalidLoginAuthCode            = 65
	EResultRateLimitExceeded               = 84
	EResultAccountLoginDeniedNeedTwoFactor = 85
	EResultTwoFactorCodeMismatch           = 88
)

// Error is a failure reported by the remote service.
type Error struct {
	EResult int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote error (eresult %d)", e.EResult)
	}
	return fmt.Sprintf("%s (eresult %d)", e.Message, e.EResult)
}

// NewError creates a remote error.
func NewError(eresult int, message string) *Error {
	return &Error{EResult: eresult, Message: message}
}

// IsRateLimited reports whether err means the remote is throttling us.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrRateLimited) {
		return true
	}
	var re *Error
	if errors.As(err, &re) {
		return re.EResult == EResultRateLimitExceeded
	}
	return strings.Contains(err.Error(), "RateLimitExceeded")
}

// Classify maps a remote failure onto the domain error taxonomy. The remote
// message is carried verbatim in Details. Errors that already are domain
// errors pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if domain.IsDomainError(err, "") {
		return err
	}

	var re *Error
	if !errors.As(err, &re) {
		if IsRateLimited(err) {
			return domain.ErrRateLimited.WithDetails(err.Error()).WithCause(err)
		}
		return domain.ErrRemote.WithDetails(err.Error()).WithCause(err)
	}

	msg := re.Message
	if msg == "" {
		msg = re.Error()
	}
	switch re.EResult {
	case EResultAccountLogonDenied, EResultAccountLoginDeniedNeedTwoFactor,
		EResultInvalidLoginAuthCode, EResultTwoFactorCodeMismatch:
		return domain.ErrTwoFactorRequired.WithDetails(msg).WithCause(err)
	case EResultInvalidPassword:
		return domain.ErrAuthRejected.WithDetails(msg).WithCause(err)
	case EResultRateLimitExceeded:
		return domain.ErrRateLimited.WithDetails(msg).WithCause(err)
	case EResultNoConnection, EResultServiceUnavailable:
		return domain.ErrTransportDisconnected.WithDetails(msg).WithCause(err)
	default:
		return domain.ErrRemote.WithDetails(msg).WithCause(err)
	}
}
