// Package surface is the Command Surface: every command the UI can issue,
// each answering with a Result value and never with a panic or a raw error.
package surface

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/yndnr/tradeguard/internal/core/domain"
	"github.com/yndnr/tradeguard/internal/core/guard"
)

// SessionGuard is the part of the Session Guard the surface drives.
type SessionGuard interface {
	Login(ctx context.Context, creds domain.Credentials) error
	Logout(ctx context.Context) error
	ForceReconnect(ctx context.Context) (string, error)
	CheckConnection(ctx context.Context) (guard.ConnectionStatus, error)
	Status() guard.Status
	AutoAcceptGifts() bool
	ToggleAutoAcceptGifts(ctx context.Context) (bool, error)
}

// OfferDesk is the part of Offer Ingest the surface drives.
type OfferDesk interface {
	Accept(ctx context.Context, id string) error
	Decline(ctx context.Context, id string) error
	ListPending(ctx context.Context, filter domain.OfferFilter) ([]*domain.TradeOffer, error)
}

// SecretStore is the part of the Secret Store the surface drives.
type SecretStore interface {
	Scan() ([]domain.AuthenticatorRecord, error)
	Records() []domain.AuthenticatorRecord
	FindByAccount(name string) (domain.AuthenticatorRecord, bool)
	GenerateCode(name string) (string, bool)
}

// Result is the uniform answer to every command.
//
// Success is always set. On failure Error carries a user-facing reason and
// Code the error code; on success only the fields relevant to the command
// are filled.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`

	NeedsTwoFactor   bool   `json:"needs_two_factor,omitempty"`
	RequiresPassword bool   `json:"requires_password,omitempty"`
	GuardCode        string `json:"steam_guard_code,omitempty"`
	ExpiresIn        int    `json:"expires_in,omitempty"`

	AutoAcceptGifts *bool `json:"auto_accept_gifts,omitempty"`
	Available       *bool `json:"available,omitempty"`

	Offers     []domain.OfferView           `json:"offers,omitempty"`
	Secrets    []domain.AuthenticatorRecord `json:"secrets,omitempty"`
	Secret     *domain.AuthenticatorRecord  `json:"secret,omitempty"`
	Status     *guard.Status                `json:"status,omitempty"`
	Connection *guard.ConnectionStatus      `json:"connection,omitempty"`
}

// Err returns the Result's failure as a DomainError, or nil on success.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	return &domain.DomainError{Code: r.Code, Message: r.Error}
}

// Surface dispatches commands to the core components.
type Surface struct {
	guard   SessionGuard
	offers  OfferDesk
	secrets SecretStore
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a command surface.
func New(g SessionGuard, offers OfferDesk, secrets SecretStore, logger *slog.Logger) *Surface {
	if logger == nil {
		logger = slog.Default()
	}
	return &Surface{
		guard:   g,
		offers:  offers,
		secrets: secrets,
		logger:  logger.With("component", "command_surface"),
		now:     time.Now,
	}
}

// run executes a command, converting errors and panics into failed Results.
func (s *Surface) run(name string, fn func() (Result, error)) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("command panicked", "command", name, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			res = failure(domain.ErrInternal.WithDetails(fmt.Sprintf("%s: %v", name, r)))
		}
	}()

	s.logger.Debug("command", "command", name)
	out, err := fn()
	if err != nil {
		s.logger.Debug("command failed", "command", name, "error", err)
		return failure(err)
	}
	out.Success = true
	return out
}

func failure(err error) Result {
	code := domain.GetErrorCode(err)
	if code == "" {
		code = domain.ErrInternal.Code
	}
	return Result{
		Success: false,
		Error:   domain.Describe(err),
		Code:    code,
	}
}

func boolPtr(b bool) *bool { return &b }

func (s *Surface) requireSession() error {
	if !s.guard.Status().State.HasSession() {
		return domain.ErrNotLoggedIn
	}
	return nil
}
