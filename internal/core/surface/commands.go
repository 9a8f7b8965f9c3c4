package surface

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yndnr/tradeguard/internal/core/domain"
	"github.com/yndnr/tradeguard/pkg/guardcode"
)

// Login authenticates with the given credentials.
func (s *Surface) Login(ctx context.Context, creds domain.Credentials) Result {
	res := s.run("login", func() (Result, error) {
		if err := s.guard.Login(ctx, creds); err != nil {
			return Result{}, err
		}
		st := s.guard.Status()
		return Result{Message: "logged in", Status: &st}, nil
	})
	if errors.Is(res.Err(), domain.ErrTwoFactorRequired) {
		res.NeedsTwoFactor = true
	}
	return res
}

// LoginWithSecret prepares a login for an account with a stored
// authenticator: it returns the current guard code. The password is still
// required from the user.
func (s *Surface) LoginWithSecret(account string) Result {
	return s.run("login_with_secret", func() (Result, error) {
		if strings.TrimSpace(account) == "" {
			return Result{}, domain.ErrMissingArgument.WithDetails("account name is required")
		}
		if _, ok := s.secrets.FindByAccount(account); !ok {
			return Result{}, domain.ErrSecretUnavailable.WithDetails("no authenticator file found for this account")
		}
		code, ok := s.secrets.GenerateCode(account)
		if !ok {
			return Result{}, domain.ErrSecretUnavailable.WithDetails("failed to generate a guard code from the authenticator file")
		}
		return Result{
			Message:          "authenticator ready",
			GuardCode:        code,
			ExpiresIn:        s.expiresIn(),
			RequiresPassword: true,
		}, nil
	})
}

// Logout ends the session.
func (s *Surface) Logout(ctx context.Context) Result {
	return s.run("logout", func() (Result, error) {
		return Result{Message: "logged out"}, s.guard.Logout(ctx)
	})
}

// Status reports the Session Guard state.
func (s *Surface) Status() Result {
	return s.run("status", func() (Result, error) {
		st := s.guard.Status()
		return Result{Status: &st, AutoAcceptGifts: boolPtr(st.AutoAcceptGifts)}, nil
	})
}

// Accept accepts a pending offer.
func (s *Surface) Accept(ctx context.Context, id string) Result {
	return s.run("accept", func() (Result, error) {
		if err := s.requireSession(); err != nil {
			return Result{}, err
		}
		return Result{Message: "offer accepted"}, s.offers.Accept(ctx, id)
	})
}

// Decline declines a pending offer.
func (s *Surface) Decline(ctx context.Context, id string) Result {
	return s.run("decline", func() (Result, error) {
		if err := s.requireSession(); err != nil {
			return Result{}, err
		}
		return Result{Message: "offer declined"}, s.offers.Decline(ctx, id)
	})
}

// ListPending lists received offers. An empty filter means active only.
func (s *Surface) ListPending(ctx context.Context, filter string) Result {
	return s.run("list_pending", func() (Result, error) {
		f, err := domain.ParseOfferFilter(filter)
		if err != nil {
			return Result{}, err
		}
		if err := s.requireSession(); err != nil {
			return Result{}, err
		}
		offers, err := s.offers.ListPending(ctx, f)
		if err != nil {
			return Result{}, err
		}
		views := make([]domain.OfferView, len(offers))
		for i, o := range offers {
			views[i] = o.View()
		}
		return Result{Offers: views}, nil
	})
}

// ToggleAutoAccept flips the auto-accept preference.
func (s *Surface) ToggleAutoAccept(ctx context.Context) Result {
	return s.run("toggle_auto_accept", func() (Result, error) {
		on, err := s.guard.ToggleAutoAcceptGifts(ctx)
		if err != nil {
			return Result{}, err
		}
		return Result{AutoAcceptGifts: boolPtr(on)}, nil
	})
}

// AutoAcceptSetting reports the auto-accept preference.
func (s *Surface) AutoAcceptSetting() Result {
	return s.run("auto_accept_setting", func() (Result, error) {
		return Result{AutoAcceptGifts: boolPtr(s.guard.AutoAcceptGifts())}, nil
	})
}

// CheckConnection probes the remote and reports the connection view.
func (s *Surface) CheckConnection(ctx context.Context) Result {
	return s.run("check_connection", func() (Result, error) {
		st, err := s.guard.CheckConnection(ctx)
		if err != nil {
			return Result{}, err
		}
		return Result{Connection: &st}, nil
	})
}

// ForceReconnect starts recovery on demand.
func (s *Surface) ForceReconnect(ctx context.Context) Result {
	return s.run("force_reconnect", func() (Result, error) {
		msg, err := s.guard.ForceReconnect(ctx)
		return Result{Message: msg}, err
	})
}

// ScanSecrets rescans the authenticator directory.
func (s *Surface) ScanSecrets() Result {
	return s.run("scan_secrets", func() (Result, error) {
		recs, err := s.secrets.Scan()
		if err != nil {
			return Result{}, err
		}
		return Result{Secrets: nonNilRecords(recs)}, nil
	})
}

// ListSecrets returns the last scan result.
func (s *Surface) ListSecrets() Result {
	return s.run("list_secrets", func() (Result, error) {
		return Result{Secrets: nonNilRecords(s.secrets.Records())}, nil
	})
}

// CheckSecret reports whether an account has a stored authenticator.
func (s *Surface) CheckSecret(account string) Result {
	return s.run("check_secret", func() (Result, error) {
		rec, ok := s.secrets.FindByAccount(account)
		res := Result{Available: boolPtr(ok)}
		if ok {
			res.Secret = &rec
		}
		return res, nil
	})
}

// GenerateCode returns the current guard code for an account.
func (s *Surface) GenerateCode(account string) Result {
	return s.run("generate_code", func() (Result, error) {
		code, ok := s.secrets.GenerateCode(account)
		if !ok {
			return Result{}, domain.ErrSecretUnavailable.WithDetails("no usable authenticator for " + account)
		}
		return Result{GuardCode: code, ExpiresIn: s.expiresIn()}, nil
	})
}

// expiresIn is the number of seconds a code generated now stays valid.
func (s *Surface) expiresIn() int {
	return int(guardcode.Remaining(s.now()) / time.Second)
}

func nonNilRecords(recs []domain.AuthenticatorRecord) []domain.AuthenticatorRecord {
	if recs == nil {
		return []domain.AuthenticatorRecord{}
	}
	return recs
}
