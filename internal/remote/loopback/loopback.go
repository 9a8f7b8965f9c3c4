// Package loopback implements an in-process trading service.
//
// It honours the remote contract closely enough to run the daemon offline
// and to drive the Session Guard and Offer Ingest in tests: accounts with
// optional authenticator secrets, a web session that can expire, a
// transport that can drop, an offer book, and fault injection per call.
package loopback

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/yndnr/tradeguard/internal/core/domain"
	"github.com/yndnr/tradeguard/internal/remote"
	"github.com/yndnr/tradeguard/pkg/guardcode"
)

// Op names a remote call for fault injection and call counting.
type Op string

// Remote operations.
const (
	OpLogOn     Op = "logon"
	OpWebLogOn  Op = "weblogon"
	OpLogOff    Op = "logoff"
	OpGetOffers Op = "get_offers"
	OpGetOffer  Op = "get_offer"
	OpAccept    Op = "accept"
	OpDecline   Op = "decline"
)

// Account is a simulated remote account.
type Account struct {
	Name     string `koanf:"name"`
	Password string `koanf:"password"`
	SteamID  string `koanf:"steam_id"`

	// SharedSecret, when set, makes the account require a valid guard code.
	SharedSecret string `koanf:"shared_secret"`
}

// Options configures a Server.
type Options struct {
	Accounts []Account
	Offers   []*domain.TradeOffer

	// Now is the clock used to validate guard codes.
	Now func() time.Time

	// EventBuffer is the capacity of the push event channel (default 64).
	EventBuffer int

	Logger *slog.Logger
}

type fault struct {
	remaining int
	err       error
}

// Server is the loopback trading service. It implements remote.Driver.
type Server struct {
	mu sync.Mutex

	accounts map[string]Account
	offers   map[string]*domain.TradeOffer
	seed     []*domain.TradeOffer
	seeded   bool

	account    *Account
	loggedOn   bool
	connected  bool
	webSession bool

	faults map[Op]*fault
	gates  map[Op]chan struct{}
	calls  map[Op]int

	events chan remote.Event
	now    func() time.Time
	logger *slog.Logger
}

var _ remote.Driver = (*Server)(nil)

// New creates a loopback server.
func New(opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		accounts: make(map[string]Account, len(opts.Accounts)),
		offers:   make(map[string]*domain.TradeOffer),
		faults:   make(map[Op]*fault),
		gates:    make(map[Op]chan struct{}),
		calls:    make(map[Op]int),
		events:   make(chan remote.Event, opts.EventBuffer),
		now:      opts.Now,
		logger:   opts.Logger.With("component", "loopback"),
	}
	for _, a := range opts.Accounts {
		s.accounts[strings.ToLower(a.Name)] = a
	}
	for _, o := range opts.Offers {
		s.seed = append(s.seed, o.Clone())
	}
	return s
}

// LogOn implements remote.Client.
func (s *Server) LogOn(ctx context.Context, creds domain.Credentials) (remote.LogOnResult, error) {
	if err := s.enter(ctx, OpLogOn); err != nil {
		return remote.LogOnResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[strings.ToLower(creds.Identity)]
	if !ok || acct.Password != creds.Password {
		return remote.LogOnResult{}, remote.NewError(remote.EResultInvalidPassword, "InvalidPassword")
	}
	if acct.SharedSecret != "" {
		if creds.Code == "" {
			return remote.LogOnResult{}, remote.NewError(remote.EResultAccountLoginDeniedNeedTwoFactor, "AccountLoginDeniedNeedTwoFactor")
		}
		if !guardcode.Validate(acct.SharedSecret, creds.Code, s.now(), 1) {
			return remote.LogOnResult{}, remote.NewError(remote.EResultTwoFactorCodeMismatch, "TwoFactorCodeMismatch")
		}
	}

	s.account = &acct
	s.loggedOn = true
	s.connected = true
	s.webSession = false
	s.logger.Debug("account logged on", "account", acct.Name)
	return remote.LogOnResult{SteamID: acct.SteamID}, nil
}

// WebLogOn implements remote.Client. It restores a dropped transport the
// way the real client reconnects before renewing the web session.
func (s *Server) WebLogOn(ctx context.Context) error {
	if err := s.enter(ctx, OpWebLogOn); err != nil {
		return err
	}

	s.mu.Lock()
	if !s.loggedOn {
		s.mu.Unlock()
		return remote.NewError(remote.EResultNoConnection, "NotLoggedOn")
	}
	s.connected = true
	s.webSession = true

	var pending []*domain.TradeOffer
	if !s.seeded {
		s.seeded = true
		for _, o := range s.seed {
			s.offers[o.ID] = o.Clone()
			pending = append(pending, o.Clone())
		}
	}
	s.mu.Unlock()

	for _, o := range pending {
		s.emit(remote.Event{Kind: remote.EventNewOffer, Offer: o})
	}
	return nil
}

// LogOff implements remote.Client.
func (s *Server) LogOff(ctx context.Context) error {
	if err := s.enter(ctx, OpLogOff); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = nil
	s.loggedOn = false
	s.connected = false
	s.webSession = false
	return nil
}

// Connected implements remote.Client.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Events implements remote.Client.
func (s *Server) Events() <-chan remote.Event {
	return s.events
}

// GetOffers implements remote.OfferManager.
func (s *Server) GetOffers(ctx context.Context, filter domain.OfferFilter) ([]*domain.TradeOffer, error) {
	if err := s.enter(ctx, OpGetOffers); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireWebSession(); err != nil {
		return nil, err
	}

	out := make([]*domain.TradeOffer, 0, len(s.offers))
	for _, o := range s.offers {
		open := o.State.IsOpen()
		switch {
		case filter == domain.FilterActiveOnly && !open,
			filter == domain.FilterHistoricalOnly && open:
			continue
		}
		out = append(out, o.Clone())
	}
	domain.SortOffers(out)
	return out, nil
}

// GetOffer implements remote.OfferManager.
func (s *Server) GetOffer(ctx context.Context, id string) (*domain.TradeOffer, error) {
	if err := s.enter(ctx, OpGetOffer); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireWebSession(); err != nil {
		return nil, err
	}
	o, ok := s.offers[id]
	if !ok {
		return nil, remote.NewError(remote.EResultFail, "NoMatch")
	}
	return o.Clone(), nil
}

// Accept implements remote.OfferManager.
func (s *Server) Accept(ctx context.Context, id string) error {
	if err := s.enter(ctx, OpAccept); err != nil {
		return err
	}
	return s.resolve(id, domain.OfferStateAccepted)
}

// Decline implements remote.OfferManager.
func (s *Server) Decline(ctx context.Context, id string) error {
	if err := s.enter(ctx, OpDecline); err != nil {
		return err
	}
	return s.resolve(id, domain.OfferStateDeclined)
}

func (s *Server) resolve(id string, to domain.OfferState) error {
	s.mu.Lock()
	if err := s.requireWebSession(); err != nil {
		s.mu.Unlock()
		return err
	}
	o, ok := s.offers[id]
	if !ok {
		s.mu.Unlock()
		return remote.NewError(remote.EResultFail, "NoMatch")
	}
	if !o.State.IsOpen() {
		s.mu.Unlock()
		return remote.NewError(remote.EResultFail, "offer is "+o.State.String())
	}
	prev := o.State
	o.State = to
	changed := o.Clone()
	s.mu.Unlock()

	s.emit(remote.Event{Kind: remote.EventOfferChanged, Offer: changed, PrevState: prev})
	return nil
}

func (s *Server) requireWebSession() error {
	if !s.connected {
		return remote.NewError(remote.EResultNoConnection, "NoConnection")
	}
	if !s.webSession {
		return remote.NewError(remote.EResultFail, "Not Logged In")
	}
	return nil
}

// enter counts the call, waits on an installed gate, and returns an
// injected fault if one is armed.
func (s *Server) enter(ctx context.Context, op Op) error {
	s.mu.Lock()
	s.calls[op]++
	gate := s.gates[op]
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if f := s.faults[op]; f != nil && f.remaining != 0 {
		if f.remaining > 0 {
			f.remaining--
		}
		return f.err
	}
	return ctx.Err()
}

func (s *Server) emit(ev remote.Event) {
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("event buffer full, dropping remote event", "kind", ev.Kind.String())
	}
}
