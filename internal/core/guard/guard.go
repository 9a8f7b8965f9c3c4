// Package guard implements the Session Guard, the state machine that keeps
// one authenticated session alive against the remote trading service.
//
// All state lives on a single goroutine. Public methods and remote results
// reach it as messages; remote calls run elsewhere and report back tagged
// with the epoch they were issued in, so a result that arrives after a
// logout or a newer login is discarded.
package guard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/tradeguard/internal/core/domain"
	"github.com/yndnr/tradeguard/internal/core/notify"
	"github.com/yndnr/tradeguard/internal/remote"
	"github.com/yndnr/tradeguard/internal/telemetry/metric"
)

// Config holds the Guard's timing and policy settings.
type Config struct {
	// AutoAcceptGifts is the initial auto-accept preference.
	AutoAcceptGifts bool

	HealthInterval    time.Duration
	IdleWindow        time.Duration
	ProbeTimeout      time.Duration
	DisconnectGrace   time.Duration
	RateLimitCooldown time.Duration
	LoginTimeout      time.Duration

	// ForceReconnectInterval is the minimum spacing of user-forced
	// reconnects.
	ForceReconnectInterval time.Duration

	Retry RetryPolicy
}

// DefaultConfig returns production settings.
func DefaultConfig() Config {
	return Config{
		AutoAcceptGifts:        true,
		HealthInterval:         2 * time.Minute,
		IdleWindow:             5 * time.Minute,
		ProbeTimeout:           30 * time.Second,
		DisconnectGrace:        5 * time.Second,
		RateLimitCooldown:      60 * time.Second,
		LoginTimeout:           60 * time.Second,
		ForceReconnectInterval: 10 * time.Second,
		Retry:                  DefaultRetryPolicy(),
	}
}

// CodeSource supplies one-time codes for an account.
type CodeSource interface {
	GenerateCode(account string) (string, bool)
}

// Prober performs the health probe. A nil error means the remote answered.
type Prober interface {
	Probe(ctx context.Context) error
}

// Observer receives offer notifications while a session exists. Calls are
// made from the Guard's goroutine in delivery order and must not block.
// OnSessionEnded follows the last offer notification of a session, on
// logout, supersede or exhausted recovery.
type Observer interface {
	OnNewOffer(sess domain.Session, offer *domain.TradeOffer)
	OnOfferStateChanged(sess domain.Session, offer *domain.TradeOffer, prev domain.OfferState)
	OnSessionEnded(sess domain.Session)
}

// Status is a point-in-time view of the Guard.
type Status struct {
	State           domain.SessionState `json:"state"`
	Session         *domain.Session     `json:"session,omitempty"`
	AutoAcceptGifts bool                `json:"auto_accept_gifts"`
	Attempt         int                 `json:"reconnect_attempt,omitempty"`
	CooldownUntil   *time.Time          `json:"cooldown_until,omitempty"`
	LastError       string              `json:"last_error,omitempty"`
}

// Guard is the Session Guard.
type Guard struct {
	client   remote.Client
	cfg      Config
	codes    CodeSource
	prober   Prober
	pub      notify.Publisher
	observer []Observer
	clock    Clock
	logger   *slog.Logger
	metrics  *metric.Registry
	limiter  *rate.Limiter

	mailbox  chan func()
	calls    chan func()
	done     chan struct{}
	started  atomic.Bool
	stopOnce sync.Once
	status  atomic.Pointer[Status]

	base       context.Context
	baseCancel context.CancelFunc

	// Loop-owned state below; touched only from run().
	state       domain.SessionState
	session     *domain.Session
	autoAccept  bool
	epoch       uint64
	epochCtx    context.Context
	epochCancel context.CancelFunc

	identity    string
	steamID     string
	loginReply  chan error
	lastErr     error
	attempt     int
	retryTimer  Timer
	retryDue    time.Time
	graceTimer  Timer
	monitorGen  uint64
	tickTimer   Timer
	probing     bool
	cooldownEnd time.Time
}

// Option configures a Guard.
type Option func(*Guard)

// WithSecrets sets the source of stored one-time codes.
func WithSecrets(c CodeSource) Option { return func(g *Guard) { g.codes = c } }

// WithProber sets the health probe.
func WithProber(p Prober) Option { return func(g *Guard) { g.prober = p } }

// WithPublisher sets the notification sink.
func WithPublisher(p notify.Publisher) Option { return func(g *Guard) { g.pub = p } }

// WithObserver adds an offer observer.
func WithObserver(o Observer) Option { return func(g *Guard) { g.observer = append(g.observer, o) } }

// WithClock sets the clock.
func WithClock(c Clock) Option { return func(g *Guard) { g.clock = c } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(g *Guard) { g.logger = l } }

// WithMetrics sets the metrics registry.
func WithMetrics(m *metric.Registry) Option { return func(g *Guard) { g.metrics = m } }

// New creates a Guard in the LoggedOut state. Call Start before use.
func New(client remote.Client, cfg Config, opts ...Option) *Guard {
	if cfg.Retry.Delay == nil {
		cfg.Retry = DefaultRetryPolicy()
	}

	g := &Guard{
		client:     client,
		cfg:        cfg,
		clock:      SystemClock,
		logger:     slog.Default(),
		mailbox:    make(chan func(), 256),
		calls:      make(chan func(), 64),
		done:       make(chan struct{}),
		state:      domain.StateLoggedOut,
		autoAccept: cfg.AutoAcceptGifts,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.pub == nil {
		g.pub = notify.NewRecorder()
	}
	g.logger = g.logger.With("component", "session_guard")

	interval := cfg.ForceReconnectInterval
	if interval <= 0 {
		g.limiter = rate.NewLimiter(rate.Inf, 1)
	} else {
		g.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}

	g.base, g.baseCancel = context.WithCancel(context.Background())
	g.epochCtx, g.epochCancel = context.WithCancel(g.base)
	g.snapshot()
	return g
}

// Start launches the Guard's goroutines. It returns immediately.
func (g *Guard) Start() {
	if !g.started.CompareAndSwap(false, true) {
		return
	}
	go g.run()
	go g.drainCalls()
	go g.pumpEvents()
}

// Stop logs out, waits for the remote log-off, and stops the Guard.
// Pending callers receive an error.
func (g *Guard) Stop(ctx context.Context) error {
	if !g.started.Load() {
		return nil
	}
	err := g.Logout(ctx)
	switch {
	case errors.Is(err, domain.ErrNotLoggedIn):
		err = nil
	case err == nil:
		flushed := make(chan struct{})
		g.enqueue(func() { close(flushed) })
		select {
		case <-flushed:
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	g.stopOnce.Do(func() {
		g.baseCancel()
		close(g.done)
	})
	return err
}

// Status returns the current state without waiting on the Guard.
func (g *Guard) Status() Status {
	s := g.status.Load()
	out := *s
	out.Session = s.Session.Clone()
	return out
}

// AutoAcceptGifts returns the current auto-accept preference.
func (g *Guard) AutoAcceptGifts() bool {
	return g.status.Load().AutoAcceptGifts
}

func (g *Guard) run() {
	for {
		select {
		case fn := <-g.mailbox:
			fn()
		case <-g.done:
			return
		}
	}
}

// drainCalls executes session-level remote calls one at a time in the order
// the loop issued them, so a LogOff never overtakes the LogOn after it.
func (g *Guard) drainCalls() {
	for {
		select {
		case fn := <-g.calls:
			fn()
		case <-g.done:
			return
		}
	}
}

func (g *Guard) pumpEvents() {
	events := g.client.Events()
	for {
		select {
		case ev := <-events:
			g.post(func() { g.onRemoteEvent(ev) })
		case <-g.done:
			return
		}
	}
}

// post hands fn to the loop. It reports false once the Guard stopped.
func (g *Guard) post(fn func()) bool {
	select {
	case g.mailbox <- fn:
		return true
	case <-g.done:
		return false
	}
}

// ask runs fn on the loop and waits for it to finish.
func (g *Guard) ask(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	select {
	case g.mailbox <- func() { fn(); close(finished) }:
	case <-ctx.Done():
		return ctx.Err()
	case <-g.done:
		return domain.ErrInternal.WithDetails("session guard stopped")
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-g.done:
		return domain.ErrInternal.WithDetails("session guard stopped")
	}
}

// enqueue schedules a session-level remote call.
func (g *Guard) enqueue(fn func()) {
	select {
	case g.calls <- fn:
	case <-g.done:
	}
}

// newEpoch invalidates every in-flight remote call.
func (g *Guard) newEpoch() {
	g.epochCancel()
	g.epoch++
	g.epochCtx, g.epochCancel = context.WithCancel(g.base)
}

func (g *Guard) setState(s domain.SessionState) {
	if g.state == s {
		return
	}
	g.logger.Info("session state changed", "from", g.state.String(), "to", s.String(), "identity", g.identity)
	g.state = s
	if g.session != nil {
		g.session.State = s
	}
	g.metrics.RecordTransition(s.String())
}

// snapshot publishes the loop state for lock-free readers.
func (g *Guard) snapshot() {
	s := &Status{
		State:           g.state,
		Session:         g.session.Clone(),
		AutoAcceptGifts: g.autoAccept,
		Attempt:         g.attempt,
	}
	if g.clock.Now().Before(g.cooldownEnd) {
		until := g.cooldownEnd
		s.CooldownUntil = &until
	}
	if g.lastErr != nil {
		s.LastError = domain.Describe(g.lastErr)
	}
	g.status.Store(s)
}

func (g *Guard) publish(kind domain.EventKind, fill func(*domain.Event)) {
	ev := domain.NewEvent(kind, g.clock.Now())
	ev.Identity = g.identity
	if fill != nil {
		fill(&ev)
	}
	g.pub.Publish(ev)
}

// SetAutoAcceptGifts sets the preference for this and future sessions.
func (g *Guard) SetAutoAcceptGifts(ctx context.Context, enabled bool) error {
	return g.ask(ctx, func() {
		g.autoAccept = enabled
		if g.session != nil {
			g.session.AutoAcceptGifts = enabled
		}
		g.logger.Info("auto-accept preference changed", "enabled", enabled)
		g.snapshot()
	})
}

// ToggleAutoAcceptGifts flips the preference and returns the new value.
func (g *Guard) ToggleAutoAcceptGifts(ctx context.Context) (bool, error) {
	var now bool
	err := g.ask(ctx, func() {
		g.autoAccept = !g.autoAccept
		if g.session != nil {
			g.session.AutoAcceptGifts = g.autoAccept
		}
		now = g.autoAccept
		g.logger.Info("auto-accept preference changed", "enabled", now)
		g.snapshot()
	})
	return now, err
}

// endSession drops the Session and tells the observers.
func (g *Guard) endSession() {
	if g.session == nil {
		return
	}
	snap := *g.session
	g.session = nil
	for _, o := range g.observer {
		o.OnSessionEnded(snap)
	}
}

func (g *Guard) onRemoteEvent(ev remote.Event) {
	defer g.snapshot()

	switch ev.Kind {
	case remote.EventNewOffer:
		if ev.Offer == nil {
			return
		}
		if g.session == nil {
			g.logger.Debug("offer ignored without a session", "offer_id", ev.Offer.ID)
			return
		}
		g.session.ObserveOffer(g.clock.Now())
		snap := *g.session
		for _, o := range g.observer {
			o.OnNewOffer(snap, ev.Offer.Clone())
		}

	case remote.EventOfferChanged:
		if ev.Offer == nil || g.session == nil {
			return
		}
		snap := *g.session
		for _, o := range g.observer {
			o.OnOfferStateChanged(snap, ev.Offer.Clone(), ev.PrevState)
		}

	case remote.EventSessionExpired:
		if g.state != domain.StateHealthy && g.state != domain.StateDegraded {
			g.logger.Debug("session expiry ignored", "state", g.state.String())
			return
		}
		g.logger.Warn("web session expired")
		g.publish(domain.EventSessionExpired, nil)
		g.enterRecovering(domain.ErrSessionExpired)

	case remote.EventDisconnected:
		g.onDisconnected(ev.Code, ev.Message)

	case remote.EventError:
		g.onRemoteError(ev.Err)
	}
}

func (g *Guard) onDisconnected(code int, msg string) {
	if g.state != domain.StateHealthy {
		g.logger.Info("transport disconnect noted", "state", g.state.String(), "code", code, "message", msg)
		return
	}

	g.logger.Warn("transport disconnected", "code", code, "message", msg)
	g.lastErr = domain.ErrTransportDisconnected.WithDetails(msg)
	g.stopMonitor()
	g.setState(domain.StateDegraded)
	g.publish(domain.EventDisconnected, func(ev *domain.Event) {
		ev.Code = code
		ev.Error = msg
	})

	ep := g.epoch
	g.graceTimer = g.clock.AfterFunc(g.cfg.DisconnectGrace, func() {
		g.post(func() {
			if ep != g.epoch || g.state != domain.StateDegraded {
				return
			}
			g.graceTimer = nil
			g.enterRecovering(domain.ErrTransportDisconnected)
			g.snapshot()
		})
	})
}

func (g *Guard) onRemoteError(err error) {
	if err == nil {
		return
	}
	classified := remote.Classify(err)
	if remote.IsRateLimited(err) {
		g.logger.Warn("remote is rate limiting", "error", err, "state", g.state.String())
		g.startCooldown()
		return
	}
	g.logger.Error("remote error", "error", err, "state", g.state.String())
	g.publish(domain.EventSteamError, func(ev *domain.Event) {
		ev.Error = domain.Describe(classified)
	})
}
