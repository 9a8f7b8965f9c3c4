package guard

import (
	"context"
	"errors"
	"time"

	"github.com/yndnr/tradeguard/internal/core/domain"
	"github.com/yndnr/tradeguard/internal/remote"
)

// Login authenticates and completes the web session handshake. It returns
// nil once the Guard is Healthy, or the reason the attempt ended:
// ErrTwoFactorRequired, ErrAuthRejected, ErrHandshakeFailed,
// ErrRateLimited or ErrLoginInProgress.
//
// A login while a session exists supersedes it. When creds carry no code
// the Secret Store is asked for one; having neither is allowed.
func (g *Guard) Login(ctx context.Context, creds domain.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}

	reply := make(chan error, 1)
	if err := g.ask(ctx, func() { g.startLogin(creds, reply) }); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-g.done:
		return domain.ErrInternal.WithDetails("session guard stopped")
	}
}

func (g *Guard) startLogin(creds domain.Credentials, reply chan error) {
	defer g.snapshot()

	if g.state.IsLoggingIn() {
		reply <- domain.ErrLoginInProgress
		return
	}
	if g.state.HasSession() {
		g.logger.Info("new login supersedes the current session", "previous", g.identity, "identity", creds.Identity)
		g.teardown()
	}

	if creds.Code == "" && g.codes != nil {
		if code, ok := g.codes.GenerateCode(creds.Identity); ok {
			creds.Code = code
			g.logger.Info("using stored authenticator for login", "identity", creds.Identity)
		}
	}

	g.newEpoch()
	g.identity = creds.Identity
	g.steamID = ""
	g.lastErr = nil
	g.loginReply = reply
	g.setState(domain.StateAuthenticating)

	ep, ctx := g.epoch, g.epochCtx
	timeout := g.cfg.LoginTimeout
	g.enqueue(func() {
		callCtx, cancel := withTimeout(ctx, timeout)
		defer cancel()
		res, err := g.client.LogOn(callCtx, creds)
		g.post(func() { g.onLogOn(ep, res, err) })
	})
}

func (g *Guard) onLogOn(ep uint64, res remote.LogOnResult, err error) {
	if ep != g.epoch || g.state != domain.StateAuthenticating {
		g.logger.Debug("discarding stale logon result", "epoch", ep)
		return
	}
	defer g.snapshot()

	if err != nil {
		g.failLogin(g.classifyCallErr(err, "logon"))
		return
	}

	g.steamID = res.SteamID
	g.setState(domain.StateEstablishing)
	g.publish(domain.EventLoginSuccess, func(ev *domain.Event) { ev.SteamID = res.SteamID })

	ctx := g.epochCtx
	timeout := g.cfg.LoginTimeout
	g.enqueue(func() {
		callCtx, cancel := withTimeout(ctx, timeout)
		defer cancel()
		err := g.client.WebLogOn(callCtx)
		g.post(func() { g.onHandshake(ep, err) })
	})
}

func (g *Guard) onHandshake(ep uint64, err error) {
	if ep != g.epoch || g.state != domain.StateEstablishing {
		g.logger.Debug("discarding stale handshake result", "epoch", ep)
		return
	}
	defer g.snapshot()

	if err != nil {
		cause := g.classifyCallErr(err, "handshake")
		if !errors.Is(cause, domain.ErrRateLimited) {
			cause = domain.ErrHandshakeFailed.WithDetails(domain.Describe(cause)).WithCause(err)
		}
		g.logOffAsync()
		g.failLogin(cause)
		return
	}

	now := g.clock.Now()
	sess, serr := domain.NewSession(g.identity, g.steamID, g.autoAccept, now)
	if serr != nil {
		g.logOffAsync()
		g.failLogin(serr)
		return
	}
	g.session = sess
	g.attempt = 0
	g.setState(domain.StateHealthy)
	g.metrics.RecordLogin("success")
	g.logger.Info("session established", "identity", g.identity, "session_id", sess.ID, "steam_id", g.steamID)
	g.publish(domain.EventSessionReady, func(ev *domain.Event) { ev.SteamID = g.steamID })
	g.startMonitor()
	g.replyLogin(nil)
}

// failLogin ends a login attempt in LoggedOut with exactly one log entry
// and, where the UI has a kind for it, one notification.
func (g *Guard) failLogin(err error) {
	g.lastErr = err
	g.setState(domain.StateLoggedOut)

	switch {
	case errors.Is(err, domain.ErrTwoFactorRequired):
		g.metrics.RecordLogin("two_factor_required")
		g.logger.Info("login needs a two-factor code", "identity", g.identity, "reason", domain.Describe(err))
		g.publish(domain.EventNeedsTwoFactor, func(ev *domain.Event) { ev.Error = domain.Describe(err) })
	case errors.Is(err, domain.ErrRateLimited):
		g.metrics.RecordLogin("rate_limited")
		g.logger.Warn("login rate limited", "identity", g.identity)
		g.startCooldown()
	case errors.Is(err, domain.ErrHandshakeFailed):
		g.metrics.RecordLogin("handshake_failed")
		g.logger.Error("web session handshake failed", "identity", g.identity, "error", err)
		g.publish(domain.EventSteamError, func(ev *domain.Event) { ev.Error = domain.Describe(err) })
	default:
		g.metrics.RecordLogin("rejected")
		g.logger.Warn("login rejected", "identity", g.identity, "reason", domain.Describe(err))
	}
	g.replyLogin(err)
}

func (g *Guard) replyLogin(err error) {
	if g.loginReply == nil {
		return
	}
	g.snapshot()
	g.loginReply <- err
	g.loginReply = nil
}

// classifyCallErr maps a remote call failure, treating an expired call
// deadline as a timeout rather than a rejection.
func (g *Guard) classifyCallErr(err error, call string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrRemote.WithDetails(call + " timed out").WithCause(err)
	}
	return remote.Classify(err)
}

// Logout ends the session from any state. It is idempotent.
func (g *Guard) Logout(ctx context.Context) error {
	return g.ask(ctx, func() {
		defer g.snapshot()
		if g.state == domain.StateLoggedOut && g.loginReply == nil {
			return
		}
		g.teardown()
	})
}

// teardown moves to LoggedOut: timers and monitor stop, in-flight results
// become stale, the remote session is logged off best effort.
func (g *Guard) teardown() {
	prev := g.state
	g.stopRetry()
	g.stopGrace()
	g.stopMonitor()
	g.newEpoch()

	g.endSession()
	g.attempt = 0
	g.lastErr = nil
	g.setState(domain.StateLoggedOut)
	g.logOffAsync()

	if prev != domain.StateLoggedOut {
		g.logger.Info("logged out", "identity", g.identity, "from", prev.String())
		g.publish(domain.EventLoggedOut, nil)
	}
	g.replyLogin(domain.ErrNotLoggedIn.WithDetails("login cancelled by logout"))
}

func (g *Guard) logOffAsync() {
	base := g.base
	timeout := g.cfg.LoginTimeout
	g.enqueue(func() {
		ctx, cancel := withTimeout(base, timeout)
		defer cancel()
		if err := g.client.LogOff(ctx); err != nil {
			g.logger.Debug("remote logoff failed", "error", err)
		}
	})
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
