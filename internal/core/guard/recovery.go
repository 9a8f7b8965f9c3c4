package guard

import (
	"context"
	"errors"
	"time"

	"github.com/yndnr/tradeguard/internal/core/domain"
)

// Force-reconnect replies.
const (
	ReconnectInitiated  = "reconnection attempt initiated"
	ReconnectInProgress = "reconnection already in progress"
)

// ForceReconnect starts recovery on user request. While recovery is
// already running it reports so without starting a second one.
func (g *Guard) ForceReconnect(ctx context.Context) (string, error) {
	var (
		msg string
		err error
	)
	askErr := g.ask(ctx, func() {
		defer g.snapshot()
		switch {
		case g.state == domain.StateRecovering:
			msg = ReconnectInProgress
		case !g.state.HasSession():
			err = domain.ErrNotLoggedIn
		case !g.limiter.AllowN(g.clock.Now(), 1):
			err = domain.ErrRateLimited.WithDetails("force reconnect requested too often")
		default:
			g.logger.Info("force reconnection requested")
			g.enterRecovering(domain.ErrTransportDisconnected.WithDetails("forced by user"))
			msg = ReconnectInitiated
		}
	})
	if askErr != nil {
		return "", askErr
	}
	return msg, err
}

// enterRecovering leaves Healthy or Degraded and starts attempt 1, delayed
// only by an active rate-limit cooldown.
func (g *Guard) enterRecovering(reason error) {
	g.stopMonitor()
	g.stopGrace()
	g.stopRetry()
	g.lastErr = reason
	g.attempt = 0
	g.setState(domain.StateRecovering)

	if wait := g.cooldownRemaining(); wait > 0 {
		g.scheduleRetry(wait)
		return
	}
	g.nextAttempt()
}

func (g *Guard) nextAttempt() {
	g.attempt++
	attempt := g.attempt
	g.logger.Info("reconnection attempt", "attempt", attempt, "max", g.cfg.Retry.MaxAttempts)

	ep, ctx := g.epoch, g.epochCtx
	timeout := g.cfg.LoginTimeout
	g.enqueue(func() {
		callCtx, cancel := withTimeout(ctx, timeout)
		defer cancel()
		err := g.client.WebLogOn(callCtx)
		g.post(func() { g.onRecoveryResult(ep, attempt, err) })
	})
}

func (g *Guard) onRecoveryResult(ep uint64, attempt int, err error) {
	if ep != g.epoch || g.state != domain.StateRecovering || attempt != g.attempt {
		return
	}
	defer g.snapshot()

	if err == nil {
		g.metrics.RecordReconnect("success")
		g.attempt = 0
		g.lastErr = nil
		g.session.Recoveries++
		g.setState(domain.StateHealthy)
		g.logger.Info("session recovered", "attempt", attempt)
		g.publish(domain.EventSessionReady, func(ev *domain.Event) {
			ev.SteamID = g.steamID
			ev.Recovered = true
			ev.Attempt = attempt
		})
		g.startMonitor()
		return
	}

	g.lastErr = g.classifyCallErr(err, "reconnect")
	delay := g.cfg.Retry.Delay(attempt)
	if errors.Is(g.lastErr, domain.ErrRateLimited) {
		g.metrics.RecordReconnect("rate_limited")
		g.startCooldown()
	} else {
		g.metrics.RecordReconnect("failure")
	}
	if wait := g.cooldownRemaining(); wait > delay {
		delay = wait
	}
	g.logger.Warn("reconnection attempt failed",
		"attempt", attempt,
		"retry_in", delay.String(),
		"error", err,
	)
	g.scheduleRetry(delay)
}

func (g *Guard) scheduleRetry(d time.Duration) {
	g.stopRetry()
	ep := g.epoch
	g.retryDue = g.clock.Now().Add(d)
	g.retryTimer = g.clock.AfterFunc(d, func() {
		g.post(func() { g.onRetryTimer(ep) })
	})
}

func (g *Guard) onRetryTimer(ep uint64) {
	if ep != g.epoch || g.state != domain.StateRecovering {
		return
	}
	defer g.snapshot()
	g.retryTimer = nil
	g.retryDue = time.Time{}

	if wait := g.cooldownRemaining(); wait > 0 {
		g.scheduleRetry(wait)
		return
	}
	if g.cfg.Retry.Exhausted(g.attempt) {
		g.failRecovery()
		return
	}
	g.nextAttempt()
}

// failRecovery gives up: the session is gone and a manual login is needed.
func (g *Guard) failRecovery() {
	cause := domain.ErrRecoveryExhausted
	if g.lastErr != nil {
		cause = cause.WithDetails(domain.Describe(g.lastErr))
	}
	g.metrics.RecordReconnect("exhausted")
	g.logger.Error("max reconnection attempts reached", "attempts", g.attempt, "error", g.lastErr)

	g.newEpoch()
	g.endSession()
	g.lastErr = cause
	g.setState(domain.StateFailed)
	g.publish(domain.EventReconnectionFailed, func(ev *domain.Event) {
		ev.Attempt = g.attempt
		ev.Error = domain.Describe(cause)
	})
	g.attempt = 0
}

func (g *Guard) stopRetry() {
	if g.retryTimer != nil {
		g.retryTimer.Stop()
		g.retryTimer = nil
	}
	g.retryDue = time.Time{}
}

func (g *Guard) stopGrace() {
	if g.graceTimer != nil {
		g.graceTimer.Stop()
		g.graceTimer = nil
	}
}

func (g *Guard) cooldownRemaining() time.Duration {
	if d := g.cooldownEnd.Sub(g.clock.Now()); d > 0 {
		return d
	}
	return 0
}

// startCooldown opens a rate-limit cooldown. State is unchanged; a pending
// retry is pushed back so it fires no earlier than the cooldown end.
func (g *Guard) startCooldown() {
	now := g.clock.Now()
	g.cooldownEnd = now.Add(g.cfg.RateLimitCooldown)
	g.logger.Warn("rate limit cooldown started", "until", g.cooldownEnd)
	g.publish(domain.EventRateLimited, func(ev *domain.Event) {
		ev.RetryIn = g.cfg.RateLimitCooldown.String()
	})

	if g.retryTimer != nil && g.retryDue.Before(g.cooldownEnd) {
		g.scheduleRetry(g.cooldownEnd.Sub(now))
	}
}
