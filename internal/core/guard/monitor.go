package guard

import (
	"context"
	"errors"
	"time"

	"github.com/yndnr/tradeguard/internal/core/domain"
	"github.com/yndnr/tradeguard/internal/remote"
)

// startMonitor begins health ticks. The monitor runs only while Healthy.
func (g *Guard) startMonitor() {
	g.stopMonitor()
	if g.cfg.HealthInterval <= 0 {
		return
	}
	g.scheduleTick(g.monitorGen)
}

func (g *Guard) stopMonitor() {
	g.monitorGen++
	g.probing = false
	if g.tickTimer != nil {
		g.tickTimer.Stop()
		g.tickTimer = nil
	}
}

func (g *Guard) scheduleTick(gen uint64) {
	g.tickTimer = g.clock.AfterFunc(g.cfg.HealthInterval, func() {
		g.post(func() { g.healthTick(gen) })
	})
}

// healthTick decides whether the connection needs a probe. Recent offer
// traffic is proof of life; an active rate-limit cooldown means probing
// would only make things worse.
func (g *Guard) healthTick(gen uint64) {
	if gen != g.monitorGen || g.state != domain.StateHealthy || g.session == nil {
		return
	}
	g.scheduleTick(gen)

	now := g.clock.Now()
	if now.Before(g.cooldownEnd) {
		g.metrics.RecordProbe("skipped_cooldown")
		g.logger.Debug("health probe skipped during rate-limit cooldown")
		return
	}
	if idle, seen := g.session.IdleFor(now); seen && idle < g.cfg.IdleWindow {
		g.metrics.RecordProbe("skipped_idle")
		g.logger.Debug("health probe skipped, recent offer activity", "idle", idle.String())
		return
	}
	if g.probing || g.prober == nil {
		return
	}

	g.probing = true
	ep, ctx := g.epoch, g.epochCtx
	timeout := g.cfg.ProbeTimeout
	go func() {
		callCtx, cancel := withTimeout(ctx, timeout)
		defer cancel()
		err := g.prober.Probe(callCtx)
		connected := g.client.Connected()
		g.post(func() { g.onProbe(ep, gen, err, connected) })
	}()
}

func (g *Guard) onProbe(ep, gen uint64, err error, connected bool) {
	if ep != g.epoch || gen != g.monitorGen || g.state != domain.StateHealthy {
		return
	}
	defer g.snapshot()
	g.probing = false

	if err == nil {
		g.session.LastProbeOKAt = g.clock.Now()
		g.metrics.RecordProbe("ok")
		g.logger.Debug("health probe succeeded")
		return
	}

	if remote.IsRateLimited(err) {
		g.metrics.RecordProbe("rate_limited")
		g.startCooldown()
		return
	}

	if connected {
		g.metrics.RecordProbe("failed_connected")
		g.logger.Warn("health probe failed but transport is connected, staying healthy", "error", err)
		return
	}

	g.metrics.RecordProbe("failed_disconnected")
	g.logger.Warn("connection appears lost", "error", err)
	g.publish(domain.EventConnectionLost, func(ev *domain.Event) { ev.Error = domain.Describe(remote.Classify(err)) })
	g.enterRecovering(domain.ErrTransportDisconnected.WithCause(err))
}

// Connection status values reported by CheckConnection.
const (
	ConnFullyConnected     = "fully_connected"
	ConnTransportConnected = "transport_connected"
	ConnTestFailed         = "connection_test_failed"
)

// ConnectionStatus is the result of an on-demand connection check.
type ConnectionStatus struct {
	State               domain.SessionState `json:"state"`
	Connected           bool                `json:"connected"`
	ConnectionStatus    string              `json:"connection_status"`
	TransportConnected  bool                `json:"transport_connected"`
	ProbeOK             bool                `json:"probe_ok"`
	ProbeError          string              `json:"probe_error,omitempty"`
	LastOfferObservedAt *time.Time          `json:"last_activity,omitempty"`
	LastProbeOKAt       *time.Time          `json:"last_probe_ok_at,omitempty"`
}

// CheckConnection probes the remote now and reports the combined view.
// It never triggers recovery.
func (g *Guard) CheckConnection(ctx context.Context) (ConnectionStatus, error) {
	var (
		ep      uint64
		epCtx   context.Context
		hasSess bool
	)
	if err := g.ask(ctx, func() {
		ep, epCtx, hasSess = g.epoch, g.epochCtx, g.session != nil
	}); err != nil {
		return ConnectionStatus{}, err
	}
	if !hasSess {
		return ConnectionStatus{}, domain.ErrNotLoggedIn
	}

	var probeErr error
	if g.prober != nil {
		callCtx, cancel := withTimeout(epCtx, g.cfg.ProbeTimeout)
		probeCtx, stop := context.WithCancel(callCtx)
		go func() {
			select {
			case <-ctx.Done():
				stop()
			case <-probeCtx.Done():
			}
		}()
		probeErr = g.prober.Probe(probeCtx)
		stop()
		cancel()
	} else {
		probeErr = errors.New("no prober configured")
	}
	transport := g.client.Connected()

	var out ConnectionStatus
	if err := g.ask(ctx, func() {
		if ep != g.epoch || g.session == nil {
			out.State = g.state
			return
		}
		if probeErr == nil {
			g.session.LastProbeOKAt = g.clock.Now()
			g.snapshot()
		}
		out.State = g.state
		if t := g.session.LastOfferObservedAt; !t.IsZero() {
			out.LastOfferObservedAt = &t
		}
		if t := g.session.LastProbeOKAt; !t.IsZero() {
			out.LastProbeOKAt = &t
		}
	}); err != nil {
		return ConnectionStatus{}, err
	}
	if !out.State.HasSession() {
		return ConnectionStatus{}, domain.ErrNotLoggedIn
	}

	out.TransportConnected = transport
	out.ProbeOK = probeErr == nil
	out.Connected = out.ProbeOK || transport
	switch {
	case out.ProbeOK:
		out.ConnectionStatus = ConnFullyConnected
	case transport:
		out.ConnectionStatus = ConnTransportConnected
	default:
		out.ConnectionStatus = ConnTestFailed
	}
	if probeErr != nil {
		out.ProbeError = domain.Describe(remote.Classify(probeErr))
	}
	return out, nil
}
