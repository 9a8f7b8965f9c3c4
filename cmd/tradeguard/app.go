package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/yndnr/tradeguard/internal/core/domain"
	"github.com/yndnr/tradeguard/internal/core/guard"
	"github.com/yndnr/tradeguard/internal/core/ingest"
	"github.com/yndnr/tradeguard/internal/core/notify"
	"github.com/yndnr/tradeguard/internal/core/surface"
	"github.com/yndnr/tradeguard/internal/infra/buildinfo"
	"github.com/yndnr/tradeguard/internal/infra/confloader"
	"github.com/yndnr/tradeguard/internal/infra/shutdown"
	"github.com/yndnr/tradeguard/internal/infra/tlsroots"
	"github.com/yndnr/tradeguard/internal/remote/loopback"
	"github.com/yndnr/tradeguard/internal/server/config"
	"github.com/yndnr/tradeguard/internal/server/httpserver"
	"github.com/yndnr/tradeguard/internal/server/httpserver/handler"
	"github.com/yndnr/tradeguard/internal/storage/mafile"
	"github.com/yndnr/tradeguard/internal/telemetry/logger"
	"github.com/yndnr/tradeguard/internal/telemetry/metric"
)

// app holds the wired components.
type app struct {
	log     *slog.Logger
	metrics *metric.Registry
	bus     *notify.Bus
	secrets *mafile.Store
	remote  *loopback.Server
	ingest  *ingest.Ingest
	guard   *guard.Guard
	server  *httpserver.Server

	// socket serves the same API on a Unix socket without a token.
	socket *httpserver.Server

	keypair *tlsroots.Keypair
}

func build(cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{log: log, metrics: metric.NewRegistry()}

	a.bus = notify.New(notify.WithLogger(log), notify.WithMetrics(a.metrics))

	a.secrets = mafile.New(cfg.Secrets.Dir, mafile.WithLogger(log))
	if _, err := a.secrets.Scan(); err != nil {
		log.Warn("initial secret scan failed", "dir", cfg.Secrets.Dir, "error", err)
	}

	a.remote = newRemote(cfg.Remote, log)

	a.ingest = ingest.New(a.remote,
		ingest.WithPublisher(a.bus),
		ingest.WithLogger(log),
		ingest.WithMetrics(a.metrics),
		ingest.WithAcceptTimeout(cfg.Session.AcceptTimeout),
	)

	a.guard = guard.New(a.remote, guardConfig(cfg.Session),
		guard.WithSecrets(a.secrets),
		guard.WithProber(a.ingest),
		guard.WithObserver(a.ingest),
		guard.WithPublisher(a.bus),
		guard.WithLogger(log),
		guard.WithMetrics(a.metrics),
	)

	a.metrics.MustRegister(metric.NewCollector(a.snapshot, stateNames()))

	verifier, err := httpserver.NewTokenVerifier(cfg.API.TokenHash)
	if err != nil {
		return nil, fmt.Errorf("api.token_hash: %w", err)
	}
	if verifier == nil {
		log.Warn("local API authentication disabled", "addr", cfg.API.Addr)
	}
	var limiter *httpserver.RateLimiter
	if cfg.API.RateLimit > 0 {
		limiter = httpserver.NewRateLimiter(cfg.API.RateLimit, cfg.API.RateBurst)
	}

	cmds := surface.New(a.guard, a.ingest, a.secrets, log)
	h := handler.New(cmds, a.bus, log, handler.WithVersion(buildinfo.Version))
	routerCfg := httpserver.RouterConfig{
		Handler:            h,
		Metrics:            a.metrics,
		Logger:             log,
		Verifier:           verifier,
		Limiter:            limiter,
		CORSAllowedOrigins: cfg.API.CORSOrigins,
		EnableAudit:        cfg.API.Audit,
	}
	a.server = httpserver.New(cfg.API.Addr, httpserver.NewRouter(&routerCfg), log)
	if cfg.API.TLSCert != "" {
		a.keypair, err = tlsroots.LoadKeypair(cfg.API.TLSCert, cfg.API.TLSKey, log)
		if err != nil {
			return nil, err
		}
		a.server.UseTLS(a.keypair.ServerConfig())
	}

	if cfg.API.Socket != "" {
		local := routerCfg
		local.Verifier = nil
		local.Limiter = nil
		a.socket = httpserver.New("unix:"+cfg.API.Socket, httpserver.NewRouter(&local), log)
	}
	return a, nil
}

// start launches the components and registers their shutdown hooks in
// start order.
func (a *app) start(sd *shutdown.Handler) error {
	a.ingest.Start()
	sd.OnShutdown("ingest", a.ingest.Stop)

	a.guard.Start()
	sd.OnShutdown("guard", a.guard.Stop)

	if a.keypair != nil {
		if err := a.keypair.Watch(); err != nil {
			a.log.Warn("certificate watch disabled", "error", err)
		}
		sd.OnShutdown("certificate watcher", func(context.Context) error { return a.keypair.Close() })
	}

	if err := a.serve(sd, "local API", a.server); err != nil {
		return err
	}
	if a.socket != nil {
		if err := a.serve(sd, "local socket", a.socket); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) serve(sd *shutdown.Handler, name string, srv *httpserver.Server) error {
	if err := srv.Listen(); err != nil {
		return fmt.Errorf("listen %s: %w", srv.Addr(), err)
	}
	go func() {
		if err := srv.Serve(); err != nil {
			a.log.Error(name+" stopped", "error", err)
			sd.Trigger(name + " failed")
		}
	}()
	sd.OnShutdown(name, srv.Shutdown)
	return nil
}

func (a *app) snapshot() metric.Snapshot {
	st := a.guard.Status()
	return metric.Snapshot{
		State:           st.State.String(),
		HasSession:      st.State.HasSession(),
		AutoAcceptGifts: st.AutoAcceptGifts,
		PendingOffers:   len(a.ingest.Pending()),
	}
}

func stateNames() []string {
	var names []string
	for s := domain.StateLoggedOut; s <= domain.StateFailed; s++ {
		names = append(names, s.String())
	}
	return names
}

func guardConfig(s config.SessionSection) guard.Config {
	return guard.Config{
		AutoAcceptGifts:        s.AutoAcceptGifts,
		HealthInterval:         s.HealthInterval,
		IdleWindow:             s.IdleWindow,
		ProbeTimeout:           s.ProbeTimeout,
		DisconnectGrace:        s.DisconnectGrace,
		RateLimitCooldown:      s.RateLimitCooldown,
		LoginTimeout:           s.LoginTimeout,
		ForceReconnectInterval: s.ForceReconnectInterval,
		Retry: guard.RetryPolicy{
			MaxAttempts: s.MaxReconnectAttempts,
			Delay:       guard.ExponentialBackoff(s.BackoffBase),
		},
	}
}

func newRemote(cfg config.RemoteSection, log *slog.Logger) *loopback.Server {
	accounts := make([]loopback.Account, 0, len(cfg.Loopback.Accounts))
	for _, a := range cfg.Loopback.Accounts {
		accounts = append(accounts, loopback.Account{
			Name:         a.Name,
			Password:     a.Password,
			SteamID:      a.SteamID,
			SharedSecret: a.SharedSecret,
		})
	}

	offers := make([]*domain.TradeOffer, 0, len(cfg.Loopback.Offers))
	for _, o := range cfg.Loopback.Offers {
		offers = append(offers, &domain.TradeOffer{
			ID:             o.ID,
			Partner:        o.Partner,
			Message:        o.Message,
			ItemsToGive:    items(o.Give),
			ItemsToReceive: items(o.Receive),
			State:          domain.OfferStateActive,
		})
	}

	return loopback.New(loopback.Options{Accounts: accounts, Offers: offers, Logger: log})
}

func items(in []config.ItemConfig) []domain.ItemRef {
	out := make([]domain.ItemRef, 0, len(in))
	for _, it := range in {
		out = append(out, domain.ItemRef{AppID: it.AppID, ContextID: it.ContextID, AssetID: it.AssetID})
	}
	return out
}

// watchConfig reloads the file on change and applies the settings that can
// change at runtime: log.level and session.auto_accept_gifts. Everything
// else needs a restart.
func watchConfig(loader *confloader.Loader, cfg *config.Config, a *app, log *slog.Logger) (*confloader.Watcher, error) {
	path := loader.File()
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return nil, err
	}

	var mu sync.Mutex
	current := *cfg
	w.OnChange(func(string) {
		next := config.Default()
		if err := loader.Load(next); err != nil {
			log.Error("config reload failed", "path", path, "error", err)
			return
		}
		if err := config.Verify(next); err != nil {
			log.Error("reloaded config rejected", "path", path, "error", err)
			return
		}

		mu.Lock()
		defer mu.Unlock()

		if next.Log.Level != current.Log.Level {
			logger.SetLevel(next.Log.Level)
			log.Info("log level changed", "level", next.Log.Level)
			current.Log.Level = next.Log.Level
		}
		if next.Session.AutoAcceptGifts != current.Session.AutoAcceptGifts {
			ctx, cancel := context.WithTimeout(context.Background(), next.Session.LoginTimeout)
			err := a.guard.SetAutoAcceptGifts(ctx, next.Session.AutoAcceptGifts)
			cancel()
			if err != nil {
				log.Error("applying auto_accept_gifts failed", "error", err)
				return
			}
			log.Info("auto-accept gifts changed", "enabled", next.Session.AutoAcceptGifts)
			current.Session.AutoAcceptGifts = next.Session.AutoAcceptGifts
		}
	})
	w.StartAsync()
	return w, nil
}
