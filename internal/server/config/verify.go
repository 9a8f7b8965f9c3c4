package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"

	"github.com/yndnr/tradeguard/internal/telemetry/logger"
	"github.com/yndnr/tradeguard/pkg/token"
)

// Verify validates the configuration and returns every problem found.
func Verify(cfg *Config) error {
	var errs []error
	errs = append(errs, verifyLog(&cfg.Log)...)
	errs = append(errs, verifyAPI(&cfg.API)...)
	errs = append(errs, verifySession(&cfg.Session)...)
	errs = append(errs, verifyRemote(&cfg.Remote)...)
	if strings.TrimSpace(cfg.Secrets.Dir) == "" {
		errs = append(errs, errors.New("secrets.dir is required"))
	}
	return errors.Join(errs...)
}

func verifyLog(cfg *LogSection) []error {
	var errs []error
	if !logger.ValidLevel(cfg.Level) {
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level))
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of json, text", cfg.Format))
	}
	return errs
}

func verifyAPI(cfg *APISection) []error {
	var errs []error
	host, _, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		return append(errs, fmt.Errorf("api.addr %q: %w", cfg.Addr, err))
	}

	if cfg.Socket != "" && !filepath.IsAbs(cfg.Socket) {
		errs = append(errs, fmt.Errorf("api.socket %q must be an absolute path", cfg.Socket))
	}

	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		errs = append(errs, errors.New("api.tls_cert and api.tls_key must be set together"))
	}

	if cfg.TokenHash == "" {
		if !isLoopbackHost(host) {
			errs = append(errs, fmt.Errorf("api.token_hash is required when api.addr %q is not a loopback address", cfg.Addr))
		}
	} else if !token.Valid(cfg.TokenHash) {
		errs = append(errs, errors.New("api.token_hash is not an argon2id hash (use `tradeguard-cli token hash`)"))
	}

	if cfg.RateLimit < 0 {
		errs = append(errs, errors.New("api.rate_limit must not be negative"))
	}
	if cfg.RateLimit > 0 && cfg.RateBurst < 1 {
		errs = append(errs, errors.New("api.rate_burst must be at least 1 when rate limiting"))
	}
	return errs
}

func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func verifySession(cfg *SessionSection) []error {
	var errs []error
	for _, f := range []struct {
		name string
		d    time.Duration
	}{
		{"session.health_interval", cfg.HealthInterval},
		{"session.probe_timeout", cfg.ProbeTimeout},
		{"session.backoff_base", cfg.BackoffBase},
		{"session.login_timeout", cfg.LoginTimeout},
		{"session.force_reconnect_interval", cfg.ForceReconnectInterval},
		{"session.accept_timeout", cfg.AcceptTimeout},
	} {
		if f.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", f.name))
		}
	}
	if cfg.IdleWindow < 0 || cfg.DisconnectGrace < 0 || cfg.RateLimitCooldown < 0 {
		errs = append(errs, errors.New("session.idle_window, disconnect_grace and rate_limit_cooldown must not be negative"))
	}
	if cfg.MaxReconnectAttempts < 1 {
		errs = append(errs, errors.New("session.max_reconnect_attempts must be at least 1"))
	}
	return errs
}

func verifyRemote(cfg *RemoteSection) []error {
	if cfg.Driver != "loopback" {
		return []error{fmt.Errorf("remote.driver %q is not supported", cfg.Driver)}
	}
	var errs []error
	seen := make(map[string]bool)
	for i, a := range cfg.Loopback.Accounts {
		name := strings.ToLower(a.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("remote.loopback.accounts[%d].name is required", i))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("remote.loopback.accounts[%d]: duplicate account %q", i, a.Name))
		}
		seen[name] = true
	}
	for i, o := range cfg.Loopback.Offers {
		if o.ID == "" {
			errs = append(errs, fmt.Errorf("remote.loopback.offers[%d].id is required", i))
		}
	}
	return errs
}
