package config

import (
	"strings"
	"testing"

	"github.com/yndnr/tradeguard/pkg/token"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.API.Addr != DefaultAPIAddr {
		t.Errorf("API.Addr = %q, want %q", cfg.API.Addr, DefaultAPIAddr)
	}
	if cfg.Session.HealthInterval != DefaultHealthInterval {
		t.Errorf("HealthInterval = %v", cfg.Session.HealthInterval)
	}
	if cfg.Session.MaxReconnectAttempts != 5 {
		t.Errorf("MaxReconnectAttempts = %d, want 5", cfg.Session.MaxReconnectAttempts)
	}
	if cfg.Session.AutoAcceptGifts {
		t.Error("auto-accept should default to off")
	}
	if cfg.Log.Level != DefaultLogLevel || cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if err := Verify(cfg); err != nil {
		t.Fatalf("Verify(Default()) error = %v", err)
	}
}

func TestVerify(t *testing.T) {
	hash, err := token.HashWithParams("t", token.Params{Memory: 1024, Time: 1, Threads: 1, SaltLen: 8, KeyLen: 16})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults"},
		{name: "public addr with token", mutate: func(c *Config) { c.API.Addr = "0.0.0.0:5380"; c.API.TokenHash = hash }},
		{name: "localhost without token", mutate: func(c *Config) { c.API.Addr = "localhost:5380" }},
		{name: "public addr without token", mutate: func(c *Config) { c.API.Addr = "0.0.0.0:5380" }, wantErr: "api.token_hash is required"},
		{name: "bad token hash", mutate: func(c *Config) { c.API.TokenHash = "sha256:abc" }, wantErr: "not an argon2id hash"},
		{name: "absolute socket", mutate: func(c *Config) { c.API.Socket = "/run/tradeguard/api.sock" }},
		{name: "relative socket", mutate: func(c *Config) { c.API.Socket = "api.sock" }, wantErr: "api.socket"},
		{name: "tls pair", mutate: func(c *Config) { c.API.TLSCert, c.API.TLSKey = "api.crt", "api.key" }},
		{name: "tls cert without key", mutate: func(c *Config) { c.API.TLSCert = "api.crt" }, wantErr: "api.tls_key"},
		{name: "bad addr", mutate: func(c *Config) { c.API.Addr = "nope" }, wantErr: "api.addr"},
		{name: "bad level", mutate: func(c *Config) { c.Log.Level = "trace" }, wantErr: "log.level"},
		{name: "bad format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "log.format"},
		{name: "zero interval", mutate: func(c *Config) { c.Session.HealthInterval = 0 }, wantErr: "session.health_interval must be positive"},
		{name: "zero attempts", mutate: func(c *Config) { c.Session.MaxReconnectAttempts = 0 }, wantErr: "max_reconnect_attempts"},
		{name: "no secrets dir", mutate: func(c *Config) { c.Secrets.Dir = " " }, wantErr: "secrets.dir"},
		{name: "unknown driver", mutate: func(c *Config) { c.Remote.Driver = "steam" }, wantErr: "remote.driver"},
		{name: "burst without rate", mutate: func(c *Config) { c.API.RateBurst = 0 }, wantErr: "api.rate_burst"},
		{
			name: "duplicate account",
			mutate: func(c *Config) {
				c.Remote.Loopback.Accounts = []AccountConfig{{Name: "alice"}, {Name: "Alice"}}
			},
			wantErr: "duplicate account",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := Verify(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Verify() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Verify() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestVerify_ReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "trace"
	cfg.Secrets.Dir = ""
	err := Verify(cfg)
	if err == nil {
		t.Fatal("Verify() = nil")
	}
	for _, want := range []string{"log.level", "secrets.dir"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestSanitize(t *testing.T) {
	cfg := Default()
	cfg.API.TokenHash = "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$a2V5"
	cfg.Remote.Loopback.Accounts = []AccountConfig{{Name: "bob", Password: "hunter22", SharedSecret: "c2VjcmV0"}}

	s := Sanitize(cfg)
	if s.API.TokenHash == cfg.API.TokenHash {
		t.Error("token hash not masked")
	}
	acct := s.Remote.Loopback.Accounts[0]
	if acct.Password != "hu****22" {
		t.Errorf("password = %q", acct.Password)
	}
	if acct.SharedSecret == "c2VjcmV0" {
		t.Error("shared secret not masked")
	}
	if cfg.Remote.Loopback.Accounts[0].Password != "hunter22" {
		t.Error("Sanitize modified the original")
	}
}
