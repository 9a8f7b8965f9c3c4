package confloader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testConfig struct {
	API struct {
		Addr string `koanf:"addr"`
	} `koanf:"api"`
	Session struct {
		AutoAcceptGifts bool   `koanf:"auto_accept_gifts"`
		HealthInterval  string `koanf:"health_interval"`
		MaxAttempts     int    `koanf:"max_attempts"`
	} `koanf:"session"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tradeguard.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestNewLoader_WithOptions(t *testing.T) {
	if l := NewLoader(); l.envPrefix != DefaultEnvPrefix {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, DefaultEnvPrefix)
	}

	l := NewLoader(WithEnvPrefix("TEST_"), WithConfigFile("/path/to/config.yaml"))
	if l.envPrefix != "TEST_" {
		t.Errorf("envPrefix = %q", l.envPrefix)
	}
	if l.File() != "/path/to/config.yaml" {
		t.Errorf("File() = %q", l.File())
	}
}

func TestLoader_Load_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
api:
  addr: "127.0.0.1:5380"
session:
  auto_accept_gifts: false
  health_interval: 2m
`)
	t.Setenv("TGTEST_SESSION__AUTO_ACCEPT_GIFTS", "true")

	var cfg testConfig
	l := NewLoader(WithConfigFile(path), WithEnvPrefix("TGTEST_"))
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Addr != "127.0.0.1:5380" {
		t.Errorf("api.addr = %q", cfg.API.Addr)
	}
	if !cfg.Session.AutoAcceptGifts {
		t.Error("env did not override session.auto_accept_gifts")
	}
	if cfg.Session.HealthInterval != "2m" {
		t.Errorf("session.health_interval = %q", cfg.Session.HealthInterval)
	}
}

func TestLoader_Load_KeepsDefaults(t *testing.T) {
	path := writeConfig(t, "session:\n  health_interval: 5m\n")

	var cfg testConfig
	cfg.API.Addr = "default:1"
	if err := NewLoader(WithConfigFile(path), WithEnvPrefix("TGNONE_")).Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.Addr != "default:1" {
		t.Errorf("api.addr = %q, want default kept", cfg.API.Addr)
	}
}

func TestLoader_Load_Errors(t *testing.T) {
	if err := NewLoader(WithConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))).Load(&testConfig{}); err == nil {
		t.Error("missing file accepted")
	}
	bad := writeConfig(t, "api: [unclosed")
	if err := NewLoader(WithConfigFile(bad)).Load(&testConfig{}); err == nil {
		t.Error("bad yaml accepted")
	}
}

func TestLoader_OverridesWin(t *testing.T) {
	path := writeConfig(t, "api:\n  addr: file:1\nsession:\n  auto_accept_gifts: true\n")
	t.Setenv("TGTEST_API__ADDR", "env:2")

	var cfg testConfig
	l := NewLoader(WithConfigFile(path), WithEnvPrefix("TGTEST_"), WithOverrides(map[string]string{
		"api.addr":                  "flag:3",
		"session.auto_accept_gifts": "false",
		"session.max_attempts":      "7",
	}))
	if err := l.Load(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.API.Addr != "flag:3" || cfg.Session.AutoAcceptGifts || cfg.Session.MaxAttempts != 7 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoader_LoadAgainSeesFileChanges(t *testing.T) {
	path := writeConfig(t, "api:\n  addr: one:1\n")
	l := NewLoader(WithConfigFile(path), WithEnvPrefix("TGNONE_"))

	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("api:\n  addr: two:2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var next testConfig
	if err := l.Load(&next); err != nil {
		t.Fatal(err)
	}
	if cfg.API.Addr != "one:1" || next.API.Addr != "two:2" {
		t.Errorf("first %q, second %q", cfg.API.Addr, next.API.Addr)
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"TRADEGUARD_API__ADDR":                  "api.addr",
		"TRADEGUARD_SESSION__AUTO_ACCEPT_GIFTS": "session.auto_accept_gifts",
		"TRADEGUARD_REMOTE__LOOPBACK__DRIVER":   "remote.loopback.driver",
	}
	for in, want := range tests {
		if got := EnvKey(DefaultEnvPrefix, in); got != want {
			t.Errorf("EnvKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseOverride(t *testing.T) {
	key, value, err := ParseOverride("log.level=debug")
	if err != nil || key != "log.level" || value != "debug" {
		t.Errorf("ParseOverride = %q, %q, %v", key, value, err)
	}
	if _, value, err := ParseOverride("api.cors_origins=a=b"); err != nil || value != "a=b" {
		t.Errorf("value with '=' = %q, %v", value, err)
	}
	for _, bad := range []string{"novalue", "=x", ".a=1", "a.=1"} {
		if _, _, err := ParseOverride(bad); err == nil || !strings.Contains(err.Error(), "key.path=value") {
			t.Errorf("ParseOverride(%q) err = %v", bad, err)
		}
	}
}
