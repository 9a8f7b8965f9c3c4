package config

import "time"

// Config is the root configuration for the tradeguard daemon.
type Config struct {
	Log     LogSection     `koanf:"log"`
	API     APISection     `koanf:"api"`
	Secrets SecretsSection `koanf:"secrets"`
	Session SessionSection `koanf:"session"`
	Remote  RemoteSection  `koanf:"remote"`
}

// LogSection configures logging. Level is reloadable.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// APISection configures the local HTTP API.
type APISection struct {
	Addr string `koanf:"addr"`

	// Socket is an optional Unix socket path serving the same API without
	// a token. Access is limited to the daemon's user by file mode.
	Socket string `koanf:"socket"`

	// TLSCert and TLSKey enable HTTPS on Addr. The pair reloads when
	// either file changes.
	TLSCert string `koanf:"tls_cert"`
	TLSKey  string `koanf:"tls_key"`

	// TokenHash is an argon2id hash of the bearer token
	// (`tradeguard-cli token hash`). Empty disables authentication; only
	// allowed on a loopback address.
	TokenHash string `koanf:"token_hash"`

	// RateLimit is the per-client request rate in requests per second.
	// Zero disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`

	CORSOrigins []string `koanf:"cors_origins"`
	Audit       bool     `koanf:"audit"`

	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// SecretsSection configures the authenticator record directory.
type SecretsSection struct {
	Dir string `koanf:"dir"`
}

// SessionSection configures the Session Guard. AutoAcceptGifts is the
// startup default and is reloadable.
type SessionSection struct {
	AutoAcceptGifts        bool          `koanf:"auto_accept_gifts"`
	HealthInterval         time.Duration `koanf:"health_interval"`
	IdleWindow             time.Duration `koanf:"idle_window"`
	ProbeTimeout           time.Duration `koanf:"probe_timeout"`
	DisconnectGrace        time.Duration `koanf:"disconnect_grace"`
	RateLimitCooldown      time.Duration `koanf:"rate_limit_cooldown"`
	MaxReconnectAttempts   int           `koanf:"max_reconnect_attempts"`
	BackoffBase            time.Duration `koanf:"backoff_base"`
	LoginTimeout           time.Duration `koanf:"login_timeout"`
	ForceReconnectInterval time.Duration `koanf:"force_reconnect_interval"`
	AcceptTimeout          time.Duration `koanf:"accept_timeout"`
}

// RemoteSection selects the trade service driver.
type RemoteSection struct {
	// Driver names the remote implementation. Only "loopback" ships.
	Driver   string          `koanf:"driver"`
	Loopback LoopbackSection `koanf:"loopback"`
}

// LoopbackSection seeds the in-process remote.
type LoopbackSection struct {
	Accounts []AccountConfig `koanf:"accounts"`
	Offers   []OfferConfig   `koanf:"offers"`
}

// AccountConfig is one loopback account.
type AccountConfig struct {
	Name         string `koanf:"name"`
	Password     string `koanf:"password"`
	SteamID      string `koanf:"steam_id"`
	SharedSecret string `koanf:"shared_secret"`
}

// OfferConfig is one offer announced after the first web session.
type OfferConfig struct {
	ID      string       `koanf:"id"`
	Partner string       `koanf:"partner"`
	Message string       `koanf:"message"`
	Give    []ItemConfig `koanf:"give"`
	Receive []ItemConfig `koanf:"receive"`
}

// ItemConfig identifies an item in an offer.
type ItemConfig struct {
	AppID     uint32 `koanf:"appid"`
	ContextID string `koanf:"contextid"`
	AssetID   string `koanf:"assetid"`
}
