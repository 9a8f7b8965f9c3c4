package config

import "time"

// Default configuration values.
const (
	DefaultAPIAddr         = "127.0.0.1:5380"
	DefaultRateLimit       = 20
	DefaultRateBurst       = 40
	DefaultShutdownTimeout = 10 * time.Second

	DefaultSecretsDir = "maFiles"

	DefaultHealthInterval         = 2 * time.Minute
	DefaultIdleWindow             = 5 * time.Minute
	DefaultProbeTimeout           = 30 * time.Second
	DefaultDisconnectGrace        = 5 * time.Second
	DefaultRateLimitCooldown      = 60 * time.Second
	DefaultMaxReconnectAttempts   = 5
	DefaultBackoffBase            = time.Second
	DefaultLoginTimeout           = 60 * time.Second
	DefaultForceReconnectInterval = 10 * time.Second
	DefaultAcceptTimeout          = 30 * time.Second

	DefaultDriver = "loopback"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default daemon configuration.
func Default() *Config {
	return &Config{
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		API: APISection{
			Addr:            DefaultAPIAddr,
			RateLimit:       DefaultRateLimit,
			RateBurst:       DefaultRateBurst,
			Audit:           true,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Secrets: SecretsSection{
			Dir: DefaultSecretsDir,
		},
		Session: SessionSection{
			HealthInterval:         DefaultHealthInterval,
			IdleWindow:             DefaultIdleWindow,
			ProbeTimeout:           DefaultProbeTimeout,
			DisconnectGrace:        DefaultDisconnectGrace,
			RateLimitCooldown:      DefaultRateLimitCooldown,
			MaxReconnectAttempts:   DefaultMaxReconnectAttempts,
			BackoffBase:            DefaultBackoffBase,
			LoginTimeout:           DefaultLoginTimeout,
			ForceReconnectInterval: DefaultForceReconnectInterval,
			AcceptTimeout:          DefaultAcceptTimeout,
		},
		Remote: RemoteSection{
			Driver: DefaultDriver,
		},
	}
}
