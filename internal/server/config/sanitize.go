package config

import "strings"

// Sanitize returns a copy of the config with secrets masked, for logging.
func Sanitize(cfg *Config) *Config {
	s := *cfg
	if s.API.TokenHash != "" {
		s.API.TokenHash = maskSecret(s.API.TokenHash)
	}

	accounts := make([]AccountConfig, len(cfg.Remote.Loopback.Accounts))
	for i, a := range cfg.Remote.Loopback.Accounts {
		if a.Password != "" {
			a.Password = maskSecret(a.Password)
		}
		if a.SharedSecret != "" {
			a.SharedSecret = maskSecret(a.SharedSecret)
		}
		accounts[i] = a
	}
	s.Remote.Loopback.Accounts = accounts
	return &s
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
