package config

// CLIConfig is the configuration for tradeguard-cli.
type CLIConfig struct {
	Server string `yaml:"server"`
	Token  string `yaml:"token,omitempty"`
	Output string `yaml:"output"` // table, json, yaml

	// CAFile is a PEM bundle trusted for an https:// server in addition to
	// the system roots.
	CAFile string `yaml:"ca_file,omitempty"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server: "http://127.0.0.1:5380",
		Output: "table",
	}
}
