// Package config defines the tradeguard daemon configuration.
//
//   - spec.go: Config struct definition
//   - default.go: default values
//   - verify.go: validation
//   - sanitize.go: masking for logs
//
// Configuration is loaded via internal/infra/confloader from the YAML
// file and TRADEGUARD_ environment variables.
package config
