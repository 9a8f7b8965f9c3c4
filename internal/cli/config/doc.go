// Package config holds the tradeguard-cli settings file
// (~/.tradeguard/cli.yaml): the server address, the API token, an optional
// CA bundle and the preferred output format.
package config
