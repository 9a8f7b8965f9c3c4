// Package httpserver serves the TradeGuard local API over HTTP.
//
// The router wraps handler.Handler in per-group middleware chains:
// health is open, /metrics and /v1 require the bearer token when one is
// configured, and /v1 is additionally rate limited and audited.
//
// A Server listens on TCP, optionally under TLS, or on a Unix socket
// given as "unix:/path".
package httpserver
