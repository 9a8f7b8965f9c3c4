// Package tlsroots loads TLS material for the local API: a server key
// pair that reloads when its files change, and client trust roots that
// extend the system pool with a private CA.
package tlsroots
