// Package remote defines the contract TradeGuard needs from the trading
// service: an authenticating client with a push event stream, and an offer
// manager for listing and resolving trade offers.
//
// Implementations live in subpackages. The loopback driver is an
// in-process simulator used for offline runs and tests.
package remote
