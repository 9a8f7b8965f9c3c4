// Package metric provides Prometheus metrics for TradeGuard.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Prometheus registry, counters and HTTP handler
//   - collector.go: collector reading live session and offer state
//
// Metrics include:
//
//   - Login, reconnect and health probe outcomes
//   - Offer arrivals and auto-accept outcomes
//   - Notification delivery and drops
//   - Local API request counts and latencies
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
