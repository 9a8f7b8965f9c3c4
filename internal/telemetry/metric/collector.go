// Package metric provides Prometheus metrics for TradeGuard.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Snapshot is the live state the collector reports.
type Snapshot struct {
	State           string
	HasSession      bool
	AutoAcceptGifts bool
	PendingOffers   int
}

// SnapshotFunc returns the current state. It is called on every scrape.
type SnapshotFunc func() Snapshot

// Collector reports live session and offer state at scrape time.
type Collector struct {
	source SnapshotFunc
	states []string

	stateDesc      *prometheus.Desc
	sessionDesc    *prometheus.Desc
	autoAcceptDesc *prometheus.Desc
	pendingDesc    *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector over source. states lists every state
// name so that inactive states report 0 instead of disappearing.
func NewCollector(source SnapshotFunc, states []string) *Collector {
	return &Collector{
		source: source,
		states: states,
		stateDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "session", "state"),
			"Current Session Guard state (1 for the active state).",
			[]string{"state"}, nil,
		),
		sessionDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "session", "active"),
			"Whether a session exists.",
			nil, nil,
		),
		autoAcceptDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "auto_accept_gifts"),
			"Whether gift offers are accepted automatically.",
			nil, nil,
		),
		pendingDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "offers", "pending"),
			"Offers in the working set.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.stateDesc
	ch <- c.sessionDesc
	ch <- c.autoAcceptDesc
	ch <- c.pendingDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.source()
	for _, s := range c.states {
		ch <- prometheus.MustNewConstMetric(c.stateDesc, prometheus.GaugeValue, boolFloat(s == snap.State), s)
	}
	ch <- prometheus.MustNewConstMetric(c.sessionDesc, prometheus.GaugeValue, boolFloat(snap.HasSession))
	ch <- prometheus.MustNewConstMetric(c.autoAcceptDesc, prometheus.GaugeValue, boolFloat(snap.AutoAcceptGifts))
	ch <- prometheus.MustNewConstMetric(c.pendingDesc, prometheus.GaugeValue, float64(snap.PendingOffers))
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
