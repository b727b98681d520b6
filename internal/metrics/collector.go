// Package metrics exposes a Prometheus collector over a tunnel's live
// connection state, polling each tracked swtp.Connection under a lock
// instead of maintaining its own counters.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ankeraout/swtptunnel/pkg/swtp"
)

// tracked pairs a peer label with the connection it describes.
type tracked struct {
	peer string
	conn *swtp.Connection
}

// descriptor pairs a metric's static description with the function that
// reads it off a Stats snapshot.
type descriptor struct {
	desc    *prometheus.Desc
	valueFn func(swtp.Stats) float64
	vtype   prometheus.ValueType
}

// ConnectionCollector implements prometheus.Collector over every
// swtp.Connection registered with it. Safe for concurrent use.
type ConnectionCollector struct {
	mu    sync.Mutex
	conns map[string]tracked

	descriptors []descriptor
	stateDesc   *prometheus.Desc
}

// NewConnectionCollector builds a collector. constLabels are attached to
// every metric (e.g. {"role": "client"}).
func NewConnectionCollector(constLabels prometheus.Labels) *ConnectionCollector {
	c := &ConnectionCollector{
		conns: make(map[string]tracked),
	}

	labels := []string{"peer"}
	c.descriptors = []descriptor{
		{
			desc:    prometheus.NewDesc("swtp_window_length", "Number of unacknowledged outstanding frames.", labels, constLabels),
			valueFn: func(s swtp.Stats) float64 { return float64(s.WindowLength) },
			vtype:   prometheus.GaugeValue,
		},
		{
			desc:    prometheus.NewDesc("swtp_window_capacity", "Negotiated send-window capacity.", labels, constLabels),
			valueFn: func(s swtp.Stats) float64 { return float64(s.WindowCapacity) },
			vtype:   prometheus.GaugeValue,
		},
		{
			desc:    prometheus.NewDesc("swtp_tests_sent_total", "Consecutive unanswered keep-alive probes.", labels, constLabels),
			valueFn: func(s swtp.Stats) float64 { return float64(s.TestsSent) },
			vtype:   prometheus.GaugeValue,
		},
		{
			desc:    prometheus.NewDesc("swtp_retransmit_total", "Frames retransmitted on REJ, SREJ or timeout.", labels, constLabels),
			valueFn: func(s swtp.Stats) float64 { return float64(s.RetransmitCount) },
			vtype:   prometheus.CounterValue,
		},
		{
			desc:    prometheus.NewDesc("swtp_idle_seconds", "Time since the last frame was received from the peer.", labels, constLabels),
			valueFn: func(s swtp.Stats) float64 { return s.IdleDuration.Seconds() },
			vtype:   prometheus.GaugeValue,
		},
	}
	c.stateDesc = prometheus.NewDesc("swtp_connection_state", "Connection lifecycle state (0=Handshaking, 1=Connected, 2=Closed).", labels, constLabels)

	return c
}

// Add registers a connection under a peer label. Re-adding the same peer
// replaces the tracked connection.
func (c *ConnectionCollector) Add(peer string, conn *swtp.Connection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conns[peer] = tracked{peer: peer, conn: conn}
}

// Remove stops tracking a peer, typically once its connection is closed.
func (c *ConnectionCollector) Remove(peer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conns, peer)
}

// Describe implements prometheus.Collector.
func (c *ConnectionCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descriptors {
		ch <- d.desc
	}
	ch <- c.stateDesc
}

// Collect implements prometheus.Collector, reading a fresh Stats snapshot
// from each tracked connection.
func (c *ConnectionCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for _, t := range c.conns {
		stats := t.conn.Stats(now)
		for _, d := range c.descriptors {
			ch <- prometheus.MustNewConstMetric(d.desc, d.vtype, d.valueFn(stats), t.peer)
		}
		ch <- prometheus.MustNewConstMetric(c.stateDesc, prometheus.GaugeValue, float64(stats.State), t.peer)
	}
}
