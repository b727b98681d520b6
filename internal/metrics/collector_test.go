package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/ankeraout/swtptunnel/pkg/swtp"
)

type nopHost struct{}

func (nopHost) OnReceive(*swtp.Connection, []byte)             {}
func (nopHost) OnDisconnect(*swtp.Connection, swtp.DisconnectReason) {}

type nopSink struct{}

func (nopSink) Send([]byte) error { return nil }

func TestCollectorDescribeAndCollect(t *testing.T) {
	c := NewConnectionCollector(prometheus.Labels{"role": "client"})

	conn := swtp.NewConnection(nopHost{}, nopSink{}, swtp.Config{}, nil)
	c.Add("10.0.0.2:5228", conn)

	descs := make(chan *prometheus.Desc, 16)
	c.Describe(descs)
	close(descs)
	descCount := 0
	for range descs {
		descCount++
	}
	if descCount != 6 {
		t.Errorf("Describe emitted %d descriptors, want 6", descCount)
	}

	metricsCh := make(chan prometheus.Metric, 32)
	c.Collect(metricsCh)
	close(metricsCh)

	count := 0
	for m := range metricsCh {
		var d dto.Metric
		if err := m.Write(&d); err != nil {
			t.Fatalf("Write: %v", err)
		}
		count++
	}
	// 5 connection descriptors + 1 state gauge.
	if count != 6 {
		t.Errorf("collected %d metrics, want 6", count)
	}
}

func TestCollectorRemoveStopsTracking(t *testing.T) {
	c := NewConnectionCollector(nil)
	conn := swtp.NewConnection(nopHost{}, nopSink{}, swtp.Config{}, nil)
	c.Add("peer", conn)
	c.Remove("peer")

	metricsCh := make(chan prometheus.Metric, 32)
	c.Collect(metricsCh)
	close(metricsCh)

	if len(metricsCh) != 0 {
		t.Errorf("expected no metrics after Remove, got %d", len(metricsCh))
	}
}
