package main

import (
	"fmt"
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/ankeraout/swtptunnel/config"
)

func newStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the running tunnel's connection state by scraping its metrics endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigForCommand(cmd)
			if err != nil {
				return err
			}
			return runStatus(cfg)
		},
	}
	return cmd
}

// runStatus has no IPC channel to the running process; it reads the same
// Prometheus endpoint an operator's scraper would, which is the only
// externally visible state this daemon exposes.
func runStatus(cfg *config.Config) error {
	if !cfg.Metrics.Enabled {
		return fmt.Errorf("status: metrics are disabled in this configuration, nothing to query")
	}

	url := fmt.Sprintf("http://%s/metrics", cfg.Metrics.Address)
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("status: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(resp.Body)
	if err != nil {
		return fmt.Errorf("status: parse metrics: %w", err)
	}

	printGaugeFamily(families, "swtp_connection_state", "state")
	printGaugeFamily(families, "swtp_window_length", "window length")
	printGaugeFamily(families, "swtp_window_capacity", "window capacity")
	printGaugeFamily(families, "swtp_tests_sent_total", "TEST probes sent")
	printGaugeFamily(families, "swtp_retransmit_total", "retransmits")
	printGaugeFamily(families, "swtp_idle_seconds", "idle seconds")

	return nil
}

func printGaugeFamily(families map[string]*dto.MetricFamily, name, label string) {
	family, ok := families[name]
	if !ok {
		return
	}
	for _, m := range family.Metric {
		peer := "unknown"
		for _, lp := range m.Label {
			if lp.GetName() == "peer" {
				peer = lp.GetValue()
			}
		}
		var value float64
		switch {
		case m.Gauge != nil:
			value = m.Gauge.GetValue()
		case m.Counter != nil:
			value = m.Counter.GetValue()
		}
		fmt.Printf("%-20s peer=%-24s %.0f\n", label+":", peer, value)
	}
}
