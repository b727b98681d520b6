package main

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ankeraout/swtptunnel/config"
	"github.com/ankeraout/swtptunnel/internal/metrics"
	"github.com/ankeraout/swtptunnel/internal/telemetry"
	"github.com/ankeraout/swtptunnel/internal/tundev"
	"github.com/ankeraout/swtptunnel/pkg/swtp"
)

func newListenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Bind a local address and wait for a peer to dial in as the handshake responder",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigForCommand(cmd)
			if err != nil {
				return err
			}
			if cfg.Mode != "listen" {
				cfg.Mode = "listen"
			}
			return runListen(cmd.Context(), cfg)
		},
	}
	return cmd
}

func runListen(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := telemetry.New("swtp-tunnel", levelFromString(cfg.Logging.Level), cfg.Logging.File)
	if err != nil {
		return fmt.Errorf("listen: logger: %w", err)
	}

	localAddr, err := net.ResolveUDPAddr("udp", cfg.Listen.Address)
	if err != nil {
		return fmt.Errorf("listen: resolve listen address: %w", err)
	}
	udpConn, err := net.ListenUDP("udp", localAddr)
	if err != nil {
		return fmt.Errorf("listen: bind %s: %w", cfg.Listen.Address, err)
	}
	defer udpConn.Close()

	logger.Info("waiting for peer", telemetry.Fields{"listen": cfg.Listen.Address})

	// The point-to-point model has exactly one peer; the first datagram in
	// names it, the same way the teacher's discovery-less direct mode learns
	// its remote address from the first packet rather than a config field.
	buf := make([]byte, swtp.MaxFrameSize)
	n, remote, err := udpConn.ReadFromUDP(buf)
	if err != nil {
		return fmt.Errorf("listen: read first datagram: %w", err)
	}
	first := make([]byte, n)
	copy(first, buf[:n])
	logger.Info("peer identified", telemetry.Fields{"peer": remote.String()})

	tun, err := tundev.Open(cfg.TUN.Name)
	if err != nil {
		return fmt.Errorf("listen: open TUN device: %w", err)
	}
	defer tun.Close()

	ctx, cancel := context.WithCancel(ctx)
	host := &tunnelHost{tun: tun, logger: logger, cancel: cancel}
	sink := &udpSink{conn: udpConn, remote: remote}

	conn := swtp.NewConnection(host, sink, swtp.Config{
		ReceiveWindowSize: cfg.SWTP.ReceiveWindowSize,
		MaxSendWindowSize: cfg.SWTP.MaxSendWindowSize,
		Timeout:           cfg.SWTP.Timeout,
		PingTimeout:       cfg.SWTP.PingTimeout,
		MaxRetry:          cfg.SWTP.MaxRetry,
	}, &swtpLoggerAdapter{logger})

	var collector *metrics.ConnectionCollector
	if cfg.Metrics.Enabled {
		collector = metrics.NewConnectionCollector(prometheus.Labels{"role": "listener"})
		prometheus.MustRegister(collector)
	}

	// Feed the datagram that identified the peer into the engine before
	// handing the socket off to runTunnel's own read loop.
	if err := conn.OnFrameReceived(first); err != nil {
		logger.Warn("first frame dispatch error", telemetry.Fields{"error": err.Error()})
	}

	return runTunnel(ctx, cfg, conn, sink, udpConn, tun, logger, collector, remote.String())
}
