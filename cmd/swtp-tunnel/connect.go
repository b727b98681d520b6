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

func newConnectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Dial a peer and bring the tunnel up as the handshake initiator",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigForCommand(cmd)
			if err != nil {
				return err
			}
			if cfg.Mode != "connect" {
				cfg.Mode = "connect"
			}
			return runConnect(cmd.Context(), cfg)
		},
	}
	return cmd
}

func runConnect(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := telemetry.New("swtp-tunnel", levelFromString(cfg.Logging.Level), cfg.Logging.File)
	if err != nil {
		return fmt.Errorf("connect: logger: %w", err)
	}

	remoteAddr, err := net.ResolveUDPAddr("udp", cfg.Peer.Address)
	if err != nil {
		return fmt.Errorf("connect: resolve peer address: %w", err)
	}
	udpConn, err := net.DialUDP("udp", nil, remoteAddr)
	if err != nil {
		return fmt.Errorf("connect: dial %s: %w", cfg.Peer.Address, err)
	}
	defer udpConn.Close()

	tun, err := tundev.Open(cfg.TUN.Name)
	if err != nil {
		return fmt.Errorf("connect: open TUN device: %w", err)
	}
	defer tun.Close()

	ctx, cancel := context.WithCancel(ctx)
	host := &tunnelHost{tun: tun, logger: logger, cancel: cancel}
	sink := &udpSink{conn: udpConn}

	conn := swtp.NewConnection(host, sink, swtp.Config{
		ReceiveWindowSize: cfg.SWTP.ReceiveWindowSize,
		MaxSendWindowSize: cfg.SWTP.MaxSendWindowSize,
		Timeout:           cfg.SWTP.Timeout,
		PingTimeout:       cfg.SWTP.PingTimeout,
		MaxRetry:          cfg.SWTP.MaxRetry,
	}, &swtpLoggerAdapter{logger})

	var collector *metrics.ConnectionCollector
	if cfg.Metrics.Enabled {
		collector = metrics.NewConnectionCollector(prometheus.Labels{"role": "connector"})
		prometheus.MustRegister(collector)
	}

	logger.Info("dialing peer", telemetry.Fields{"peer": cfg.Peer.Address, "tun": tun.Name()})
	if err := conn.StartHandshake(); err != nil {
		return fmt.Errorf("connect: handshake: %w", err)
	}

	return runTunnel(ctx, cfg, conn, sink, udpConn, tun, logger, collector, cfg.Peer.Address)
}
