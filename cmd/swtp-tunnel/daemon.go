package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"

	"github.com/ankeraout/swtptunnel/config"
	"github.com/ankeraout/swtptunnel/internal/metrics"
	"github.com/ankeraout/swtptunnel/internal/telemetry"
	"github.com/ankeraout/swtptunnel/internal/tundev"
	"github.com/ankeraout/swtptunnel/pkg/swtllp"
	"github.com/ankeraout/swtptunnel/pkg/swtp"
)

// tunnelHost bridges the SWTP engine's callbacks to the TUN device: received
// payloads (already SWTLLP-decapsulated into TUN frames) are written out,
// and a disconnect cancels the daemon's run context.
type tunnelHost struct {
	tun    *tundev.Interface
	logger *telemetry.Logger
	cancel context.CancelFunc
}

func (h *tunnelHost) OnReceive(_ *swtp.Connection, payload []byte) {
	if err := h.tun.WriteFrame(payload); err != nil {
		h.logger.Warn("dropping frame: TUN write failed", telemetry.Fields{"error": err.Error()})
	}
}

func (h *tunnelHost) OnDisconnect(_ *swtp.Connection, reason swtp.DisconnectReason) {
	h.logger.Error("connection closed", telemetry.Fields{"reason": reason.String()})
	h.cancel()
}

// runTunnel drives one SWTP connection end to end: uplink (TUN -> engine),
// downlink (socket -> engine), and the periodic timer tick. It blocks until
// ctx is canceled, which the tunnelHost does on disconnect.
func runTunnel(ctx context.Context, cfg *config.Config, conn *swtp.Connection, sink *udpSink, udpConn *net.UDPConn, tun *tundev.Interface, logger *telemetry.Logger, collector *metrics.ConnectionCollector, peerLabel string) error {
	conn.SetCodec(swtllp.New())
	if collector != nil {
		collector.Add(peerLabel, conn)
		defer collector.Remove(peerLabel)
	}

	errCh := make(chan error, 3)

	// Uplink: TUN frames -> SendPayload.
	go func() {
		for {
			frame, err := tun.ReadFrame()
			if err != nil {
				select {
				case errCh <- fmt.Errorf("tun read: %w", err):
				case <-ctx.Done():
				}
				return
			}
			if err := conn.SendPayload(frame); err != nil {
				if err == swtp.ErrWindowFull {
					logger.Debug("dropping uplink frame: window full", nil)
					continue
				}
				logger.Warn("dropping uplink frame", telemetry.Fields{"error": err.Error()})
			}
		}
	}()

	// Downlink: UDP datagrams -> OnFrameReceived. Stops accepting datagrams
	// from anyone but the negotiated peer once one is known.
	go func() {
		buf := make([]byte, swtp.MaxFrameSize)
		for {
			n, from, err := udpConn.ReadFromUDP(buf)
			if err != nil {
				select {
				case errCh <- fmt.Errorf("udp read: %w", err):
				case <-ctx.Done():
				}
				return
			}
			if sink.remote != nil && !from.IP.Equal(sink.remote.IP) {
				continue
			}
			data := make([]byte, n)
			copy(data, buf[:n])
			if err := conn.OnFrameReceived(data); err != nil {
				logger.Warn("frame dispatch error", telemetry.Fields{"error": err.Error()})
			}
		}
	}()

	// Timer: drives retransmit, keep-alive and idle teardown.
	go func() {
		ticker := time.NewTicker(cfg.SWTP.Timeout)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if err := conn.OnTimerTick(now); err != nil {
					logger.Warn("timer tick error", telemetry.Fields{"error": err.Error()})
				}
			}
		}
	}()

	if cfg.Metrics.Enabled {
		go serveMetrics(ctx, cfg.Metrics.Address, logger)
	}

	select {
	case <-ctx.Done():
		return conn.Destroy()
	case err := <-errCh:
		conn.Destroy()
		return err
	}
}

// serveMetrics runs a Prometheus scrape endpoint until ctx is canceled.
func serveMetrics(ctx context.Context, addr string, logger *telemetry.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server stopped", telemetry.Fields{"error": err.Error()})
	}
}
