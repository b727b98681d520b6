package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ankeraout/swtptunnel/config"
	"github.com/ankeraout/swtptunnel/internal/telemetry"
)

// swtpLoggerAdapter narrows *telemetry.Logger to the three methods
// pkg/swtp.Logger needs, so the engine never sees telemetry's richer API.
type swtpLoggerAdapter struct {
	logger *telemetry.Logger
}

func (a *swtpLoggerAdapter) Debug(msg string, fields map[string]interface{}) {
	a.logger.Debug(msg, fields)
}
func (a *swtpLoggerAdapter) Warn(msg string, fields map[string]interface{}) {
	a.logger.Warn(msg, fields)
}
func (a *swtpLoggerAdapter) Error(msg string, fields map[string]interface{}) {
	a.logger.Error(msg, fields)
}

func levelFromString(level string) telemetry.Level {
	switch level {
	case "debug":
		return telemetry.DEBUG
	case "warn":
		return telemetry.WARN
	case "error":
		return telemetry.ERROR
	default:
		return telemetry.INFO
	}
}

// loadConfigForCommand loads the YAML file named by --config, or falls
// back to Default() if the flag was never set.
func loadConfigForCommand(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "swtp-tunnel",
		Short: "A point-to-point SWTP/SWTLLP VPN tunnel over UDP",
	}
	root.PersistentFlags().String("config", "", "path to a YAML configuration file")

	root.AddCommand(newListenCommand())
	root.AddCommand(newConnectCommand())
	root.AddCommand(newStatusCommand())
	return root
}

func run() error {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		return fmt.Errorf("swtp-tunnel: %w", err)
	}
	return nil
}
