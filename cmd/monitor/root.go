package main

import (
	"context"
	"fmt"
	"os"

	"project-pulse/config"
	"project-pulse/internals/app"
	"project-pulse/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Production monitor for the CRM: health, performance and resilience batteries",
	Long: `monitor probes the CRM's API endpoints, pages and database on a schedule,
turns failures into deduplicated, rate-limited alerts, and keeps JSON reports
plus a static dashboard.

Without a subcommand it runs the scheduler and status API until interrupted.`,
	Args:         cobra.NoArgs,
	RunE:         runServe,
	SilenceUsage: true,
}

func init() {
	defaultPath := os.Getenv("PULSE_CONFIG")
	if defaultPath == "" {
		defaultPath = "env.yaml"
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultPath, "path to the YAML config file")
}

// bootstrap loads config, builds the base logger and the monitoring context.
func bootstrap(ctx context.Context) (*zerolog.Logger, *app.MonitoringContext, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.Init(cfg)
	log.Debug().Str("config", cfgPath).Msg("logger initialized")

	mc, err := app.NewMonitoringContext(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize dependencies")
		return nil, nil, err
	}
	return log, mc, nil
}
