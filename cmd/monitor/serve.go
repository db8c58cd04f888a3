package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"project-pulse/internals/app"
	"project-pulse/internals/server"

	"github.com/spf13/cobra"
)

const shutdownGrace = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run every battery on its schedule and serve the status API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Done closes on SIGINT or SIGTERM
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log, mc, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	log.Info().Msg("dependencies initialized")

	mc.Start()

	router := app.RegisterRoutes(mc)
	srv := server.New(fmt.Sprintf(":%d", mc.Config.Port), router, log)
	srvErr := srv.Start()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err = <-srvErr:
	}

	// 1. Stop HTTP server (stop accepting requests)
	if err := srv.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	// 2. Stop the scheduler and close infra, bounded by the grace period
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := mc.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("dependencies shutdown failed")
	}

	log.Info().Msg("graceful shutdown complete")
	return err
}
