package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ecocarbon/ecocarbon/internal/config"
	"github.com/ecocarbon/ecocarbon/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the EcoCarbon dashboard and JSON API",
	Args:  cobra.NoArgs,
	RunE:  startServer,
}

func init() {
	serveCmd.Flags().Int(
		"port",
		8080,
		"Port to listen on",
	)
	cobra.CheckErr(viper.BindPFlag("port", serveCmd.Flags().Lookup("port")))

	serveCmd.Flags().Int(
		"pilot",
		0,
		"Seed the ledger with a pilot program of N batches before serving",
	)

	cobra.CheckErr(viper.BindEnv("metrics_auth_token"))
	cobra.CheckErr(viper.BindEnv("admin_user"))
	cobra.CheckErr(viper.BindEnv("admin_password"))
}

func startServer(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	p := newPipeline(cfg)

	pilot, err := cmd.Flags().GetInt("pilot")
	if err != nil {
		return err
	}
	if pilot > 0 {
		results, err := p.SimulatePilot(ctx, pilot)
		if err != nil {
			return fmt.Errorf("seeding pilot: %w", err)
		}
		log.Infof("Seeded ledger with %d pilot batches", len(results))
	}

	srv := server.New(p,
		server.WithMetricsEndpoint(cfg.MetricsAuthToken),
		server.WithAdminCreds(cfg.AdminUser, cfg.AdminPassword),
	)

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	port := cfg.Port
	if port == 0 {
		port = 8080
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting server on port %d", port)
		errCh <- srv.ListenAndServe(fmt.Sprintf(":%d", port))
	}()

	select {
	case err := <-errCh:
		log.Errorf("Server error: %v", err)
		return err
	case sig := <-sigCh:
		log.Infof("Received signal %v, shutting down", sig)
		return nil
	}
}
