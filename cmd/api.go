package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Joni1544/my-saas-demo-sub001/config"
	"github.com/Joni1544/my-saas-demo-sub001/internal/api"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server for availability checks and admin operations`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	application, err := buildApp(cfg)
	if err != nil {
		return err
	}

	// Handlers emit events, so the drain loop runs here too.
	go func() {
		if err := application.bus.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Event bus stopped unexpectedly")
		}
	}()

	server := api.NewServer(
		cfg,
		application.availability,
		application.autopilot,
		application.reminders,
		application.bus,
		application.metrics,
		application.tracer,
	)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	<-ctx.Done()

	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Shutting down API server")
	return nil
}
