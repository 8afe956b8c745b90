package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Joni1544/my-saas-demo-sub001/config"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the event bus drain loop and the autopilot sweep`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
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

	g, ctx := errgroup.WithContext(ctx)

	application, err := buildApp(cfg)
	if err != nil {
		return err
	}

	// Drain loop for queued domain events
	g.Go(func() error {
		log.Info().Dur("interval", cfg.EventBus.DrainInterval).Msg("Starting event bus drain loop")
		if err := application.bus.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	})

	// Periodic autopilot sweep
	g.Go(func() error {
		if !cfg.Autopilot.AutoStart {
			log.Info().Msg("Autopilot auto-start disabled")
			<-ctx.Done()
			return nil
		}

		interval := time.Duration(cfg.Autopilot.SweepIntervalMinutes) * time.Minute
		if err := application.autopilot.Start(interval); err != nil {
			return err
		}

		<-ctx.Done()
		return application.autopilot.Stop()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
