package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"cgv_schedule_tracker/internal/app"
	"cgv_schedule_tracker/internal/infra/logger"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll until schedules open, then notify and exit",
	Long: `Poll the CGV schedule API on a fixed interval until showtimes for the
configured date appear, send one Telegram message and exit.

Exit codes:
  0 - schedules found, or stopped with Ctrl+C / SIGTERM
  1 - configuration error or an enabled stop condition was hit`,
	SilenceUsage: true,
	RunE:         runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	tracker, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.Component("main")
	log.Info("Press Ctrl+C to stop")

	err = tracker.Run(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, app.ErrInterrupted):
		log.Info("Stopped by user.")
		return nil
	default:
		log.WithError(err).Error("Tracker stopped")
		return err
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
