// Package serve implements the long-running service command: the HTTP API
// plus cron-scheduled ingestion runs.
package serve

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/regintake/cmd/common"
	"github.com/jonesrussell/regintake/internal/api"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// Command returns the serve command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the intake API server with scheduled ingestion runs",
		RunE:  execute,
	}
}

func execute(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := common.NewDeps(ctx)
	if err != nil {
		return err
	}
	defer deps.Close()

	cfg := deps.Config
	log := deps.Logger

	handler := api.NewIntakeHandler(
		deps.Lifecycle,
		deps.Scheduler,
		deps.Snapshots,
		cfg.Intake.Feeds,
		log,
	)

	server := api.NewServer(api.ServerConfig{
		Address:      cfg.Server.Address,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		Debug:        cfg.App.Debug,
	}, handler, log)

	scheduler := cron.New()
	if len(cfg.Intake.Feeds) > 0 {
		_, err = scheduler.AddFunc(cfg.Intake.CronSchedule, func() {
			summary, runErr := deps.Scheduler.Run(ctx, cfg.Intake.Feeds)
			if runErr != nil {
				log.Error("scheduled ingestion run failed", "error", runErr.Error())
				return
			}
			log.Info("scheduled ingestion run complete",
				"items_created", summary.ItemsCreated,
				"items_skipped", summary.ItemsSkipped,
				"feeds_failed", summary.FeedsFailed,
			)
		})
		if err != nil {
			return fmt.Errorf("schedule ingestion runs: %w", err)
		}
		scheduler.Start()
		defer scheduler.Stop()

		log.Info("ingestion schedule active",
			"schedule", cfg.Intake.CronSchedule,
			"feeds", len(cfg.Intake.Feeds),
		)
	} else {
		log.Warn("no feeds configured; scheduled ingestion disabled")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err = <-errCh:
		if err != nil {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err = server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown api server: %w", err)
	}

	return nil
}
