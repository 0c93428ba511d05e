// Package run implements the one-shot ingestion command.
package run

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/regintake/cmd/common"
)

// Command returns the run command, which executes a single ingestion pass
// over the configured feeds and reports the outcome.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute one ingestion run over the configured feeds",
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

	feeds := deps.Config.Intake.Feeds
	if len(feeds) == 0 {
		return fmt.Errorf("no feeds configured; set intake.feeds in the config file")
	}

	deps.Logger.Info("starting ingestion run", "feeds", len(feeds))

	summary, err := deps.Scheduler.Run(ctx, feeds)
	if err != nil {
		return fmt.Errorf("ingestion run failed: %w", err)
	}

	fmt.Printf("Run complete: %d created, %d skipped, %d feeds failed\n",
		summary.ItemsCreated, summary.ItemsSkipped, summary.FeedsFailed)

	for _, failure := range summary.Failures {
		fmt.Fprintf(os.Stderr, "  [%s] %s: %s\n", failure.FeedID, failure.URL, failure.Reason)
	}

	return nil
}
