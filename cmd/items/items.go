// Package items implements the intake item listing command.
package items

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/regintake/cmd/common"
	"github.com/jonesrussell/regintake/internal/domain"
)

// defaultLimit is the page size when --limit is not given.
const defaultLimit = 50

// titleColumnWidth truncates long titles in the table view.
const titleColumnWidth = 60

// Command returns the items command.
func Command() *cobra.Command {
	var (
		status string
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "items",
		Short: "List intake items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, status, limit, cursor)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (new, reviewed, promoted, rejected)")
	cmd.Flags().IntVar(&limit, "limit", defaultLimit, "maximum number of items to list")
	cmd.Flags().StringVar(&cursor, "cursor", "", "resume listing from a previous page's cursor")

	return cmd
}

func execute(cmd *cobra.Command, status string, limit int, cursor string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := common.NewDeps(ctx)
	if err != nil {
		return err
	}
	defer deps.Close()

	items, next, err := deps.Lifecycle.List(ctx, normalizeStatus(status), limit, cursor)
	if err != nil {
		return fmt.Errorf("list intake items: %w", err)
	}

	if len(items) == 0 {
		fmt.Println("No intake items found")
		return nil
	}

	renderTable(items)

	if next != "" {
		fmt.Printf("\nNext page: --cursor %s\n", next)
	}

	return nil
}

func renderTable(items []domain.IntakeItem) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Dedupe Key", "Feed", "Status", "Discovered", "Title"})

	for i := range items {
		item := &items[i]
		t.AppendRow(table.Row{
			item.DedupeKey[:12],
			item.FeedID,
			item.Status,
			item.DiscoveredAt.Format("2006-01-02 15:04"),
			truncate(item.Title, titleColumnWidth),
		})
	}

	t.Render()
}

// normalizeStatus maps flag input onto the stored lowercase status values.
func normalizeStatus(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// truncate shortens s to n runes. Slicing bytes would split multi-byte
// characters mid-sequence.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
