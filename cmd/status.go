package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/trychroma/gtm-cli/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show processed-set and sync-log summary",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close() //nolint:errcheck

		summary, err := st.Summary(ctx)
		if err != nil {
			return eris.Wrap(err, "summarize store")
		}

		fmt.Printf("processed keys: %d\n", summary.ProcessedKeys)
		fmt.Printf("sync log entries: %d\n", summary.LogEntries)
		if summary.LastSyncAt != nil {
			fmt.Printf("last sync: %s\n", summary.LastSyncAt.Format("2006-01-02 15:04:05 MST"))
		}
		if len(summary.ByStatus) > 0 {
			fmt.Println("by status:")
			for status, n := range summary.ByStatus {
				fmt.Printf("  %-10s %d\n", status, n)
			}
		}
		if len(summary.BySink) > 0 {
			fmt.Println("by sink:")
			for sinkName, n := range summary.BySink {
				fmt.Printf("  %-10s %d\n", sinkName, n)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
