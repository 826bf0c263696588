package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trychroma/gtm-cli/internal/source"
)

var (
	importFlags syncFlags
	importFile  string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import leads from a CSV, XLSX, or JSON file into the local cache",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		src := source.NewFileSource(importFile)
		records, err := src.Fetch(ctx)
		if err != nil {
			return eris.Wrap(err, "import")
		}

		stats, err := runLocalPipeline(ctx, importFlags, "import", records)
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.String("file", importFile),
			zap.Int("candidates", len(records)),
			zap.Int("created", stats.Created),
			zap.Int("updated", stats.Updated),
			zap.Int("skipped", stats.Skipped),
			zap.Int("failed", stats.Failed),
		)
		return runStats(stats)
	},
}

func init() {
	registerSyncFlags(importCmd, &importFlags)
	importCmd.Flags().StringVar(&importFile, "file", "", "path to CSV, XLSX, or JSON file (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
