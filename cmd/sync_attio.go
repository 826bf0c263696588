package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/trychroma/gtm-cli/internal/sink"
	"github.com/trychroma/gtm-cli/pkg/attio"
)

var (
	syncAttioFlags      syncFlags
	syncAttioFile       string
	syncAttioFromChroma bool
)

var syncAttioCmd = &cobra.Command{
	Use:   "attio",
	Short: "Sync leads to Attio company records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cfg.Attio.APIKey == "" {
			return eris.New("attio api key is required (GTM_ATTIO_API_KEY)")
		}

		records, err := loadSyncRecords(ctx, syncAttioFlags, syncAttioFile, syncAttioFromChroma)
		if err != nil {
			return err
		}

		var opts []attio.ClientOption
		if cfg.Attio.RateLimit > 0 {
			opts = append(opts, attio.WithRateLimit(cfg.Attio.RateLimit))
		}
		client := attio.NewClient(cfg.Attio.APIKey, opts...)

		return runCRMSync(ctx, syncAttioFlags, "attio", sink.NewAttioSink(client, cfg.Attio.ListID), records)
	},
}

func init() {
	registerSyncFlags(syncAttioCmd, &syncAttioFlags)
	syncAttioCmd.Flags().StringVar(&syncAttioFile, "file", "", "sync from a file instead of the local cache")
	syncAttioCmd.Flags().BoolVar(&syncAttioFromChroma, "from-chroma", false, "sync from the configured Chroma collection")
	syncCmd.AddCommand(syncAttioCmd)
}
