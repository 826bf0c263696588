package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trychroma/gtm-cli/internal/sink"
	"github.com/trychroma/gtm-cli/pkg/hubspot"
)

var (
	syncHubSpotFlags      syncFlags
	syncHubSpotFile       string
	syncHubSpotFromChroma bool
)

var syncHubSpotCmd = &cobra.Command{
	Use:   "hubspot",
	Short: "Sync leads to HubSpot companies and contacts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		client, err := hubspotClient()
		if err != nil {
			return err
		}

		records, err := loadSyncRecords(ctx, syncHubSpotFlags, syncHubSpotFile, syncHubSpotFromChroma)
		if err != nil {
			return err
		}

		return runCRMSync(ctx, syncHubSpotFlags, "hubspot", sink.NewHubSpotSink(client), records)
	},
}

var (
	purgeProperty string
	purgeValue    string
	purgeDryRun   bool
)

// purge archives HubSpot companies matching a property filter, typically used
// to clean out records created by an earlier bad sync.
var syncHubSpotPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Archive HubSpot companies matching a property filter",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		client, err := hubspotClient()
		if err != nil {
			return err
		}

		filters := []hubspot.SearchFilter{
			{PropertyName: purgeProperty, Operator: "EQ", Value: purgeValue},
		}
		companies, err := client.Search(ctx, "companies", filters, []string{"name"}, 100)
		if err != nil {
			return err
		}
		if len(companies) == 0 {
			zap.L().Info("purge: no matching companies")
			return nil
		}

		if purgeDryRun {
			for _, c := range companies {
				zap.L().Info("purge: would archive",
					zap.String("id", c.ID),
					zap.String("name", c.Properties["name"]),
				)
			}
			return nil
		}

		ids := make([]string, 0, len(companies))
		for _, c := range companies {
			ids = append(ids, c.ID)
		}
		archived, err := client.BatchArchive(ctx, "companies", ids)
		if err != nil {
			return err
		}

		zap.L().Info("purge complete", zap.Int("archived", archived))
		return nil
	},
}

func hubspotClient() (hubspot.Client, error) {
	if cfg.HubSpot.APIKey == "" {
		return nil, eris.New("hubspot api key is required (GTM_HUBSPOT_API_KEY)")
	}

	var opts []hubspot.ClientOption
	if cfg.HubSpot.RateLimit > 0 {
		opts = append(opts, hubspot.WithRateLimit(cfg.HubSpot.RateLimit))
	}
	return hubspot.NewClient(cfg.HubSpot.APIKey, opts...), nil
}

func init() {
	registerSyncFlags(syncHubSpotCmd, &syncHubSpotFlags)
	syncHubSpotCmd.Flags().StringVar(&syncHubSpotFile, "file", "", "sync from a file instead of the local cache")
	syncHubSpotCmd.Flags().BoolVar(&syncHubSpotFromChroma, "from-chroma", false, "sync from the configured Chroma collection")
	syncCmd.AddCommand(syncHubSpotCmd)

	syncHubSpotPurgeCmd.Flags().StringVar(&purgeProperty, "property", "", "property to filter on (required)")
	syncHubSpotPurgeCmd.Flags().StringVar(&purgeValue, "value", "", "property value to match (required)")
	syncHubSpotPurgeCmd.Flags().BoolVar(&purgeDryRun, "dry-run", false, "list matches without archiving")
	_ = syncHubSpotPurgeCmd.MarkFlagRequired("property")
	_ = syncHubSpotPurgeCmd.MarkFlagRequired("value")
	syncHubSpotCmd.AddCommand(syncHubSpotPurgeCmd)
}
