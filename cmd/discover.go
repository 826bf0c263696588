package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trychroma/gtm-cli/internal/source"
	"github.com/trychroma/gtm-cli/pkg/findall"
)

var (
	discoverFlags     syncFlags
	discoverObjective string
	discoverRunID     string
	discoverLimit     int
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover companies via the FindAll API and cache qualified leads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cfg.FindAll.APIKey == "" {
			return eris.New("findall api key is required (GTM_FINDALL_API_KEY)")
		}
		if discoverObjective == "" && discoverRunID == "" {
			return eris.New("either --objective or --run-id is required")
		}

		var clientOpts []findall.Option
		if cfg.FindAll.BaseURL != "" {
			clientOpts = append(clientOpts, findall.WithBaseURL(cfg.FindAll.BaseURL))
		}
		client := findall.NewClient(cfg.FindAll.APIKey, clientOpts...)

		srcOpts := []source.FindAllOption{source.WithResultLimit(discoverLimit)}
		if discoverRunID != "" {
			srcOpts = append(srcOpts, source.WithRunID(discoverRunID))
		}
		if cfg.FindAll.PollTimeout > 0 {
			srcOpts = append(srcOpts, source.WithPollTimeout(time.Duration(cfg.FindAll.PollTimeout)*time.Second))
		}
		src := source.NewFindAllSource(client, discoverObjective, srcOpts...)

		records, err := src.Fetch(ctx)
		if err != nil {
			return eris.Wrap(err, "discover")
		}

		stats, err := runLocalPipeline(ctx, discoverFlags, "findall", records)
		if err != nil {
			return err
		}

		zap.L().Info("discover complete",
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
	registerSyncFlags(discoverCmd, &discoverFlags)
	discoverCmd.Flags().StringVar(&discoverObjective, "objective", "", "discovery objective, e.g. \"AI startups building RAG products\"")
	discoverCmd.Flags().StringVar(&discoverRunID, "run-id", "", "resume from an existing run instead of submitting a new one")
	discoverCmd.Flags().IntVar(&discoverLimit, "result-limit", 100, "maximum entities the run may return")
	rootCmd.AddCommand(discoverCmd)
}
