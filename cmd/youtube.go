package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trychroma/gtm-cli/internal/source"
	"github.com/trychroma/gtm-cli/pkg/youtube"
)

var (
	youtubeFlags   syncFlags
	youtubeQuery   string
	youtubeLimit   int
	youtubeChannel string
	youtubeVideo   string
)

var youtubeCmd = &cobra.Command{
	Use:   "youtube",
	Short: "Source leads from YouTube channels publishing vector-database content",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cfg.Google.YouTubeAPIKey == "" {
			return eris.New("youtube api key is required (GTM_GOOGLE_YOUTUBE_API_KEY)")
		}

		client, err := youtube.NewClient(ctx, cfg.Google.YouTubeAPIKey)
		if err != nil {
			return err
		}

		if youtubeChannel != "" && youtubeVideo != "" {
			return eris.New("--channel and --video are mutually exclusive")
		}

		var srcOpts []source.YouTubeOption
		if youtubeChannel != "" {
			srcOpts = append(srcOpts, source.WithChannelID(youtubeChannel))
		}
		if youtubeVideo != "" {
			srcOpts = append(srcOpts, source.WithVideoID(youtubeVideo))
		}
		src := source.NewYouTubeSource(client, youtubeQuery, youtubeLimit, srcOpts...)
		records, err := src.Fetch(ctx)
		if err != nil {
			return eris.Wrap(err, "youtube")
		}

		stats, err := runLocalPipeline(ctx, youtubeFlags, "youtube", records)
		if err != nil {
			return err
		}

		zap.L().Info("youtube complete",
			zap.Int("channels", len(records)),
			zap.Int("created", stats.Created),
			zap.Int("skipped", stats.Skipped),
			zap.Int("failed", stats.Failed),
		)
		return runStats(stats)
	},
}

func init() {
	registerSyncFlags(youtubeCmd, &youtubeFlags)
	youtubeCmd.Flags().StringVar(&youtubeQuery, "query", "vector database RAG tutorial", "channel search query")
	youtubeCmd.Flags().IntVar(&youtubeLimit, "channels", 10, "maximum channels to fetch")
	youtubeCmd.Flags().StringVar(&youtubeChannel, "channel", "", "fetch one channel by id instead of searching")
	youtubeCmd.Flags().StringVar(&youtubeVideo, "video", "", "fetch a video's publishing channel by video id")
	rootCmd.AddCommand(youtubeCmd)
}
