package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/trychroma/gtm-cli/internal/store"
	"github.com/trychroma/gtm-cli/pkg/attio"
	"github.com/trychroma/gtm-cli/pkg/chromadb"
	"github.com/trychroma/gtm-cli/pkg/findall"
	"github.com/trychroma/gtm-cli/pkg/gmailer"
	"github.com/trychroma/gtm-cli/pkg/slackhook"
	"github.com/trychroma/gtm-cli/pkg/youtube"
)

// checkCmd verifies connectivity to every configured dependency in parallel.
// Unconfigured services are reported as skipped, not failures.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify connectivity to configured services",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		g, ctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			st, err := store.Open(ctx, cfg.Store)
			if err != nil {
				zap.L().Error("check: store", zap.Error(err))
				return err
			}
			defer st.Close() //nolint:errcheck
			zap.L().Info("check: store ok", zap.String("driver", cfg.Store.Driver))
			return nil
		})

		g.Go(func() error {
			if cfg.Attio.APIKey == "" {
				zap.L().Info("check: attio skipped (no api key)")
				return nil
			}
			if err := attio.NewClient(cfg.Attio.APIKey).Ping(ctx); err != nil {
				zap.L().Error("check: attio", zap.Error(err))
				return err
			}
			zap.L().Info("check: attio ok")
			return nil
		})

		g.Go(func() error {
			if cfg.HubSpot.APIKey == "" {
				zap.L().Info("check: hubspot skipped (no api key)")
				return nil
			}
			client, err := hubspotClient()
			if err != nil {
				return err
			}
			if err := client.Ping(ctx); err != nil {
				zap.L().Error("check: hubspot", zap.Error(err))
				return err
			}
			zap.L().Info("check: hubspot ok")
			return nil
		})

		g.Go(func() error {
			if cfg.Slack.WebhookURL == "" {
				zap.L().Info("check: slack skipped (no webhook url)")
				return nil
			}
			if err := slackhook.ValidateWebhookURL(cfg.Slack.WebhookURL); err != nil {
				zap.L().Error("check: slack", zap.Error(err))
				return err
			}
			zap.L().Info("check: slack ok (webhook url valid)")
			return nil
		})

		g.Go(func() error {
			if cfg.FindAll.APIKey == "" {
				zap.L().Info("check: findall skipped (no api key)")
				return nil
			}
			var opts []findall.Option
			if cfg.FindAll.BaseURL != "" {
				opts = append(opts, findall.WithBaseURL(cfg.FindAll.BaseURL))
			}
			// A 404 for an unknown run id still proves the key authenticates.
			_, err := findall.NewClient(cfg.FindAll.APIKey, opts...).GetRun(ctx, "healthcheck")
			if err != nil && !findall.IsNotFound(err) {
				zap.L().Error("check: findall", zap.Error(err))
				return err
			}
			zap.L().Info("check: findall ok")
			return nil
		})

		g.Go(func() error {
			if _, err := os.Stat(cfg.Google.CredentialsFile); err != nil {
				zap.L().Info("check: gmail skipped (no credentials file)")
				return nil
			}
			if _, err := gmailer.NewClient(ctx, cfg.Google.CredentialsFile, cfg.Google.TokenFile); err != nil {
				zap.L().Error("check: gmail", zap.Error(err))
				return err
			}
			zap.L().Info("check: gmail ok (credentials and token load)")
			return nil
		})

		g.Go(func() error {
			if cfg.Google.YouTubeAPIKey == "" {
				zap.L().Info("check: youtube skipped (no api key)")
				return nil
			}
			client, err := youtube.NewClient(ctx, cfg.Google.YouTubeAPIKey)
			if err != nil {
				zap.L().Error("check: youtube", zap.Error(err))
				return err
			}
			if _, err := client.SearchChannels(ctx, "chroma", 1); err != nil {
				zap.L().Error("check: youtube", zap.Error(err))
				return err
			}
			zap.L().Info("check: youtube ok")
			return nil
		})

		g.Go(func() error {
			if cfg.Chroma.BaseURL == "" && cfg.Chroma.APIKey == "" {
				zap.L().Info("check: chroma skipped (not configured)")
				return nil
			}
			opts := []chromadb.Option{}
			if cfg.Chroma.BaseURL != "" {
				opts = append(opts, chromadb.WithBaseURL(cfg.Chroma.BaseURL))
			}
			if cfg.Chroma.APIKey != "" {
				opts = append(opts, chromadb.WithAPIKey(cfg.Chroma.APIKey))
			}
			if err := chromadb.NewClient(opts...).Heartbeat(ctx); err != nil {
				zap.L().Error("check: chroma", zap.Error(err))
				return err
			}
			zap.L().Info("check: chroma ok")
			return nil
		})

		if err := g.Wait(); err != nil {
			return err
		}
		zap.L().Info("check: all configured services reachable")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
