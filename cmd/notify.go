package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trychroma/gtm-cli/internal/model"
	"github.com/trychroma/gtm-cli/internal/store"
	"github.com/trychroma/gtm-cli/pkg/slackhook"
)

var (
	notifyTier     int
	notifyCategory string
	notifyLimit    int
	notifyDryRun   bool
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Post cached leads to Slack",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cfg.Slack.WebhookURL == "" {
			return eris.New("slack webhook URL is required (GTM_SLACK_WEBHOOK_URL)")
		}

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close() //nolint:errcheck

		leads, err := st.ListLeads(ctx, store.LeadFilter{
			Tier:     notifyTier,
			Category: model.Category(notifyCategory),
			Limit:    notifyLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list leads")
		}
		if len(leads) == 0 {
			zap.L().Info("notify: no leads matched")
			return nil
		}

		client := slackhook.NewClient(cfg.Slack.WebhookURL)
		sent, failed := postLeadMessages(ctx, client, leads, notifyDryRun)

		zap.L().Info("notify complete", zap.Int("sent", sent), zap.Int("leads", len(leads)))
		if failed > 0 {
			return eris.Errorf("notify: %d of %d messages failed", failed, len(leads))
		}
		return nil
	},
}

// postLeadMessages posts one message per lead, skipping the webhook entirely
// on a dry run. Returns how many were sent and how many failed.
func postLeadMessages(ctx context.Context, client slackhook.Client, leads []model.Lead, dryRun bool) (sent, failed int) {
	for i := range leads {
		if dryRun {
			zap.L().Info("notify: would post",
				zap.String("company", leads[i].CompanyName),
				zap.Int("score", leads[i].Score),
			)
			continue
		}
		if err := client.Post(ctx, slackhook.NewLeadMessage(&leads[i])); err != nil {
			zap.L().Error("notify: post failed",
				zap.String("company", leads[i].CompanyName),
				zap.Error(err),
			)
			failed++
			continue
		}
		sent++
	}
	return sent, failed
}

func init() {
	notifyCmd.Flags().IntVar(&notifyTier, "tier", 0, "only notify leads of this tier (1-3)")
	notifyCmd.Flags().StringVar(&notifyCategory, "category", "", "only notify leads of this category")
	notifyCmd.Flags().IntVar(&notifyLimit, "limit", 10, "maximum leads to post")
	notifyCmd.Flags().BoolVar(&notifyDryRun, "dry-run", false, "log what would be posted without calling the webhook")
	rootCmd.AddCommand(notifyCmd)
}
