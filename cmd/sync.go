package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trychroma/gtm-cli/internal/model"
	"github.com/trychroma/gtm-cli/internal/pipeline"
	"github.com/trychroma/gtm-cli/internal/sink"
	"github.com/trychroma/gtm-cli/internal/source"
	"github.com/trychroma/gtm-cli/internal/store"
	"github.com/trychroma/gtm-cli/pkg/chromadb"
	"github.com/trychroma/gtm-cli/pkg/slackhook"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push cached leads to a CRM",
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

// crmDestination is a sink that also answers the deduplicator's lookups.
type crmDestination interface {
	pipeline.Sink
	pipeline.Destination
}

// loadSyncRecords returns the candidate batch for a CRM sync: a file when
// --file is given, the Chroma collection when --from-chroma, otherwise the
// cached leads from the local store.
func loadSyncRecords(ctx context.Context, f syncFlags, file string, fromChroma bool) ([]model.RawRecord, error) {
	if file != "" {
		return source.NewFileSource(file).Fetch(ctx)
	}
	if fromChroma {
		src, err := chromaSource()
		if err != nil {
			return nil, err
		}
		return src.Fetch(ctx)
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	defer st.Close() //nolint:errcheck

	leads, err := st.ListLeads(ctx, store.LeadFilter{
		Tier:     f.tier,
		Category: model.Category(f.category),
	})
	if err != nil {
		return nil, eris.Wrap(err, "list cached leads")
	}

	records := make([]model.RawRecord, 0, len(leads))
	for i := range leads {
		records = append(records, leadToRaw(&leads[i]))
	}
	return records, nil
}

// chromaSource builds the Chroma collection adapter from config.
func chromaSource() (*source.ChromaSource, error) {
	client, err := chromaClient()
	if err != nil {
		return nil, err
	}
	return source.NewChromaSource(client, cfg.Chroma.Collection, nil), nil
}

// chromaClient builds the Chroma client from config.
func chromaClient() (chromadb.Client, error) {
	if cfg.Chroma.Collection == "" {
		return nil, eris.New("chroma collection is required (GTM_CHROMA_COLLECTION)")
	}

	opts := []chromadb.Option{}
	if cfg.Chroma.BaseURL != "" {
		opts = append(opts, chromadb.WithBaseURL(cfg.Chroma.BaseURL))
	}
	if cfg.Chroma.Tenant != "" || cfg.Chroma.Database != "" {
		opts = append(opts, chromadb.WithTenantDatabase(cfg.Chroma.Tenant, cfg.Chroma.Database))
	}
	if cfg.Chroma.APIKey != "" {
		opts = append(opts, chromadb.WithAPIKey(cfg.Chroma.APIKey))
	}
	return chromadb.NewClient(opts...), nil
}

// leadToRaw round-trips a cached lead through the normalizer's field names so
// CRM syncs reuse the exact same pipeline as fresh ingestion.
func leadToRaw(lead *model.Lead) model.RawRecord {
	fields := map[string]any{
		"company_name": lead.CompanyName,
	}
	if lead.Website != "" {
		fields["website"] = lead.Website
	}
	if lead.Category != "" {
		fields["category"] = string(lead.Category)
	}
	if lead.Tier != 0 {
		fields["tier"] = lead.Tier
	}
	if lead.VectorDBUsed != "" {
		fields["vector_db_used"] = lead.VectorDBUsed
	}
	if lead.FundingStage != "" {
		fields["funding_stage"] = lead.FundingStage
	}
	if len(lead.Contacts) > 0 {
		c := lead.Contacts[0]
		if c.Name != "" {
			fields["contact_name"] = c.Name
		}
		if c.Title != "" {
			fields["title"] = c.Title
		}
		if c.Email != "" {
			fields["email"] = c.Email
		}
		if c.LinkedInURL != "" {
			fields["linkedin_url"] = c.LinkedInURL
		}
	}

	src := lead.Source
	if src == "" {
		src = "cache"
	}
	return model.RawRecord{Source: src, Fields: fields}
}

// runCRMSync drives the batch into one CRM, deduplicating against that CRM's
// own records.
func runCRMSync(ctx context.Context, f syncFlags, service string, dest crmDestination, records []model.RawRecord) error {
	st, err := openStore(ctx, f.dryRun)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close() //nolint:errcheck
	}

	policy, err := conflictPolicy(f)
	if err != nil {
		return err
	}

	sinks := []pipeline.Sink{dest}
	if f.notify {
		if cfg.Slack.WebhookURL == "" {
			return eris.New("slack webhook URL is required for --notify (GTM_SLACK_WEBHOOK_URL)")
		}
		sinks = append(sinks, sink.NewSlackSink(slackhook.NewClient(cfg.Slack.WebhookURL)))
	}

	lists, err := buildLists(cfg.Filter)
	if err != nil {
		return err
	}

	driver := pipeline.NewDriver(
		pipeline.NewFilter(lists),
		pipeline.NewScorer(cfg.Scorer.CompetitorBonus),
		pipeline.NewDeduplicator(dest, policy),
		sinks,
		processedStore(st),
		driverOptions(f, service),
	)

	stats, err := driver.Run(ctx, records)
	if err != nil {
		return err
	}

	zap.L().Info("sync complete",
		zap.String("sink", service),
		zap.Int("total", stats.Total),
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
	)
	return runStats(stats)
}
