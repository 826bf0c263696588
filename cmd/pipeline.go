package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/trychroma/gtm-cli/internal/blocklist"
	"github.com/trychroma/gtm-cli/internal/config"
	"github.com/trychroma/gtm-cli/internal/model"
	"github.com/trychroma/gtm-cli/internal/pipeline"
	"github.com/trychroma/gtm-cli/internal/resilience"
	"github.com/trychroma/gtm-cli/internal/sink"
	"github.com/trychroma/gtm-cli/internal/store"
	"github.com/trychroma/gtm-cli/pkg/slackhook"
)

// syncFlags are the knobs shared by every pipeline-running command.
type syncFlags struct {
	dryRun     bool
	limit      int
	tier       int
	category   string
	onConflict string
	notify     bool
	toChroma   bool
}

func registerSyncFlags(cmd *cobra.Command, f *syncFlags) {
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "preview decisions without writing")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "stop after N records (0 = all)")
	cmd.Flags().IntVar(&f.tier, "tier", 0, "only sync leads of this tier (1-3)")
	cmd.Flags().StringVar(&f.category, "category", "", "only sync leads of this category")
	cmd.Flags().StringVar(&f.onConflict, "on-conflict", "", "duplicate handling: skip or merge (default from config)")
	cmd.Flags().BoolVar(&f.notify, "notify", false, "post new leads to Slack as they are written")
	cmd.Flags().BoolVar(&f.toChroma, "to-chroma", false, "also write qualified leads to the Chroma lead collection")
}

// buildLists applies config overrides on top of the embedded block-lists.
func buildLists(fc config.FilterConfig) (blocklist.Lists, error) {
	lists := blocklist.Default()
	if fc.ListsFile != "" {
		loaded, err := blocklist.LoadFile(fc.ListsFile)
		if err != nil {
			return blocklist.Lists{}, err
		}
		lists = loaded
	}
	if len(fc.Competitors) > 0 {
		lists.Competitors = fc.Competitors
	}
	if len(fc.Enterprises) > 0 {
		lists.Enterprises = fc.Enterprises
	}
	lists.Competitors = append(lists.Competitors, fc.ExtraCompetitors...)
	lists.Enterprises = append(lists.Enterprises, fc.ExtraEnterprises...)
	if fc.Match == string(blocklist.MatchToken) {
		lists.Mode = blocklist.MatchToken
	}
	return lists, nil
}

func conflictPolicy(f syncFlags) (model.ConflictPolicy, error) {
	raw := f.onConflict
	if raw == "" {
		raw = cfg.Pipeline.OnConflict
	}
	switch model.ConflictPolicy(raw) {
	case model.ConflictSkip, model.ConflictMerge, "":
		if raw == "" {
			return model.ConflictSkip, nil
		}
		return model.ConflictPolicy(raw), nil
	default:
		return "", eris.Errorf("invalid --on-conflict value %q (want skip or merge)", raw)
	}
}

func retryConfig(service, operation string) resilience.RetryConfig {
	rc := resilience.DefaultRetryConfig()
	if cfg.Pipeline.MaxRetries > 0 {
		rc.MaxAttempts = cfg.Pipeline.MaxRetries
	}
	rc.OnRetry = resilience.RetryLogger(service, operation)
	return rc
}

func driverOptions(f syncFlags, service string) pipeline.Options {
	return pipeline.Options{
		RateInterval: cfg.Pipeline.RateInterval(),
		DryRun:       f.dryRun,
		Limit:        f.limit,
		Tier:         f.tier,
		Category:     model.Category(f.category),
		Retry:        retryConfig(service, "sync"),
	}
}

// openStore opens the configured processed-set store, or returns nil when the
// run is a dry run (dry runs never persist state).
func openStore(ctx context.Context, dryRun bool) (store.Store, error) {
	if dryRun {
		return nil, nil
	}
	s, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return s, nil
}

// runLocalPipeline drives records through filter/score/dedupe into the local
// cache and lead store. Discover and import use it; CRM sync is a separate
// step reading the cached leads back out.
func runLocalPipeline(ctx context.Context, f syncFlags, service string, records []model.RawRecord) (model.SyncStats, error) {
	cache, err := sink.NewCacheSink(cfg.Pipeline.CacheDir)
	if err != nil {
		return model.SyncStats{}, err
	}

	st, err := openStore(ctx, f.dryRun)
	if err != nil {
		return model.SyncStats{}, err
	}
	if st != nil {
		defer st.Close() //nolint:errcheck
	}

	sinks := []pipeline.Sink{cache}
	if st != nil {
		sinks = append(sinks, sink.NewStoreSink(st))
	}
	if f.notify {
		if cfg.Slack.WebhookURL == "" {
			return model.SyncStats{}, eris.New("slack webhook URL is required for --notify (GTM_SLACK_WEBHOOK_URL)")
		}
		sinks = append(sinks, sink.NewSlackSink(slackhook.NewClient(cfg.Slack.WebhookURL)))
	}
	if f.toChroma {
		client, err := chromaClient()
		if err != nil {
			return model.SyncStats{}, err
		}
		sinks = append(sinks, sink.NewChromaSink(client, cfg.Chroma.Collection))
	}

	policy, err := conflictPolicy(f)
	if err != nil {
		return model.SyncStats{}, err
	}

	lists, err := buildLists(cfg.Filter)
	if err != nil {
		return model.SyncStats{}, err
	}

	driver := pipeline.NewDriver(
		pipeline.NewFilter(lists),
		pipeline.NewScorer(cfg.Scorer.CompetitorBonus),
		pipeline.NewDeduplicator(cache, policy),
		sinks,
		processedStore(st),
		driverOptions(f, service),
	)
	return driver.Run(ctx, records)
}

// processedStore converts a possibly-nil concrete store into the driver's
// interface. A plain `var ps pipeline.ProcessedStore = st` would make a nil
// pointer non-nil through the interface.
func processedStore(st store.Store) pipeline.ProcessedStore {
	if st == nil {
		return nil
	}
	return st
}

// runStats returns a command error when any record failed, so the process
// exits non-zero and schedulers notice partial failures.
func runStats(stats model.SyncStats) error {
	if stats.Failed > 0 {
		return eris.Errorf("sync finished with %d failed record(s) (%d created, %d updated, %d skipped)",
			stats.Failed, stats.Created, stats.Updated, stats.Skipped)
	}
	return nil
}
