package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/trychroma/gtm-cli/internal/model"
	"github.com/trychroma/gtm-cli/internal/resilience"
)

// Sink writes an accepted, scored, deduplicated lead to one destination.
// Implementations perform network I/O only; the dedup decision is made
// upstream and passed in.
type Sink interface {
	Name() string
	Write(ctx context.Context, lead *model.Lead, action model.Action, existing *ExistingRecord) (model.WriteResult, error)
}

// ProcessedStore is the durable processed-set consulted before each record
// so re-running the driver is a no-op for already-handled leads.
type ProcessedStore interface {
	IsProcessed(ctx context.Context, key string) (bool, error)
	MarkProcessed(ctx context.Context, key, source string) error
	AppendSyncLog(ctx context.Context, entry model.SyncLogEntry) error
}

// Options configures a driver run.
type Options struct {
	// RateInterval is the fixed pacing between records (third-party rate
	// limit headroom). Zero disables pacing.
	RateInterval time.Duration
	// DryRun previews decisions without writing to sinks or the store.
	DryRun bool
	// Limit stops after processing N records (0 = no limit).
	Limit int
	// Tier, when 1-3, selects only leads of that tier.
	Tier int
	// Category, when set, selects only leads of that category.
	Category model.Category
	// Retry controls per-call retry for dedup lookups and sink writes.
	Retry resilience.RetryConfig
}

// Driver runs the canonical pipeline over a candidate batch: strictly
// sequential, record-at-a-time, with per-record error recovery. One bad
// record never aborts the batch; only context cancellation does.
type Driver struct {
	filter  *Filter
	scorer  *Scorer
	deduper *Deduplicator
	sinks   []Sink
	store   ProcessedStore // may be nil
	opts    Options
}

// NewDriver assembles a Driver. store may be nil to disable resume tracking.
func NewDriver(filter *Filter, scorer *Scorer, deduper *Deduplicator, sinks []Sink, store ProcessedStore, opts Options) *Driver {
	return &Driver{
		filter:  filter,
		scorer:  scorer,
		deduper: deduper,
		sinks:   sinks,
		store:   store,
		opts:    opts,
	}
}

// Run processes the batch in source order and returns the final counters.
// The error is non-nil only for cancellation; per-record failures are
// counted, not raised. Callers decide whether failed > 0 fails the command.
func (d *Driver) Run(ctx context.Context, records []model.RawRecord) (model.SyncStats, error) {
	runID := uuid.New().String()
	stats := model.SyncStats{}
	now := time.Now().UTC()

	var limiter *rate.Limiter
	if d.opts.RateInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(d.opts.RateInterval), 1)
	}

	log := zap.L().With(zap.String("run_id", runID))
	log.Info("pipeline run starting",
		zap.Int("candidates", len(records)),
		zap.Bool("dry_run", d.opts.DryRun),
	)

	processed := 0
	for i := range records {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		if d.opts.Limit > 0 && processed >= d.opts.Limit {
			break
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return stats, err
			}
		}

		d.processOne(ctx, log, runID, records[i], now, &stats)
		processed++
	}

	log.Info("pipeline run complete",
		zap.Int("total", stats.Total),
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

func (d *Driver) processOne(ctx context.Context, log *zap.Logger, runID string, raw model.RawRecord, now time.Time, stats *model.SyncStats) {
	stats.Total++

	lead, skip := Normalize(raw, now)
	if skip != "" {
		stats.Skip(skip)
		log.Debug("record skipped", zap.String("reason", string(skip)), zap.String("source", raw.Source))
		return
	}
	rlog := log.With(zap.String("company", lead.CompanyName))

	if d.opts.Tier != 0 && lead.Tier != d.opts.Tier {
		stats.Skip(model.SkipNotSelected)
		return
	}
	if d.opts.Category != "" && lead.Category != d.opts.Category {
		stats.Skip(model.SkipNotSelected)
		return
	}

	key := IdempotencyKey(lead)
	if d.store != nil && !d.opts.DryRun {
		done, err := d.store.IsProcessed(ctx, key)
		if err != nil {
			rlog.Warn("processed-set lookup failed, continuing", zap.Error(err))
		} else if done {
			stats.Skip(model.SkipAlreadyProcessed)
			rlog.Debug("already processed", zap.String("key", key))
			return
		}
	}

	if ok, reason, entry := d.filter.Accept(lead); !ok {
		stats.Skip(reason)
		rlog.Info("lead blocklisted",
			zap.String("reason", string(reason)),
			zap.String("matched", entry),
		)
		return
	}

	lead.Score = d.scorer.Score(lead)

	decision, err := resilience.DoVal(ctx, d.opts.Retry, func(ctx context.Context) (Decision, error) {
		return d.deduper.Decide(ctx, lead)
	})
	if err != nil {
		stats.Failed++
		rlog.Error("dedup lookup failed", zap.Error(err))
		return
	}

	if decision.Action == model.ActionSkip {
		stats.Skip(model.SkipDuplicate)
		rlog.Info("duplicate of existing record",
			zap.String("external_id", decision.Existing.ExternalID),
		)
		return
	}

	if d.opts.DryRun {
		switch decision.Action {
		case model.ActionUpdate:
			stats.Updated++
		default:
			stats.Created++
		}
		rlog.Info("dry run: would write",
			zap.String("action", string(decision.Action)),
			zap.Int("score", lead.Score),
		)
		return
	}

	failed := false
	var primary model.WriteResult
	for i, sink := range d.sinks {
		result, werr := resilience.DoVal(ctx, d.opts.Retry, func(ctx context.Context) (model.WriteResult, error) {
			return sink.Write(ctx, lead, decision.Action, decision.Existing)
		})
		if werr != nil {
			failed = true
			rlog.Error("sink write failed",
				zap.String("sink", sink.Name()),
				zap.Error(werr),
			)
			continue
		}
		if i == 0 {
			primary = result
		}
		rlog.Info("lead written",
			zap.String("sink", sink.Name()),
			zap.String("status", string(result.Status)),
			zap.String("external_id", result.ExternalID),
			zap.Int("score", lead.Score),
		)
		if d.store != nil {
			entry := model.SyncLogEntry{
				ID:          uuid.New().String(),
				RunID:       runID,
				Key:         key,
				CompanyName: lead.CompanyName,
				Sink:        sink.Name(),
				Status:      result.Status,
				ExternalID:  result.ExternalID,
				CreatedAt:   time.Now().UTC(),
			}
			if serr := d.store.AppendSyncLog(ctx, entry); serr != nil {
				rlog.Warn("sync log append failed", zap.Error(serr))
			}
		}
	}

	if failed {
		stats.Failed++
		return
	}

	switch primary.Status {
	case model.WriteUpdated:
		stats.Updated++
	case model.WriteSkipped:
		stats.Skip(model.SkipDuplicate)
	default:
		stats.Created++
	}

	if d.store != nil {
		if err := d.store.MarkProcessed(ctx, key, lead.Source); err != nil {
			rlog.Warn("mark processed failed", zap.Error(err))
		}
	}
}
