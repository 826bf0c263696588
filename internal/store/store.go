// Package store provides the local durable state for the pipeline: the
// idempotency processed-set, a lead cache for offline re-runs, and the sync
// log backing the status command. Backends: sqlite (default) and postgres.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/trychroma/gtm-cli/internal/config"
	"github.com/trychroma/gtm-cli/internal/model"
)

// LeadFilter specifies criteria for listing cached leads.
type LeadFilter struct {
	Tier     int            `json:"tier,omitempty"`
	Category model.Category `json:"category,omitempty"`
	Limit    int            `json:"limit,omitempty"`
}

// SyncSummary aggregates the sync log for the status command.
type SyncSummary struct {
	ProcessedKeys int                        `json:"processed_keys"`
	LogEntries    int                        `json:"log_entries"`
	ByStatus      map[model.WriteStatus]int  `json:"by_status"`
	BySink        map[string]int             `json:"by_sink"`
	LastSyncAt    *time.Time                 `json:"last_sync_at,omitempty"`
}

// Store defines the persistence interface for the pipeline.
type Store interface {
	// Processed set (idempotency keys)
	IsProcessed(ctx context.Context, key string) (bool, error)
	MarkProcessed(ctx context.Context, key, source string) error

	// Lead cache
	SaveLead(ctx context.Context, lead *model.Lead) error
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)

	// Sync log
	AppendSyncLog(ctx context.Context, entry model.SyncLogEntry) error
	Summary(ctx context.Context) (*SyncSummary, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the store backend selected by cfg and runs migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL)
	case "sqlite", "":
		s, err = NewSQLite(cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}
