package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/trychroma/gtm-cli/internal/model"
	"github.com/trychroma/gtm-cli/internal/pipeline"
)

// pgPool is the minimal pool surface used by PostgresStore, satisfied by
// *pgxpool.Pool and by pgxmock in tests.
type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool pgPool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 5
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool (tests use pgxmock).
func NewPostgresWithPool(pool pgPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS processed (
	key          TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	processed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS leads (
	key        TEXT PRIMARY KEY,
	company    TEXT NOT NULL,
	tier       INTEGER NOT NULL DEFAULT 0,
	category   TEXT NOT NULL DEFAULT '',
	score      INTEGER NOT NULL DEFAULT 0,
	doc        JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sync_log (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL,
	key         TEXT NOT NULL,
	company     TEXT NOT NULL,
	sink        TEXT NOT NULL,
	status      TEXT NOT NULL,
	external_id TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_tier ON leads(tier);
CREATE INDEX IF NOT EXISTS idx_leads_category ON leads(category);
CREATE INDEX IF NOT EXISTS idx_sync_log_run_id ON sync_log(run_id);
CREATE INDEX IF NOT EXISTS idx_sync_log_status ON sync_log(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx, `SELECT 1 FROM processed WHERE key = $1`, key).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "postgres: lookup processed")
	}
	return true, nil
}

func (s *PostgresStore) MarkProcessed(ctx context.Context, key, source string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO processed (key, source, processed_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO NOTHING`,
		key, source, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: mark processed")
}

func (s *PostgresStore) SaveLead(ctx context.Context, lead *model.Lead) error {
	doc, err := json.Marshal(lead)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal lead")
	}
	key := pipeline.IdempotencyKey(lead)
	_, err = s.pool.Exec(ctx,
		`INSERT INTO leads (key, company, tier, category, score, doc, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (key) DO UPDATE SET
		   company = EXCLUDED.company,
		   tier = EXCLUDED.tier,
		   category = EXCLUDED.category,
		   score = EXCLUDED.score,
		   doc = EXCLUDED.doc,
		   updated_at = EXCLUDED.updated_at`,
		key, lead.CompanyName, lead.Tier, string(lead.Category), lead.Score, doc, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: save lead")
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT doc FROM leads WHERE 1=1`
	var args []any
	if filter.Tier != 0 {
		args = append(args, filter.Tier)
		query += ` AND tier = $1`
	}
	if filter.Category != "" {
		args = append(args, string(filter.Category))
		query += ` AND category = $` + itoa(len(args))
	}
	query += ` ORDER BY score DESC, company ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		var lead model.Lead
		if err := json.Unmarshal(doc, &lead); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal lead")
		}
		leads = append(leads, lead)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: iterate leads")
}

func (s *PostgresStore) AppendSyncLog(ctx context.Context, entry model.SyncLogEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sync_log (id, run_id, key, company, sink, status, external_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.RunID, entry.Key, entry.CompanyName, entry.Sink,
		string(entry.Status), entry.ExternalID, entry.CreatedAt,
	)
	return eris.Wrap(err, "postgres: append sync log")
}

func (s *PostgresStore) Summary(ctx context.Context) (*SyncSummary, error) {
	summary := &SyncSummary{
		ByStatus: make(map[model.WriteStatus]int),
		BySink:   make(map[string]int),
	}

	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM processed`).Scan(&summary.ProcessedKeys); err != nil {
		return nil, eris.Wrap(err, "postgres: count processed")
	}

	rows, err := s.pool.Query(ctx, `SELECT sink, status, COUNT(*) FROM sync_log GROUP BY sink, status`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: summarize sync log")
	}
	defer rows.Close()

	for rows.Next() {
		var sink, status string
		var count int
		if err := rows.Scan(&sink, &status, &count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan summary")
		}
		summary.ByStatus[model.WriteStatus(status)] += count
		summary.BySink[sink] += count
		summary.LogEntries += count
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate summary")
	}

	var last *time.Time
	if err := s.pool.QueryRow(ctx, `SELECT MAX(created_at) FROM sync_log`).Scan(&last); err == nil && last != nil {
		t := last.UTC()
		summary.LastSyncAt = &t
	}

	return summary, nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
