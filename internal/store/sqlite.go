package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/trychroma/gtm-cli/internal/model"
	"github.com/trychroma/gtm-cli/internal/pipeline"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS processed (
	key          TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	processed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS leads (
	key        TEXT PRIMARY KEY,
	company    TEXT NOT NULL,
	tier       INTEGER NOT NULL DEFAULT 0,
	category   TEXT NOT NULL DEFAULT '',
	score      INTEGER NOT NULL DEFAULT 0,
	doc        TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS sync_log (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL,
	key         TEXT NOT NULL,
	company     TEXT NOT NULL,
	sink        TEXT NOT NULL,
	status      TEXT NOT NULL,
	external_id TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_leads_tier ON leads(tier);
CREATE INDEX IF NOT EXISTS idx_leads_category ON leads(category);
CREATE INDEX IF NOT EXISTS idx_sync_log_run_id ON sync_log(run_id);
CREATE INDEX IF NOT EXISTS idx_sync_log_status ON sync_log(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM processed WHERE key = ?`, key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "sqlite: lookup processed")
	}
	return true, nil
}

func (s *SQLiteStore) MarkProcessed(ctx context.Context, key, source string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO processed (key, source, processed_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO NOTHING`,
		key, source, time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: mark processed")
}

func (s *SQLiteStore) SaveLead(ctx context.Context, lead *model.Lead) error {
	doc, err := json.Marshal(lead)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal lead")
	}
	key := pipeline.IdempotencyKey(lead)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO leads (key, company, tier, category, score, doc, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   company = excluded.company,
		   tier = excluded.tier,
		   category = excluded.category,
		   score = excluded.score,
		   doc = excluded.doc,
		   updated_at = excluded.updated_at`,
		key, lead.CompanyName, lead.Tier, string(lead.Category), lead.Score, string(doc), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: save lead")
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT doc FROM leads WHERE 1=1`
	var args []any
	if filter.Tier != 0 {
		query += ` AND tier = ?`
		args = append(args, filter.Tier)
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, string(filter.Category))
	}
	query += ` ORDER BY score DESC, company ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close() //nolint:errcheck

	var leads []model.Lead
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		var lead model.Lead
		if err := json.Unmarshal([]byte(doc), &lead); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal lead")
		}
		leads = append(leads, lead)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: iterate leads")
}

func (s *SQLiteStore) AppendSyncLog(ctx context.Context, entry model.SyncLogEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_log (id, run_id, key, company, sink, status, external_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.RunID, entry.Key, entry.CompanyName, entry.Sink,
		string(entry.Status), entry.ExternalID, entry.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: append sync log")
}

func (s *SQLiteStore) Summary(ctx context.Context) (*SyncSummary, error) {
	summary := &SyncSummary{
		ByStatus: make(map[model.WriteStatus]int),
		BySink:   make(map[string]int),
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM processed`).Scan(&summary.ProcessedKeys); err != nil {
		return nil, eris.Wrap(err, "sqlite: count processed")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT sink, status, COUNT(*) FROM sync_log GROUP BY sink, status`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: summarize sync log")
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var sink, status string
		var count int
		if err := rows.Scan(&sink, &status, &count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan summary")
		}
		summary.ByStatus[model.WriteStatus(status)] += count
		summary.BySink[sink] += count
		summary.LogEntries += count
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate summary")
	}

	var last sql.NullTime
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(created_at) FROM sync_log`).Scan(&last); err == nil && last.Valid {
		t := last.Time.UTC()
		summary.LastSyncAt = &t
	}

	return summary, nil
}
