package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trychroma/gtm-cli/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return NewPostgresWithPool(mock), mock
}

func TestPostgres_IsProcessed(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT 1 FROM processed WHERE key = \$1`).
		WithArgs("dana@acme.ai").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

	done, err := s.IsProcessed(ctx, "dana@acme.ai")
	require.NoError(t, err)
	assert.True(t, done)

	mock.ExpectQuery(`SELECT 1 FROM processed WHERE key = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	done, err = s.IsProcessed(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, done)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_MarkProcessed(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO processed`).
		WithArgs("dana@acme.ai", "findall", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.MarkProcessed(ctx, "dana@acme.ai", "findall"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveLead(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	lead := &model.Lead{
		CompanyName: "Acme AI",
		Tier:        1,
		Category:    model.CategoryProspect,
		Score:       72,
		Source:      "findall",
	}

	mock.ExpectExec(`INSERT INTO leads`).
		WithArgs("acme ai|findall", "Acme AI", 1, "prospect", 72, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SaveLead(ctx, lead))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListLeads(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	doc := []byte(`{"company_name":"Acme AI","score":72,"source":"findall"}`)
	mock.ExpectQuery(`SELECT doc FROM leads WHERE 1=1 AND tier = \$1 ORDER BY score DESC`).
		WithArgs(1).
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(doc))

	leads, err := s.ListLeads(ctx, LeadFilter{Tier: 1})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "Acme AI", leads[0].CompanyName)
	assert.Equal(t, 72, leads[0].Score)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_AppendSyncLog(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	entry := model.SyncLogEntry{
		ID: "1", RunID: "r1", Key: "k1", CompanyName: "Acme AI",
		Sink: "attio", Status: model.WriteCreated, ExternalID: "rec-1",
	}

	mock.ExpectExec(`INSERT INTO sync_log`).
		WithArgs("1", "r1", "k1", "Acme AI", "attio", "created", "rec-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.AppendSyncLog(ctx, entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Summary(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM processed`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery(`SELECT sink, status, COUNT\(\*\) FROM sync_log`).
		WillReturnRows(pgxmock.NewRows([]string{"sink", "status", "count"}).
			AddRow("attio", "created", 3).
			AddRow("hubspot", "updated", 2))
	mock.ExpectQuery(`SELECT MAX\(created_at\) FROM sync_log`).
		WillReturnError(pgx.ErrNoRows)

	summary, err := s.Summary(ctx)
	require.NoError(t, err)

	assert.Equal(t, 5, summary.ProcessedKeys)
	assert.Equal(t, 5, summary.LogEntries)
	assert.Equal(t, 3, summary.ByStatus[model.WriteCreated])
	assert.Equal(t, 2, summary.BySink["hubspot"])
	assert.Nil(t, summary.LastSyncAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Migrate(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS processed`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}
