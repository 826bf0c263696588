package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trychroma/gtm-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLite(filepath.Join(t.TempDir(), "gtm.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLite_ProcessedSet(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	done, err := s.IsProcessed(ctx, "dana@acme.ai")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, s.MarkProcessed(ctx, "dana@acme.ai", "findall"))

	done, err = s.IsProcessed(ctx, "dana@acme.ai")
	require.NoError(t, err)
	assert.True(t, done)

	// Marking twice is a no-op, not an error.
	require.NoError(t, s.MarkProcessed(ctx, "dana@acme.ai", "import"))
}

func TestSQLite_SaveAndListLeads(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	leads := []model.Lead{
		{CompanyName: "Acme AI", Tier: 1, Category: model.CategoryProspect, Score: 72, Source: "findall"},
		{CompanyName: "Zenith Robotics", Tier: 2, Category: model.CategoryLead, Score: 40, Source: "import"},
		{CompanyName: "Lowball Corp", Tier: 3, Category: model.CategoryProspect, Score: 12, Source: "import"},
	}
	for i := range leads {
		require.NoError(t, s.SaveLead(ctx, &leads[i]))
	}

	all, err := s.ListLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Acme AI", all[0].CompanyName, "ordered by score descending")

	prospects, err := s.ListLeads(ctx, LeadFilter{Category: model.CategoryProspect})
	require.NoError(t, err)
	assert.Len(t, prospects, 2)

	tier2, err := s.ListLeads(ctx, LeadFilter{Tier: 2})
	require.NoError(t, err)
	require.Len(t, tier2, 1)
	assert.Equal(t, "Zenith Robotics", tier2[0].CompanyName)

	limited, err := s.ListLeads(ctx, LeadFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLite_SaveLeadUpserts(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	lead := &model.Lead{CompanyName: "Acme AI", Score: 40, Source: "findall"}
	require.NoError(t, s.SaveLead(ctx, lead))

	lead.Score = 60
	require.NoError(t, s.SaveLead(ctx, lead))

	all, err := s.ListLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1, "same idempotency key must not duplicate")
	assert.Equal(t, 60, all[0].Score)
}

func TestSQLite_SyncLogAndSummary(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	require.NoError(t, s.MarkProcessed(ctx, "k1", "findall"))
	now := time.Now().UTC()
	entries := []model.SyncLogEntry{
		{ID: "1", RunID: "r1", Key: "k1", CompanyName: "Acme AI", Sink: "attio", Status: model.WriteCreated, CreatedAt: now},
		{ID: "2", RunID: "r1", Key: "k2", CompanyName: "Zenith", Sink: "attio", Status: model.WriteUpdated, CreatedAt: now},
		{ID: "3", RunID: "r2", Key: "k3", CompanyName: "Other", Sink: "hubspot", Status: model.WriteCreated, CreatedAt: now},
	}
	for _, e := range entries {
		require.NoError(t, s.AppendSyncLog(ctx, e))
	}

	summary, err := s.Summary(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.ProcessedKeys)
	assert.Equal(t, 3, summary.LogEntries)
	assert.Equal(t, 2, summary.ByStatus[model.WriteCreated])
	assert.Equal(t, 1, summary.ByStatus[model.WriteUpdated])
	assert.Equal(t, 2, summary.BySink["attio"])
	assert.Equal(t, 1, summary.BySink["hubspot"])
	assert.NotNil(t, summary.LastSyncAt)
}

func TestSQLite_EmptySummary(t *testing.T) {
	s := newTestSQLite(t)

	summary, err := s.Summary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.ProcessedKeys)
	assert.Zero(t, summary.LogEntries)
}
