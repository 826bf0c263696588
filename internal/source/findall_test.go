package source

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trychroma/gtm-cli/internal/pipeline"
	"github.com/trychroma/gtm-cli/pkg/findall"
)

// fakeFindAll completes after a fixed number of GetRun polls.
type fakeFindAll struct {
	pollsUntilDone int
	polls          int
	created        *findall.CreateRunRequest
	results        []findall.Entity
}

func (f *fakeFindAll) CreateRun(_ context.Context, req findall.CreateRunRequest) (*findall.Run, error) {
	f.created = &req
	return &findall.Run{RunID: "run-1", Status: "queued", IsActive: true}, nil
}

func (f *fakeFindAll) GetRun(_ context.Context, runID string) (*findall.Run, error) {
	f.polls++
	if f.polls >= f.pollsUntilDone {
		return &findall.Run{RunID: runID, Status: "completed", IsActive: false}, nil
	}
	return &findall.Run{RunID: runID, Status: "running", IsActive: true}, nil
}

func (f *fakeFindAll) ListResults(_ context.Context, runID string) (*findall.ResultSet, error) {
	return &findall.ResultSet{RunID: runID, Results: f.results}, nil
}

func TestFindAllSource_Fetch(t *testing.T) {
	fake := &fakeFindAll{
		pollsUntilDone: 1,
		results: []findall.Entity{
			{
				Name:        "Acme AI",
				URL:         "https://acme.ai",
				MatchStatus: "matched",
				Fields: map[string]findall.FieldResult{
					"vector_db_used": {Value: "pinecone"},
					"funding_stage":  {Value: "series a"},
					"contact_name":   {Value: "Dana Reyes"},
					"contact_title":  {Value: "CTO"},
					"empty":          {Value: nil},
				},
			},
			{Name: "Maybe Corp", MatchStatus: "candidate"},
		},
	}

	src := NewFindAllSource(fake, "AI startups building RAG products",
		WithResultLimit(25),
		WithPollTimeout(time.Second),
	)
	records, err := src.Fetch(context.Background())
	require.NoError(t, err)

	require.NotNil(t, fake.created)
	assert.Equal(t, "AI startups building RAG products", fake.created.Objective)
	assert.Equal(t, 25, fake.created.ResultLimit)

	require.Len(t, records, 1, "unmatched candidates are dropped")
	assert.Equal(t, "findall", records[0].Source)
	assert.Equal(t, "Acme AI", records[0].Fields["company_name"])
	assert.Equal(t, "https://acme.ai", records[0].Fields["website"])
	assert.Equal(t, "pinecone", records[0].Fields["vector_db_used"])
	assert.Equal(t, "CTO", records[0].Fields["contact_title"])
	_, hasEmpty := records[0].Fields["empty"]
	assert.False(t, hasEmpty, "nil enrichment values are dropped")

	lead, skip := pipeline.Normalize(records[0], time.Now())
	require.Empty(t, skip)
	require.Len(t, lead.Contacts, 1)
	assert.Equal(t, "CTO", lead.Contacts[0].Title, "discovery titles must reach the scorer")
}

func TestFindAllSource_ResumeSkipsCreate(t *testing.T) {
	fake := &fakeFindAll{pollsUntilDone: 1}

	src := NewFindAllSource(fake, "", WithRunID("run-9"), WithPollTimeout(time.Second))
	_, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Nil(t, fake.created, "existing run must not trigger a new submission")
}
