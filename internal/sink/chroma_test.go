package sink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trychroma/gtm-cli/internal/model"
	"github.com/trychroma/gtm-cli/pkg/chromadb"
)

// fakeChromaClient records Add/Update calls.
type fakeChromaClient struct {
	collections int
	addedIDs    []string
	addedDocs   []string
	addedMeta   []chromadb.Metadata
	updatedIDs  []string
}

func (f *fakeChromaClient) Heartbeat(context.Context) error { return nil }

func (f *fakeChromaClient) GetOrCreateCollection(_ context.Context, name string) (*chromadb.Collection, error) {
	f.collections++
	return &chromadb.Collection{ID: "coll-1", Name: name}, nil
}

func (f *fakeChromaClient) Add(_ context.Context, _ string, ids []string, documents []string, metadatas []chromadb.Metadata) error {
	f.addedIDs = append(f.addedIDs, ids...)
	f.addedDocs = append(f.addedDocs, documents...)
	f.addedMeta = append(f.addedMeta, metadatas...)
	return nil
}

func (f *fakeChromaClient) Get(context.Context, string, chromadb.Metadata, int, int) (*chromadb.GetResult, error) {
	return &chromadb.GetResult{}, nil
}

func (f *fakeChromaClient) Query(context.Context, string, []string, int, chromadb.Metadata) (*chromadb.QueryResult, error) {
	return &chromadb.QueryResult{}, nil
}

func (f *fakeChromaClient) Update(_ context.Context, _ string, ids []string, _ []chromadb.Metadata) error {
	f.updatedIDs = append(f.updatedIDs, ids...)
	return nil
}

func (f *fakeChromaClient) Delete(context.Context, string, []string) error { return nil }

func TestChromaSink_Create(t *testing.T) {
	fake := &fakeChromaClient{}
	s := NewChromaSink(fake, "gtm_leads")

	lead := &model.Lead{
		CompanyName:  "Acme AI",
		Domain:       "acme.ai",
		Source:       "findall",
		VectorDBUsed: "pinecone",
		Score:        72,
		Contacts:     []model.Contact{{Name: "Dana Reyes", Title: "CTO"}},
	}
	result, err := s.Write(context.Background(), lead, model.ActionCreate, nil)
	require.NoError(t, err)

	assert.Equal(t, model.WriteCreated, result.Status)
	assert.Equal(t, "acme ai|findall", result.ExternalID)
	require.Len(t, fake.addedIDs, 1)
	assert.Equal(t, "acme ai|findall", fake.addedIDs[0])
	assert.Contains(t, fake.addedDocs[0], "uses pinecone")
	assert.Equal(t, "Acme AI", fake.addedMeta[0]["company_name"])
	assert.Equal(t, "CTO", fake.addedMeta[0]["contact_title"])
}

func TestChromaSink_Update(t *testing.T) {
	fake := &fakeChromaClient{}
	s := NewChromaSink(fake, "gtm_leads")

	lead := &model.Lead{CompanyName: "Acme AI", Source: "findall"}
	result, err := s.Write(context.Background(), lead, model.ActionUpdate, nil)
	require.NoError(t, err)

	assert.Equal(t, model.WriteUpdated, result.Status)
	assert.Equal(t, []string{"acme ai|findall"}, fake.updatedIDs)
	assert.Empty(t, fake.addedIDs)
}

func TestChromaSink_SkipPassesThrough(t *testing.T) {
	fake := &fakeChromaClient{}
	s := NewChromaSink(fake, "gtm_leads")

	result, err := s.Write(context.Background(), &model.Lead{CompanyName: "Acme"}, model.ActionSkip, nil)
	require.NoError(t, err)
	assert.Equal(t, model.WriteSkipped, result.Status)
	assert.Zero(t, fake.collections, "skips must not touch the collection")
}

func TestChromaSink_CollectionResolvedOnce(t *testing.T) {
	fake := &fakeChromaClient{}
	s := NewChromaSink(fake, "gtm_leads")

	for i := 0; i < 3; i++ {
		_, err := s.Write(context.Background(), &model.Lead{CompanyName: "Acme", Source: "t"}, model.ActionCreate, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, fake.collections)
}
