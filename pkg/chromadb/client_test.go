package chromadb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(WithBaseURL(srv.URL), WithAPIKey("ck-test"))
}

func TestHeartbeat(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/heartbeat", r.URL.Path)
		assert.Equal(t, "ck-test", r.Header.Get("x-chroma-token"))
		_, _ = w.Write([]byte(`{"nanosecond heartbeat": 123}`))
	})

	require.NoError(t, client.Heartbeat(context.Background()))
}

func TestGetOrCreateCollection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/tenants/default_tenant/databases/default_database/collections", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gtm_leads", body["name"])
		assert.Equal(t, true, body["get_or_create"])

		_ = json.NewEncoder(w).Encode(Collection{ID: "coll-1", Name: "gtm_leads"})
	})

	coll, err := client.GetOrCreateCollection(context.Background(), "gtm_leads")
	require.NoError(t, err)
	assert.Equal(t, "coll-1", coll.ID)
}

func TestGet(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t,
			"/api/v2/tenants/default_tenant/databases/default_database/collections/coll-1/get",
			r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(100), body["limit"])
		assert.Equal(t, float64(200), body["offset"])

		_ = json.NewEncoder(w).Encode(GetResult{
			IDs:       []string{"a"},
			Documents: []string{"Acme AI builds RAG agents"},
			Metadatas: []Metadata{{"company_name": "Acme AI"}},
		})
	})

	result, err := client.Get(context.Background(), "coll-1", Metadata{"category": "prospect"}, 100, 200)
	require.NoError(t, err)
	require.Len(t, result.IDs, 1)
	assert.Equal(t, "Acme AI", result.Metadatas[0]["company_name"])
}

func TestServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"InvalidArgumentError"}`))
	})

	err := client.Add(context.Background(), "coll-1", []string{"a"}, []string{"doc"}, []Metadata{{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
