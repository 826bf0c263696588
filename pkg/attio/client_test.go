package attio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trychroma/gtm-cli/internal/resilience"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(1000))
}

func TestQueryRecords(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/objects/companies/records/query", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(50), body["limit"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{
					"id":     map[string]any{"record_id": "rec-1"},
					"values": map[string]any{"name": []map[string]any{{"value": "Acme AI"}}},
				},
			},
		})
	})

	records, err := client.QueryRecords(context.Background(), "companies", nil, 50, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "rec-1", records[0].ID.RecordID)
	assert.Equal(t, "Acme AI", records[0].Values["name"][0]["value"])
}

func TestCreateRecord(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/objects/companies/records", r.URL.Path)

		var body struct {
			Data struct {
				Values Values `json:"values"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Acme AI", body.Data.Values["name"][0]["value"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": map[string]any{"record_id": "rec-9"}},
		})
	})

	record, err := client.CreateRecord(context.Background(), "companies", Values{
		"name": {{"value": "Acme AI"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "rec-9", record.ID.RecordID)
}

func TestCreateListEntry(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lists/list-1/entries", r.URL.Path)

		var body map[string]map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "rec-9", body["data"]["parent_record_id"])
		assert.Equal(t, "companies", body["data"]["parent_object"])

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	})

	require.NoError(t, client.CreateListEntry(context.Background(), "list-1", "companies", "rec-9"))
}

func TestRateLimitedResponseIsTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	err := client.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.Equal(t, 3*time.Second, resilience.RetryAfterHint(err))
}

func TestClientErrorIsNotTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid attribute"}`))
	})

	_, err := client.CreateRecord(context.Background(), "companies", Values{})
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
	assert.Contains(t, err.Error(), "422")
}
