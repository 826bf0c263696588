package findall

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL))
}

func TestCreateRun(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/findall/runs", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))

		var req CreateRunRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "AI startups using vector databases", req.Objective)
		assert.Equal(t, 50, req.ResultLimit)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"findall_id": "run-1",
			"status":     "queued",
			"is_active":  true,
		})
	})

	run, err := client.CreateRun(context.Background(), CreateRunRequest{
		Objective:   "AI startups using vector databases",
		ResultLimit: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.RunID)
	assert.True(t, run.IsActive)
}

func TestGetRun_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"no such run"}`))
	})

	_, err := client.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestIsNotFound_OtherStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.GetRun(context.Background(), "run-1")
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
}

func TestListResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/findall/runs/run-1/results", r.URL.Path)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"findall_id": "run-1",
			"results": []map[string]any{
				{
					"name":         "Acme AI",
					"url":          "https://acme.ai",
					"match_status": "matched",
					"enrichment_fields": map[string]any{
						"vector_db_used": map[string]any{"value": "pinecone"},
					},
				},
				{"name": "Maybe Corp", "match_status": "candidate"},
			},
		})
	})

	set, err := client.ListResults(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, set.Results, 2)

	assert.True(t, set.Results[0].Matched())
	assert.Equal(t, "pinecone", set.Results[0].Fields["vector_db_used"].Value)
	assert.False(t, set.Results[1].Matched())
}

func TestPollRun_WaitsUntilInactive(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		active := n < 3
		status := "running"
		if !active {
			status = "completed"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"findall_id": "run-1",
			"status":     status,
			"is_active":  active,
		})
	})

	run, err := PollRun(context.Background(), client, "run-1",
		WithPollInterval(time.Millisecond),
		WithPollCap(2*time.Millisecond),
	)
	require.NoError(t, err)
	assert.Equal(t, "completed", run.Status)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestPollRun_FailedRun(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"findall_id": "run-1",
			"status":     "failed",
			"is_active":  false,
		})
	})

	_, err := PollRun(context.Background(), client, "run-1", WithPollInterval(time.Millisecond))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed")
}

func TestPollRun_Timeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"findall_id": "run-1",
			"status":     "running",
			"is_active":  true,
		})
	})

	_, err := PollRun(context.Background(), client, "run-1",
		WithPollInterval(5*time.Millisecond),
		WithPollTimeout(20*time.Millisecond),
	)
	require.Error(t, err)
}
