// Package chromadb is a minimal HTTP client for the Chroma vector store,
// covering the collection operations the pipeline uses. Metadata values must
// be flat strings/numbers/bools; nested objects are rejected by the server.
package chromadb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/trychroma/gtm-cli/internal/resilience"
)

const defaultBaseURL = "http://localhost:8000"

// Metadata is a flat metadata map for one record.
type Metadata map[string]any

// Client performs Chroma collection operations.
type Client interface {
	Heartbeat(ctx context.Context) error
	GetOrCreateCollection(ctx context.Context, name string) (*Collection, error)
	Add(ctx context.Context, collectionID string, ids []string, documents []string, metadatas []Metadata) error
	Get(ctx context.Context, collectionID string, where Metadata, limit, offset int) (*GetResult, error)
	Query(ctx context.Context, collectionID string, queryTexts []string, nResults int, where Metadata) (*QueryResult, error)
	Update(ctx context.Context, collectionID string, ids []string, metadatas []Metadata) error
	Delete(ctx context.Context, collectionID string, ids []string) error
}

// Collection identifies a named Chroma collection.
type Collection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GetResult holds records returned by Get.
type GetResult struct {
	IDs       []string   `json:"ids"`
	Documents []string   `json:"documents"`
	Metadatas []Metadata `json:"metadatas"`
}

// QueryResult holds semantic query results; outer slices are per query text.
type QueryResult struct {
	IDs       [][]string   `json:"ids"`
	Documents [][]string   `json:"documents"`
	Metadatas [][]Metadata `json:"metadatas"`
	Distances [][]float64  `json:"distances"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default server URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithTenantDatabase overrides the default tenant and database.
func WithTenantDatabase(tenant, database string) Option {
	return func(c *httpClient) {
		c.tenant = tenant
		c.database = database
	}
}

// WithAPIKey sets the x-chroma-token header (Chroma Cloud).
func WithAPIKey(key string) Option {
	return func(c *httpClient) {
		c.apiKey = key
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL  string
	tenant   string
	database string
	apiKey   string
	http     *http.Client
}

// NewClient creates a Chroma client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:  defaultBaseURL,
		tenant:   "default_tenant",
		database: "default_database",
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) collectionPath(collectionID string) string {
	return fmt.Sprintf("/api/v2/tenants/%s/databases/%s/collections/%s", c.tenant, c.database, collectionID)
}

func (c *httpClient) Heartbeat(ctx context.Context) error {
	return eris.Wrap(c.do(ctx, http.MethodGet, "/api/v2/heartbeat", nil, nil), "chroma: heartbeat")
}

func (c *httpClient) GetOrCreateCollection(ctx context.Context, name string) (*Collection, error) {
	body := map[string]any{"name": name, "get_or_create": true}
	path := fmt.Sprintf("/api/v2/tenants/%s/databases/%s/collections", c.tenant, c.database)

	var coll Collection
	if err := c.do(ctx, http.MethodPost, path, body, &coll); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("chroma: get or create collection %s", name))
	}
	return &coll, nil
}

func (c *httpClient) Add(ctx context.Context, collectionID string, ids []string, documents []string, metadatas []Metadata) error {
	body := map[string]any{"ids": ids, "documents": documents, "metadatas": metadatas}
	err := c.do(ctx, http.MethodPost, c.collectionPath(collectionID)+"/add", body, nil)
	return eris.Wrap(err, "chroma: add")
}

func (c *httpClient) Get(ctx context.Context, collectionID string, where Metadata, limit, offset int) (*GetResult, error) {
	body := map[string]any{"include": []string{"documents", "metadatas"}}
	if where != nil {
		body["where"] = where
	}
	if limit > 0 {
		body["limit"] = limit
	}
	if offset > 0 {
		body["offset"] = offset
	}

	var result GetResult
	if err := c.do(ctx, http.MethodPost, c.collectionPath(collectionID)+"/get", body, &result); err != nil {
		return nil, eris.Wrap(err, "chroma: get")
	}
	return &result, nil
}

func (c *httpClient) Query(ctx context.Context, collectionID string, queryTexts []string, nResults int, where Metadata) (*QueryResult, error) {
	body := map[string]any{
		"query_texts": queryTexts,
		"n_results":   nResults,
		"include":     []string{"documents", "metadatas", "distances"},
	}
	if where != nil {
		body["where"] = where
	}

	var result QueryResult
	if err := c.do(ctx, http.MethodPost, c.collectionPath(collectionID)+"/query", body, &result); err != nil {
		return nil, eris.Wrap(err, "chroma: query")
	}
	return &result, nil
}

func (c *httpClient) Update(ctx context.Context, collectionID string, ids []string, metadatas []Metadata) error {
	body := map[string]any{"ids": ids, "metadatas": metadatas}
	err := c.do(ctx, http.MethodPost, c.collectionPath(collectionID)+"/update", body, nil)
	return eris.Wrap(err, "chroma: update")
}

func (c *httpClient) Delete(ctx context.Context, collectionID string, ids []string) error {
	body := map[string]any{"ids": ids}
	err := c.do(ctx, http.MethodPost, c.collectionPath(collectionID)+"/delete", body, nil)
	return eris.Wrap(err, "chroma: delete")
}

func (c *httpClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return eris.Wrap(err, "marshal request")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-chroma-token", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}

	if resp.StatusCode >= 400 {
		err := eris.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.TransientFromResponse(err, resp)
		}
		return err
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return eris.Wrap(err, "unmarshal response")
		}
	}
	return nil
}
