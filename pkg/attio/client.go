// Package attio wraps the Attio CRM REST API. Attio stores record values as
// arrays of objects per attribute (multi-value attributes), and list
// membership lives in a separate lists resource referencing parent records.
package attio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/trychroma/gtm-cli/internal/resilience"
)

const defaultBaseURL = "https://api.attio.com/v2"

// Values maps attribute slugs to their value arrays, e.g.
// {"name": [{"value": "Acme"}], "domains": [{"domain": "acme.ai"}]}.
type Values map[string][]map[string]any

// Record is one Attio record with its identifier and values.
type Record struct {
	ID     RecordID `json:"id"`
	Values Values   `json:"values"`
}

// RecordID identifies a record within an object type.
type RecordID struct {
	WorkspaceID string `json:"workspace_id"`
	ObjectID    string `json:"object_id"`
	RecordID    string `json:"record_id"`
}

// QueryFilter is a records/query filter body (passed through verbatim).
type QueryFilter map[string]any

// Client defines the Attio API operations used by the pipeline.
type Client interface {
	QueryRecords(ctx context.Context, object string, filter QueryFilter, limit, offset int) ([]Record, error)
	CreateRecord(ctx context.Context, object string, values Values) (*Record, error)
	UpdateRecord(ctx context.Context, object, recordID string, values Values) error
	CreateListEntry(ctx context.Context, listID, parentObject, recordID string) error
	Ping(ctx context.Context) error
}

// ClientOption configures the Attio client.
type ClientOption func(*httpClient)

// WithRateLimit sets a per-second rate limit for Attio API calls.
func WithRateLimit(rps float64) ClientOption {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) ClientOption {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an Attio API client. By default calls are throttled to
// 4 req/s to stay under Attio's rate limits.
func NewClient(apiKey string, opts ...ClientOption) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(4, 4),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// wait blocks until the rate limiter allows one event, or ctx is cancelled.
func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *httpClient) QueryRecords(ctx context.Context, object string, filter QueryFilter, limit, offset int) ([]Record, error) {
	body := map[string]any{}
	if filter != nil {
		body["filter"] = filter
	}
	if limit > 0 {
		body["limit"] = limit
	}
	if offset > 0 {
		body["offset"] = offset
	}

	var resp struct {
		Data []Record `json:"data"`
	}
	path := fmt.Sprintf("/objects/%s/records/query", object)
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("attio: query %s records", object))
	}
	return resp.Data, nil
}

func (c *httpClient) CreateRecord(ctx context.Context, object string, values Values) (*Record, error) {
	body := map[string]any{"data": map[string]any{"values": values}}

	var resp struct {
		Data Record `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/objects/%s/records", object), body, &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("attio: create %s record", object))
	}
	return &resp.Data, nil
}

func (c *httpClient) UpdateRecord(ctx context.Context, object, recordID string, values Values) error {
	body := map[string]any{"data": map[string]any{"values": values}}
	path := fmt.Sprintf("/objects/%s/records/%s", object, recordID)
	if err := c.do(ctx, http.MethodPatch, path, body, nil); err != nil {
		return eris.Wrap(err, fmt.Sprintf("attio: update %s record %s", object, recordID))
	}
	return nil
}

func (c *httpClient) CreateListEntry(ctx context.Context, listID, parentObject, recordID string) error {
	body := map[string]any{
		"data": map[string]any{
			"parent_record_id": recordID,
			"parent_object":    parentObject,
			"entry_values":     map[string]any{},
		},
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/lists/%s/entries", listID), body, nil); err != nil {
		return eris.Wrap(err, fmt.Sprintf("attio: create list entry %s", listID))
	}
	return nil
}

func (c *httpClient) Ping(ctx context.Context) error {
	return eris.Wrap(c.do(ctx, http.MethodGet, "/self", nil, nil), "attio: ping")
}

func (c *httpClient) do(ctx context.Context, method, path string, in, out any) error {
	if err := c.wait(ctx); err != nil {
		return eris.Wrap(err, "rate limit")
	}

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
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

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
