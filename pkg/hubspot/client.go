// Package hubspot wraps the HubSpot CRM v3 REST API. HubSpot records carry a
// flat properties map; custom properties must be declared before they can be
// set, and batch archive operates on chunks of at most 100 ids.
package hubspot

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

const (
	defaultBaseURL = "https://api.hubapi.com"

	// maxBatchSize is HubSpot's hard cap on batch endpoint inputs.
	maxBatchSize = 100
)

// Object is a HubSpot record with its flat properties map.
type Object struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// SearchFilter is one property filter in a search request.
type SearchFilter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

// PropertyDefinition declares a custom property.
type PropertyDefinition struct {
	Name      string   `json:"name"`
	Label     string   `json:"label"`
	Type      string   `json:"type"`      // string | number | enumeration
	FieldType string   `json:"fieldType"` // text | number | select
	GroupName string   `json:"groupName"`
	Options   []Option `json:"options,omitempty"`
}

// Option is one allowed value of an enumeration property.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Client defines the HubSpot API operations used by the pipeline.
type Client interface {
	Search(ctx context.Context, objectType string, filters []SearchFilter, properties []string, limit int) ([]Object, error)
	CreateObject(ctx context.Context, objectType string, properties map[string]string) (*Object, error)
	UpdateObject(ctx context.Context, objectType, id string, properties map[string]string) error
	EnsureProperty(ctx context.Context, objectType string, def PropertyDefinition) error
	BatchArchive(ctx context.Context, objectType string, ids []string) (int, error)
	Ping(ctx context.Context) error
}

// ClientOption configures the HubSpot client.
type ClientOption func(*httpClient)

// WithRateLimit sets a per-second rate limit for HubSpot API calls.
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

// NewClient creates a HubSpot API client using a private app access token.
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

func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *httpClient) Search(ctx context.Context, objectType string, filters []SearchFilter, properties []string, limit int) ([]Object, error) {
	if limit <= 0 {
		limit = 100
	}
	body := map[string]any{
		"filterGroups": []map[string]any{{"filters": filters}},
		"properties":   properties,
		"limit":        limit,
	}

	var resp struct {
		Results []Object `json:"results"`
	}
	path := fmt.Sprintf("/crm/v3/objects/%s/search", objectType)
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("hubspot: search %s", objectType))
	}
	return resp.Results, nil
}

func (c *httpClient) CreateObject(ctx context.Context, objectType string, properties map[string]string) (*Object, error) {
	body := map[string]any{"properties": properties}

	var obj Object
	if err := c.do(ctx, http.MethodPost, "/crm/v3/objects/"+objectType, body, &obj); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("hubspot: create %s", objectType))
	}
	return &obj, nil
}

func (c *httpClient) UpdateObject(ctx context.Context, objectType, id string, properties map[string]string) error {
	body := map[string]any{"properties": properties}
	path := fmt.Sprintf("/crm/v3/objects/%s/%s", objectType, id)
	if err := c.do(ctx, http.MethodPatch, path, body, nil); err != nil {
		return eris.Wrap(err, fmt.Sprintf("hubspot: update %s %s", objectType, id))
	}
	return nil
}

// EnsureProperty declares a custom property if it does not already exist.
func (c *httpClient) EnsureProperty(ctx context.Context, objectType string, def PropertyDefinition) error {
	getPath := fmt.Sprintf("/crm/v3/properties/%s/%s", objectType, def.Name)
	err := c.do(ctx, http.MethodGet, getPath, nil, nil)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return eris.Wrap(err, fmt.Sprintf("hubspot: describe property %s", def.Name))
	}

	if def.GroupName == "" {
		def.GroupName = objectType + "information"
	}
	createPath := fmt.Sprintf("/crm/v3/properties/%s", objectType)
	if err := c.do(ctx, http.MethodPost, createPath, def, nil); err != nil {
		return eris.Wrap(err, fmt.Sprintf("hubspot: create property %s", def.Name))
	}
	return nil
}

// BatchArchive archives the given ids in chunks of 100 and returns the
// number archived.
func (c *httpClient) BatchArchive(ctx context.Context, objectType string, ids []string) (int, error) {
	archived := 0
	for start := 0; start < len(ids); start += maxBatchSize {
		end := min(start+maxBatchSize, len(ids))

		inputs := make([]map[string]string, 0, end-start)
		for _, id := range ids[start:end] {
			inputs = append(inputs, map[string]string{"id": id})
		}
		body := map[string]any{"inputs": inputs}

		path := fmt.Sprintf("/crm/v3/objects/%s/batch/archive", objectType)
		if err := c.do(ctx, http.MethodPost, path, body, nil); err != nil {
			return archived, eris.Wrap(err, fmt.Sprintf("hubspot: batch archive %s", objectType))
		}
		archived += end - start
	}
	return archived, nil
}

func (c *httpClient) Ping(ctx context.Context) error {
	return eris.Wrap(c.do(ctx, http.MethodGet, "/crm/v3/objects/companies?limit=1", nil, nil), "hubspot: ping")
}

// notFoundError marks a 404 so EnsureProperty can distinguish "missing" from
// a real failure.
type notFoundError struct{ err error }

func (e *notFoundError) Error() string { return e.err.Error() }
func (e *notFoundError) Unwrap() error { return e.err }

func isNotFound(err error) bool {
	var nf *notFoundError
	return eris.As(err, &nf)
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

	if resp.StatusCode == http.StatusNotFound {
		return &notFoundError{err: eris.Errorf("status 404: %s", string(respBody))}
	}
	if resp.StatusCode >= 400 {
		err := eris.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.TransientFromResponse(err, resp)
		}
		return err
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return eris.Wrap(err, "unmarshal response")
		}
	}
	return nil
}
