// Package findall wraps the Parallel FindAll entity-discovery API: submit an
// objective, poll the run until it goes inactive, fetch matched entities with
// their enrichment fields.
package findall

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

const defaultBaseURL = "https://api.parallel.ai"

// Client performs FindAll API operations.
type Client interface {
	CreateRun(ctx context.Context, req CreateRunRequest) (*Run, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListResults(ctx context.Context, runID string) (*ResultSet, error)
}

// CreateRunRequest describes the entities to discover.
type CreateRunRequest struct {
	Objective       string            `json:"objective"`
	MatchConditions []MatchCondition  `json:"match_conditions,omitempty"`
	Enrichments     []EnrichmentField `json:"enrichments,omitempty"`
	ResultLimit     int               `json:"result_limit,omitempty"`
}

// MatchCondition constrains which entities qualify as matches.
type MatchCondition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// EnrichmentField asks the API to populate one described field per entity.
type EnrichmentField struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Run is the state of a FindAll run.
type Run struct {
	RunID    string `json:"findall_id"`
	Status   string `json:"status"`
	IsActive bool   `json:"is_active"`
	Metadata struct {
		Generated int `json:"candidates_generated"`
		Matched   int `json:"candidates_matched"`
	} `json:"metadata"`
}

// ResultSet holds the discovered entities.
type ResultSet struct {
	RunID   string   `json:"findall_id"`
	Results []Entity `json:"results"`
}

// Entity is one discovered candidate with its enrichment fields.
type Entity struct {
	Name        string                 `json:"name"`
	URL         string                 `json:"url,omitempty"`
	MatchStatus string                 `json:"match_status"`
	Fields      map[string]FieldResult `json:"enrichment_fields,omitempty"`
}

// Matched reports whether the entity satisfied all match conditions.
func (e Entity) Matched() bool {
	return e.MatchStatus == "matched"
}

// FieldResult is an enrichment value with its provenance.
type FieldResult struct {
	Value      any      `json:"value"`
	Provenance []string `json:"provenance,omitempty"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a FindAll API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) CreateRun(ctx context.Context, req CreateRunRequest) (*Run, error) {
	var run Run
	if err := c.do(ctx, http.MethodPost, "/v1beta/findall/runs", req, &run); err != nil {
		return nil, eris.Wrap(err, "findall: create run")
	}
	return &run, nil
}

func (c *httpClient) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	if err := c.do(ctx, http.MethodGet, "/v1beta/findall/runs/"+runID, nil, &run); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("findall: get run %s", runID))
	}
	return &run, nil
}

func (c *httpClient) ListResults(ctx context.Context, runID string) (*ResultSet, error) {
	var set ResultSet
	if err := c.do(ctx, http.MethodGet, "/v1beta/findall/runs/"+runID+"/results", nil, &set); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("findall: list results %s", runID))
	}
	return &set, nil
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
	req.Header.Set("x-api-key", c.apiKey)

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
		if resp.StatusCode == http.StatusNotFound {
			return &notFoundError{msg: fmt.Sprintf("not found: %s", string(respBody))}
		}
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

// notFoundError marks a 404 so callers can tell "no such run" from auth or
// transport failures.
type notFoundError struct{ msg string }

func (e *notFoundError) Error() string { return e.msg }

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var nf *notFoundError
	return eris.As(err, &nf)
}
