// Package slackhook posts Block Kit messages to a Slack incoming webhook.
package slackhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/trychroma/gtm-cli/internal/model"
	"github.com/trychroma/gtm-cli/internal/resilience"
)

// Block is one Block Kit block; only the section and divider shapes the
// pipeline emits are modeled.
type Block struct {
	Type string `json:"type"`
	Text *Text  `json:"text,omitempty"`
}

// Text is a Block Kit text object.
type Text struct {
	Type string `json:"type"` // mrkdwn | plain_text
	Text string `json:"text"`
}

// Message is a webhook payload.
type Message struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks,omitempty"`
}

// Client posts messages to a single incoming webhook URL.
type Client interface {
	Post(ctx context.Context, msg Message) error
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	webhookURL string
	http       *http.Client
}

// ValidateWebhookURL checks that the webhook URL is an absolute http(s) URL.
// A webhook cannot be pinged without posting a visible message, so this is
// the strongest connectivity check available.
func ValidateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return eris.Wrap(err, "slack: parse webhook url")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return eris.Errorf("slack: webhook url %q is not an absolute http(s) url", raw)
	}
	return nil
}

// NewClient creates a Slack webhook client.
func NewClient(webhookURL string, opts ...Option) Client {
	c := &httpClient{
		webhookURL: webhookURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Post(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return eris.Wrap(err, "slack: marshal message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "slack: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "slack: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		err := eris.Errorf("slack: webhook returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.TransientFromResponse(err, resp)
		}
		return err
	}
	return nil
}

// NewLeadMessage formats one lead as a Block Kit notification.
func NewLeadMessage(lead *model.Lead) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*", lead.CompanyName)
	if lead.Domain != "" {
		fmt.Fprintf(&b, " (%s)", lead.Domain)
	}
	fmt.Fprintf(&b, "\nScore: %d | Category: %s | Source: %s", lead.Score, lead.Category, lead.Source)
	if lead.VectorDBUsed != "" {
		fmt.Fprintf(&b, "\nVector DB: %s", lead.VectorDBUsed)
	}
	if lead.FundingStage != "" {
		fmt.Fprintf(&b, "\nFunding: %s", lead.FundingStage)
	}
	for _, contact := range lead.Contacts {
		fmt.Fprintf(&b, "\n• %s", contact.Name)
		if contact.Title != "" {
			fmt.Fprintf(&b, ", %s", contact.Title)
		}
		if contact.Email != "" {
			fmt.Fprintf(&b, " <%s>", contact.Email)
		}
	}

	return Message{
		Text: fmt.Sprintf("New lead: %s (score %d)", lead.CompanyName, lead.Score),
		Blocks: []Block{
			{
				Type: "header",
				Text: &Text{Type: "plain_text", Text: "New lead: " + lead.CompanyName},
			},
			{
				Type: "section",
				Text: &Text{Type: "mrkdwn", Text: b.String()},
			},
		},
	}
}

// NewRunSummaryMessage formats the final counters of a sync run.
func NewRunSummaryMessage(sink string, stats model.SyncStats) Message {
	text := fmt.Sprintf(
		"Sync to %s finished: %d processed, %d created, %d updated, %d skipped, %d failed",
		sink, stats.Total, stats.Created, stats.Updated, stats.Skipped, stats.Failed,
	)
	return Message{
		Text: text,
		Blocks: []Block{
			{Type: "section", Text: &Text{Type: "mrkdwn", Text: text}},
		},
	}
}
