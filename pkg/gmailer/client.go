// Package gmailer wraps the Gmail API for outreach search and drafting.
// Credentials come from an OAuth client secret file plus a cached user token;
// message bodies are built as RFC 2822 and base64url-encoded as Gmail expects.
package gmailer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// MessageSummary is the subset of a Gmail message the CLI surfaces.
type MessageSummary struct {
	ID      string
	From    string
	To      string
	Subject string
	Date    string
	Snippet string
}

// Draft describes an outgoing message to draft or send.
type Draft struct {
	To      string
	Subject string
	Body    string
}

// Client performs Gmail operations on the authorized user's mailbox.
type Client interface {
	Search(ctx context.Context, query string, limit int) ([]MessageSummary, error)
	GetMessage(ctx context.Context, id string) (*MessageSummary, error)
	CreateDraft(ctx context.Context, d Draft) (string, error)
	Send(ctx context.Context, d Draft) (string, error)
}

type apiClient struct {
	svc *gmail.Service
}

// NewClient builds a Gmail client from an OAuth client secret file and a
// previously stored token file.
func NewClient(ctx context.Context, credentialsPath, tokenPath string) (Client, error) {
	ts, err := TokenSource(ctx, credentialsPath, tokenPath)
	if err != nil {
		return nil, err
	}

	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, eris.Wrap(err, "gmail: create service")
	}
	return &apiClient{svc: svc}, nil
}

// TokenSource loads the OAuth config and cached token from disk.
func TokenSource(ctx context.Context, credentialsPath, tokenPath string) (oauth2.TokenSource, error) {
	secret, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, eris.Wrap(err, "gmail: read credentials file")
	}

	cfg, err := google.ConfigFromJSON(secret, gmail.GmailModifyScope)
	if err != nil {
		return nil, eris.Wrap(err, "gmail: parse credentials")
	}

	tokenData, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, eris.Wrap(err, "gmail: read token file")
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, eris.Wrap(err, "gmail: parse token")
	}
	return cfg.TokenSource(ctx, &token), nil
}

func (c *apiClient) Search(ctx context.Context, query string, limit int) ([]MessageSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	list, err := c.svc.Users.Messages.List("me").
		Q(query).
		MaxResults(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, eris.Wrap(err, "gmail: list messages")
	}

	summaries := make([]MessageSummary, 0, len(list.Messages))
	for _, ref := range list.Messages {
		summary, err := c.GetMessage(ctx, ref.Id)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

func (c *apiClient) GetMessage(ctx context.Context, id string) (*MessageSummary, error) {
	msg, err := c.svc.Users.Messages.Get("me", id).
		Format("metadata").
		MetadataHeaders("From", "To", "Subject", "Date").
		Context(ctx).
		Do()
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("gmail: get message %s", id))
	}

	summary := &MessageSummary{ID: msg.Id, Snippet: msg.Snippet}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch h.Name {
			case "From":
				summary.From = h.Value
			case "To":
				summary.To = h.Value
			case "Subject":
				summary.Subject = h.Value
			case "Date":
				summary.Date = h.Value
			}
		}
	}
	return summary, nil
}

func (c *apiClient) CreateDraft(ctx context.Context, d Draft) (string, error) {
	draft, err := c.svc.Users.Drafts.Create("me", &gmail.Draft{
		Message: &gmail.Message{Raw: EncodeRaw(d)},
	}).Context(ctx).Do()
	if err != nil {
		return "", eris.Wrap(err, "gmail: create draft")
	}
	return draft.Id, nil
}

func (c *apiClient) Send(ctx context.Context, d Draft) (string, error) {
	msg, err := c.svc.Users.Messages.Send("me", &gmail.Message{
		Raw: EncodeRaw(d),
	}).Context(ctx).Do()
	if err != nil {
		return "", eris.Wrap(err, "gmail: send message")
	}
	return msg.Id, nil
}

// EncodeRaw builds the base64url-encoded RFC 2822 message Gmail requires.
func EncodeRaw(d Draft) string {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", d.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", d.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(d.Body)
	return base64.URLEncoding.EncodeToString([]byte(b.String()))
}
