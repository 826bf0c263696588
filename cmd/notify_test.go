package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trychroma/gtm-cli/internal/model"
	"github.com/trychroma/gtm-cli/pkg/slackhook"
)

// fakeWebhook counts posts and can fail a fixed number of times.
type fakeWebhook struct {
	posts        int
	failuresLeft int
}

func (f *fakeWebhook) Post(context.Context, slackhook.Message) error {
	f.posts++
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return assert.AnError
	}
	return nil
}

func TestPostLeadMessages(t *testing.T) {
	leads := []model.Lead{
		{CompanyName: "Acme AI", Score: 72},
		{CompanyName: "Zenith Robotics", Score: 40},
	}

	fake := &fakeWebhook{}
	sent, failed := postLeadMessages(context.Background(), fake, leads, false)
	assert.Equal(t, 2, sent)
	assert.Zero(t, failed)
	assert.Equal(t, 2, fake.posts)
}

func TestPostLeadMessages_DryRun(t *testing.T) {
	leads := []model.Lead{{CompanyName: "Acme AI"}}

	fake := &fakeWebhook{}
	sent, failed := postLeadMessages(context.Background(), fake, leads, true)
	assert.Zero(t, sent)
	assert.Zero(t, failed)
	assert.Zero(t, fake.posts, "a dry run must never call the webhook")
}

func TestPostLeadMessages_FailureCounted(t *testing.T) {
	leads := []model.Lead{
		{CompanyName: "Acme AI"},
		{CompanyName: "Zenith Robotics"},
	}

	fake := &fakeWebhook{failuresLeft: 1}
	sent, failed := postLeadMessages(context.Background(), fake, leads, false)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, failed)
}
