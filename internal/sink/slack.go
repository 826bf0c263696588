package sink

import (
	"context"

	"github.com/trychroma/gtm-cli/internal/model"
	"github.com/trychroma/gtm-cli/internal/pipeline"
	"github.com/trychroma/gtm-cli/pkg/slackhook"
)

// SlackSink announces each created or updated lead in a channel. It is a
// notification-only sink: it never owns records, so skips pass through and no
// external id is produced.
type SlackSink struct {
	client slackhook.Client
}

// NewSlackSink creates the Slack adapter.
func NewSlackSink(client slackhook.Client) *SlackSink {
	return &SlackSink{client: client}
}

func (s *SlackSink) Name() string {
	return "slack"
}

func (s *SlackSink) Write(ctx context.Context, lead *model.Lead, action model.Action, _ *pipeline.ExistingRecord) (model.WriteResult, error) {
	if action == model.ActionSkip {
		return model.WriteResult{Status: model.WriteSkipped}, nil
	}

	if err := s.client.Post(ctx, slackhook.NewLeadMessage(lead)); err != nil {
		return model.WriteResult{Status: model.WriteFailed}, err
	}

	status := model.WriteCreated
	if action == model.ActionUpdate {
		status = model.WriteUpdated
	}
	return model.WriteResult{Status: status}, nil
}

var _ pipeline.Sink = (*SlackSink)(nil)
