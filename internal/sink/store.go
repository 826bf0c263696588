package sink

import (
	"context"

	"github.com/trychroma/gtm-cli/internal/model"
	"github.com/trychroma/gtm-cli/internal/pipeline"
	"github.com/trychroma/gtm-cli/internal/store"
)

// StoreSink saves accepted leads into the local lead cache so sync commands
// can later push them to a CRM without re-fetching the source.
type StoreSink struct {
	store store.Store
}

// NewStoreSink creates the store adapter.
func NewStoreSink(s store.Store) *StoreSink {
	return &StoreSink{store: s}
}

func (s *StoreSink) Name() string {
	return "store"
}

func (s *StoreSink) Write(ctx context.Context, lead *model.Lead, action model.Action, _ *pipeline.ExistingRecord) (model.WriteResult, error) {
	if action == model.ActionSkip {
		return model.WriteResult{Status: model.WriteSkipped}, nil
	}

	if err := s.store.SaveLead(ctx, lead); err != nil {
		return model.WriteResult{Status: model.WriteFailed}, err
	}

	status := model.WriteCreated
	if action == model.ActionUpdate {
		status = model.WriteUpdated
	}
	return model.WriteResult{Status: status, ExternalID: pipeline.IdempotencyKey(lead)}, nil
}

var _ pipeline.Sink = (*StoreSink)(nil)
