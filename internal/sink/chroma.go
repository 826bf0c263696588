package sink

import (
	"context"
	"strings"
	"sync"

	"github.com/trychroma/gtm-cli/internal/model"
	"github.com/trychroma/gtm-cli/internal/pipeline"
	"github.com/trychroma/gtm-cli/pkg/chromadb"
)

// ChromaSink writes accepted leads into a Chroma collection, one record per
// lead keyed by its idempotency key. The document is a short prose rendering
// of the lead so the collection stays semantically searchable; the structured
// fields ride along as flat metadata.
type ChromaSink struct {
	client     chromadb.Client
	collection string

	mu     sync.Mutex
	collID string
}

// NewChromaSink creates the Chroma adapter targeting the named collection.
func NewChromaSink(client chromadb.Client, collection string) *ChromaSink {
	return &ChromaSink{client: client, collection: collection}
}

func (s *ChromaSink) Name() string {
	return "chroma"
}

func (s *ChromaSink) Write(ctx context.Context, lead *model.Lead, action model.Action, _ *pipeline.ExistingRecord) (model.WriteResult, error) {
	if action == model.ActionSkip {
		return model.WriteResult{Status: model.WriteSkipped}, nil
	}

	collID, err := s.collectionID(ctx)
	if err != nil {
		return model.WriteResult{Status: model.WriteFailed}, err
	}

	key := pipeline.IdempotencyKey(lead)
	if action == model.ActionUpdate {
		if err := s.client.Update(ctx, collID, []string{key}, []chromadb.Metadata{leadMetadata(lead)}); err != nil {
			return model.WriteResult{Status: model.WriteFailed}, err
		}
		return model.WriteResult{Status: model.WriteUpdated, ExternalID: key}, nil
	}

	err = s.client.Add(ctx, collID,
		[]string{key},
		[]string{leadDocument(lead)},
		[]chromadb.Metadata{leadMetadata(lead)},
	)
	if err != nil {
		return model.WriteResult{Status: model.WriteFailed}, err
	}
	return model.WriteResult{Status: model.WriteCreated, ExternalID: key}, nil
}

func (s *ChromaSink) collectionID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collID != "" {
		return s.collID, nil
	}
	coll, err := s.client.GetOrCreateCollection(ctx, s.collection)
	if err != nil {
		return "", err
	}
	s.collID = coll.ID
	return s.collID, nil
}

// leadMetadata flattens a lead into the string/number map Chroma accepts.
func leadMetadata(lead *model.Lead) chromadb.Metadata {
	md := chromadb.Metadata{
		"company_name": lead.CompanyName,
		"source":       lead.Source,
		"score":        lead.Score,
	}
	if lead.Domain != "" {
		md["domain"] = lead.Domain
	}
	if lead.Website != "" {
		md["website"] = lead.Website
	}
	if lead.Category != "" {
		md["category"] = string(lead.Category)
	}
	if lead.Tier != 0 {
		md["tier"] = lead.Tier
	}
	if lead.VectorDBUsed != "" {
		md["vector_db_used"] = lead.VectorDBUsed
	}
	if lead.FundingStage != "" {
		md["funding_stage"] = lead.FundingStage
	}
	if len(lead.Contacts) > 0 {
		c := lead.Contacts[0]
		if c.Name != "" {
			md["contact_name"] = c.Name
		}
		if c.Title != "" {
			md["contact_title"] = c.Title
		}
		if c.Email != "" {
			md["email"] = c.Email
		}
	}
	return md
}

// leadDocument renders the lead as one searchable sentence.
func leadDocument(lead *model.Lead) string {
	parts := []string{lead.CompanyName}
	if lead.VectorDBUsed != "" {
		parts = append(parts, "uses "+lead.VectorDBUsed)
	}
	if lead.FundingStage != "" {
		parts = append(parts, lead.FundingStage+" stage")
	}
	if len(lead.Contacts) > 0 && lead.Contacts[0].Title != "" {
		parts = append(parts, "contact is "+strings.TrimSpace(lead.Contacts[0].Name+" "+lead.Contacts[0].Title))
	}
	return strings.Join(parts, ", ")
}

var _ pipeline.Sink = (*ChromaSink)(nil)
