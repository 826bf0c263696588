// Package sink provides the output adapters the pipeline writes accepted
// leads to: CRMs, Slack, and a local cache. CRM sinks also back the
// deduplicator's lookups.
package sink

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/trychroma/gtm-cli/internal/model"
	"github.com/trychroma/gtm-cli/internal/pipeline"
	"github.com/trychroma/gtm-cli/pkg/attio"
)

const attioCompaniesObject = "companies"

// AttioSink writes leads to Attio company records and, when a list id is
// configured, attaches each created record to that list.
type AttioSink struct {
	client attio.Client
	listID string
}

// NewAttioSink creates the Attio adapter. listID may be empty.
func NewAttioSink(client attio.Client, listID string) *AttioSink {
	return &AttioSink{client: client, listID: listID}
}

func (s *AttioSink) Name() string {
	return "attio"
}

func (s *AttioSink) Write(ctx context.Context, lead *model.Lead, action model.Action, existing *pipeline.ExistingRecord) (model.WriteResult, error) {
	values := attioValues(lead)

	switch action {
	case model.ActionUpdate:
		if existing == nil {
			return model.WriteResult{Status: model.WriteFailed}, eris.New("attio sink: update without existing record")
		}
		if err := s.client.UpdateRecord(ctx, attioCompaniesObject, existing.ExternalID, values); err != nil {
			return model.WriteResult{Status: model.WriteFailed}, err
		}
		return model.WriteResult{Status: model.WriteUpdated, ExternalID: existing.ExternalID}, nil

	case model.ActionSkip:
		result := model.WriteResult{Status: model.WriteSkipped}
		if existing != nil {
			result.ExternalID = existing.ExternalID
		}
		return result, nil

	default:
		record, err := s.client.CreateRecord(ctx, attioCompaniesObject, values)
		if err != nil {
			return model.WriteResult{Status: model.WriteFailed}, err
		}
		if s.listID != "" {
			if err := s.client.CreateListEntry(ctx, s.listID, attioCompaniesObject, record.ID.RecordID); err != nil {
				return model.WriteResult{Status: model.WriteFailed, ExternalID: record.ID.RecordID}, err
			}
		}
		return model.WriteResult{Status: model.WriteCreated, ExternalID: record.ID.RecordID}, nil
	}
}

// FindByEmail looks up a company whose team members include the email.
func (s *AttioSink) FindByEmail(ctx context.Context, email string) (*pipeline.ExistingRecord, error) {
	filter := attio.QueryFilter{
		"team": map[string]any{
			"email_addresses": map[string]any{"email_address": email},
		},
	}
	records, err := s.client.QueryRecords(ctx, attioCompaniesObject, filter, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	existing := toExisting(records[0])
	existing.Email = email
	return &existing, nil
}

// FindByCompanyName returns candidate records for containment matching. Attio
// has no substring operator on name, so recent records are paged and filtered
// client-side.
func (s *AttioSink) FindByCompanyName(ctx context.Context, canonical string) ([]pipeline.ExistingRecord, error) {
	const pageSize = 500

	var out []pipeline.ExistingRecord
	for offset := 0; ; offset += pageSize {
		records, err := s.client.QueryRecords(ctx, attioCompaniesObject, nil, pageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			existing := toExisting(r)
			if pipeline.NamesMatch(canonical, existing.CompanyName) {
				out = append(out, existing)
			}
		}
		if len(records) < pageSize {
			return out, nil
		}
	}
}

func attioValues(lead *model.Lead) attio.Values {
	values := attio.Values{
		"name": {{"value": lead.CompanyName}},
	}
	if lead.Domain != "" {
		values["domains"] = []map[string]any{{"domain": lead.Domain}}
	}
	if lead.Category != "" {
		values["categories"] = []map[string]any{{"option": string(lead.Category)}}
	}
	if lead.VectorDBUsed != "" {
		values["vector_db_used"] = []map[string]any{{"value": lead.VectorDBUsed}}
	}
	if lead.FundingStage != "" {
		values["funding_stage"] = []map[string]any{{"value": lead.FundingStage}}
	}
	values["icp_score"] = []map[string]any{{"value": lead.Score}}
	return values
}

func toExisting(r attio.Record) pipeline.ExistingRecord {
	existing := pipeline.ExistingRecord{ExternalID: r.ID.RecordID}
	if names, ok := r.Values["name"]; ok && len(names) > 0 {
		if v, ok := names[0]["value"].(string); ok {
			existing.CompanyName = v
		}
	}
	return existing
}

var (
	_ pipeline.Sink        = (*AttioSink)(nil)
	_ pipeline.Destination = (*AttioSink)(nil)
)
