package sink

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/trychroma/gtm-cli/internal/model"
	"github.com/trychroma/gtm-cli/internal/pipeline"
	"github.com/trychroma/gtm-cli/pkg/hubspot"
)

const (
	hubspotCompanies = "companies"
	hubspotContacts  = "contacts"

	// propVectorDB and friends are the custom company properties the sink
	// declares on first use.
	propVectorDB = "vector_db_used"
	propFunding  = "funding_stage"
	propICPScore = "icp_fit_score"
	propCategory = "lead_category"
)

// HubSpotSink writes leads to HubSpot companies plus one contact per lead
// contact, associated by email domain matching on HubSpot's side.
type HubSpotSink struct {
	client   hubspot.Client
	prepared bool
}

// NewHubSpotSink creates the HubSpot adapter.
func NewHubSpotSink(client hubspot.Client) *HubSpotSink {
	return &HubSpotSink{client: client}
}

func (s *HubSpotSink) Name() string {
	return "hubspot"
}

// Prepare declares the custom company properties. Called lazily from Write so
// one-off dry runs never touch the schema.
func (s *HubSpotSink) Prepare(ctx context.Context) error {
	if s.prepared {
		return nil
	}

	defs := []hubspot.PropertyDefinition{
		{Name: propVectorDB, Label: "Vector DB used", Type: "string", FieldType: "text"},
		{Name: propFunding, Label: "Funding stage", Type: "string", FieldType: "text"},
		{Name: propICPScore, Label: "ICP fit score", Type: "number", FieldType: "number"},
		{Name: propCategory, Label: "Lead category", Type: "enumeration", FieldType: "select", Options: []hubspot.Option{
			{Label: "Customer", Value: string(model.CategoryCustomer)},
			{Label: "Competitor", Value: string(model.CategoryCompetitor)},
			{Label: "Partner", Value: string(model.CategoryPartner)},
			{Label: "Prospect", Value: string(model.CategoryProspect)},
			{Label: "Lead", Value: string(model.CategoryLead)},
		}},
	}
	for _, def := range defs {
		if err := s.client.EnsureProperty(ctx, hubspotCompanies, def); err != nil {
			return err
		}
	}
	s.prepared = true
	return nil
}

func (s *HubSpotSink) Write(ctx context.Context, lead *model.Lead, action model.Action, existing *pipeline.ExistingRecord) (model.WriteResult, error) {
	if err := s.Prepare(ctx); err != nil {
		return model.WriteResult{Status: model.WriteFailed}, err
	}

	props := companyProperties(lead)

	switch action {
	case model.ActionUpdate:
		if existing == nil {
			return model.WriteResult{Status: model.WriteFailed}, eris.New("hubspot sink: update without existing record")
		}
		if err := s.client.UpdateObject(ctx, hubspotCompanies, existing.ExternalID, props); err != nil {
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
		company, err := s.client.CreateObject(ctx, hubspotCompanies, props)
		if err != nil {
			return model.WriteResult{Status: model.WriteFailed}, err
		}
		if err := s.createContacts(ctx, lead); err != nil {
			return model.WriteResult{Status: model.WriteFailed, ExternalID: company.ID}, err
		}
		return model.WriteResult{Status: model.WriteCreated, ExternalID: company.ID}, nil
	}
}

func (s *HubSpotSink) createContacts(ctx context.Context, lead *model.Lead) error {
	for _, contact := range lead.Contacts {
		if contact.Email == "" {
			continue
		}

		props := map[string]string{"email": strings.ToLower(contact.Email)}
		if contact.Name != "" {
			first, last, _ := strings.Cut(contact.Name, " ")
			props["firstname"] = first
			if last != "" {
				props["lastname"] = last
			}
		}
		if contact.Title != "" {
			props["jobtitle"] = contact.Title
		}

		if _, err := s.client.CreateObject(ctx, hubspotContacts, props); err != nil {
			return err
		}
	}
	return nil
}

// FindByEmail looks up a contact and maps it back to its company record when
// one is associated; the contact id is used otherwise.
func (s *HubSpotSink) FindByEmail(ctx context.Context, email string) (*pipeline.ExistingRecord, error) {
	filters := []hubspot.SearchFilter{
		{PropertyName: "email", Operator: "EQ", Value: email},
	}
	contacts, err := s.client.Search(ctx, hubspotContacts, filters, []string{"email", "associatedcompanyid"}, 1)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, nil
	}

	existing := &pipeline.ExistingRecord{ExternalID: contacts[0].ID, Email: email}
	if companyID := contacts[0].Properties["associatedcompanyid"]; companyID != "" {
		existing.ExternalID = companyID
		companies, err := s.client.Search(ctx, hubspotCompanies, []hubspot.SearchFilter{
			{PropertyName: "hs_object_id", Operator: "EQ", Value: companyID},
		}, []string{"name"}, 1)
		if err != nil {
			return nil, err
		}
		if len(companies) > 0 {
			existing.CompanyName = companies[0].Properties["name"]
		}
	}
	return existing, nil
}

// FindByCompanyName searches companies whose name contains the canonical
// token and lets the deduplicator apply its containment check.
func (s *HubSpotSink) FindByCompanyName(ctx context.Context, canonical string) ([]pipeline.ExistingRecord, error) {
	filters := []hubspot.SearchFilter{
		{PropertyName: "name", Operator: "CONTAINS_TOKEN", Value: canonical},
	}
	companies, err := s.client.Search(ctx, hubspotCompanies, filters, []string{"name"}, 100)
	if err != nil {
		return nil, err
	}

	out := make([]pipeline.ExistingRecord, 0, len(companies))
	for _, c := range companies {
		out = append(out, pipeline.ExistingRecord{
			ExternalID:  c.ID,
			CompanyName: c.Properties["name"],
		})
	}
	return out, nil
}

func companyProperties(lead *model.Lead) map[string]string {
	props := map[string]string{
		"name":       lead.CompanyName,
		propICPScore: strconv.Itoa(lead.Score),
	}
	if lead.Domain != "" {
		props["domain"] = lead.Domain
	}
	if lead.Website != "" {
		props["website"] = lead.Website
	}
	if lead.Category != "" {
		props[propCategory] = string(lead.Category)
	}
	if lead.VectorDBUsed != "" {
		props[propVectorDB] = lead.VectorDBUsed
	}
	if lead.FundingStage != "" {
		props[propFunding] = lead.FundingStage
	}
	return props
}

var (
	_ pipeline.Sink        = (*HubSpotSink)(nil)
	_ pipeline.Destination = (*HubSpotSink)(nil)
)
