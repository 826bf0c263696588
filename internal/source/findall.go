package source

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/trychroma/gtm-cli/internal/model"
	"github.com/trychroma/gtm-cli/pkg/findall"
)

// FindAllSource discovers companies via the FindAll API: it submits an
// objective, waits for the run to complete, and converts matched entities into
// raw records. A pre-existing run id can be supplied to skip submission.
type FindAllSource struct {
	client      findall.Client
	objective   string
	runID       string
	resultLimit int
	pollTimeout time.Duration
}

// FindAllOption configures the adapter.
type FindAllOption func(*FindAllSource)

// WithRunID resumes from an already submitted run instead of creating one.
func WithRunID(id string) FindAllOption {
	return func(s *FindAllSource) {
		s.runID = id
	}
}

// WithResultLimit caps the number of entities the run may return.
func WithResultLimit(n int) FindAllOption {
	return func(s *FindAllSource) {
		s.resultLimit = n
	}
}

// WithPollTimeout bounds how long Fetch waits for the run to finish.
func WithPollTimeout(d time.Duration) FindAllOption {
	return func(s *FindAllSource) {
		s.pollTimeout = d
	}
}

// NewFindAllSource creates a discovery adapter for the given objective.
func NewFindAllSource(client findall.Client, objective string, opts ...FindAllOption) *FindAllSource {
	s := &FindAllSource{
		client:      client,
		objective:   objective,
		resultLimit: 100,
		pollTimeout: 10 * time.Minute,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *FindAllSource) Name() string {
	return "findall"
}

func (s *FindAllSource) Fetch(ctx context.Context) ([]model.RawRecord, error) {
	runID := s.runID
	if runID == "" {
		run, err := s.client.CreateRun(ctx, findall.CreateRunRequest{
			Objective: s.objective,
			MatchConditions: []findall.MatchCondition{
				{Name: "uses_vector_database", Description: "Company builds AI products that use or could use a vector database"},
			},
			Enrichments: []findall.EnrichmentField{
				{Name: "website", Description: "Company website URL"},
				{Name: "vector_db_used", Description: "Vector database the company currently uses, if known"},
				{Name: "funding_stage", Description: "Latest funding stage (seed, series a, series b, ...)"},
				{Name: "contact_name", Description: "Name of an engineering leader at the company"},
				{Name: "contact_title", Description: "Title of that engineering leader"},
			},
			ResultLimit: s.resultLimit,
		})
		if err != nil {
			return nil, err
		}
		runID = run.RunID
		zap.L().Info("findall: run created",
			zap.String("run_id", runID),
			zap.String("objective", s.objective),
		)
	}

	run, err := findall.PollRun(ctx, s.client, runID, findall.WithPollTimeout(s.pollTimeout))
	if err != nil {
		return nil, err
	}
	zap.L().Info("findall: run complete",
		zap.String("run_id", runID),
		zap.Int("generated", run.Metadata.Generated),
		zap.Int("matched", run.Metadata.Matched),
	)

	set, err := s.client.ListResults(ctx, runID)
	if err != nil {
		return nil, err
	}

	var records []model.RawRecord
	for _, entity := range set.Results {
		if !entity.Matched() {
			continue
		}

		fields := map[string]any{
			"company_name": entity.Name,
			"website":      entity.URL,
		}
		for name, field := range entity.Fields {
			if field.Value == nil {
				continue
			}
			fields[name] = fmt.Sprint(field.Value)
		}
		records = append(records, model.RawRecord{Source: s.Name(), Fields: fields})
	}
	return records, nil
}
