package sink

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/trychroma/gtm-cli/internal/model"
	"github.com/trychroma/gtm-cli/internal/pipeline"
)

// CacheSink persists accepted leads to a local JSON file keyed by their
// idempotency key. It doubles as a Destination so offline runs can
// deduplicate against previously cached leads without any CRM access.
type CacheSink struct {
	path string

	mu    sync.Mutex
	leads map[string]*model.Lead
}

// NewCacheSink opens (or creates) the cache file under dir.
func NewCacheSink(dir string) (*CacheSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "cache sink: create dir")
	}

	s := &CacheSink{
		path:  filepath.Join(dir, "leads.json"),
		leads: make(map[string]*model.Lead),
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, eris.Wrap(err, "cache sink: read cache file")
	}
	if err := json.Unmarshal(data, &s.leads); err != nil {
		return nil, eris.Wrap(err, "cache sink: parse cache file")
	}
	return s, nil
}

func (s *CacheSink) Name() string {
	return "cache"
}

// Len returns the number of cached leads.
func (s *CacheSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.leads)
}

func (s *CacheSink) Write(_ context.Context, lead *model.Lead, action model.Action, _ *pipeline.ExistingRecord) (model.WriteResult, error) {
	if action == model.ActionSkip {
		return model.WriteResult{Status: model.WriteSkipped}, nil
	}

	key := pipeline.IdempotencyKey(lead)

	s.mu.Lock()
	_, existed := s.leads[key]
	copied := *lead
	s.leads[key] = &copied
	err := s.flushLocked()
	s.mu.Unlock()

	if err != nil {
		return model.WriteResult{Status: model.WriteFailed}, err
	}

	status := model.WriteCreated
	if existed || action == model.ActionUpdate {
		status = model.WriteUpdated
	}
	return model.WriteResult{Status: status, ExternalID: key}, nil
}

func (s *CacheSink) FindByEmail(_ context.Context, email string) (*pipeline.ExistingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, lead := range s.leads {
		if strings.EqualFold(lead.PrimaryEmail(), email) {
			return &pipeline.ExistingRecord{
				ExternalID:  key,
				CompanyName: lead.CompanyName,
				Email:       email,
			}, nil
		}
	}
	return nil, nil
}

func (s *CacheSink) FindByCompanyName(_ context.Context, canonical string) ([]pipeline.ExistingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []pipeline.ExistingRecord
	for key, lead := range s.leads {
		if pipeline.NamesMatch(canonical, lead.CompanyName) {
			out = append(out, pipeline.ExistingRecord{
				ExternalID:  key,
				CompanyName: lead.CompanyName,
			})
		}
	}
	return out, nil
}

// flushLocked writes the cache atomically (temp file + rename).
func (s *CacheSink) flushLocked() error {
	data, err := json.MarshalIndent(s.leads, "", "  ")
	if err != nil {
		return eris.Wrap(err, "cache sink: marshal")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrap(err, "cache sink: write temp file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return eris.Wrap(err, "cache sink: rename temp file")
	}
	return nil
}

var (
	_ pipeline.Sink        = (*CacheSink)(nil)
	_ pipeline.Destination = (*CacheSink)(nil)
)
