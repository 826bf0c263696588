package model

import "time"

// Category segments a lead by its relationship to us.
type Category string

const (
	CategoryCustomer   Category = "customer"
	CategoryCompetitor Category = "competitor"
	CategoryPartner    Category = "partner"
	CategoryProspect   Category = "prospect"
	CategoryLead       Category = "lead"
)

// Contact is a person attached to a lead.
type Contact struct {
	Name        string `json:"name,omitempty"`
	Title       string `json:"title,omitempty"`
	Email       string `json:"email,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
}

// Lead is the canonical record flowing through the pipeline. CompanyName is
// the primary identity key; it is matched case-insensitively and is never
// guaranteed unique or canonical across sources.
type Lead struct {
	CompanyName  string    `json:"company_name"`
	Domain       string    `json:"domain,omitempty"`
	Website      string    `json:"website,omitempty"`
	Category     Category  `json:"category,omitempty"`
	Tier         int       `json:"tier,omitempty"` // 1-3, lower = higher priority, 0 = unset
	Source       string    `json:"source"`
	VectorDBUsed string    `json:"vector_db_used,omitempty"`
	FundingStage string    `json:"funding_stage,omitempty"`
	Score        int       `json:"score"`
	Contacts     []Contact `json:"contacts,omitempty"`
	AddedAt      time.Time `json:"added_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// PrimaryEmail returns the first contact email, or "".
func (l *Lead) PrimaryEmail() string {
	for _, c := range l.Contacts {
		if c.Email != "" {
			return c.Email
		}
	}
	return ""
}

// RawRecord is an unnormalized candidate from a source adapter.
type RawRecord struct {
	Source string         `json:"source"`
	Fields map[string]any `json:"fields"`
}

// SkipReason classifies why a record was dropped before reaching a sink.
type SkipReason string

const (
	SkipMissingCompany        SkipReason = "missing_company"
	SkipBlocklistedCompetitor SkipReason = "blocklisted_competitor"
	SkipBlocklistedEnterprise SkipReason = "blocklisted_enterprise"
	SkipAlreadyProcessed      SkipReason = "already_processed"
	SkipNotSelected           SkipReason = "not_selected"
	SkipDuplicate             SkipReason = "duplicate_existing"
)

// Action is the deduplicator's decision for a candidate.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionSkip   Action = "skip"
)

// ConflictPolicy controls what happens when a candidate matches an existing
// destination record: skip it, or merge new fields into the existing record.
type ConflictPolicy string

const (
	ConflictSkip  ConflictPolicy = "skip"
	ConflictMerge ConflictPolicy = "merge"
)

// WriteStatus is the outcome of a single sink write.
type WriteStatus string

const (
	WriteCreated WriteStatus = "created"
	WriteUpdated WriteStatus = "updated"
	WriteSkipped WriteStatus = "skipped"
	WriteFailed  WriteStatus = "failed"
)

// WriteResult reports what a sink did with a lead.
type WriteResult struct {
	Status     WriteStatus `json:"status"`
	ExternalID string      `json:"external_id,omitempty"`
}

// SyncStats holds the running counters for a pipeline run.
type SyncStats struct {
	Total   int                `json:"total"`
	Created int                `json:"created"`
	Updated int                `json:"updated"`
	Skipped int                `json:"skipped"`
	Failed  int                `json:"failed"`
	Reasons map[SkipReason]int `json:"skip_reasons,omitempty"`
}

// Skip records one skipped candidate with its reason.
func (s *SyncStats) Skip(reason SkipReason) {
	s.Skipped++
	if s.Reasons == nil {
		s.Reasons = make(map[SkipReason]int)
	}
	s.Reasons[reason]++
}

// SyncLogEntry is one persisted pipeline outcome, used for idempotent
// re-runs and the status command.
type SyncLogEntry struct {
	ID          string      `json:"id"`
	RunID       string      `json:"run_id"`
	Key         string      `json:"key"`
	CompanyName string      `json:"company_name"`
	Sink        string      `json:"sink"`
	Status      WriteStatus `json:"status"`
	ExternalID  string      `json:"external_id,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}
