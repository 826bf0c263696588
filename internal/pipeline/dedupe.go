package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/trychroma/gtm-cli/internal/model"
)

// ExistingRecord is a destination-side record a candidate may duplicate.
type ExistingRecord struct {
	ExternalID  string
	CompanyName string
	Email       string
}

// Destination exposes the lookups the deduplicator needs against a sink's
// current record set. Implementations page through the destination's
// list/search endpoints.
type Destination interface {
	// FindByEmail returns the record with the given (lowercased) email, or nil.
	FindByEmail(ctx context.Context, email string) (*ExistingRecord, error)
	// FindByCompanyName returns all records whose name could match the given
	// canonical name. The deduplicator applies the containment check itself.
	FindByCompanyName(ctx context.Context, canonical string) ([]ExistingRecord, error)
}

// Decision is the deduplicator's verdict for one candidate.
type Decision struct {
	Action   model.Action
	Existing *ExistingRecord
}

// Deduplicator decides create-vs-update-vs-skip for candidates against a
// destination. Email is the primary key when present; otherwise canonical
// company names are matched by bidirectional substring containment.
type Deduplicator struct {
	dest   Destination
	policy model.ConflictPolicy
}

// NewDeduplicator creates a Deduplicator with the given conflict policy.
func NewDeduplicator(dest Destination, policy model.ConflictPolicy) *Deduplicator {
	if policy == "" {
		policy = model.ConflictSkip
	}
	return &Deduplicator{dest: dest, policy: policy}
}

// Decide looks the candidate up in the destination and returns the action to
// take. The candidate itself is never mutated.
func (d *Deduplicator) Decide(ctx context.Context, lead *model.Lead) (Decision, error) {
	if email := lead.PrimaryEmail(); email != "" {
		existing, err := d.dest.FindByEmail(ctx, strings.ToLower(email))
		if err != nil {
			return Decision{}, eris.Wrap(err, "dedupe: lookup by email")
		}
		if existing != nil {
			return d.conflict(existing), nil
		}
	}

	canonical := CanonicalName(lead.CompanyName)
	if canonical == "" {
		return Decision{Action: model.ActionCreate}, nil
	}

	candidates, err := d.dest.FindByCompanyName(ctx, canonical)
	if err != nil {
		return Decision{}, eris.Wrap(err, "dedupe: lookup by company name")
	}
	for i := range candidates {
		if NamesMatch(canonical, candidates[i].CompanyName) {
			return d.conflict(&candidates[i]), nil
		}
	}

	return Decision{Action: model.ActionCreate}, nil
}

func (d *Deduplicator) conflict(existing *ExistingRecord) Decision {
	if d.policy == model.ConflictMerge {
		return Decision{Action: model.ActionUpdate, Existing: existing}
	}
	return Decision{Action: model.ActionSkip, Existing: existing}
}

// NamesMatch reports whether a canonical candidate name and an existing
// record name refer to the same company: containment in either direction
// after canonicalization.
func NamesMatch(canonical, existingName string) bool {
	other := CanonicalName(existingName)
	if canonical == "" || other == "" {
		return false
	}
	return strings.Contains(other, canonical) || strings.Contains(canonical, other)
}
