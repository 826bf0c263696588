package pipeline

import (
	"github.com/trychroma/gtm-cli/internal/blocklist"
	"github.com/trychroma/gtm-cli/internal/model"
)

// Filter rejects leads whose company name matches a block-list entry.
// Matching is deliberately a containment heuristic, not exact: a short entry
// matching inside an unrelated name is a known, accepted false-positive.
type Filter struct {
	lists blocklist.Lists
}

// NewFilter creates a Filter over the given lists.
func NewFilter(lists blocklist.Lists) *Filter {
	return &Filter{lists: lists}
}

// Accept reports whether the lead may proceed to a sink. When rejected, the
// skip reason and the matched list entry are returned for reporting.
func (f *Filter) Accept(lead *model.Lead) (bool, model.SkipReason, string) {
	if entry := f.lists.MatchCompetitor(lead.CompanyName); entry != "" {
		return false, model.SkipBlocklistedCompetitor, entry
	}
	if entry := f.lists.MatchEnterprise(lead.CompanyName); entry != "" {
		return false, model.SkipBlocklistedEnterprise, entry
	}
	return true, "", ""
}
