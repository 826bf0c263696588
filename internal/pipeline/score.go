package pipeline

import (
	"strings"

	"github.com/trychroma/gtm-cli/internal/model"
)

// ICP fit scoring on a single canonical 0-100 integer scale. The historical
// scripts disagreed on scale (0-10 vs 0-100); 0-100 is the documented choice
// and every contribution below is stated in those units.
//
// Contributions:
//   title tier      0-40  (best title across contacts wins)
//   funding stage   0-20
//   competitor use  +20   (displacement opportunity; configurable)
//   company tier    0-20  (tier 1 highest)
//
// The sum is clamped to [0, 100]. Scoring is monotonic in each rule
// direction: a more senior title or a better tier never lowers the score.

// titleTiers maps seniority keywords to their contribution, checked highest
// first. The first tier with any matching keyword wins.
var titleTiers = []struct {
	points   int
	keywords []string
}{
	{40, []string{"chief", "cto", "ceo", "cio", "coo", "cpo", "founder", "co-founder"}},
	{32, []string{"vp", "vice president", "vice-president"}},
	{26, []string{"head of", "director"}},
	{18, []string{"staff", "principal"}},
	{12, []string{"engineer", "architect", "scientist", "developer"}},
}

var fundingPoints = map[string]int{
	"high":     20,
	"series c": 20,
	"series d": 20,
	"growth":   20,
	"medium":   12,
	"series b": 12,
	"series a": 12,
	"low":      6,
	"seed":     6,
	"pre-seed": 6,
}

var tierPoints = map[int]int{1: 20, 2: 12, 3: 6}

// Scorer assigns ICP fit scores.
type Scorer struct {
	competitorBonus int
}

// NewScorer creates a Scorer. competitorBonus is the displacement bonus
// awarded when the lead is known to use a competing vector database.
func NewScorer(competitorBonus int) *Scorer {
	return &Scorer{competitorBonus: competitorBonus}
}

// Score computes the 0-100 fit score for a lead.
func (s *Scorer) Score(lead *model.Lead) int {
	score := bestTitleScore(lead.Contacts)
	score += fundingPoints[strings.ToLower(strings.TrimSpace(lead.FundingStage))]
	score += tierPoints[lead.Tier]
	if strings.TrimSpace(lead.VectorDBUsed) != "" {
		score += s.competitorBonus
	}
	return clampScore(score)
}

// bestTitleScore returns the highest title contribution across contacts.
func bestTitleScore(contacts []model.Contact) int {
	best := 0
	for _, c := range contacts {
		if pts := titleScore(c.Title); pts > best {
			best = pts
		}
	}
	return best
}

func titleScore(title string) int {
	lowered := strings.ToLower(title)
	if strings.TrimSpace(lowered) == "" {
		return 0
	}
	for _, tier := range titleTiers {
		for _, kw := range tier.keywords {
			if strings.Contains(lowered, kw) {
				return tier.points
			}
		}
	}
	return 0
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
