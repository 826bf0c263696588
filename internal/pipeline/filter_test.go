package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trychroma/gtm-cli/internal/blocklist"
	"github.com/trychroma/gtm-cli/internal/model"
)

func TestFilter_Accept(t *testing.T) {
	f := NewFilter(blocklist.Default())

	tests := []struct {
		name       string
		company    string
		wantAccept bool
		wantReason model.SkipReason
	}{
		{"plain prospect", "Acme AI", true, ""},
		{"competitor exact", "Pinecone", false, model.SkipBlocklistedCompetitor},
		{"competitor case-insensitive", "QDRANT GmbH", false, model.SkipBlocklistedCompetitor},
		{"competitor substring", "Weaviate Cloud Services", false, model.SkipBlocklistedCompetitor},
		{"enterprise", "Google DeepMind", false, model.SkipBlocklistedEnterprise},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason, entry := f.Accept(&model.Lead{CompanyName: tt.company})
			assert.Equal(t, tt.wantAccept, ok)
			assert.Equal(t, tt.wantReason, reason)
			if !tt.wantAccept {
				assert.NotEmpty(t, entry)
			}
		})
	}
}

func TestFilter_CompetitorCheckedFirst(t *testing.T) {
	// A name matching both lists reports the competitor reason.
	lists := blocklist.Lists{
		Competitors: []string{"pinecone"},
		Enterprises: []string{"pinecone"},
		Mode:        blocklist.MatchSubstring,
	}
	ok, reason, _ := NewFilter(lists).Accept(&model.Lead{CompanyName: "Pinecone"})
	assert.False(t, ok)
	assert.Equal(t, model.SkipBlocklistedCompetitor, reason)
}

func TestFilter_Idempotent(t *testing.T) {
	f := NewFilter(blocklist.Default())
	lead := &model.Lead{CompanyName: "Milvus Hosting Ltd"}

	ok1, r1, _ := f.Accept(lead)
	ok2, r2, _ := f.Accept(lead)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, r1, r2)
}

func TestFilter_TokenMode(t *testing.T) {
	lists := blocklist.Lists{
		Enterprises: []string{"bp"},
		Mode:        blocklist.MatchToken,
	}
	f := NewFilter(lists)

	// "bp" as a whole token blocks; inside another word it does not.
	ok, _, _ := f.Accept(&model.Lead{CompanyName: "BP Ventures"})
	assert.False(t, ok)

	ok, _, _ = f.Accept(&model.Lead{CompanyName: "Bpm Analytics"})
	assert.True(t, ok)
}
