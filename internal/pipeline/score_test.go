package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trychroma/gtm-cli/internal/model"
)

func TestScorer_Score(t *testing.T) {
	s := NewScorer(20)

	tests := []struct {
		name string
		lead model.Lead
		want int
	}{
		{
			name: "empty lead scores zero",
			lead: model.Lead{CompanyName: "Acme"},
			want: 0,
		},
		{
			name: "cto only",
			lead: model.Lead{Contacts: []model.Contact{{Title: "CTO"}}},
			want: 40,
		},
		{
			name: "vp of engineering",
			lead: model.Lead{Contacts: []model.Contact{{Title: "VP of Engineering"}}},
			want: 32,
		},
		{
			name: "best contact wins",
			lead: model.Lead{Contacts: []model.Contact{
				{Title: "Software Engineer"},
				{Title: "Co-Founder"},
			}},
			want: 40,
		},
		{
			name: "funding series a",
			lead: model.Lead{FundingStage: "series a"},
			want: 12,
		},
		{
			name: "tier 1",
			lead: model.Lead{Tier: 1},
			want: 20,
		},
		{
			name: "competitor displacement bonus",
			lead: model.Lead{VectorDBUsed: "pinecone"},
			want: 20,
		},
		{
			name: "everything stacks",
			lead: model.Lead{
				Tier:         1,
				FundingStage: "series c",
				VectorDBUsed: "weaviate",
				Contacts:     []model.Contact{{Title: "Chief Technology Officer"}},
			},
			want: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Score(&tt.lead))
		})
	}
}

func TestScorer_SeniorityMonotonic(t *testing.T) {
	s := NewScorer(0)

	cto := s.Score(&model.Lead{Contacts: []model.Contact{{Title: "CTO"}}})
	director := s.Score(&model.Lead{Contacts: []model.Contact{{Title: "Director of Platform"}}})
	engineer := s.Score(&model.Lead{Contacts: []model.Contact{{Title: "Backend Engineer"}}})

	assert.Greater(t, cto, director)
	assert.Greater(t, director, engineer)
	assert.Greater(t, engineer, 0)
}

func TestScorer_ClampAndRange(t *testing.T) {
	// Large bonus cannot push past 100.
	s := NewScorer(500)
	got := s.Score(&model.Lead{
		Tier:         1,
		FundingStage: "growth",
		VectorDBUsed: "qdrant",
		Contacts:     []model.Contact{{Title: "CEO"}},
	})
	assert.Equal(t, 100, got)

	// Negative configured bonus cannot push below 0.
	s = NewScorer(-500)
	got = s.Score(&model.Lead{VectorDBUsed: "qdrant"})
	assert.Equal(t, 0, got)
}

func TestScorer_UnknownInputsIgnored(t *testing.T) {
	s := NewScorer(20)
	got := s.Score(&model.Lead{
		Tier:         7,
		FundingStage: "ipo'd",
		Contacts:     []model.Contact{{Title: "Barista"}},
	})
	assert.Equal(t, 0, got)
}
