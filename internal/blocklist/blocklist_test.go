package blocklist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLists(t *testing.T) {
	lists := Default()

	assert.NotEmpty(t, lists.Competitors)
	assert.NotEmpty(t, lists.Enterprises)
	assert.Equal(t, MatchSubstring, lists.Mode)

	// Entries are stored lowercase so matching stays case-insensitive.
	for _, e := range lists.Competitors {
		assert.Equal(t, strings.ToLower(e), e, "competitor entry %q must be lowercase", e)
	}
	for _, e := range lists.Enterprises {
		assert.Equal(t, strings.ToLower(e), e, "enterprise entry %q must be lowercase", e)
	}
}

func TestMatchCompetitor(t *testing.T) {
	lists := Default()

	tests := []struct {
		name    string
		company string
		blocked bool
	}{
		{"exact", "pinecone", true},
		{"mixed case", "PineCone", true},
		{"substring", "Pinecone Systems Inc", true},
		{"whitespace", "  qdrant  ", true},
		{"unrelated", "Acme AI", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := lists.MatchCompetitor(tt.company)
			if tt.blocked {
				assert.NotEmpty(t, entry)
			} else {
				assert.Empty(t, entry)
			}
		})
	}
}

func TestMatchEnterprise(t *testing.T) {
	lists := Default()

	assert.NotEmpty(t, lists.MatchEnterprise("Google"))
	assert.NotEmpty(t, lists.MatchEnterprise("IBM Research"))
	assert.Empty(t, lists.MatchEnterprise("Tiny Startup Co"))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lists.yaml")
	doc := `
competitors:
  - somevendor
match: token
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	lists, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"somevendor"}, lists.Competitors)
	assert.Equal(t, MatchToken, lists.Mode)
	assert.NotEmpty(t, lists.Enterprises, "omitted keys keep the embedded default")
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestMatchToken(t *testing.T) {
	lists := Lists{
		Enterprises: []string{"sap"},
		Mode:        MatchToken,
	}

	assert.Equal(t, "sap", lists.MatchEnterprise("SAP Deutschland"))
	assert.Empty(t, lists.MatchEnterprise("Sapling Health"), "token mode must not match inside words")

	// The same entry under substring mode does match inside a word.
	lists.Mode = MatchSubstring
	assert.Equal(t, "sap", lists.MatchEnterprise("Sapling Health"))
}
