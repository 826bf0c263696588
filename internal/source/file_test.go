package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileSource_CSV(t *testing.T) {
	path := writeTemp(t, "leads.csv",
		"company_name,website,email\n"+
			"Acme AI,https://acme.ai,dana@acme.ai\n"+
			"Zenith Robotics,,\n")

	src := NewFileSource(path)
	records, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Acme AI", records[0].Fields["company_name"])
	assert.Equal(t, "https://acme.ai", records[0].Fields["website"])
	assert.Equal(t, "file:leads.csv", records[0].Source)
	assert.Equal(t, "Zenith Robotics", records[1].Fields["company_name"])
}

func TestFileSource_CSVRaggedRows(t *testing.T) {
	path := writeTemp(t, "ragged.csv",
		"company_name,website\n"+
			"Acme AI\n"+
			"Zenith,https://zenith.io,extra\n")

	records, err := NewFileSource(path).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	_, hasWebsite := records[0].Fields["website"]
	assert.False(t, hasWebsite, "short rows leave trailing columns unset")
	assert.Equal(t, "https://zenith.io", records[1].Fields["website"])
}

func TestFileSource_JSONArray(t *testing.T) {
	path := writeTemp(t, "leads.json",
		`[{"company_name": "Acme AI", "tier": 1}, {"company_name": "Zenith"}]`)

	records, err := NewFileSource(path).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Acme AI", records[0].Fields["company_name"])
	assert.Equal(t, float64(1), records[0].Fields["tier"])
}

func TestFileSource_JSONSingleObject(t *testing.T) {
	path := writeTemp(t, "one.json", `{"company_name": "Acme AI"}`)

	records, err := NewFileSource(path).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Acme AI", records[0].Fields["company_name"])
}

func TestFileSource_UnsupportedExtension(t *testing.T) {
	path := writeTemp(t, "leads.txt", "whatever")

	_, err := NewFileSource(path).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestFileSource_MissingFile(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "nope.csv")).Fetch(context.Background())
	require.Error(t, err)
}
