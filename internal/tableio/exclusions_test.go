// internal/tableio/exclusions_test.go
package tableio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExclusions(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "excl.tsv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadExclusions(t *testing.T) {
	path := writeExclusions(t, `# phecode control exclusions
250.2	250.1, 250.11,249

401.1	401.2
`)
	m, err := LoadExclusions(path)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"250.2": {"250.1", "250.11", "249"},
		"401.1": {"401.2"},
	}, m)
}

func TestLoadExclusions_MissingTab(t *testing.T) {
	path := writeExclusions(t, "250.2 250.1\n")
	_, err := LoadExclusions(path)
	assert.ErrorContains(t, err, ":1:")
}

func TestLoadExclusions_Duplicate(t *testing.T) {
	path := writeExclusions(t, "250.2\t250.1\n250.2\t249\n")
	_, err := LoadExclusions(path)
	assert.ErrorContains(t, err, "duplicate entry for 250.2")
}

func TestLoadExclusions_MissingFile(t *testing.T) {
	_, err := LoadExclusions(filepath.Join(t.TempDir(), "absent.tsv"))
	assert.Error(t, err)
}
