package crawler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteResultsOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scraped_data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"old":"data","more":"stuff"}`), 0o644))

	results := Results{
		"https://example.com/":      "Tom & Jerry <3",
		"https://example.com/about": FailureText(errors.New("timeout")),
	}
	require.NoError(t, WriteResults(path, results))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{
  "https://example.com/": "Tom & Jerry <3",
  "https://example.com/about": "Failed to scrape: timeout"
}
`, string(raw))

	got, err := ReadResults(path)
	require.NoError(t, err)
	assert.Equal(t, results, got)
}

func TestReadResultsMissing(t *testing.T) {
	_, err := ReadResults(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
