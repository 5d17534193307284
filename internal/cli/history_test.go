package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docforge/internal/journal"
)

func TestHistoryMissingJournal(t *testing.T) {
	out, err := execute(t, "history", "--journal", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]: journal not found")
}

func TestHistoryJSONAndLookup(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "journal.db")
	tpl := writeFile(t, dir, "t.cue", "a: n\n")

	for _, n := range []string{"1", "2", "3"} {
		_, err := execute(t, "compile", tpl, "--set", "n="+n, "--journal", db)
		require.NoError(t, err)
	}

	out, err := execute(t, "history", "--journal", db, "--limit", "2", "--format", "json")
	require.NoError(t, err)
	resp := decodeResponse(t, out)
	entries := resp.Data.([]any)
	require.Len(t, entries, 2)

	newest := entries[0].(map[string]any)
	assert.EqualValues(t, 3, newest["seq"])
	assert.Equal(t, "succeeded", newest["status"])
	assert.EqualValues(t, 13, newest["artifact_size"])

	id := newest["id"].(string)
	out, err = execute(t, "history", "--journal", db, "--id", id)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ #3 "+id)

	out, err = execute(t, "history", "--journal", db, "--id", "nope")
	require.Error(t, err)
	assert.Contains(t, out, "run nope not found")
}

func TestHistoryEmptyJournal(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")
	j, err := journal.Open(db)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	out, err := execute(t, "history", "--journal", db)
	require.NoError(t, err)
	assert.Equal(t, "No compiles recorded.\n", out)
}
