package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "docforge", cmd.Use)
	assert.Contains(t, cmd.Long, "CUE template")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"compile", "inspect", "test", "history"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestCompileCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	compileCmd, _, err := cmd.Find([]string{"compile"})
	require.NoError(t, err)

	tests := []struct {
		name      string
		shorthand string
		def       string
	}{
		{"output-format", "", "json"},
		{"expression", "e", ""},
		{"output", "o", ""},
		{"journal", "", ""},
		{"set", "", ""},
		{"json", "", ""},
		{"csv", "", ""},
		{"yaml", "", ""},
		{"delimiter", "", ","},
		{"headers", "", "false"},
		{"short-rows", "", "pad"},
		{"encoding", "", ""},
		{"max-depth", "", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := compileCmd.Flags().Lookup(tt.name)
			require.NotNil(t, f)
			assert.Equal(t, tt.shorthand, f.Shorthand)
			assert.Equal(t, tt.def, f.DefValue)
		})
	}
}

func TestInspectCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	inspectCmd, _, err := cmd.Find([]string{"inspect"})
	require.NoError(t, err)

	for _, name := range []string{"set", "json", "csv", "yaml", "headers", "max-depth"} {
		assert.NotNil(t, inspectCmd.Flags().Lookup(name), name)
	}
	assert.Nil(t, inspectCmd.Flags().Lookup("output"))
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	update := testCmd.Flags().Lookup("update")
	require.NotNil(t, update)
	assert.Equal(t, "false", update.DefValue)
	assert.NotNil(t, testCmd.Flags().Lookup("filter"))
}

func TestHistoryCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	historyCmd, _, err := cmd.Find([]string{"history"})
	require.NoError(t, err)

	limit := historyCmd.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "20", limit.DefValue)
	assert.NotNil(t, historyCmd.Flags().Lookup("journal"))
	assert.NotNil(t, historyCmd.Flags().Lookup("id"))
}

func TestInvalidResponseFormat(t *testing.T) {
	dir := t.TempDir()
	tpl := writeFile(t, dir, "t.cue", "a: 1\n")

	_, err := execute(t, "compile", tpl, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestHistoryRequiresJournal(t *testing.T) {
	_, err := execute(t, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal")
}
