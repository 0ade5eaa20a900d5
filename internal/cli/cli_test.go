package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/rikkaview/internal/backuptest"
	"github.com/raphaelgruber/rikkaview/internal/export"
	"github.com/raphaelgruber/rikkaview/internal/service"
)

// run executes the root command with args and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("RIKKAVIEW_LOG_FILE", filepath.Join(t.TempDir(), "rikkaview.log"))
	t.Setenv("RIKKAVIEW_TIMEZONE", "UTC")

	verbose, configPath = false, ""
	exportFormat, exportOutput = string(export.FormatHTML), ""
	filterAssistant, filterFrom, filterTo, filterDateField = "", "", "", ""
	memoriesAssistant = ""
	pipeline = nil

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := Execute()
	return stdout.String(), stderr.String(), err
}

func TestList(t *testing.T) {
	archive := backuptest.WriteArchive(t, backuptest.Sample())

	out, _, err := run(t, "list", archive)
	require.NoError(t, err)
	assert.Contains(t, out, "Conversations (3)")
	assert.Contains(t, out, "* (untitled)")
	assert.Contains(t, out, "Travel plans")
	assert.Contains(t, out, "Coder")
	assert.Contains(t, out, "2025-03-15 10:20:30")
	assert.NotContains(t, out, "\x1b[", "output to a buffer is not styled")

	out, _, err = run(t, "list", archive, "--assistant", "coder")
	require.NoError(t, err)
	assert.Contains(t, out, "Conversations (1)")
	assert.Contains(t, out, "Old chat")

	out, _, err = run(t, "list", archive, "--from", "2030-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "No conversations found.")
}

func TestList_InvalidDate(t *testing.T) {
	archive := backuptest.WriteArchive(t, backuptest.Sample())

	_, _, err := run(t, "list", archive, "--from", "2025-02-30")
	assert.ErrorIs(t, err, service.ErrInvalidDate)

	_, _, err = run(t, "list", archive, "--from", "2025-06-30", "--to", "2025-01-01")
	assert.ErrorIs(t, err, service.ErrInvalidDate)

	_, _, err = run(t, "list", archive, "--date-field", "modified")
	assert.Error(t, err)
}

func TestSearch(t *testing.T) {
	archive := backuptest.WriteArchive(t, backuptest.Sample())

	out, _, err := run(t, "search", archive, "kyoto")
	require.NoError(t, err)
	assert.Contains(t, out, "1 conversations, 1 message matches")
	assert.Contains(t, out, "[2] Travel plans (Helper)")
	assert.Contains(t, out, "#2 Assistant: Try Kyoto for its temples.")

	out, _, err = run(t, "search", archive, "zanzibar")
	require.NoError(t, err)
	assert.Contains(t, out, `No matches for "zanzibar".`)
}

func TestExport(t *testing.T) {
	archive := backuptest.WriteArchive(t, backuptest.Sample())
	dest := filepath.Join(t.TempDir(), "chats.json")

	out, _, err := run(t, "export", archive, "-f", "json", "-o", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 3 conversations (4 messages) to "+dest)

	f, err := os.Open(dest)
	require.NoError(t, err)
	defer f.Close()
	b, err := export.ReadJSON(f)
	require.NoError(t, err)
	assert.Len(t, b.Conversations, 3)

	out, _, err = run(t, "export", archive, "-f", "txt", "-o", dest+".txt", "--to", "2025-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 conversations (2 messages) of 3")

	_, _, err = run(t, "export", archive, "-f", "pdf")
	assert.ErrorIs(t, err, export.ErrUnknownFormat)
}

func TestMemories(t *testing.T) {
	archive := backuptest.WriteArchive(t, backuptest.Sample())

	out, _, err := run(t, "memories", archive)
	require.NoError(t, err)
	assert.Contains(t, out, "Helper (1)")
	assert.Contains(t, out, "- User enjoys temples")

	out, _, err = run(t, "memories", archive, "--assistant", "coder")
	require.NoError(t, err)
	assert.Contains(t, out, "No memories found.")
}

func TestErrors_NameTheStage(t *testing.T) {
	_, _, err := run(t, "list", filepath.Join(t.TempDir(), "missing.zip"))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "extraction: "), err.Error())
}

func TestVerbosePrintsStats(t *testing.T) {
	archive := backuptest.WriteArchive(t, backuptest.Sample())

	_, stderr, err := run(t, "list", archive, "-v")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Run Statistics")
	assert.Contains(t, stderr, "extract:")
	assert.Contains(t, stderr, "conversations")
}
