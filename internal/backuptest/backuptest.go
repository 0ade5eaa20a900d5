// Package backuptest builds backup archives and databases for tests.
package backuptest

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/raphaelgruber/rikkaview/internal/models"
)

// Schema mirrors the tables the app writes.
const Schema = `
CREATE TABLE ConversationEntity (
	id TEXT PRIMARY KEY NOT NULL,
	assistant_id TEXT NOT NULL,
	title TEXT NOT NULL,
	nodes TEXT NOT NULL DEFAULT '[]',
	create_at INTEGER NOT NULL,
	update_at INTEGER NOT NULL,
	truncate_index INTEGER NOT NULL DEFAULT -1,
	suggestions TEXT NOT NULL DEFAULT '[]',
	is_pinned INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE message_node (
	id TEXT PRIMARY KEY NOT NULL,
	conversation_id TEXT NOT NULL,
	node_index INTEGER NOT NULL,
	messages TEXT NOT NULL,
	select_index INTEGER NOT NULL
);
CREATE TABLE MemoryEntity (
	id INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL,
	assistant_id TEXT NOT NULL,
	content TEXT NOT NULL
);
`

// Fixture describes the content of a backup.
type Fixture struct {
	Assistants    []models.Assistant
	Conversations []Conversation
	Memories      []models.Memory

	// Orphans are nodes whose conversation does not exist.
	Orphans map[string][]Node

	// Files are extra archive entries, such as uploaded images.
	Files map[string][]byte
}

// Conversation is one ConversationEntity row and its nodes.
type Conversation struct {
	ID          string
	AssistantID string
	Title       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Pinned      bool
	Nodes       []Node
}

// Node is one message_node row. Raw, when set, replaces the encoded
// Branches verbatim.
type Node struct {
	Branches    []map[string]any
	SelectIndex int
	Raw         string
}

// Single returns a node holding one branch.
func Single(msg map[string]any) Node {
	return Node{Branches: []map[string]any{msg}}
}

// Message builds a stored message with the given parts. createdAt is
// written as wall clock without an offset, the way the app stores it.
func Message(id, role string, createdAt time.Time, parts ...map[string]any) map[string]any {
	if parts == nil {
		parts = []map[string]any{}
	}
	return map[string]any{
		"id":          id,
		"role":        role,
		"parts":       parts,
		"annotations": []any{},
		"createdAt":   createdAt.UTC().Format("2006-01-02T15:04:05.000"),
		"finishedAt":  nil,
		"modelId":     nil,
	}
}

// Text builds a fully qualified text part.
func Text(text string) map[string]any {
	return map[string]any{"type": "me.rerere.ai.ui.UIMessagePart.Text", "text": text}
}

// Reasoning builds a reasoning part.
func Reasoning(text string) map[string]any {
	return map[string]any{"type": "me.rerere.ai.ui.UIMessagePart.Reasoning", "reasoning": text}
}

// Tool builds a tool part with text output.
func Tool(callID, name, input string, output ...map[string]any) map[string]any {
	if output == nil {
		output = []map[string]any{}
	}
	return map[string]any{
		"type":       "me.rerere.ai.ui.UIMessagePart.Tool",
		"toolCallId": callID,
		"toolName":   name,
		"input":      input,
		"output":     output,
	}
}

// Image builds an image part.
func Image(url string) map[string]any {
	return map[string]any{"type": "me.rerere.ai.ui.UIMessagePart.Image", "url": url}
}

// WriteDatabase creates a SQLite database at path populated from f.
func WriteDatabase(t testing.TB, path string, f Fixture) {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range strings.Split(Schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	insertNodes := func(convID string, nodes []Node) {
		for i, n := range nodes {
			blob := n.Raw
			if blob == "" {
				data, err := json.Marshal(n.Branches)
				require.NoError(t, err)
				blob = string(data)
			}
			_, err := db.Exec(`INSERT INTO message_node (id, conversation_id, node_index, messages, select_index) VALUES (?, ?, ?, ?, ?)`,
				convID+"-node-"+strconv.Itoa(i), convID, i, blob, n.SelectIndex)
			require.NoError(t, err)
		}
	}

	for _, c := range f.Conversations {
		pinned := 0
		if c.Pinned {
			pinned = 1
		}
		_, err := db.Exec(`INSERT INTO ConversationEntity (id, assistant_id, title, create_at, update_at, is_pinned) VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, c.AssistantID, c.Title, c.CreatedAt.UnixMilli(), c.UpdatedAt.UnixMilli(), pinned)
		require.NoError(t, err)
		insertNodes(c.ID, c.Nodes)
	}
	for convID, nodes := range f.Orphans {
		insertNodes(convID, nodes)
	}
	for _, m := range f.Memories {
		_, err := db.Exec(`INSERT INTO MemoryEntity (id, assistant_id, content) VALUES (?, ?, ?)`, m.ID, m.AssistantID, m.Content)
		require.NoError(t, err)
	}
}

// WriteArchive builds a backup zip in a temp dir and returns its path.
func WriteArchive(t testing.TB, f Fixture) string {
	t.Helper()
	dir := t.TempDir()

	dbPath := filepath.Join(dir, "rikka_hub.db")
	WriteDatabase(t, dbPath, f)
	dbBytes, err := os.ReadFile(dbPath)
	require.NoError(t, err)

	settings := map[string]any{"assistants": f.Assistants}
	settingsBytes, err := json.Marshal(settings)
	require.NoError(t, err)

	zipPath := filepath.Join(dir, "backup.zip")
	out, err := os.Create(zipPath)
	require.NoError(t, err)

	zw := zip.NewWriter(out)
	write := func(name string, data []byte) {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	write("rikka_hub.db", dbBytes)
	write("settings.json", settingsBytes)
	for name, data := range f.Files {
		write(name, data)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())
	return zipPath
}

// Sample returns a small backup covering the common part types:
//
//	conv-new   "Untitled" (blank title), pinned, no messages, updated 2025-07-01
//	conv-trip  "Travel plans" with Helper, branches and reasoning, updated 2025-03-15
//	conv-old   "Old chat" with Coder, a tool call, updated 2024-12-31
func Sample() Fixture {
	day := func(y int, m time.Month, d, h int) time.Time {
		return time.Date(y, m, d, h, 20, 30, 0, time.UTC)
	}
	return Fixture{
		Assistants: []models.Assistant{
			{ID: "asst-helper", Name: "Helper"},
			{ID: "asst-coder", Name: "Coder"},
		},
		Conversations: []Conversation{
			{
				ID:          "conv-new",
				AssistantID: "asst-helper",
				Title:       "",
				CreatedAt:   day(2025, time.July, 1, 8),
				UpdatedAt:   day(2025, time.July, 1, 9),
				Pinned:      true,
			},
			{
				ID:          "conv-trip",
				AssistantID: "asst-helper",
				Title:       "Travel plans",
				CreatedAt:   day(2025, time.March, 10, 9),
				UpdatedAt:   day(2025, time.March, 15, 10),
				Nodes: []Node{
					Single(Message("m-trip-1", "user", day(2025, time.March, 10, 9),
						Text("Where should I go in **Japan**?"))),
					{
						SelectIndex: 1,
						Branches: []map[string]any{
							Message("m-trip-2a", "assistant", day(2025, time.March, 10, 9), Text("Try Osaka.")),
							Message("m-trip-2b", "assistant", day(2025, time.March, 10, 9),
								Reasoning("The user likes temples."),
								Text("Try **Kyoto** for its temples.")),
						},
					},
				},
			},
			{
				ID:          "conv-old",
				AssistantID: "asst-coder",
				Title:       "Old chat",
				CreatedAt:   day(2024, time.December, 30, 12),
				UpdatedAt:   day(2024, time.December, 31, 12),
				Nodes: []Node{
					Single(Message("m-old-1", "user", day(2024, time.December, 30, 12), Text("run the tests"))),
					Single(Message("m-old-2", "assistant", day(2024, time.December, 30, 12),
						Tool("call-1", "shell", `{"cmd":"go test ./..."}`, Text("ok  all passed")),
						Text("Done, all tests pass."))),
				},
			},
		},
		Memories: []models.Memory{
			{ID: 1, AssistantID: "asst-helper", Content: "User enjoys temples"},
		},
	}
}
