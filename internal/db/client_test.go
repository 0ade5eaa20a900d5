package db_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/rikkaview/internal/backuptest"
	"github.com/raphaelgruber/rikkaview/internal/db"
	"github.com/raphaelgruber/rikkaview/internal/models"
)

func readFixture(t *testing.T, f backuptest.Fixture) *models.Backup {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rikka_hub.db")
	backuptest.WriteDatabase(t, path, f)
	return readPath(t, path)
}

func readPath(t *testing.T, path string) *models.Backup {
	t.Helper()
	ctx := context.Background()
	client, err := db.Open(ctx, path, nil)
	require.NoError(t, err)
	defer client.Close()

	b, err := client.ReadBackup(ctx)
	require.NoError(t, err)
	return b
}

// execAll creates a database from raw statements.
func execAll(t *testing.T, stmts ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "custom.db")
	conn, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer conn.Close()
	for _, s := range stmts {
		_, err := conn.Exec(s)
		require.NoError(t, err, s)
	}
	return path
}

func TestReadBackup_Sample(t *testing.T) {
	b := readFixture(t, backuptest.Sample())

	ids := make([]string, 0, len(b.Conversations))
	for _, c := range b.Conversations {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"conv-new", "conv-trip", "conv-old"}, ids, "ordered by update time, newest first")

	empty := b.Conversations[0]
	assert.Equal(t, models.UntitledConversation, empty.Title)
	assert.True(t, empty.Pinned)
	assert.Empty(t, empty.Messages)

	trip := b.Conversations[1]
	assert.Equal(t, "asst-helper", trip.AssistantID)
	assert.Equal(t, time.Date(2025, time.March, 15, 10, 20, 30, 0, time.UTC), trip.UpdatedAt)
	require.Len(t, trip.Messages, 2)

	first := trip.Messages[0]
	assert.Equal(t, "m-trip-1", first.ID)
	assert.Equal(t, models.RoleUser, first.Role)
	assert.Equal(t, "conv-trip", first.ConversationID)
	require.Len(t, first.Parts, 1)
	assert.Equal(t, &models.TextPart{Text: "Where should I go in **Japan**?"}, first.Parts[0])

	reply := trip.Messages[1]
	assert.Equal(t, "m-trip-2b", reply.ID, "selected branch wins")
	assert.Equal(t, 1, reply.NodeIndex)
	assert.Equal(t, 1, reply.BranchIndex)
	assert.Equal(t, 2, reply.BranchCount)
	require.Len(t, reply.Parts, 2)
	assert.Equal(t, models.PartReasoning, reply.Parts[0].Type())
	assert.Equal(t, "The user likes temples.", reply.Parts[0].(*models.ReasoningPart).Text)

	old := b.Conversations[2]
	require.Len(t, old.Messages, 2)
	tool, ok := old.Messages[1].Parts[0].(*models.ToolPart)
	require.True(t, ok)
	assert.Equal(t, "shell", tool.Name)
	assert.Equal(t, "call-1", tool.CallID)
	assert.JSONEq(t, `{"cmd":"go test ./..."}`, string(tool.Input))
	require.Len(t, tool.Output, 1)
	assert.Equal(t, &models.TextPart{Text: "ok  all passed"}, tool.Output[0])

	require.Len(t, b.Memories, 1)
	assert.Equal(t, "User enjoys temples", b.Memories[0].Content)
	assert.Zero(t, b.Stats)
	assert.Empty(t, b.Assistants, "assistants come from the archive settings")
}

func TestReadBackup_WithLocation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rikka_hub.db")
	backuptest.WriteDatabase(t, path, backuptest.Sample())

	ctx := context.Background()
	tokyo := time.FixedZone("UTC+9", 9*60*60)
	client, err := db.Open(ctx, path, nil, db.WithLocation(tokyo))
	require.NoError(t, err)
	defer client.Close()

	b, err := client.ReadBackup(ctx)
	require.NoError(t, err)

	trip := b.Conversations[1]
	assert.Equal(t, time.Date(2025, time.March, 15, 10, 20, 30, 0, time.UTC), trip.UpdatedAt, "epoch columns are instants")
	first := trip.Messages[0]
	assert.Equal(t, time.Date(2025, time.March, 10, 0, 20, 30, 0, time.UTC), first.CreatedAt)
	assert.Equal(t, "2025-03-10 09:20:30", models.FormatTimestamp(first.CreatedAt.In(tokyo)))
}

func TestReadBackup_MissingTable(t *testing.T) {
	path := execAll(t, `CREATE TABLE ConversationEntity (id TEXT PRIMARY KEY)`)

	ctx := context.Background()
	client, err := db.Open(ctx, path, nil)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.ReadBackup(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, db.ErrSchema))

	var schemaErr *db.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "message_node", schemaErr.Table)
}

func TestReadBackup_MissingRequiredColumn(t *testing.T) {
	path := execAll(t,
		`CREATE TABLE ConversationEntity (id TEXT PRIMARY KEY)`,
		`CREATE TABLE message_node (conversation_id TEXT)`,
	)

	ctx := context.Background()
	client, err := db.Open(ctx, path, nil)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.ReadBackup(ctx)
	var schemaErr *db.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "message_node", schemaErr.Table)
	assert.Equal(t, "messages", schemaErr.Column)
}

func TestReadBackup_SchemaDrift(t *testing.T) {
	path := execAll(t,
		`CREATE TABLE ConversationEntity (id TEXT PRIMARY KEY, title TEXT, shiny_new_column BLOB)`,
		`CREATE TABLE message_node (conversation_id TEXT, messages TEXT, future TEXT)`,
		`INSERT INTO ConversationEntity (id, title, shiny_new_column) VALUES ('c1', 'Drifted', x'00')`,
		`INSERT INTO message_node (conversation_id, messages, future) VALUES ('c1', '[{"role":"user","parts":[{"text":"hi"}]}]', 'x')`,
		`INSERT INTO message_node (conversation_id, messages, future) VALUES ('c1', '[{"role":"assistant","parts":[{"text":"hello"}]}]', 'y')`,
	)

	b := readPath(t, path)
	require.Len(t, b.Conversations, 1)

	c := b.Conversations[0]
	assert.Equal(t, "Drifted", c.Title)
	assert.Empty(t, c.AssistantID)
	assert.True(t, c.UpdatedAt.IsZero())
	assert.False(t, c.Pinned)

	require.Len(t, c.Messages, 2)
	assert.Equal(t, 0, c.Messages[0].NodeIndex)
	assert.Equal(t, 1, c.Messages[1].NodeIndex)
	assert.Equal(t, models.RoleAssistant, c.Messages[1].Role)
	assert.Nil(t, b.Memories)
}

func TestReadBackup_RowRecovery(t *testing.T) {
	f := backuptest.Fixture{
		Conversations: []backuptest.Conversation{{
			ID:        "c1",
			Title:     "Damaged",
			UpdatedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
			Nodes: []backuptest.Node{
				{Raw: "{this is not json"},
				{Raw: `[{"id":"m2","role":"user","parts":["just a string",{"type":"text","text":"kept"}]}]`},
				{Raw: `[]`},
				{Raw: `[{"id":"m4","role":"assistant","parts":[{"type":"me.rerere.ai.ui.UIMessagePart.Hologram","beam":1}]}]`},
			},
		}},
		Orphans: map[string][]backuptest.Node{
			"ghost": {backuptest.Single(backuptest.Message("g1", "user", time.Now(), backuptest.Text("boo")))},
		},
	}
	b := readFixture(t, f)

	require.Len(t, b.Conversations, 1)
	msgs := b.Conversations[0].Messages
	require.Len(t, msgs, 3, "the empty node yields no message")

	broken, ok := msgs[0].Parts[0].(*models.UnknownPart)
	require.True(t, ok)
	assert.Equal(t, "message_node", broken.OriginalType)
	assert.JSONEq(t, `"{this is not json"`, string(broken.Raw))

	require.Len(t, msgs[1].Parts, 2)
	assert.Equal(t, models.PartUnknown, msgs[1].Parts[0].Type())
	assert.Equal(t, &models.TextPart{Text: "kept"}, msgs[1].Parts[1])

	unknown, ok := msgs[2].Parts[0].(*models.UnknownPart)
	require.True(t, ok)
	assert.Equal(t, "me.rerere.ai.ui.UIMessagePart.Hologram", unknown.OriginalType)

	assert.Equal(t, 2, b.Stats.RowDecodeErrors)
	assert.Equal(t, 1, b.Stats.OrphanNodes)
}

func TestReadBackup_FallbackIDsAreStable(t *testing.T) {
	f := backuptest.Fixture{
		Conversations: []backuptest.Conversation{{
			ID: "c1",
			Nodes: []backuptest.Node{
				{Raw: `[{"role":"user","parts":[{"text":"a"}]}]`},
				{Raw: `[{"role":"assistant","parts":[{"text":"b"}]}]`},
			},
		}},
	}
	path := filepath.Join(t.TempDir(), "rikka_hub.db")
	backuptest.WriteDatabase(t, path, f)

	first := readPath(t, path).Conversations[0].Messages
	second := readPath(t, path).Conversations[0].Messages

	require.Len(t, first, 2)
	assert.NotEmpty(t, first[0].ID)
	assert.NotEqual(t, first[0].ID, first[1].ID)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[1].ID, second[1].ID)
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "absent.db"), nil)
	assert.Error(t, err)
}
