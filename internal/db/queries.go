package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/raphaelgruber/rikkaview/internal/models"
)

// ReadBackup materializes every conversation with its selected message
// branches, plus memories when the table exists. Assistants are not stored
// in the database and are left empty.
//
// Only structural problems are returned: a missing required table or
// column is a *SchemaError. Individual rows that fail to decode are
// degraded to UnknownPart, logged and counted in Backup.Stats.
func (c *Client) ReadBackup(ctx context.Context) (*models.Backup, error) {
	tables, err := c.tables(ctx)
	if err != nil {
		return nil, err
	}
	for _, spec := range requiredTables {
		if !tables[spec.name] {
			return nil, &SchemaError{Table: spec.name}
		}
	}

	b := &models.Backup{}

	b.Conversations, err = c.readConversations(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.readMessages(ctx, b.Conversations, &b.Stats); err != nil {
		return nil, err
	}

	if tables[memoryTable.name] {
		b.Memories, err = c.readMemories(ctx)
		if err != nil {
			var schemaErr *SchemaError
			if !errors.As(err, &schemaErr) {
				return nil, err
			}
			c.logger.Warn("skipping memories", "error", err)
		}
	}

	c.logger.Debug("backup read",
		"conversations", len(b.Conversations),
		"messages", b.MessageCount(),
		"memories", len(b.Memories),
		"row_decode_errors", b.Stats.RowDecodeErrors,
		"orphan_nodes", b.Stats.OrphanNodes)
	return b, nil
}

func (c *Client) readConversations(ctx context.Context) ([]models.Conversation, error) {
	list, cols, err := c.selectList(ctx, conversationTable)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s", list, quoteIdent(conversationTable.name))
	if cols["update_at"] {
		query += " ORDER BY update_at DESC"
	}

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var convs []models.Conversation
	for rows.Next() {
		var (
			id, assistantID, title sql.NullString
			createAt, updateAt     sql.NullInt64
			pinned                 sql.NullInt64
		)
		if err := rows.Scan(&id, &assistantID, &title, &createAt, &updateAt, &pinned); err != nil {
			return nil, fmt.Errorf("scan conversation row: %w", err)
		}

		t := strings.TrimSpace(title.String)
		if t == "" {
			t = models.UntitledConversation
		}
		convs = append(convs, models.Conversation{
			ID:          id.String,
			AssistantID: assistantID.String,
			Title:       t,
			CreatedAt:   models.FromEpochMillis(createAt.Int64),
			UpdatedAt:   models.FromEpochMillis(updateAt.Int64),
			Pinned:      pinned.Int64 != 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return convs, nil
}

// readMessages streams every message node once, in conversation and node
// order, and appends the selected branch to its conversation.
func (c *Client) readMessages(ctx context.Context, convs []models.Conversation, stats *models.ReadStats) error {
	list, cols, err := c.selectList(ctx, messageNodeTable)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY conversation_id", list, quoteIdent(messageNodeTable.name))
	if cols["node_index"] {
		query += ", node_index"
	}

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query message nodes: %w", err)
	}
	defer rows.Close()

	byID := newConversationIndex(convs)
	orphans := make(map[string]int)

	for rows.Next() {
		var (
			convID      sql.NullString
			blob        []byte
			nodeIndex   sql.NullInt64
			selectIndex sql.NullInt64
		)
		if err := rows.Scan(&convID, &blob, &nodeIndex, &selectIndex); err != nil {
			return fmt.Errorf("scan message node: %w", err)
		}

		conv := byID.get(convID.String)
		if conv == nil {
			orphans[convID.String]++
			stats.OrphanNodes++
			continue
		}

		idx := len(conv.Messages)
		if nodeIndex.Valid {
			idx = int(nodeIndex.Int64)
		}

		n := node{
			conversationID: convID.String,
			index:          idx,
			selectIndex:    int(selectIndex.Int64),
			blob:           blob,
			loc:            c.loc,
		}
		msg, ok := n.decode(func(derr *RowDecodeError) {
			stats.RowDecodeErrors++
			c.logger.Warn("degraded message row", "error", derr)
		})
		if !ok {
			c.logger.Debug("empty message node", "conversation", convID.String, "node", idx)
			continue
		}
		conv.Messages = append(conv.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate message nodes: %w", err)
	}

	for id, n := range orphans {
		c.logger.Warn("message nodes reference unknown conversation", "conversation", id, "nodes", n)
	}
	return nil
}

// conversationIndex resolves conversation ids to their slot in the
// source-ordered slice. Iteration order stays that of the slice.
type conversationIndex struct {
	convs []models.Conversation
	pos   map[string]int
}

func newConversationIndex(convs []models.Conversation) *conversationIndex {
	pos := make(map[string]int, len(convs))
	for i, conv := range convs {
		if _, dup := pos[conv.ID]; !dup {
			pos[conv.ID] = i
		}
	}
	return &conversationIndex{convs: convs, pos: pos}
}

func (ix *conversationIndex) get(id string) *models.Conversation {
	i, ok := ix.pos[id]
	if !ok {
		return nil
	}
	return &ix.convs[i]
}

func (c *Client) readMemories(ctx context.Context) ([]models.Memory, error) {
	list, cols, err := c.selectList(ctx, memoryTable)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s", list, quoteIdent(memoryTable.name))
	if cols["id"] {
		query += " ORDER BY id"
	}

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	var mems []models.Memory
	for rows.Next() {
		var (
			content, assistantID sql.NullString
			id                   sql.NullInt64
		)
		if err := rows.Scan(&content, &id, &assistantID); err != nil {
			return nil, fmt.Errorf("scan memory row: %w", err)
		}
		mems = append(mems, models.Memory{
			ID:          id.Int64,
			AssistantID: assistantID.String,
			Content:     content.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memories: %w", err)
	}
	return mems, nil
}
