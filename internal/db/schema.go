package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// tableSpec lists the columns the reader selects from one table.
// Missing required columns are a SchemaError; missing optional ones are
// selected as NULL so drifted schemas still read.
type tableSpec struct {
	name     string
	required []string
	optional []string
}

var (
	conversationTable = tableSpec{
		name:     "ConversationEntity",
		required: []string{"id"},
		optional: []string{"assistant_id", "title", "create_at", "update_at", "is_pinned"},
	}
	messageNodeTable = tableSpec{
		name:     "message_node",
		required: []string{"conversation_id", "messages"},
		optional: []string{"node_index", "select_index"},
	}
	memoryTable = tableSpec{
		name:     "MemoryEntity",
		required: []string{"content"},
		optional: []string{"id", "assistant_id"},
	}
)

// requiredTables must exist for a backup to be readable.
var requiredTables = []tableSpec{conversationTable, messageNodeTable}

// tables returns the set of table names in the database.
func (c *Client) tables(ctx context.Context) (map[string]bool, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		out[name] = true
	}
	return out, rows.Err()
}

// columns introspects a table's column names.
func (c *Client) columns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   sql.NullString
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info %s: %w", table, err)
		}
		out[name] = true
	}
	return out, rows.Err()
}

// selectList builds the column list for spec, validating required columns.
func (c *Client) selectList(ctx context.Context, spec tableSpec) (string, map[string]bool, error) {
	cols, err := c.columns(ctx, spec.name)
	if err != nil {
		return "", nil, err
	}

	parts := make([]string, 0, len(spec.required)+len(spec.optional))
	for _, col := range spec.required {
		if !cols[col] {
			return "", nil, &SchemaError{Table: spec.name, Column: col}
		}
		parts = append(parts, quoteIdent(col))
	}
	for _, col := range spec.optional {
		if cols[col] {
			parts = append(parts, quoteIdent(col))
		} else {
			c.logger.Debug("column missing, using NULL", "table", spec.name, "column", col)
			parts = append(parts, "NULL AS "+quoteIdent(col))
		}
	}
	return strings.Join(parts, ", "), cols, nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
