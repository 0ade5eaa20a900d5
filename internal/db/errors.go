// Package db reads the SQLite database embedded in a backup.
package db

import (
	"errors"
	"fmt"
)

// Sentinel errors for database operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrSchema indicates the database lacks a table or column the reader
	// cannot do without. Returned wrapped in a *SchemaError.
	ErrSchema = errors.New("unsupported database schema")

	// ErrRowDecode marks a single row whose structured payload could not be
	// decoded. These are recovered locally and never returned from ReadBackup.
	ErrRowDecode = errors.New("row decode failed")
)

// SchemaError names the table (and column, when relevant) that is missing.
type SchemaError struct {
	Table  string
	Column string
}

func (e *SchemaError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%v: table %s has no column %s", ErrSchema, e.Table, e.Column)
	}
	return fmt.Sprintf("%v: missing table %s", ErrSchema, e.Table)
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// RowDecodeError describes one degraded row or part.
type RowDecodeError struct {
	Table          string
	ConversationID string
	NodeIndex      int
	Err            error
}

func (e *RowDecodeError) Error() string {
	return fmt.Sprintf("%s row (conversation %s, node %d): %v", e.Table, e.ConversationID, e.NodeIndex, e.Err)
}

func (e *RowDecodeError) Unwrap() []error { return []error{ErrRowDecode, e.Err} }
