package archive

import (
	"errors"
	"fmt"
)

// Sentinel errors for archive handling.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidArchive indicates the file is not a readable zip container.
	ErrInvalidArchive = errors.New("not a valid backup archive")

	// ErrDatabaseMissing indicates the zip holds no embedded database.
	ErrDatabaseMissing = errors.New("backup archive contains no database")
)

// Error reports an extraction failure for a specific archive path.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
