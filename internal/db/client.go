package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	_ "modernc.org/sqlite"
)

// Client is a read-only handle on an extracted backup database.
type Client struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	loc    *time.Location
}

// Option configures a Client.
type Option func(*Client)

// WithLocation sets the zone in which message timestamps stored without
// an offset are read. The default is UTC.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// Open opens the database at path read-only. The file is never modified.
func Open(ctx context.Context, path string, logger *slog.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// A read-only connection cannot recover a WAL journal; the file is a
	// private copy, so fall back to query_only in that case.
	query := "mode=ro"
	if _, err := os.Stat(path + "-wal"); err == nil {
		query = ""
	}
	dsn := (&url.URL{Scheme: "file", Path: path, RawQuery: query}).String()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db %q: %w", path, err)
	}

	// Pragmas are per connection, so keep exactly one
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite db %q: %w", path, err)
	}

	c := &Client{db: db, path: path, logger: logger, loc: time.UTC}
	for _, opt := range opts {
		opt(c)
	}
	logger.Debug("database opened", "path", path, "location", c.loc.String())
	return c, nil
}

// Close closes the database handle.
func (c *Client) Close() error {
	return c.db.Close()
}

// Path returns the database file path.
func (c *Client) Path() string {
	return c.path
}
