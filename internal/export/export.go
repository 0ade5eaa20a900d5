// Package export renders a backup as a standalone HTML page, a JSON
// document or plain text.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/raphaelgruber/rikkaview/internal/models"
)

// Format names an output format.
type Format string

// Supported formats.
const (
	FormatHTML Format = "html"
	FormatJSON Format = "json"
	FormatText Format = "txt"
)

// ErrUnknownFormat is returned by New and ParseFormat for unsupported
// format names.
var ErrUnknownFormat = errors.New("unknown export format")

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatHTML, FormatJSON, FormatText}
}

// ParseFormat resolves a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatHTML, FormatJSON, FormatText:
		return f, nil
	case "text":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: %q (want html, json or txt)", ErrUnknownFormat, s)
}

// DefaultFilename is the output name used when none is given.
func (f Format) DefaultFilename() string {
	return "rikkahub_chats." + string(f)
}

// Generator writes a backup in one output format.
type Generator interface {
	Generate(w io.Writer, b *models.Backup) error
}

// Options tunes the generators. Zero values are usable.
type Options struct {
	// Title heads the HTML page.
	Title string

	// Generator is recorded in JSON output and the HTML footer.
	Generator string

	// CodeStyle is the chroma style for fenced code in HTML.
	CodeStyle string

	// Location is used for displayed timestamps. Nil means UTC.
	Location *time.Location
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// timestamp formats t for display, "" for the zero time.
func (o Options) timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return models.FormatTimestamp(t.In(o.location()))
}

// New returns the generator for format.
func New(format Format, opts Options) (Generator, error) {
	switch format {
	case FormatHTML:
		return newHTMLGenerator(opts)
	case FormatJSON:
		return &JSONGenerator{opts: opts}, nil
	case FormatText:
		return &TextGenerator{opts: opts}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// assistantLabel returns the display name for a conversation's assistant.
func assistantLabel(b *models.Backup, c *models.Conversation) string {
	return b.AssistantName(c.AssistantID)
}

// toolLabels gives friendlier names to built-in tools.
var toolLabels = map[string]string{
	"memory_tool": "Memory",
	"search_web":  "Web search",
	"scrape_web":  "Web scrape",
}

func toolLabel(name string) string {
	if l, ok := toolLabels[name]; ok {
		return l
	}
	if name == "" {
		return "tool"
	}
	return name
}
