package models

import (
	"path"
	"strings"
)

// Backup is the fully materialized content of one backup archive.
// It is built once by the reader and treated as immutable afterwards;
// filters return new Backups sharing the unchanged conversations.
type Backup struct {
	Assistants    []Assistant
	Conversations []Conversation
	Memories      []Memory

	// Assets maps image base names to data: URIs, populated only when
	// images are embedded.
	Assets map[string]string

	Stats ReadStats
}

// ReadStats counts anomalies recovered while reading.
type ReadStats struct {
	RowDecodeErrors int `json:"row_decode_errors"`
	OrphanNodes     int `json:"orphan_nodes"`
}

// AssistantName resolves an assistant id to its display name.
// Returns "" when the id is unknown.
func (b *Backup) AssistantName(id string) string {
	for _, a := range b.Assistants {
		if a.ID == id {
			return a.Name
		}
	}
	return ""
}

// WithConversations returns a shallow copy of b holding convs.
func (b *Backup) WithConversations(convs []Conversation) *Backup {
	out := *b
	out.Conversations = convs
	return &out
}

// MessageCount returns the total number of messages across conversations.
func (b *Backup) MessageCount() int {
	n := 0
	for _, c := range b.Conversations {
		n += len(c.Messages)
	}
	return n
}

// AssetKey maps an image reference (file URI, absolute or relative path)
// to the base name used to look it up in the archive.
func AssetKey(ref string) string {
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return ""
	}
	ref = strings.TrimPrefix(ref, "file://")
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	base := path.Base(strings.ReplaceAll(ref, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	return base
}
