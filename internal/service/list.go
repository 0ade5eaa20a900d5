package service

import (
	"time"

	"github.com/raphaelgruber/rikkaview/internal/models"
)

// Summary is one row of a conversation listing.
type Summary struct {
	Index     int // 1-based position in the listing
	ID        string
	Title     string
	Assistant string
	Messages  int
	CreatedAt time.Time
	UpdatedAt time.Time
	Pinned    bool
}

// List summarizes the conversations of b in order.
func List(b *models.Backup) []Summary {
	out := make([]Summary, 0, len(b.Conversations))
	for i := range b.Conversations {
		c := &b.Conversations[i]
		out = append(out, Summary{
			Index:     i + 1,
			ID:        c.ID,
			Title:     c.Title,
			Assistant: b.AssistantName(c.AssistantID),
			Messages:  len(c.Messages),
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
			Pinned:    c.Pinned,
		})
	}
	return out
}
