package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/rikkaview/internal/models"
)

func TestSearch(t *testing.T) {
	b := testBackup()

	t.Run("strips markup and ignores case", func(t *testing.T) {
		results := Search(b, "KYOTO")
		require.Len(t, results, 1)

		r := results[0]
		assert.Equal(t, 1, r.Index)
		assert.Equal(t, "conv-trip", r.Conversation.ID)
		assert.False(t, r.TitleMatch)
		assert.Equal(t, []int{1}, r.MatchedMessages)
		require.Len(t, r.Matches, 1)
		assert.Equal(t, Match{Message: 1, Role: models.RoleAssistant, Snippet: "Try Kyoto for its temples."}, r.Matches[0])
	})

	t.Run("one match per part", func(t *testing.T) {
		results := Search(b, "temples")
		require.Len(t, results, 1)
		assert.Equal(t, []int{1}, results[0].MatchedMessages)
		assert.Len(t, results[0].Matches, 2)
		assert.Equal(t, 2, MatchCount(results))
	})

	t.Run("title only", func(t *testing.T) {
		results := Search(b, "travel")
		require.Len(t, results, 1)
		assert.True(t, results[0].TitleMatch)
		assert.Empty(t, results[0].Matches)
	})

	t.Run("tool output", func(t *testing.T) {
		results := Search(b, "all passed")
		require.Len(t, results, 1)
		assert.Equal(t, "conv-old", results[0].Conversation.ID)
		assert.Equal(t, []int{1}, results[0].MatchedMessages)
	})

	t.Run("results keep backup order", func(t *testing.T) {
		results := Search(b, "t")
		var got []string
		for _, r := range results {
			got = append(got, r.Conversation.ID)
		}
		assert.Equal(t, []string{"conv-new", "conv-trip", "conv-old"}, got)
	})

	t.Run("empty query", func(t *testing.T) {
		assert.Nil(t, Search(b, ""))
		assert.Nil(t, Search(b, "   "))
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, Search(b, "zanzibar"))
	})
}

func TestSearch_Snippets(t *testing.T) {
	long := strings.Repeat("x ", 30) + "needle" + strings.Repeat(" y", 30)

	tests := []struct {
		name  string
		text  string
		query string
		want  string
	}{
		{
			name:  "context is cut on both sides",
			text:  long,
			query: "needle",
			want:  "..." + strings.Repeat("x ", 20) + "needle" + strings.Repeat(" y", 20) + "...",
		},
		{
			name:  "newlines become spaces",
			text:  "line one\nneedle here",
			query: "needle",
			want:  "line one needle here",
		},
		{
			name:  "cyrillic case folding",
			text:  "Сказал ПРИВЕТ всем",
			query: "привет",
			want:  "Сказал ПРИВЕТ всем",
		},
		{
			name:  "wide runes count as one",
			text:  strings.Repeat("日", 50) + "京都",
			query: "京都",
			want:  "..." + strings.Repeat("日", 40) + "京都",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &models.Backup{Conversations: []models.Conversation{{
				ID:       "c",
				Title:    "t",
				Messages: []models.Message{{Role: models.RoleUser, Parts: []models.Part{&models.TextPart{Text: tt.text}}}},
			}}}

			results := Search(b, tt.query)
			require.Len(t, results, 1)
			require.Len(t, results[0].Matches, 1)
			assert.Equal(t, tt.want, results[0].Matches[0].Snippet)
		})
	}
}
