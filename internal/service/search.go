package service

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/raphaelgruber/rikkaview/internal/markup"
	"github.com/raphaelgruber/rikkaview/internal/models"
)

// snippetContext is the number of runes kept on each side of a match.
const snippetContext = 40

// SearchResult is one conversation that matched a query.
type SearchResult struct {
	// Index is the conversation's position in the searched backup.
	Index        int
	Conversation *models.Conversation
	TitleMatch   bool

	// MatchedMessages holds the indexes of matching messages, ascending
	// and without duplicates.
	MatchedMessages []int
	Matches         []Match
}

// Match is one occurrence inside a message part.
type Match struct {
	Message int
	Role    models.Role
	Snippet string
}

// Search finds conversations whose title or message text contains query,
// ignoring case. Text is searched with markup stripped. Each text-bearing
// part contributes at most one match. An empty query matches nothing.
func Search(b *models.Backup, query string) []SearchResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	s := searcher{fold: cases.Fold()}
	needle := s.fold.String(query)

	var results []SearchResult
	for ci := range b.Conversations {
		c := &b.Conversations[ci]
		res := SearchResult{
			Index:        ci,
			Conversation: c,
			TitleMatch:   strings.Contains(s.fold.String(c.Title), needle),
		}

		for mi := range c.Messages {
			m := &c.Messages[mi]
			matched := false
			for _, p := range m.Parts {
				for _, text := range models.PartTextOf(p) {
					snippet, ok := s.find(markup.Plain(text), needle)
					if !ok {
						continue
					}
					res.Matches = append(res.Matches, Match{Message: mi, Role: m.Role, Snippet: snippet})
					matched = true
				}
			}
			if matched {
				res.MatchedMessages = append(res.MatchedMessages, mi)
			}
		}

		if res.TitleMatch || len(res.Matches) > 0 {
			results = append(results, res)
		}
	}
	return results
}

// MatchCount returns the number of part matches across results.
func MatchCount(results []SearchResult) int {
	n := 0
	for _, r := range results {
		n += len(r.Matches)
	}
	return n
}

type searcher struct {
	fold cases.Caser
}

// find locates the first occurrence of the folded needle in text and
// returns a snippet cut on rune boundaries of the original text.
func (s searcher) find(text, needle string) (string, bool) {
	runes := []rune(text)

	// Fold rune by rune so folded byte offsets map back to runes even
	// when folding changes lengths.
	var folded strings.Builder
	origin := make([]int, 0, len(text))
	for i, r := range runes {
		f := s.fold.String(string(r))
		folded.WriteString(f)
		for range len(f) {
			origin = append(origin, i)
		}
	}

	at := strings.Index(folded.String(), needle)
	if at < 0 {
		return "", false
	}
	first := origin[at]
	last := origin[at+len(needle)-1]

	start := max(0, first-snippetContext)
	end := min(len(runes), last+1+snippetContext)

	snippet := strings.ReplaceAll(string(runes[start:end]), "\n", " ")
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(runes) {
		snippet += "..."
	}
	return snippet, true
}
