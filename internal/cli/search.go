package cli

import (
	"fmt"
	"strings"

	"github.com/raphaelgruber/rikkaview/internal/service"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <backup.zip> <query>",
	Short: "Search conversation titles and messages",
	Long: `Search conversation titles and message text, ignoring case.

Markup is stripped before matching, so "**bold**" is found by "bold".

Examples:
  rikkaview search backup.zip kyoto
  rikkaview search backup.zip "unit tests" --assistant coder`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSearch,
}

func init() {
	addFilterFlags(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args[1:], " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("search query is empty")
	}

	view, err := load(cmd, args[0])
	if err != nil {
		return err
	}

	p := newPrinter(cmd.OutOrStdout())
	results := pipeline.Search(view.filtered, query)
	if len(results) == 0 {
		p.println(fmt.Sprintf("No matches for %q.", query))
		return nil
	}

	p.println(p.title(fmt.Sprintf("%d conversations, %d message matches for %q", len(results), service.MatchCount(results), query)))
	for _, r := range results {
		c := r.Conversation
		p.println()
		header := fmt.Sprintf("[%d] %s", r.Index+1, c.Title)
		if name := view.filtered.AssistantName(c.AssistantID); name != "" {
			header += " (" + name + ")"
		}
		if r.TitleMatch {
			header += " " + p.hint("title match")
		}
		p.println(p.accent(header))

		for _, m := range r.Matches {
			label := fmt.Sprintf("  #%d %s: ", m.Message+1, m.Role.Label())
			p.println(p.hint(label), emphasize(p, m.Snippet, query))
		}
	}
	return nil
}

// emphasize highlights the first case-insensitive occurrence of query in
// s. Snippets that fold differently are returned unchanged.
func emphasize(p *printer, s, query string) string {
	if !p.styled {
		return s
	}
	lower, lq := strings.ToLower(s), strings.ToLower(query)
	if len(lower) != len(s) || len(lq) != len(query) {
		return s
	}
	i := strings.Index(lower, lq)
	if i < 0 {
		return s
	}
	end := i + len(query)
	return s[:i] + p.highlight(s[i:end]) + s[end:]
}
