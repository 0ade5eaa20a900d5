package cli

import (
	"fmt"
	"strconv"

	"github.com/raphaelgruber/rikkaview/internal/models"
	"github.com/raphaelgruber/rikkaview/internal/service"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <backup.zip>",
	Short: "List conversations",
	Long: `List the conversations in a backup, most recently updated first.

Examples:
  rikkaview list backup.zip
  rikkaview list backup.zip --assistant coder
  rikkaview list backup.zip --from 2025-01-01 --to 2025-06-30 --date-field create`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func init() {
	addFilterFlags(listCmd)
}

// Column widths in display cells
const (
	colIndex     = 4
	colTitle     = 40
	colAssistant = 16
	colMessages  = 5
)

func runList(cmd *cobra.Command, args []string) error {
	view, err := load(cmd, args[0])
	if err != nil {
		return err
	}

	p := newPrinter(cmd.OutOrStdout())
	summaries := service.List(view.filtered)
	if len(summaries) == 0 {
		p.println("No conversations found.")
		return nil
	}

	p.println(p.title(fmt.Sprintf("Conversations (%d)", len(summaries))))
	p.println()
	p.println(p.hint(rcell("#", colIndex) + "  " + cell("Title", colTitle) + "  " +
		cell("Assistant", colAssistant) + "  " + rcell("Msgs", colMessages) + "  Updated"))

	for _, s := range summaries {
		title := cell(s.Title, colTitle)
		if s.Pinned {
			title = cell("* "+s.Title, colTitle)
		}
		assistant := s.Assistant
		if assistant == "" {
			assistant = "-"
		}
		p.println(
			rcell(strconv.Itoa(s.Index), colIndex), "  ",
			p.accent(title), "  ",
			cell(assistant, colAssistant), "  ",
			rcell(strconv.Itoa(s.Messages), colMessages), "  ",
			p.hint(updated(s)),
		)
	}

	if verbose {
		p.println()
		p.println(p.hint(fmt.Sprintf("%d messages, %d memories", view.filtered.MessageCount(), len(view.full.Memories))))
	}
	return nil
}

func updated(s service.Summary) string {
	if s.UpdatedAt.IsZero() {
		return "-"
	}
	loc, err := cfg.Location()
	if err != nil {
		return models.FormatTimestamp(s.UpdatedAt)
	}
	return models.FormatTimestamp(s.UpdatedAt.In(loc))
}
