package cli

import (
	"fmt"

	"github.com/raphaelgruber/rikkaview/internal/export"
	"github.com/raphaelgruber/rikkaview/internal/service"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export <backup.zip>",
	Short: "Export conversations to HTML, JSON or text",
	Long: `Export the conversations of a backup to a single file.

Formats:
  html  self-contained page with sidebar navigation (default)
  json  structured document for scripts
  txt   plain text transcript

Examples:
  rikkaview export backup.zip
  rikkaview export backup.zip -f json -o chats.json
  rikkaview export backup.zip --assistant helper --from 2025-01-01`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", string(export.FormatHTML), "output format: html, json or txt")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default rikkahub_chats.<format>)")
	addFilterFlags(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	view, err := load(cmd, args[0])
	if err != nil {
		return err
	}

	path, err := pipeline.Export(cmd.Context(), view.filtered, service.ExportOptions{
		Format: format,
		Output: exportOutput,
	})
	if err != nil {
		return err
	}

	p := newPrinter(cmd.OutOrStdout())
	summary := fmt.Sprintf("Exported %d conversations (%d messages)", len(view.filtered.Conversations), view.filtered.MessageCount())
	if view.narrowed() {
		summary += fmt.Sprintf(" of %d", len(view.full.Conversations))
	}
	p.println(p.accent(summary), " to ", path)
	if n := view.full.Stats.RowDecodeErrors; n > 0 {
		p.println(p.hint(fmt.Sprintf("%d message rows could not be decoded and are shown as unsupported content", n)))
	}
	return nil
}
