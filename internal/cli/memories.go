package cli

import (
	"fmt"

	"github.com/raphaelgruber/rikkaview/internal/models"
	"github.com/raphaelgruber/rikkaview/internal/service"
	"github.com/spf13/cobra"
)

var memoriesCmd = &cobra.Command{
	Use:   "memories <backup.zip>",
	Short: "Show the memories assistants saved",
	Long: `Show the memories stored in a backup, grouped by assistant.

Examples:
  rikkaview memories backup.zip
  rikkaview memories backup.zip --assistant helper`,
	Args: cobra.ExactArgs(1),
	RunE: runMemories,
}

var memoriesAssistant string

func init() {
	memoriesCmd.Flags().StringVarP(&memoriesAssistant, "assistant", "a", "", "only memories of assistants whose name contains this text")
}

func runMemories(cmd *cobra.Command, args []string) error {
	b, err := pipeline.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	p := newPrinter(cmd.OutOrStdout())
	groups := memoryGroups(b, memoriesAssistant)
	if len(groups) == 0 {
		p.println("No memories found.")
		return nil
	}

	for i, g := range groups {
		if i > 0 {
			p.println()
		}
		p.println(p.title(fmt.Sprintf("%s (%d)", g.name, len(g.memories))))
		for _, m := range g.memories {
			p.println("- ", m.Content)
		}
	}
	return nil
}

type memoryGroup struct {
	name     string
	memories []models.Memory
}

// memoryGroups groups memories by assistant in first-seen order.
func memoryGroups(b *models.Backup, assistant string) []memoryGroup {
	var groups []memoryGroup
	index := make(map[string]int)
	for _, m := range b.Memories {
		i, ok := index[m.AssistantID]
		if !ok {
			name := b.AssistantName(m.AssistantID)
			if name == "" {
				name = "Unknown assistant"
			}
			i = len(groups)
			index[m.AssistantID] = i
			groups = append(groups, memoryGroup{name: name})
		}
		groups[i].memories = append(groups[i].memories, m)
	}

	if assistant == "" {
		return groups
	}
	kept := groups[:0]
	for _, g := range groups {
		if service.ContainsFold(g.name, assistant) {
			kept = append(kept, g)
		}
	}
	return kept
}
