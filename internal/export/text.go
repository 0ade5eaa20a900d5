package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/raphaelgruber/rikkaview/internal/markup"
	"github.com/raphaelgruber/rikkaview/internal/models"
)

const textRule = "============================================================"

// TextGenerator writes a plain-text transcript with markup stripped.
type TextGenerator struct {
	opts Options
}

// Generate implements Generator.
func (g *TextGenerator) Generate(w io.Writer, b *models.Backup) error {
	bw := bufio.NewWriter(w)
	for i := range b.Conversations {
		g.writeConversation(bw, b, &b.Conversations[i])
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write text: %w", err)
	}
	return nil
}

func (g *TextGenerator) writeConversation(w *bufio.Writer, b *models.Backup, c *models.Conversation) {
	title := c.Title
	if c.Pinned {
		title = "[pinned] " + title
	}
	if name := assistantLabel(b, c); name != "" {
		title += " [" + name + "]"
	}

	fmt.Fprintln(w, textRule)
	fmt.Fprintln(w, title)
	fmt.Fprintf(w, "Created: %s  Updated: %s\n", g.opts.timestamp(c.CreatedAt), g.opts.timestamp(c.UpdatedAt))
	fmt.Fprintln(w, textRule)
	fmt.Fprintln(w)

	if len(c.Messages) == 0 {
		fmt.Fprintln(w, "(no messages)")
		fmt.Fprintln(w)
	}

	for i := range c.Messages {
		g.writeMessage(w, &c.Messages[i])
	}
	fmt.Fprintln(w)
}

func (g *TextGenerator) writeMessage(w *bufio.Writer, m *models.Message) {
	header := m.Role.Label()
	if ts := g.opts.timestamp(m.CreatedAt); ts != "" {
		header += " · " + ts
	}
	if m.BranchCount > 1 {
		header += fmt.Sprintf(" (branch %d/%d)", m.BranchIndex+1, m.BranchCount)
	}
	fmt.Fprintf(w, "--- %s ---\n", header)

	for _, p := range m.Parts {
		if s := partText(p); s != "" {
			fmt.Fprintln(w, s)
		}
	}
	if m.Translation != "" {
		fmt.Fprintf(w, "[translation] %s\n", m.Translation)
	}
	for _, a := range m.Annotations {
		if a.Title != "" {
			fmt.Fprintf(w, "[source] %s <%s>\n", a.Title, a.URL)
		} else {
			fmt.Fprintf(w, "[source] %s\n", a.URL)
		}
	}
	fmt.Fprintln(w)
}

// partText renders one part as plain text, using bracketed placeholders
// for parts without text.
func partText(p models.Part) string {
	switch v := p.(type) {
	case *models.TextPart:
		return markup.Plain(v.Text)
	case *models.ReasoningPart:
		if strings.TrimSpace(v.Text) == "" {
			return ""
		}
		return "[reasoning]\n" + markup.Plain(v.Text) + "\n[/reasoning]"
	case *models.ToolPart:
		var sb strings.Builder
		sb.WriteString("[tool call: " + toolLabel(v.Name) + "]")
		if len(v.Input) > 0 {
			sb.WriteString(" " + string(v.Input))
		}
		for _, o := range v.Output {
			if s := partText(o); s != "" {
				sb.WriteString("\n")
				sb.WriteString(indentLines(s, "  "))
			}
		}
		return sb.String()
	case *models.ImagePart:
		return "[image: " + v.URL + "]"
	case *models.DocumentPart:
		name := v.FileName
		if name == "" {
			name = v.URL
		}
		if v.Mime != "" {
			return "[document: " + name + " (" + v.Mime + ")]"
		}
		return "[document: " + name + "]"
	case *models.MediaPart:
		return "[" + string(v.Kind) + ": " + v.URL + "]"
	case *models.UnknownPart:
		return "[unsupported part: " + unknownLabel(v) + "]"
	}
	return ""
}

func unknownLabel(p *models.UnknownPart) string {
	if p.OriginalType != "" {
		return p.OriginalType
	}
	return "unknown"
}

func indentLines(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
