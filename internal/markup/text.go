package markup

import (
	"strconv"
	"strings"
)

// Text renders doc as plain text. Blocks are separated by a blank line;
// markup is stripped while list structure and quotes stay readable.
func Text(doc Document) string {
	var sb strings.Builder
	writeTextBlocks(&sb, doc.Blocks)
	return sb.String()
}

// InlinePlain renders a span sequence as plain text.
func InlinePlain(inlines []Inline) string {
	var sb strings.Builder
	writeTextInlines(&sb, inlines)
	return sb.String()
}

func writeTextBlocks(sb *strings.Builder, blocks []Block) {
	for i, b := range blocks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		switch b.Kind {
		case BlockParagraph, BlockHeading:
			writeTextInlines(sb, b.Inlines)
		case BlockList:
			writeTextList(sb, b.List, 0)
		case BlockCode:
			sb.WriteString(b.Code)
		case BlockQuote:
			var inner strings.Builder
			writeTextBlocks(&inner, b.Children)
			for j, line := range strings.Split(inner.String(), "\n") {
				if j > 0 {
					sb.WriteByte('\n')
				}
				sb.WriteString(strings.TrimRight("> "+line, " "))
			}
		case BlockRule:
			sb.WriteString("----")
		case BlockTable:
			writeTextTable(sb, b.Table)
		}
	}
}

func writeTextList(sb *strings.Builder, l *List, depth int) {
	if l == nil {
		return
	}
	indent := strings.Repeat("  ", depth)
	for i, item := range l.Items {
		if i > 0 || depth > 0 {
			sb.WriteByte('\n')
		}
		marker := "- "
		if l.Ordered {
			marker = strconv.Itoa(max(l.Start, 1)+i) + ". "
		}
		sb.WriteString(indent)
		sb.WriteString(marker)

		// Continuation lines align under the item text
		text := InlinePlain(item.Inlines)
		pad := "\n" + indent + strings.Repeat(" ", len(marker))
		sb.WriteString(strings.ReplaceAll(text, "\n", pad))

		writeTextList(sb, item.Sub, depth+1)
	}
}

func writeTextTable(sb *strings.Builder, t *Table) {
	if t == nil {
		return
	}
	for i, row := range t.Rows {
		if i > 0 {
			sb.WriteByte('\n')
		}
		cells := make([]string, len(row))
		for j, c := range row {
			cells[j] = InlinePlain(c.Inlines)
		}
		sb.WriteString(strings.Join(cells, " | "))
	}
}

func writeTextInlines(sb *strings.Builder, inlines []Inline) {
	for _, n := range inlines {
		switch n.Kind {
		case InlineText, InlineCode:
			sb.WriteString(n.Text)
		case InlineStrong, InlineEmphasis, InlineStrike:
			writeTextInlines(sb, n.Children)
		case InlineLink:
			label := InlinePlain(n.Children)
			sb.WriteString(label)
			if label != n.URL {
				sb.WriteString(" (")
				sb.WriteString(n.URL)
				sb.WriteString(")")
			}
		case InlineImage:
			if n.Text == "" {
				sb.WriteString("[image]")
			} else {
				sb.WriteString("[image: ")
				sb.WriteString(n.Text)
				sb.WriteString("]")
			}
		case InlineBreak:
			sb.WriteByte('\n')
		}
	}
}
