// Package markup renders the Markdown-like dialect used in chat messages.
//
// Parsing runs in two pure passes. ParseBlocks classifies lines into
// blocks and leaves their text raw; ParseInline turns raw text into span
// nodes. Parse composes both into a Document, which the HTML and Text
// renderers walk with their own leaf rules, so both outputs always share
// one block structure.
package markup

// Parse runs the block pass followed by the inline pass.
func Parse(src string) Document {
	return Document{Blocks: resolveBlocks(ParseBlocks(src))}
}

// Plain renders src as plain text with markup stripped.
func Plain(src string) string {
	return Text(Parse(src))
}

// resolveBlocks returns a copy of blocks with inline content parsed.
func resolveBlocks(blocks []Block) []Block {
	if blocks == nil {
		return nil
	}
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		switch b.Kind {
		case BlockParagraph, BlockHeading:
			b.Inlines = ParseInline(b.Raw)
		case BlockQuote:
			b.Children = resolveBlocks(b.Children)
		case BlockList:
			b.List = resolveList(b.List)
		case BlockTable:
			b.Table = resolveTable(b.Table)
		}
		out[i] = b
	}
	return out
}

func resolveList(l *List) *List {
	if l == nil {
		return nil
	}
	out := &List{Ordered: l.Ordered, Start: l.Start, Items: make([]Item, len(l.Items))}
	for i, item := range l.Items {
		out.Items[i] = Item{
			Raw:     item.Raw,
			Inlines: ParseInline(item.Raw),
			Sub:     resolveList(item.Sub),
		}
	}
	return out
}

func resolveTable(t *Table) *Table {
	if t == nil {
		return nil
	}
	out := &Table{Rows: make([][]Cell, len(t.Rows))}
	for i, row := range t.Rows {
		cells := make([]Cell, len(row))
		for j, c := range row {
			cells[j] = Cell{Raw: c.Raw, Inlines: ParseInline(c.Raw)}
		}
		out.Rows[i] = cells
	}
	return out
}
