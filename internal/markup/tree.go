package markup

// BlockKind identifies the structural type of a Block.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockList
	BlockCode
	BlockQuote
	BlockRule
	BlockTable
)

// Block is one structural unit of a document.
type Block struct {
	Kind BlockKind

	// Heading level, 1-6.
	Level int

	// Raw holds the accumulated source text of paragraphs and headings
	// after the block pass; Inlines is filled by the inline pass.
	Raw     string
	Inlines []Inline

	// Fenced code.
	Lang string
	Code string

	// Blockquote content, parsed recursively.
	Children []Block

	List  *List
	Table *Table
}

// List is an ordered or unordered list. Nesting hangs off items.
type List struct {
	Ordered bool
	Start   int
	Items   []Item
}

// Item is a single list entry.
type Item struct {
	Raw     string
	Inlines []Inline
	Sub     *List
}

// Table holds rows of cells; the first row is the header.
type Table struct {
	Rows [][]Cell
}

// Cell is a table cell.
type Cell struct {
	Raw     string
	Inlines []Inline
}

// InlineKind identifies the type of an Inline node.
type InlineKind int

const (
	InlineText InlineKind = iota
	InlineStrong
	InlineEmphasis
	InlineStrike
	InlineCode
	InlineLink
	InlineImage
	InlineBreak
)

// Inline is a span-level node. Text carries literal text for text, code
// and image alt; Children carries nested spans for emphasis and links.
type Inline struct {
	Kind     InlineKind
	Text     string
	URL      string
	Children []Inline
}

// Document is the parsed form of one markup string.
type Document struct {
	Blocks []Block
}
