package markup

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	headingRegex  = regexp.MustCompile(`^ {0,3}(#{1,6})[ \t]+(.+?)[ \t]*$`)
	listItemRegex = regexp.MustCompile(`^([ \t]*)([-*+]|\d{1,9}[.)])[ \t]+(.*)$`)
)

// indentUnit is the column width of one list nesting level.
const indentUnit = 2

// ParseBlocks is the block pass: it splits src into lines and groups
// them into blocks. Inline content is left raw in Block.Raw / Item.Raw.
func ParseBlocks(src string) []Block {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	src = strings.ReplaceAll(src, "\r", "\n")

	p := &blockParser{}
	for _, line := range strings.Split(src, "\n") {
		p.line(line)
	}
	return p.finish()
}

// blockParser holds the open containers of a single block pass.
type blockParser struct {
	blocks []Block

	para []string

	inCode    bool
	codeLang  string
	codeLines []string

	quote []string

	table [][]Cell

	list       *List
	listStack  []*List
	itemClosed bool
}

func (p *blockParser) line(line string) {
	trimmed := strings.TrimSpace(line)

	// Fenced code swallows everything until the closing fence
	if p.inCode {
		if strings.HasPrefix(trimmed, "```") {
			p.flushCode()
			return
		}
		p.codeLines = append(p.codeLines, line)
		return
	}
	if strings.HasPrefix(trimmed, "```") {
		p.flushAll()
		p.inCode = true
		p.codeLang = strings.TrimSpace(strings.TrimLeft(trimmed, "`"))
		return
	}

	// Blockquote lines accumulate and are parsed recursively
	if strings.HasPrefix(trimmed, ">") {
		if len(p.quote) == 0 {
			p.flushAll()
		}
		inner := strings.TrimPrefix(trimmed, ">")
		inner = strings.TrimPrefix(inner, " ")
		p.quote = append(p.quote, inner)
		return
	}
	p.flushQuote()

	if strings.HasPrefix(trimmed, "|") {
		if len(p.table) == 0 {
			p.flushAll()
		}
		if row, ok := splitRow(trimmed); ok {
			p.table = append(p.table, row)
		}
		return
	}
	p.flushTable()

	if trimmed == "" {
		p.flushParagraph()
		p.itemClosed = true
		return
	}

	if isRule(trimmed) {
		p.flushAll()
		p.blocks = append(p.blocks, Block{Kind: BlockRule})
		return
	}

	if m := headingRegex.FindStringSubmatch(line); m != nil {
		p.flushAll()
		p.blocks = append(p.blocks, Block{Kind: BlockHeading, Level: len(m[1]), Raw: m[2]})
		return
	}

	if m := listItemRegex.FindStringSubmatch(line); m != nil {
		p.flushParagraph()
		p.addItem(indentWidth(m[1])/indentUnit, m[2], strings.TrimSpace(m[3]))
		return
	}

	// Continuation of an open list item
	if p.list != nil && !p.itemClosed {
		top := p.listStack[len(p.listStack)-1]
		last := &top.Items[len(top.Items)-1]
		if last.Raw == "" {
			last.Raw = trimmed
		} else {
			last.Raw += "\n" + trimmed
		}
		return
	}

	p.flushList()
	p.para = append(p.para, trimmed)
}

func (p *blockParser) addItem(level int, marker string, text string) {
	ordered, start := parseMarker(marker)

	if p.list != nil && level == 0 && p.list.Ordered != ordered {
		p.flushList()
	}
	if p.list == nil {
		p.list = &List{Ordered: ordered, Start: start}
		p.listStack = []*List{p.list}
		level = 0
	}

	switch {
	case level >= len(p.listStack):
		// Open exactly one level below the last item
		top := p.listStack[len(p.listStack)-1]
		last := &top.Items[len(top.Items)-1]
		if last.Sub == nil {
			last.Sub = &List{Ordered: ordered, Start: start}
		}
		p.listStack = append(p.listStack, last.Sub)
	default:
		p.listStack = p.listStack[:level+1]
	}

	top := p.listStack[len(p.listStack)-1]
	top.Items = append(top.Items, Item{Raw: text})
	p.itemClosed = false
}

func (p *blockParser) flushParagraph() {
	if len(p.para) == 0 {
		return
	}
	p.blocks = append(p.blocks, Block{Kind: BlockParagraph, Raw: strings.Join(p.para, "\n")})
	p.para = nil
}

func (p *blockParser) flushList() {
	if p.list == nil {
		return
	}
	p.blocks = append(p.blocks, Block{Kind: BlockList, List: p.list})
	p.list = nil
	p.listStack = nil
	p.itemClosed = false
}

func (p *blockParser) flushCode() {
	p.blocks = append(p.blocks, Block{
		Kind: BlockCode,
		Lang: p.codeLang,
		Code: strings.Join(p.codeLines, "\n"),
	})
	p.inCode = false
	p.codeLang = ""
	p.codeLines = nil
}

func (p *blockParser) flushQuote() {
	if len(p.quote) == 0 {
		return
	}
	p.blocks = append(p.blocks, Block{
		Kind:     BlockQuote,
		Children: ParseBlocks(strings.Join(p.quote, "\n")),
	})
	p.quote = nil
}

func (p *blockParser) flushTable() {
	if len(p.table) == 0 {
		return
	}
	p.blocks = append(p.blocks, Block{Kind: BlockTable, Table: &Table{Rows: p.table}})
	p.table = nil
}

func (p *blockParser) flushAll() {
	p.flushParagraph()
	p.flushList()
	p.flushQuote()
	p.flushTable()
}

// finish closes every open container. An unterminated fence runs to the
// end of the input.
func (p *blockParser) finish() []Block {
	if p.inCode {
		p.flushCode()
	}
	p.flushAll()
	return p.blocks
}

// indentWidth measures leading whitespace in columns; tabs count four.
func indentWidth(prefix string) int {
	w := 0
	for _, r := range prefix {
		if r == '\t' {
			w += 4
		} else {
			w++
		}
	}
	return w
}

func parseMarker(marker string) (ordered bool, start int) {
	switch marker {
	case "-", "*", "+":
		return false, 0
	}
	n, err := strconv.Atoi(marker[:len(marker)-1])
	if err != nil {
		return true, 1
	}
	return true, n
}

// isRule matches three or more of the same -, * or _ with optional spaces.
func isRule(trimmed string) bool {
	compact := strings.ReplaceAll(strings.ReplaceAll(trimmed, " ", ""), "\t", "")
	if len(compact) < 3 {
		return false
	}
	c := compact[0]
	if c != '-' && c != '*' && c != '_' {
		return false
	}
	return strings.Count(compact, string(c)) == len(compact)
}

// splitRow splits a |-delimited row. Separator rows report ok=false.
func splitRow(trimmed string) ([]Cell, bool) {
	parts := strings.Split(trimmed, "|")
	if len(parts) > 0 && strings.TrimSpace(parts[0]) == "" {
		parts = parts[1:]
	}
	if len(parts) > 0 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}

	separator := len(parts) > 0
	cells := make([]Cell, 0, len(parts))
	for _, part := range parts {
		cell := strings.TrimSpace(part)
		if strings.Trim(cell, "-: ") != "" || !strings.Contains(cell, "-") {
			separator = false
		}
		cells = append(cells, Cell{Raw: cell})
	}
	if separator {
		return nil, false
	}
	return cells, true
}
