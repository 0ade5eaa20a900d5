package markup

import (
	"fmt"
	"html"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// HTMLOptions controls HTML leaf rendering.
type HTMLOptions struct {
	// HeadingShift is added to heading levels (capped at h6).
	HeadingShift int

	// CodeStyle names a chroma style for fenced code with a known
	// language. Empty disables highlighting.
	CodeStyle string
}

// HTML renders doc to an HTML fragment. All text is escaped.
func HTML(doc Document, opts HTMLOptions) string {
	var sb strings.Builder
	writeBlocks(&sb, doc.Blocks, opts)
	return sb.String()
}

// InlineHTML renders a span sequence without any block wrapper.
func InlineHTML(inlines []Inline) string {
	var sb strings.Builder
	writeInlines(&sb, inlines)
	return sb.String()
}

func writeBlocks(sb *strings.Builder, blocks []Block, opts HTMLOptions) {
	for i, b := range blocks {
		if i > 0 {
			sb.WriteByte('\n')
		}
		switch b.Kind {
		case BlockParagraph:
			sb.WriteString("<p>")
			writeInlines(sb, b.Inlines)
			sb.WriteString("</p>")
		case BlockHeading:
			level := min(b.Level+opts.HeadingShift, 6)
			fmt.Fprintf(sb, "<h%d>", level)
			writeInlines(sb, b.Inlines)
			fmt.Fprintf(sb, "</h%d>", level)
		case BlockList:
			writeList(sb, b.List)
		case BlockCode:
			writeCode(sb, b.Lang, b.Code, opts.CodeStyle)
		case BlockQuote:
			sb.WriteString("<blockquote>")
			writeBlocks(sb, b.Children, opts)
			sb.WriteString("</blockquote>")
		case BlockRule:
			sb.WriteString("<hr>")
		case BlockTable:
			writeTable(sb, b.Table)
		}
	}
}

func writeList(sb *strings.Builder, l *List) {
	if l == nil {
		return
	}
	if l.Ordered {
		if l.Start > 1 {
			fmt.Fprintf(sb, `<ol start="%d">`, l.Start)
		} else {
			sb.WriteString("<ol>")
		}
	} else {
		sb.WriteString("<ul>")
	}
	for _, item := range l.Items {
		sb.WriteString("<li>")
		writeInlines(sb, item.Inlines)
		writeList(sb, item.Sub)
		sb.WriteString("</li>")
	}
	if l.Ordered {
		sb.WriteString("</ol>")
	} else {
		sb.WriteString("</ul>")
	}
}

func writeTable(sb *strings.Builder, t *Table) {
	if t == nil || len(t.Rows) == 0 {
		return
	}
	sb.WriteString(`<div class="md-table-wrap"><table>`)
	for i, row := range t.Rows {
		tag := "td"
		if i == 0 {
			tag = "th"
			sb.WriteString("<thead>")
		} else if i == 1 {
			sb.WriteString("<tbody>")
		}
		sb.WriteString("<tr>")
		for _, c := range row {
			fmt.Fprintf(sb, "<%s>", tag)
			writeInlines(sb, c.Inlines)
			fmt.Fprintf(sb, "</%s>", tag)
		}
		sb.WriteString("</tr>")
		if i == 0 {
			sb.WriteString("</thead>")
		}
	}
	if len(t.Rows) > 1 {
		sb.WriteString("</tbody>")
	}
	sb.WriteString("</table></div>")
}

// writeCode emits a fenced block verbatim, highlighted with chroma when
// the language is known and a style is configured.
func writeCode(sb *strings.Builder, lang, code, style string) {
	if style != "" && lang != "" {
		if highlighted, ok := highlight(code, lang, style); ok {
			fmt.Fprintf(sb, `<div class="code-block" data-lang="%s">%s</div>`, html.EscapeString(lang), highlighted)
			return
		}
	}
	if lang != "" {
		fmt.Fprintf(sb, `<pre><code class="language-%s">`, html.EscapeString(lang))
	} else {
		sb.WriteString("<pre><code>")
	}
	sb.WriteString(html.EscapeString(code))
	sb.WriteString("</code></pre>")
}

// highlight renders code with inline styles so the output needs no
// stylesheet.
func highlight(code, lang, styleName string) (string, bool) {
	lexer := lexers.Get(lang)
	if lexer == nil {
		return "", false
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get(styleName)
	if style == nil {
		style = styles.Fallback
	}

	formatter := chromahtml.New(chromahtml.WithClasses(false), chromahtml.TabWidth(4))

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", false
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return "", false
	}
	return buf.String(), true
}

func writeInlines(sb *strings.Builder, inlines []Inline) {
	for _, n := range inlines {
		switch n.Kind {
		case InlineText:
			sb.WriteString(html.EscapeString(n.Text))
		case InlineStrong:
			sb.WriteString("<strong>")
			writeInlines(sb, n.Children)
			sb.WriteString("</strong>")
		case InlineEmphasis:
			sb.WriteString("<em>")
			writeInlines(sb, n.Children)
			sb.WriteString("</em>")
		case InlineStrike:
			sb.WriteString("<del>")
			writeInlines(sb, n.Children)
			sb.WriteString("</del>")
		case InlineCode:
			sb.WriteString("<code>")
			sb.WriteString(html.EscapeString(n.Text))
			sb.WriteString("</code>")
		case InlineLink:
			fmt.Fprintf(sb, `<a href="%s" target="_blank" rel="noopener noreferrer">`, html.EscapeString(SafeURL(n.URL)))
			writeInlines(sb, n.Children)
			sb.WriteString("</a>")
		case InlineImage:
			fmt.Fprintf(sb, `<img src="%s" alt="%s" loading="lazy">`, html.EscapeString(SafeURL(n.URL)), html.EscapeString(n.Text))
		case InlineBreak:
			sb.WriteString("<br>")
		}
	}
}

// SafeURL returns u when its scheme is safe to embed, otherwise "#".
// Relative references pass through; data: is allowed for images only.
func SafeURL(u string) string {
	u = strings.TrimSpace(u)
	lower := strings.ToLower(u)
	colon := strings.IndexByte(lower, ':')
	if colon < 0 || strings.ContainsAny(lower[:colon], "/?#") {
		return u
	}
	switch scheme := lower[:colon]; scheme {
	case "http", "https", "mailto":
		return u
	case "data":
		if strings.HasPrefix(lower, "data:image/") {
			return u
		}
	}
	return "#"
}
