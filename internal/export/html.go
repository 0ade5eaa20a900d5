package export

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html"
	"html/template"
	"io"
	"strings"

	"github.com/raphaelgruber/rikkaview/internal/markup"
	"github.com/raphaelgruber/rikkaview/internal/models"
)

//go:embed assets/page.html.tmpl assets/style.css assets/script.js
var assets embed.FS

const pageTemplate = "page.html.tmpl"

// HTMLGenerator writes one self-contained page with a conversation sidebar.
type HTMLGenerator struct {
	opts   Options
	tmpl   *template.Template
	css    template.CSS
	script template.JS
}

func newHTMLGenerator(opts Options) (*HTMLGenerator, error) {
	tmpl, err := template.ParseFS(assets, "assets/"+pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	css, err := assets.ReadFile("assets/style.css")
	if err != nil {
		return nil, err
	}
	script, err := assets.ReadFile("assets/script.js")
	if err != nil {
		return nil, err
	}
	if opts.Title == "" {
		opts.Title = "RikkaHub conversations"
	}
	return &HTMLGenerator{
		opts:   opts,
		tmpl:   tmpl,
		css:    template.CSS(css),
		script: template.JS(script),
	}, nil
}

type htmlPage struct {
	Title         string
	Generator     string
	MessageCount  int
	Conversations []htmlConversation
	Memories      []htmlMemory
	Index         []indexEntry
	CSS           template.CSS
	Script        template.JS
}

// indexEntry feeds the page script's sidebar search.
type indexEntry struct {
	Anchor    string `json:"anchor"`
	Title     string `json:"title"`
	Assistant string `json:"assistant"`
	Updated   string `json:"updated"`
	Messages  int    `json:"messages"`
}

type htmlConversation struct {
	Anchor    string
	Title     string
	Assistant string
	Created   string
	Updated   string
	Pinned    bool
	Messages  []htmlMessage
}

type htmlMessage struct {
	RoleClass   string
	RoleLabel   string
	Meta        []string
	Parts       []template.HTML
	Translation string
	Citations   []htmlCitation
}

type htmlCitation struct {
	Title string
	URL   string
}

type htmlMemory struct {
	Assistant string
	Content   template.HTML
}

// Generate implements Generator.
func (g *HTMLGenerator) Generate(w io.Writer, b *models.Backup) error {
	page := htmlPage{
		Title:         g.opts.Title,
		Generator:     g.opts.Generator,
		MessageCount:  b.MessageCount(),
		Conversations: make([]htmlConversation, 0, len(b.Conversations)),
		Index:         make([]indexEntry, 0, len(b.Conversations)),
		CSS:           g.css,
		Script:        g.script,
	}

	for i := range b.Conversations {
		c := &b.Conversations[i]
		hc := htmlConversation{
			Anchor:    fmt.Sprintf("conv-%d", i),
			Title:     c.Title,
			Assistant: assistantLabel(b, c),
			Created:   g.opts.timestamp(c.CreatedAt),
			Updated:   g.opts.timestamp(c.UpdatedAt),
			Pinned:    c.Pinned,
			Messages:  make([]htmlMessage, 0, len(c.Messages)),
		}
		for j := range c.Messages {
			hc.Messages = append(hc.Messages, g.message(b, &c.Messages[j]))
		}
		page.Conversations = append(page.Conversations, hc)
		page.Index = append(page.Index, indexEntry{
			Anchor:    hc.Anchor,
			Title:     hc.Title,
			Assistant: hc.Assistant,
			Updated:   hc.Updated,
			Messages:  len(c.Messages),
		})
	}

	for _, m := range b.Memories {
		page.Memories = append(page.Memories, htmlMemory{
			Assistant: b.AssistantName(m.AssistantID),
			Content:   g.markup(m.Content),
		})
	}

	if err := g.tmpl.ExecuteTemplate(w, pageTemplate, page); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

func (g *HTMLGenerator) message(b *models.Backup, m *models.Message) htmlMessage {
	hm := htmlMessage{
		RoleClass:   "other",
		RoleLabel:   m.Role.Label(),
		Translation: m.Translation,
	}
	if m.Role.Known() {
		hm.RoleClass = string(m.Role)
	}

	if ts := g.opts.timestamp(m.CreatedAt); ts != "" {
		hm.Meta = append(hm.Meta, ts)
	}
	if m.BranchCount > 1 {
		hm.Meta = append(hm.Meta, fmt.Sprintf("branch %d/%d", m.BranchIndex+1, m.BranchCount))
	}
	if m.Usage != nil && m.Usage.TotalTokens > 0 {
		hm.Meta = append(hm.Meta, fmt.Sprintf("%d tokens", m.Usage.TotalTokens))
	}

	for _, p := range m.Parts {
		if h := g.part(b, p); h != "" {
			hm.Parts = append(hm.Parts, h)
		}
	}
	for _, a := range m.Annotations {
		title := a.Title
		if title == "" {
			title = a.URL
		}
		hm.Citations = append(hm.Citations, htmlCitation{Title: title, URL: markup.SafeURL(a.URL)})
	}
	return hm
}

func (g *HTMLGenerator) markup(src string) template.HTML {
	doc := markup.Parse(src)
	return template.HTML(markup.HTML(doc, markup.HTMLOptions{HeadingShift: 1, CodeStyle: g.opts.CodeStyle}))
}

// part renders one message part. Text is escaped by the markup renderer,
// every other string goes through html.EscapeString.
func (g *HTMLGenerator) part(b *models.Backup, p models.Part) template.HTML {
	esc := html.EscapeString

	switch v := p.(type) {
	case *models.TextPart:
		if strings.TrimSpace(v.Text) == "" {
			return ""
		}
		return `<div class="part-text">` + g.markup(v.Text) + `</div>`

	case *models.ReasoningPart:
		if strings.TrimSpace(v.Text) == "" {
			return ""
		}
		summary := "Thinking"
		if d, ok := v.Elapsed(); ok {
			summary += fmt.Sprintf(" (%.1fs)", d.Seconds())
		}
		return template.HTML(`<details class="reasoning"><summary>`+esc(summary)+`</summary><div class="reasoning-content">`) +
			g.markup(v.Text) + `</div></details>`

	case *models.ImagePart:
		if src := imageSource(b, v.URL); src != "" {
			return template.HTML(`<div class="part-image"><img src="` + esc(src) + `" alt="image" loading="lazy"></div>`)
		}
		return template.HTML(`<div class="part-image"><span class="file-ref">Image: ` + esc(v.URL) + `</span></div>`)

	case *models.DocumentPart:
		name := v.FileName
		if name == "" {
			name = "document"
		}
		return template.HTML(`<div class="part-file">Document: ` + esc(name) + ` <span class="mime">` + esc(v.Mime) + `</span></div>`)

	case *models.MediaPart:
		label := "Video"
		if v.Kind == models.PartAudio {
			label = "Audio"
		}
		return template.HTML(`<div class="part-file">` + label + `: ` + esc(v.URL) + `</div>`)

	case *models.ToolPart:
		var sb strings.Builder
		sb.WriteString(`<details class="tool-call"><summary>`)
		sb.WriteString(esc(toolLabel(v.Name)))
		sb.WriteString(`</summary><div class="tool-body"><pre class="tool-input">`)
		sb.WriteString(esc(prettyInput(v.Input)))
		sb.WriteString(`</pre>`)
		if len(v.Output) > 0 {
			sb.WriteString(`<div class="tool-output"><strong>Output</strong>`)
			for _, o := range v.Output {
				sb.WriteString(string(g.part(b, o)))
			}
			sb.WriteString(`</div>`)
		}
		sb.WriteString(`</div></details>`)
		return template.HTML(sb.String())

	case *models.UnknownPart:
		return template.HTML(`<div class="part-unknown">Unsupported content: ` + esc(unknownLabel(v)) + `</div>`)
	}
	return ""
}

// imageSource picks an embeddable src for an image reference: inline data,
// an asset carried by the archive, or a remote URL. Local file paths that
// were not embedded yield "".
func imageSource(b *models.Backup, ref string) string {
	lower := strings.ToLower(ref)
	switch {
	case strings.HasPrefix(lower, "data:image/"):
		return ref
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return ref
	}
	if uri, ok := b.Assets[models.AssetKey(ref)]; ok {
		return uri
	}
	return ""
}

// prettyInput indents JSON tool arguments. Strings are shown unquoted.
func prettyInput(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
