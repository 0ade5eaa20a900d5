package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/raphaelgruber/rikkaview/internal/models"
)

// JSONGenerator writes the backup as one indented JSON document. Message
// text is kept as raw markup.
type JSONGenerator struct {
	opts Options
}

type jsonDocument struct {
	Generator     string             `json:"generator,omitempty"`
	Assistants    []models.Assistant `json:"assistants"`
	Conversations []jsonConversation `json:"conversations"`
	Memories      []models.Memory    `json:"memories"`
}

type jsonConversation struct {
	models.Conversation
	Assistant string        `json:"assistant"`
	Messages  []jsonMessage `json:"messages"`
}

type jsonMessage struct {
	models.Message
	Parts []jsonPart `json:"parts"`
}

// jsonPart is the tagged encoding of models.Part. Only the fields of the
// arm named by Type are set.
type jsonPart struct {
	Type models.PartType `json:"type"`

	Text       string     `json:"text,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	URL      string `json:"url,omitempty"`
	FileName string `json:"file_name,omitempty"`
	Mime     string `json:"mime,omitempty"`

	CallID string          `json:"tool_call_id,omitempty"`
	Name   string          `json:"tool_name,omitempty"`
	Input  json.RawMessage `json:"input,omitempty"`
	Output []jsonPart      `json:"output,omitempty"`

	OriginalType string          `json:"original_type,omitempty"`
	Raw          json.RawMessage `json:"raw,omitempty"`
}

// Generate implements Generator.
func (g *JSONGenerator) Generate(w io.Writer, b *models.Backup) error {
	doc := jsonDocument{
		Generator:     g.opts.Generator,
		Assistants:    b.Assistants,
		Conversations: make([]jsonConversation, 0, len(b.Conversations)),
		Memories:      b.Memories,
	}
	if doc.Assistants == nil {
		doc.Assistants = []models.Assistant{}
	}
	if doc.Memories == nil {
		doc.Memories = []models.Memory{}
	}

	for i := range b.Conversations {
		c := &b.Conversations[i]
		jc := jsonConversation{
			Conversation: *c,
			Assistant:    assistantLabel(b, c),
			Messages:     make([]jsonMessage, 0, len(c.Messages)),
		}
		for _, m := range c.Messages {
			jc.Messages = append(jc.Messages, jsonMessage{Message: m, Parts: encodeParts(m.Parts)})
		}
		doc.Conversations = append(doc.Conversations, jc)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func encodeParts(parts []models.Part) []jsonPart {
	out := make([]jsonPart, 0, len(parts))
	for _, p := range parts {
		out = append(out, encodePart(p))
	}
	return out
}

func encodePart(p models.Part) jsonPart {
	jp := jsonPart{Type: p.Type()}
	switch v := p.(type) {
	case *models.TextPart:
		jp.Text = v.Text
	case *models.ReasoningPart:
		jp.Text = v.Text
		jp.CreatedAt = v.CreatedAt
		jp.FinishedAt = v.FinishedAt
	case *models.ImagePart:
		jp.URL = v.URL
	case *models.DocumentPart:
		jp.URL, jp.FileName, jp.Mime = v.URL, v.FileName, v.Mime
	case *models.MediaPart:
		jp.URL = v.URL
	case *models.ToolPart:
		jp.CallID, jp.Name, jp.Input = v.CallID, v.Name, v.Input
		if len(v.Output) > 0 {
			jp.Output = encodeParts(v.Output)
		}
	case *models.UnknownPart:
		jp.OriginalType = v.OriginalType
		jp.Raw = v.Raw
	}
	return jp
}

// ReadJSON parses a document written by JSONGenerator back into a Backup.
func ReadJSON(r io.Reader) (*models.Backup, error) {
	var doc jsonDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode json export: %w", err)
	}

	b := &models.Backup{
		Assistants: doc.Assistants,
		Memories:   doc.Memories,
	}
	for _, jc := range doc.Conversations {
		c := jc.Conversation
		c.Messages = nil
		for _, jm := range jc.Messages {
			m := jm.Message
			m.Parts = decodeParts(jm.Parts)
			c.Messages = append(c.Messages, m)
		}
		b.Conversations = append(b.Conversations, c)
	}
	return b, nil
}

func decodeParts(parts []jsonPart) []models.Part {
	out := make([]models.Part, 0, len(parts))
	for _, jp := range parts {
		out = append(out, decodePart(jp))
	}
	return out
}

func decodePart(jp jsonPart) models.Part {
	switch jp.Type {
	case models.PartText:
		return &models.TextPart{Text: jp.Text}
	case models.PartReasoning:
		return &models.ReasoningPart{Text: jp.Text, CreatedAt: jp.CreatedAt, FinishedAt: jp.FinishedAt}
	case models.PartImage:
		return &models.ImagePart{URL: jp.URL}
	case models.PartDocument:
		return &models.DocumentPart{URL: jp.URL, FileName: jp.FileName, Mime: jp.Mime}
	case models.PartVideo, models.PartAudio:
		return &models.MediaPart{Kind: jp.Type, URL: jp.URL}
	case models.PartTool:
		p := &models.ToolPart{CallID: jp.CallID, Name: jp.Name, Input: jp.Input}
		if len(jp.Output) > 0 {
			p.Output = decodeParts(jp.Output)
		}
		return p
	case models.PartUnknown:
		return &models.UnknownPart{OriginalType: jp.OriginalType, Raw: jp.Raw}
	}
	raw, _ := json.Marshal(jp)
	return &models.UnknownPart{OriginalType: string(jp.Type), Raw: raw}
}
