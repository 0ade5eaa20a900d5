package models

import (
	"encoding/json"
	"time"
)

// PartType tags the arms of the Part union.
type PartType string

// Part types. PartUnknown is the fallback arm.
const (
	PartText      PartType = "text"
	PartReasoning PartType = "reasoning"
	PartTool      PartType = "tool"
	PartImage     PartType = "image"
	PartDocument  PartType = "document"
	PartVideo     PartType = "video"
	PartAudio     PartType = "audio"
	PartUnknown   PartType = "unknown"
)

// Part is one typed fragment of a message.
// The set of implementations is closed; switch on the concrete type and
// treat *UnknownPart (or a default case) as the opaque fallback.
type Part interface {
	Type() PartType
	isPart()
}

// TextPart is raw markup text.
type TextPart struct {
	Text string
}

// ReasoningPart is a model's thinking segment.
type ReasoningPart struct {
	Text       string
	CreatedAt  *time.Time
	FinishedAt *time.Time
}

// Elapsed returns the thinking duration when both ends are known.
func (p *ReasoningPart) Elapsed() (time.Duration, bool) {
	if p.CreatedAt == nil || p.FinishedAt == nil {
		return 0, false
	}
	d := p.FinishedAt.Sub(*p.CreatedAt)
	if d < 0 {
		return 0, false
	}
	return d, true
}

// ToolPart is a tool invocation together with its result parts.
type ToolPart struct {
	CallID string
	Name   string
	Input  json.RawMessage // always valid JSON, a string when the source was not JSON
	Output []Part
}

// ImagePart references an image; no bytes are carried.
type ImagePart struct {
	URL string
}

// DocumentPart references an attached file.
type DocumentPart struct {
	URL      string
	FileName string
	Mime     string
}

// MediaPart references an audio or video attachment.
type MediaPart struct {
	Kind PartType // PartVideo or PartAudio
	URL  string
}

// UnknownPart preserves a fragment the reader could not classify.
type UnknownPart struct {
	OriginalType string
	Raw          json.RawMessage
}

func (*TextPart) Type() PartType      { return PartText }
func (*ReasoningPart) Type() PartType { return PartReasoning }
func (*ToolPart) Type() PartType      { return PartTool }
func (*ImagePart) Type() PartType     { return PartImage }
func (*DocumentPart) Type() PartType  { return PartDocument }
func (p *MediaPart) Type() PartType   { return p.Kind }
func (*UnknownPart) Type() PartType   { return PartUnknown }

func (*TextPart) isPart()      {}
func (*ReasoningPart) isPart() {}
func (*ToolPart) isPart()      {}
func (*ImagePart) isPart()     {}
func (*DocumentPart) isPart()  {}
func (*MediaPart) isPart()     {}
func (*UnknownPart) isPart()   {}

// PartTextOf returns the markup carried by text-bearing parts, walking
// tool outputs. Other parts contribute nothing.
func PartTextOf(p Part) []string {
	switch v := p.(type) {
	case *TextPart:
		return []string{v.Text}
	case *ReasoningPart:
		return []string{v.Text}
	case *ToolPart:
		var out []string
		for _, o := range v.Output {
			out = append(out, PartTextOf(o)...)
		}
		return out
	}
	return nil
}
