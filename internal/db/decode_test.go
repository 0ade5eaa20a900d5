package db

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/rikkaview/internal/models"
)

func TestDecodePart(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want models.Part
	}{
		{"qualified text", `{"type":"me.rerere.ai.ui.UIMessagePart.Text","text":"hi"}`, &models.TextPart{Text: "hi"}},
		{"short text", `{"type":"text","text":"hi"}`, &models.TextPart{Text: "hi"}},
		{"untagged text", `{"text":"hi"}`, &models.TextPart{Text: "hi"}},
		{"untagged reasoning", `{"reasoning":"hmm","text":"ignored"}`, &models.ReasoningPart{Text: "hmm"}},
		{"untagged image", `{"url":"file:///a.png"}`, &models.ImagePart{URL: "file:///a.png"}},
		{"untagged document", `{"url":"file:///a.pdf","fileName":"a.pdf","mime":"application/pdf"}`,
			&models.DocumentPart{URL: "file:///a.pdf", FileName: "a.pdf", Mime: "application/pdf"}},
		{"video", `{"type":"me.rerere.ai.ui.UIMessagePart.Video","url":"v.mp4"}`, &models.MediaPart{Kind: models.PartVideo, URL: "v.mp4"}},
		{"audio", `{"type":"Audio","url":"a.mp3"}`, &models.MediaPart{Kind: models.PartAudio, URL: "a.mp3"}},
		{"untagged tool", `{"toolCallId":"c","toolName":"calc","input":"not json"}`,
			&models.ToolPart{CallID: "c", Name: "calc", Input: json.RawMessage(`"not json"`)}},
		{"unknown tag", `{"type":"me.rerere.ai.ui.UIMessagePart.Search","q":1}`,
			&models.UnknownPart{OriginalType: "me.rerere.ai.ui.UIMessagePart.Search", Raw: json.RawMessage(`{"type":"me.rerere.ai.ui.UIMessagePart.Search","q":1}`)}},
		{"legacy tool call", `{"type":"me.rerere.ai.ui.UIMessagePart.ToolCall","toolCallId":"c1","toolName":"search_web","input":"{\"q\":\"go\"}"}`,
			&models.ToolPart{CallID: "c1", Name: "search_web", Input: json.RawMessage(`{"q":"go"}`)}},
		{"legacy tool result", `{"type":"me.rerere.ai.ui.UIMessagePart.ToolResult","toolCallId":"c1","toolName":"search_web","output":"done"}`,
			&models.ToolPart{CallID: "c1", Name: "search_web", Output: []models.Part{&models.TextPart{Text: "done"}}}},
		{"unrecognized tag with tool fields", `{"type":"ToolInvocation","toolCallId":"c2","toolName":"calc"}`,
			&models.ToolPart{CallID: "c2", Name: "calc"}},
		{"unknown tag with text stays unknown", `{"type":"me.rerere.ai.ui.UIMessagePart.Hologram","text":"hi"}`,
			&models.UnknownPart{OriginalType: "me.rerere.ai.ui.UIMessagePart.Hologram", Raw: json.RawMessage(`{"type":"me.rerere.ai.ui.UIMessagePart.Hologram","text":"hi"}`)}},
		{"unknown shape", `{"foo":"bar"}`, &models.UnknownPart{Raw: json.RawMessage(`{"foo":"bar"}`)}},
		{"empty untagged text dropped", `{"text":""}`, nil},
		{"empty tagged text kept", `{"type":"text","text":""}`, &models.TextPart{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePart(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodePart_NotAnObject(t *testing.T) {
	for _, raw := range []string{`"str"`, `[1,2]`, `null`, `42`} {
		_, err := DecodePart(json.RawMessage(raw))
		assert.Error(t, err, raw)
	}
}

func TestDecodePart_ToolOutputs(t *testing.T) {
	raw := `{"type":"tool","toolCallId":"c1","toolName":"search","input":{"q":"go"},
		"output":[{"type":"text","text":"result"},{"weird":true},5]}`

	p, err := DecodePart(json.RawMessage(raw))
	require.NoError(t, err)
	tool := p.(*models.ToolPart)

	assert.JSONEq(t, `{"q":"go"}`, string(tool.Input))
	require.Len(t, tool.Output, 3)
	assert.Equal(t, &models.TextPart{Text: "result"}, tool.Output[0])
	assert.Equal(t, models.PartUnknown, tool.Output[1].Type())
	assert.Equal(t, models.PartUnknown, tool.Output[2].Type())
}

func TestNodeDecode_MessageFields(t *testing.T) {
	blob := `[{"id":"m1","role":"ASSISTANT","createdAt":"2025-03-15T10:20:30.5","finishedAt":1742034040000,
		"modelId":"gpt","translation":"bonjour",
		"annotations":[{"type":"url_citation","title":"Go","url":"https://go.dev"},{"type":"other","url":"x"},{"title":"no url"}],
		"usage":{"prompt_tokens":10,"completionTokens":5,"totalTokens":15},
		"parts":[{"type":"text","text":"hi"}]}]`

	var reported []*RowDecodeError
	msg, ok := node{conversationID: "c", index: 3, blob: []byte(blob)}.decode(func(e *RowDecodeError) {
		reported = append(reported, e)
	})
	require.True(t, ok)
	assert.Empty(t, reported)

	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, models.RoleAssistant, msg.Role)
	assert.Equal(t, "2025-03-15 10:20:30", models.FormatTimestamp(msg.CreatedAt))
	require.NotNil(t, msg.FinishedAt)
	assert.Equal(t, "2025-03-15 10:20:40", models.FormatTimestamp(*msg.FinishedAt))
	assert.Equal(t, "gpt", msg.ModelID)
	assert.Equal(t, "bonjour", msg.Translation)
	assert.Equal(t, []models.Annotation{{Title: "Go", URL: "https://go.dev"}}, msg.Annotations)
	assert.Equal(t, &models.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, msg.Usage)
	assert.Equal(t, 3, msg.NodeIndex)
	assert.Equal(t, 1, msg.BranchCount)
}

func TestNodeDecode_NaiveTimestampsUseLocation(t *testing.T) {
	shanghai := time.FixedZone("UTC+8", 8*60*60)
	blob := `[{"role":"user","createdAt":"2025-03-15T10:20:30.123456",
		"parts":[{"type":"reasoning","reasoning":"hmm","createdAt":"2025-03-15T10:20:31","finishedAt":"2025-03-15T10:20:41Z"}]}]`

	msg, ok := node{conversationID: "c", blob: []byte(blob), loc: shanghai}.decode(func(*RowDecodeError) {})
	require.True(t, ok)

	assert.Equal(t, time.Date(2025, 3, 15, 2, 20, 30, 123456000, time.UTC), msg.CreatedAt)
	assert.Equal(t, "2025-03-15 10:20:30", models.FormatTimestamp(msg.CreatedAt.In(shanghai)))

	require.Len(t, msg.Parts, 1)
	r := msg.Parts[0].(*models.ReasoningPart)
	require.NotNil(t, r.CreatedAt)
	assert.Equal(t, time.Date(2025, 3, 15, 2, 20, 31, 0, time.UTC), *r.CreatedAt)
	require.NotNil(t, r.FinishedAt)
	assert.Equal(t, time.Date(2025, 3, 15, 10, 20, 41, 0, time.UTC), *r.FinishedAt)
}

func TestNodeDecode_SelectIndexOutOfRange(t *testing.T) {
	blob := `[{"id":"a","role":"user"},{"id":"b","role":"user"}]`
	msg, ok := node{conversationID: "c", selectIndex: 7, blob: []byte(blob)}.decode(func(*RowDecodeError) {})
	require.True(t, ok)
	assert.Equal(t, "a", msg.ID)
	assert.Equal(t, 0, msg.BranchIndex)
	assert.Equal(t, 2, msg.BranchCount)
	assert.Empty(t, msg.Parts)
}

func TestRowDecodeError_Is(t *testing.T) {
	var err error = &RowDecodeError{Table: "message_node", ConversationID: "c", NodeIndex: 2, Err: errNotObject}
	assert.ErrorIs(t, err, ErrRowDecode)
	assert.ErrorIs(t, err, errNotObject)
	assert.Contains(t, err.Error(), "conversation c, node 2")
}
