package db

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/raphaelgruber/rikkaview/internal/models"
)

// messageNamespace seeds the name-based ids given to messages stored
// without one.
var messageNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("rikkaview:message"))

// qualifiedPartPrefix is the class prefix the app writes into part type tags.
const qualifiedPartPrefix = "me.rerere.ai.ui.UIMessagePart."

// node is one message_node row awaiting decoding.
type node struct {
	conversationID string
	index          int
	selectIndex    int
	blob           []byte
	// loc is the zone of timestamps stored without an offset; nil is UTC.
	loc *time.Location
}

// decode returns the selected branch as a Message. It reports false when
// the node holds no branches. Recovered problems are passed to report.
func (n node) decode(report func(*RowDecodeError)) (models.Message, bool) {
	fail := func(err error) {
		report(&RowDecodeError{Table: messageNodeTable.name, ConversationID: n.conversationID, NodeIndex: n.index, Err: err})
	}

	if isNull(n.blob) {
		return models.Message{}, false
	}

	var branches []json.RawMessage
	if err := json.Unmarshal(n.blob, &branches); err != nil {
		fail(fmt.Errorf("messages column: %w", err))
		raw, _ := json.Marshal(string(n.blob))
		msg := n.message(models.Role("unknown"))
		msg.Parts = []models.Part{&models.UnknownPart{OriginalType: messageNodeTable.name, Raw: raw}}
		return msg, true
	}
	if len(branches) == 0 {
		return models.Message{}, false
	}

	sel := n.selectIndex
	if sel < 0 || sel >= len(branches) {
		sel = 0
	}

	fields, err := objectFields(branches[sel])
	if err != nil {
		fail(fmt.Errorf("branch %d: %w", sel, err))
		msg := n.message(models.Role("unknown"))
		msg.BranchIndex, msg.BranchCount = sel, len(branches)
		msg.Parts = []models.Part{&models.UnknownPart{Raw: branches[sel]}}
		return msg, true
	}

	msg := n.message(models.ParseRole(stringField(fields, "role")))
	msg.BranchIndex, msg.BranchCount = sel, len(branches)
	if id := stringField(fields, "id"); id != "" {
		msg.ID = id
	}
	if t, ok := timeField(fields, "createdAt", n.loc); ok {
		msg.CreatedAt = t
	}
	if t, ok := timeField(fields, "finishedAt", n.loc); ok {
		msg.FinishedAt = &t
	}
	msg.ModelID = stringField(fields, "modelId")
	msg.Translation = stringField(fields, "translation")
	msg.Annotations = annotations(fields["annotations"])
	msg.Usage = usage(fields["usage"])

	var rawParts []json.RawMessage
	if p, ok := fields["parts"]; ok && !isNull(p) {
		if err := json.Unmarshal(p, &rawParts); err != nil {
			fail(fmt.Errorf("parts: %w", err))
			msg.Parts = []models.Part{&models.UnknownPart{Raw: p}}
			return msg, true
		}
	}
	msg.Parts = decodeParts(rawParts, n.loc, fail)
	return msg, true
}

// message returns the skeleton shared by every decode outcome.
func (n node) message(role models.Role) models.Message {
	return models.Message{
		ID:             fallbackID(n.conversationID, n.index),
		ConversationID: n.conversationID,
		Role:           role,
		NodeIndex:      n.index,
		BranchCount:    1,
	}
}

// fallbackID derives a stable id from the message's position.
func fallbackID(conversationID string, nodeIndex int) string {
	return uuid.NewSHA1(messageNamespace, []byte(conversationID+"/"+strconv.Itoa(nodeIndex))).String()
}

func decodeParts(raws []json.RawMessage, loc *time.Location, fail func(error)) []models.Part {
	parts := make([]models.Part, 0, len(raws))
	for i, raw := range raws {
		p, err := decodePart(raw, loc)
		if err != nil {
			fail(fmt.Errorf("part %d: %w", i, err))
			parts = append(parts, &models.UnknownPart{Raw: raw})
			continue
		}
		if p != nil {
			parts = append(parts, p)
		}
	}
	return parts
}

// DecodePart classifies one stored message part. The type tag may be the
// fully qualified class name or a short name; untagged parts are
// classified by shape. It returns (nil, nil) for an empty untagged text
// part, which carries nothing. Unrecognized parts come back as
// *models.UnknownPart; only a payload that is not a JSON object is an
// error. Timestamps stored without an offset are read as UTC.
func DecodePart(raw json.RawMessage) (models.Part, error) {
	return decodePart(raw, time.UTC)
}

func decodePart(raw json.RawMessage, loc *time.Location) (models.Part, error) {
	fields, err := objectFields(raw)
	if err != nil {
		return nil, err
	}

	tag := stringField(fields, "type")
	kind := partKind(tag, fields)

	switch kind {
	case models.PartText:
		text := stringField(fields, "text")
		if text == "" && tag == "" {
			return nil, nil
		}
		return &models.TextPart{Text: text}, nil

	case models.PartReasoning:
		p := &models.ReasoningPart{Text: stringField(fields, "reasoning")}
		if t, ok := timeField(fields, "createdAt", loc); ok {
			p.CreatedAt = &t
		}
		if t, ok := timeField(fields, "finishedAt", loc); ok {
			p.FinishedAt = &t
		}
		return p, nil

	case models.PartImage:
		return &models.ImagePart{URL: stringField(fields, "url")}, nil

	case models.PartDocument:
		return &models.DocumentPart{
			URL:      stringField(fields, "url"),
			FileName: stringField(fields, "fileName"),
			Mime:     stringField(fields, "mime"),
		}, nil

	case models.PartVideo, models.PartAudio:
		return &models.MediaPart{Kind: kind, URL: stringField(fields, "url")}, nil

	case models.PartTool:
		p := &models.ToolPart{
			CallID: stringField(fields, "toolCallId"),
			Name:   stringField(fields, "toolName"),
			Input:  toolInput(fields["input"]),
		}
		var outputs []json.RawMessage
		if o, ok := fields["output"]; ok && !isNull(o) {
			if err := json.Unmarshal(o, &outputs); err != nil {
				// A scalar output is kept as a single text result
				if s := stringField(fields, "output"); s != "" {
					p.Output = []models.Part{&models.TextPart{Text: s}}
				}
				return p, nil
			}
		}
		for _, o := range outputs {
			sub, err := decodePart(o, loc)
			if err != nil {
				sub = &models.UnknownPart{Raw: o}
			}
			if sub != nil {
				p.Output = append(p.Output, sub)
			}
		}
		return p, nil
	}

	return &models.UnknownPart{OriginalType: tag, Raw: raw}, nil
}

// legacyPartTags maps type tags written by older app versions.
var legacyPartTags = map[string]models.PartType{
	"toolcall":   models.PartTool,
	"toolresult": models.PartTool,
}

// partKind resolves a type tag, falling back to the part's shape when the
// tag is absent. An unrecognized tag is classified by shape only when the
// part carries tool call fields, so unknown content stays unknown.
func partKind(tag string, fields map[string]json.RawMessage) models.PartType {
	has := func(k string) bool { _, ok := fields[k]; return ok }

	if tag != "" {
		short := strings.ToLower(strings.TrimPrefix(tag, qualifiedPartPrefix))
		switch kind := models.PartType(short); kind {
		case models.PartText, models.PartReasoning, models.PartImage, models.PartDocument,
			models.PartVideo, models.PartAudio, models.PartTool:
			return kind
		}
		if kind, ok := legacyPartTags[short]; ok {
			return kind
		}
		if has("toolCallId") || has("toolName") {
			return models.PartTool
		}
		return models.PartUnknown
	}

	switch {
	case has("reasoning"):
		return models.PartReasoning
	case has("toolCallId"), has("toolName"):
		return models.PartTool
	case has("fileName"):
		return models.PartDocument
	case has("url"):
		return models.PartImage
	case has("text"):
		return models.PartText
	}
	return models.PartUnknown
}

// toolInput normalizes a tool's arguments to valid JSON. Stored inputs are
// usually a JSON document encoded as a string.
func toolInput(raw json.RawMessage) json.RawMessage {
	if isNull(raw) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		t := strings.TrimSpace(s)
		if t == "" {
			return nil
		}
		if json.Valid([]byte(t)) {
			return json.RawMessage(t)
		}
		return raw
	}
	if json.Valid(raw) {
		return raw
	}
	return nil
}

func annotations(raw json.RawMessage) []models.Annotation {
	if isNull(raw) {
		return nil
	}
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var out []models.Annotation
	for _, item := range items {
		if t := stringField(item, "type"); t != "" && t != "url_citation" && !strings.HasSuffix(t, ".UrlCitation") {
			continue
		}
		url := stringField(item, "url")
		if url == "" {
			continue
		}
		out = append(out, models.Annotation{Title: stringField(item, "title"), URL: url})
	}
	return out
}

// usage accepts both camelCase and snake_case token counters.
func usage(raw json.RawMessage) *models.Usage {
	if isNull(raw) {
		return nil
	}
	fields, err := objectFields(raw)
	if err != nil {
		return nil
	}
	count := func(keys ...string) int {
		for _, k := range keys {
			if v, ok := fields[k]; ok {
				var f float64
				if json.Unmarshal(v, &f) == nil {
					return int(f)
				}
			}
		}
		return 0
	}
	return &models.Usage{
		PromptTokens:     count("promptTokens", "prompt_tokens"),
		CompletionTokens: count("completionTokens", "completion_tokens"),
		TotalTokens:      count("totalTokens", "total_tokens"),
	}
}

var errNotObject = errors.New("not a JSON object")

func objectFields(raw json.RawMessage) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errNotObject
	}
	return fields, nil
}

// stringField reads a string field, rendering scalars of other types as
// text and returning "" for absent, null or structured values.
func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}
	return ""
}

// timeField reads an ISO-8601 string or epoch-millisecond number. Strings
// without an offset are wall-clock time in loc.
func timeField(fields map[string]json.RawMessage, key string, loc *time.Location) (time.Time, bool) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return time.Time{}, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return models.ParseTimestampIn(s, loc)
	}
	var ms float64
	if err := json.Unmarshal(raw, &ms); err == nil && ms > 0 {
		return models.FromEpochMillis(int64(ms)), true
	}
	return time.Time{}, false
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}
