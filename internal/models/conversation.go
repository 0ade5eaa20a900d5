package models

import (
	"strings"
	"time"
)

// UntitledConversation is the title used when a conversation has none.
const UntitledConversation = "(untitled)"

// DefaultAssistantName is used for assistants stored without a name.
const DefaultAssistantName = "Default assistant"

// Assistant is a configured persona that conversations are held with.
// Loaded once from the backup settings and never mutated.
type Assistant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Conversation represents one chat thread from the backup.
type Conversation struct {
	ID          string    `json:"id"`
	AssistantID string    `json:"assistant_id"` // weak reference, resolve via Backup.AssistantName
	Title       string    `json:"title"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Pinned      bool      `json:"pinned"`
	Messages    []Message `json:"messages"`
}

// Role identifies who authored a message.
// Values outside the known set are kept verbatim.
type Role string

// Known roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ParseRole normalizes a stored role string.
func ParseRole(s string) Role {
	s = strings.TrimSpace(s)
	switch r := Role(strings.ToLower(s)); r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return r
	}
	if s == "" {
		return Role("unknown")
	}
	return Role(s)
}

// Known reports whether r is one of the enumerated roles.
func (r Role) Known() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return true
	}
	return false
}

// Label returns a human-readable role name.
func (r Role) Label() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	case RoleTool:
		return "Tool"
	}
	return string(r)
}

// Message is the selected branch of one message node.
type Message struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversation_id"`
	Role           Role         `json:"role"`
	CreatedAt      time.Time    `json:"created_at"`
	FinishedAt     *time.Time   `json:"finished_at,omitempty"`
	ModelID        string       `json:"model_id,omitempty"`
	Parts          []Part       `json:"-"`
	Annotations    []Annotation `json:"annotations,omitempty"`
	Usage          *Usage       `json:"usage,omitempty"`
	Translation    string       `json:"translation,omitempty"`

	// Branch position inside the node.
	NodeIndex   int `json:"node_index"`
	BranchIndex int `json:"branch_index"`
	BranchCount int `json:"branch_count"`
}

// Annotation is a URL citation attached to a message.
type Annotation struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url"`
}

// Usage holds token accounting for a generated message.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Memory is a long-term memory entry an assistant has stored.
type Memory struct {
	ID          int64  `json:"id"`
	AssistantID string `json:"assistant_id"`
	Content     string `json:"content"`
}
