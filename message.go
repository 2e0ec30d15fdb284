package traject

import "log/slog"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of the conversation state. An ordered sequence of
// messages is the observation handed to the policy on every step.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func (m Message) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("role", string(m.Role)),
		slog.String("content", m.Content),
	)
}

// SystemMessage creates a system role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage creates a user role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func assistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

func toolMessage(content string) Message {
	return Message{Role: RoleTool, Content: content}
}

// cloneMessages copies the conversation so a recorded observation is not
// aliased by later appends.
func cloneMessages(msgs []Message) []Message {
	return append([]Message(nil), msgs...)
}
