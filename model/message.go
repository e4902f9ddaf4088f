package model

import "time"

// Message represents a chat message in the conversation
type Message struct {
	Role       string
	Content    string // Raw content from the provider
	Rendered   string // Cached rendered markdown
	ToolCallID string // Correlates a tool-role message to the call it answers
	Timestamp  time.Time
	Persistent bool // System messages that survive loading-message cleanup
}

// ToolCall is a provider-agnostic tool invocation request
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}
