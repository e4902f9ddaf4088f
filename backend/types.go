// Package backend implements the HTTP client for the aster relay, the thin
// service that fronts the actual model providers. A chat turn is a single
// long-lived request whose response body is a line-oriented stream: every
// line is one JSON object, independently parseable, carrying either a text
// delta, a tool-call request, an end marker, or an error.
package backend

import "errors"

// Sentinel errors for the per-turn failure taxonomy.
var (
	// ErrEmptyMessage is returned before any network call when the user
	// message is empty after trimming whitespace.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrUnreachable means the relay could not be reached at all - no bytes
	// of the response arrived. The turn never started; retry is safe.
	ErrUnreachable = errors.New("relay unreachable")

	// ErrTruncated means the connection dropped mid-stream, after the turn
	// started but before the end marker. Deltas received so far are valid;
	// the caller keeps them and flags the message.
	ErrTruncated = errors.New("stream truncated")

	// ErrProtocol marks a wire-contract violation by the relay, such as a
	// second tool-call request arriving before the first was resolved. The
	// turn is aborted; partial content is kept.
	ErrProtocol = errors.New("protocol violation")
)

// Message is one entry of the conversation as sent to the relay.
type Message struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolDef advertises one client-side tool to the relay. Parameters is a JSON
// Schema object; the relay forwards it verbatim to the model provider.
type ToolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ToolCall is a relay request to run a client-side tool. ID correlates the
// eventual result back to this call.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResult carries the outcome of a tool call back upstream.
type ToolResult struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Conversation string      `json:"conversation"`
	Model        string      `json:"model,omitempty"`
	Messages     []Message   `json:"messages"`
	Tools        []ToolDef   `json:"tools,omitempty"`
	ToolResult   *ToolResult `json:"tool_result,omitempty"`
}

// chunk is the wire shape of a single stream line. Exactly one of Delta,
// ToolCall, Done or Error is meaningful per line.
type chunk struct {
	Delta    string    `json:"delta,omitempty"`
	ToolCall *ToolCall `json:"tool_call,omitempty"`
	Done     bool      `json:"done,omitempty"`
	Reason   string    `json:"done_reason,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// EventKind discriminates the Event union.
type EventKind int

const (
	// EventDelta carries a fragment of assistant text.
	EventDelta EventKind = iota
	// EventToolCall asks the client to run a local tool.
	EventToolCall
	// EventDone is the explicit end marker of a turn.
	EventDone
	// EventError is an in-band error reported by the relay.
	EventError
)

// Event is one parsed stream element. Transient: folded into the message
// being built, never persisted directly.
type Event struct {
	Kind     EventKind
	Delta    string
	ToolCall *ToolCall
	Reason   string
	Message  string // error text when Kind == EventError
}

// ModelInfo describes one model the relay (or a direct provider) can serve.
type ModelInfo struct {
	Name         string `json:"name"`
	Size         int64  `json:"size,omitempty"`
	Provider     string `json:"provider"`
	InternalName string `json:"internal_name,omitempty"`
}
