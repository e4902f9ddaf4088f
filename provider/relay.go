package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"aster/backend"
	"aster/config"
	"aster/model"
	"aster/tools"
)

// RelayProvider implements the Provider interface against the relay backend.
//
// The relay streams responses as newline-delimited JSON chunks; this provider
// pulls events off the backend.Stream and translates them into the
// provider-agnostic StreamCallback.
type RelayProvider struct {
	client       *backend.Client
	conversation string
}

// NewRelayProvider creates a new relay provider instance.
//
// baseURL is the relay service URL (e.g., "http://localhost:8080"). model is
// the model the relay should route to; both may be empty and set later.
func NewRelayProvider(baseURL, model string) (*RelayProvider, error) {
	client, err := backend.NewClient(baseURL, model)
	if err != nil {
		return nil, fmt.Errorf("failed to create relay client: %w", err)
	}

	return &RelayProvider{
		client: client,
	}, nil
}

// SetConversation pins the relay conversation ID used for subsequent chats.
// Every request carries a non-empty conversation ID; an unset one is
// generated on first use.
func (p *RelayProvider) SetConversation(id string) {
	p.conversation = id
}

func (p *RelayProvider) conversationID() string {
	if p.conversation == "" {
		p.conversation = uuid.New().String()
	}
	return p.conversation
}

// Chat implements Provider.Chat by delegating to ChatWithTools with no tools.
func (p *RelayProvider) Chat(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
	return p.ChatWithTools(ctx, messages, nil, callback)
}

// ChatWithTools implements Provider.ChatWithTools by consuming the relay's
// chunk stream. Text deltas are forwarded as they arrive; a tool_call chunk
// is surfaced through the callback and ends the turn.
func (p *RelayProvider) ChatWithTools(ctx context.Context, messages []model.Message, mcpTools []mcptypes.Tool, callback model.StreamCallback) error {
	relayMsgs := convertToRelayMessages(messages)
	relayTools := tools.ConvertToRelayDefs(mcpTools)

	var stream *backend.Stream
	var err error
	if result, rest, ok := splitTrailingToolResult(messages); ok {
		// Resume the paused turn, answering the tool call by its id
		stream, err = p.client.ContinueWithToolResult(ctx, p.conversationID(), relayMsgs[:len(rest)], relayTools, result)
	} else {
		stream, err = p.client.Chat(ctx, backend.ChatRequest{
			Conversation: p.conversationID(),
			Messages:     relayMsgs,
			Tools:        relayTools,
		})
	}
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		event, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch event.Kind {
		case backend.EventDelta:
			if callback != nil && event.Delta != "" {
				if err := callback(event.Delta, nil); err != nil {
					return err
				}
			}

		case backend.EventToolCall:
			if callback != nil && event.ToolCall != nil {
				call := model.ToolCall{
					ID:        event.ToolCall.ID,
					Name:      event.ToolCall.Name,
					Arguments: event.ToolCall.Arguments,
				}
				if err := callback("", []model.ToolCall{call}); err != nil {
					return err
				}
			}

		case backend.EventDone:
			if config.Debug && config.DebugLog != nil && event.Reason != "" {
				config.DebugLog.Printf("[Relay] Stream done: %s", event.Reason)
			}

		case backend.EventError:
			return fmt.Errorf("relay error: %s", event.Message)
		}
	}

	if dropped := stream.Dropped(); dropped > 0 && config.DebugLog != nil {
		config.DebugLog.Printf("[Relay] Skipped %d malformed stream lines", dropped)
	}

	return nil
}

// ListModels implements Provider.ListModels (direct passthrough).
func (p *RelayProvider) ListModels(ctx context.Context) ([]backend.ModelInfo, error) {
	return p.client.ListModels(ctx)
}

// GetModel implements Provider.GetModel (direct passthrough).
func (p *RelayProvider) GetModel() string {
	return p.client.GetModel()
}

// GetDisplayName implements Provider.GetDisplayName.
// The relay exposes plain model names, so display and API names match.
func (p *RelayProvider) GetDisplayName() string {
	return p.client.GetModel()
}

// SetModel implements Provider.SetModel (direct passthrough).
func (p *RelayProvider) SetModel(model string) {
	p.client.SetModel(model)
}

// Ping implements Provider.Ping (direct passthrough).
func (p *RelayProvider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// convertToRelayMessages converts model messages to the relay wire format
func convertToRelayMessages(messages []model.Message) []backend.Message {
	result := make([]backend.Message, len(messages))
	for i, msg := range messages {
		result[i] = backend.Message{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
	}
	return result
}

// splitTrailingToolResult detects a turn continuation: the conversation ends
// with exactly one tool-role message carrying a correlation id. The result is
// lifted out of the message list so it rides the dedicated wire field.
func splitTrailingToolResult(messages []model.Message) (backend.ToolResult, []model.Message, bool) {
	n := len(messages)
	if n == 0 {
		return backend.ToolResult{}, nil, false
	}
	last := messages[n-1]
	if last.Role != "tool" || last.ToolCallID == "" {
		return backend.ToolResult{}, nil, false
	}
	if n > 1 && messages[n-2].Role == "tool" {
		// Batched results stay inline as tool messages
		return backend.ToolResult{}, nil, false
	}

	result := backend.ToolResult{
		ID:      last.ToolCallID,
		Content: last.Content,
	}
	if rest, ok := strings.CutPrefix(last.Content, "Error: "); ok {
		result.Content = rest
		result.IsError = true
	}
	return result, messages[:n-1], true
}
