package provider

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/ollama/ollama/api"

	"aster/model"
)

// ConvertToOllamaMessages converts model.Message to Ollama api.Message.
//
// The Timestamp and Rendered fields are not preserved; the Ollama API has no
// use for them and timestamps are managed above the provider layer.
func ConvertToOllamaMessages(messages []model.Message) []api.Message {
	result := make([]api.Message, len(messages))
	for i, msg := range messages {
		result[i] = api.Message{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}
	return result
}

// ParseToolArguments parses a JSON arguments string into a map.
// Used by the OpenAI and OpenRouter providers for tool call parsing.
func ParseToolArguments(argsJSON string) map[string]any {
	var args map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		// If parsing fails, return empty map
		return make(map[string]any)
	}
	return args
}

// ConvertFromOllamaMessages converts Ollama api.Message to model.Message.
//
// The Timestamp field is left at zero value because Ollama messages carry no
// timestamp; the Rendered field is populated by the UI layer when needed.
func ConvertFromOllamaMessages(messages []api.Message) []model.Message {
	result := make([]model.Message, len(messages))
	for i, msg := range messages {
		result[i] = model.Message{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}
	return result
}

// ConvertToProviderToolCalls converts Ollama api.ToolCall to provider-agnostic
// model.ToolCall.
//
// Ollama tool calls carry no correlation ID, so one is generated here; the
// tool gate needs a stable ID per call to enforce at-most-once execution.
//
// Returns nil if the input is nil or empty, matching the Ollama API's nil
// semantics.
func ConvertToProviderToolCalls(ollamaCalls []api.ToolCall) []model.ToolCall {
	if len(ollamaCalls) == 0 {
		return nil
	}

	result := make([]model.ToolCall, len(ollamaCalls))
	for i, call := range ollamaCalls {
		result[i] = model.ToolCall{
			ID:        uuid.New().String(),
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		}
	}
	return result
}

// ConvertFromProviderToolCalls converts provider-agnostic model.ToolCall to
// Ollama api.ToolCall. Primarily used by tests.
func ConvertFromProviderToolCalls(providerCalls []model.ToolCall) []api.ToolCall {
	if len(providerCalls) == 0 {
		return nil
	}

	result := make([]api.ToolCall, len(providerCalls))
	for i, call := range providerCalls {
		result[i] = api.ToolCall{
			Function: api.ToolCallFunction{
				Name:      call.Name,
				Arguments: call.Arguments,
			},
		}
	}
	return result
}
