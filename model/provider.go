package model

import (
	"context"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"aster/backend"
)

// Provider abstracts chat backends (relay, Ollama, OpenAI, Anthropic)
// using provider-agnostic types from the model layer.
//
// The interface lives in the model package (not provider) to avoid import
// cycles: provider implementations import model, and model can use the
// Provider interface without importing the provider package.
type Provider interface {
	// Chat sends messages and streams responses back via callback.
	Chat(ctx context.Context, messages []Message, callback StreamCallback) error

	// ChatWithTools sends messages with available tools and streams responses.
	ChatWithTools(ctx context.Context, messages []Message, tools []mcptypes.Tool, callback StreamCallback) error

	// ListModels returns available models for this provider.
	ListModels(ctx context.Context) ([]backend.ModelInfo, error)

	// GetModel returns the currently selected model name (InternalName for API calls).
	GetModel() string

	// GetDisplayName returns the model name formatted for UI display.
	GetDisplayName() string

	// SetModel changes the active model.
	SetModel(model string)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}

// StreamCallback is called for each chunk of streamed response.
type StreamCallback func(chunk string, toolCalls []ToolCall) error
