package provider

import (
	"context"
	"fmt"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"

	"aster/backend"
	"aster/model"
	"aster/ollama"
	"aster/tools"
)

// OllamaProvider wraps the ollama.Client to implement the Provider interface.
//
// The provider handles all type conversions between provider-agnostic types
// and Ollama's API types: model.Message to api.Message, mcptypes.Tool to
// api.Tool, and api.ToolCall back to model.ToolCall.
type OllamaProvider struct {
	client *ollama.Client
}

// NewOllamaProvider creates a new Ollama provider instance.
//
// baseURL defaults to "http://localhost:11434" and model to "llama3.1:latest"
// when empty. Returns an error if the baseURL is invalid.
func NewOllamaProvider(baseURL, model string) (*OllamaProvider, error) {
	client, err := ollama.NewClient(baseURL, model)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}

	return &OllamaProvider{
		client: client,
	}, nil
}

// Chat implements Provider.Chat by delegating to ChatWithTools with no tools.
func (p *OllamaProvider) Chat(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
	return p.ChatWithTools(ctx, messages, nil, callback)
}

// ChatWithTools implements Provider.ChatWithTools with type conversions.
func (p *OllamaProvider) ChatWithTools(ctx context.Context, messages []model.Message, mcpTools []mcptypes.Tool, callback model.StreamCallback) error {
	ollamaMessages := ConvertToOllamaMessages(messages)

	var ollamaTools []api.Tool
	if len(mcpTools) > 0 {
		ollamaTools = tools.ConvertToOllama(mcpTools)
	}

	// Wrap the provider callback to convert Ollama tool calls
	ollamaCallback := func(chunk string, ollamaCalls []api.ToolCall) error {
		if callback == nil {
			return nil
		}

		providerCalls := ConvertToProviderToolCalls(ollamaCalls)
		return callback(chunk, providerCalls)
	}

	return p.client.ChatWithTools(ctx, ollamaMessages, ollamaTools, ollamaCallback)
}

// ListModels implements Provider.ListModels (direct passthrough).
func (p *OllamaProvider) ListModels(ctx context.Context) ([]backend.ModelInfo, error) {
	return p.client.ListModels(ctx)
}

// GetModel implements Provider.GetModel (direct passthrough).
func (p *OllamaProvider) GetModel() string {
	return p.client.GetModel()
}

// GetDisplayName implements Provider.GetDisplayName.
// For Ollama, the display name is the same as the model name.
func (p *OllamaProvider) GetDisplayName() string {
	return p.client.GetModel()
}

// SetModel implements Provider.SetModel (direct passthrough).
func (p *OllamaProvider) SetModel(model string) {
	p.client.SetModel(model)
}

// Ping implements Provider.Ping (direct passthrough).
func (p *OllamaProvider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}
