// Package provider implements the chat backends behind the model.Provider
// interface.
//
// Aster talks to a relay service by default, and can also talk to Ollama,
// OpenAI, OpenRouter, and Anthropic directly. The provider layer isolates
// each backend's wire types from the core application: the UI and business
// logic only ever see provider-agnostic model types.
//
// # Architecture
//
//   - model.Provider defines the contract (interface)
//   - provider.RelayProvider streams from the relay backend
//   - provider.OllamaProvider wraps the Ollama API client
//   - provider.OpenAIProvider / OpenRouterProvider use the OpenAI SDK
//   - provider.AnthropicProvider uses the Anthropic SDK
//   - provider.NewProvider() factory creates providers from config
//
// # Usage
//
//	cfg := provider.Config{
//	    Type:    provider.ProviderTypeRelay,
//	    BaseURL: "http://localhost:8080",
//	    Model:   "llama3.1",
//	}
//	p, err := provider.NewProvider(cfg)
//	if err != nil {
//	    // handle error
//	}
//	err = p.Chat(ctx, messages, callback)
package provider

// Note: The Provider interface and StreamCallback are defined in the model
// package (model/provider.go) to avoid import cycles. This package implements
// model.Provider.

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeRelay      ProviderType = "relay"
	ProviderTypeOllama     ProviderType = "ollama"
	ProviderTypeOpenRouter ProviderType = "openrouter"
	ProviderTypeOpenAI     ProviderType = "openai"
	ProviderTypeAnthropic  ProviderType = "anthropic"
)

// Config holds provider-specific configuration.
type Config struct {
	Type    ProviderType
	BaseURL string
	Model   string
	APIKey  string // For OpenAI/OpenRouter/Anthropic (unused for relay and Ollama)
}
