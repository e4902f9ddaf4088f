package provider

import (
	"fmt"

	"aster/model"
)

// NewProvider creates a provider based on configuration.
//
// This is the centralized factory for creating any provider type. It
// dispatches to the appropriate constructor based on Config.Type.
//
// Returns an error if the provider type is unknown or the provider-specific
// constructor fails (e.g., invalid URL, missing API key).
func NewProvider(cfg Config) (model.Provider, error) {
	switch cfg.Type {
	case ProviderTypeRelay:
		return NewRelayProvider(cfg.BaseURL, cfg.Model)
	case ProviderTypeOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model)
	case ProviderTypeOpenRouter:
		return NewOpenRouterProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case ProviderTypeOpenAI:
		return NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case ProviderTypeAnthropic:
		return NewAnthropicProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// MapProviderIDToType converts a config provider ID to a factory ProviderType.
//
// For unknown IDs, returns the ID cast as ProviderType (factory will error).
func MapProviderIDToType(id string) ProviderType {
	switch id {
	case "relay":
		return ProviderTypeRelay
	case "ollama":
		return ProviderTypeOllama
	case "openrouter":
		return ProviderTypeOpenRouter
	case "openai":
		return ProviderTypeOpenAI
	case "anthropic":
		return ProviderTypeAnthropic
	default:
		// Fallback: pass ID as-is (factory will return error)
		return ProviderType(id)
	}
}
