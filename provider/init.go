package provider

import (
	"aster/config"
	"aster/model"
)

// InitializeProviders creates ALL provider instances for the application.
//
// This is the single entry point for provider initialization. It handles:
//   - Creating the relay provider (always attempted)
//   - Creating the Ollama provider (if reachable config exists)
//   - Creating enabled cloud providers (OpenAI, OpenRouter, Anthropic)
//   - Loading API keys from the credential store
//   - Graceful degradation (logs warnings but doesn't fail)
//
// The provider package owns the complete provider lifecycle, so all
// initialization logic lives here, not in config or ui packages.
func InitializeProviders(cfg *config.Config) map[string]model.Provider {
	providers := make(map[string]model.Provider)

	// Relay first (the default backend)
	relay, err := NewProvider(Config{
		Type:    ProviderTypeRelay,
		BaseURL: cfg.BackendURL(),
		Model:   cfg.Model(),
	})
	if err == nil {
		providers["relay"] = relay
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Provider] Initialized relay provider (%s)", cfg.BackendURL())
		}
	} else if config.DebugLog != nil {
		config.DebugLog.Printf("[Provider] Relay provider initialization failed: %v", err)
	}

	// Ollama next (local, no credentials)
	ollamaProvider, err := NewProvider(Config{
		Type:    ProviderTypeOllama,
		BaseURL: cfg.OllamaHost,
		Model:   cfg.Model(),
	})
	if err == nil {
		providers["ollama"] = ollamaProvider
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Provider] Initialized Ollama provider")
		}
	} else if config.DebugLog != nil {
		config.DebugLog.Printf("[Provider] Ollama provider initialization failed (offline mode): %v", err)
	}

	// Cloud providers from config
	for _, providerCfg := range cfg.Providers {
		if !providerCfg.Enabled {
			continue
		}

		apiKey := ""
		if cfg.CredentialStore != nil {
			apiKey = cfg.CredentialStore.Get(providerCfg.ID)
		}

		providerType := MapProviderIDToType(providerCfg.ID)

		p, err := NewProvider(Config{
			Type:    providerType,
			BaseURL: providerCfg.BaseURL,
			APIKey:  apiKey,
			Model:   "", // Set when a conversation loads
		})

		if err != nil {
			// Log warning but don't fail - allow app to start
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Provider] Warning: failed to initialize provider %s: %v", providerCfg.ID, err)
			}
			continue
		}

		providers[providerCfg.ID] = p
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Provider] Initialized provider: %s (type: %s)", providerCfg.ID, providerType)
		}
	}

	return providers
}
