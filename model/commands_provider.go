package model

import (
	"context"
	"fmt"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"aster/backend"
	"aster/config"
)

// getModelsFromProvider fetches models with caching for remote providers
func (m *Model) getModelsFromProvider(providerID string, providerClient Provider) ([]backend.ModelInfo, error) {
	ctx := context.Background()

	switch providerID {
	case "ollama":
		// Ollama: always fetch fresh (local, fast, free)
		models, err := providerClient.ListModels(ctx)
		if err != nil {
			return nil, err
		}

		for i := range models {
			models[i].Provider = "ollama"
			if models[i].InternalName == "" {
				models[i].InternalName = models[i].Name
			}
		}

		return models, nil

	default:
		// Remote providers: use cache if valid
		if cached, ok := m.ModelCache[providerID]; ok {
			if time.Now().Before(m.CacheExpiry[providerID]) {
				if config.Debug {
					config.DebugLog.Printf("[Model] Using cached models for provider %s", providerID)
				}
				return cached, nil
			}
		}

		models, err := providerClient.ListModels(ctx)
		if err != nil {
			return nil, err
		}

		// Cache for 1 hour
		m.ModelCache[providerID] = models
		m.CacheExpiry[providerID] = time.Now().Add(1 * time.Hour)

		if config.Debug {
			config.DebugLog.Printf("[Model] Fetched and cached %d models for provider %s", len(models), providerID)
		}

		return models, nil
	}
}

// AggregateAllModels fetches and aggregates models from all configured providers
func (m *Model) AggregateAllModels() ([]backend.ModelInfo, error) {
	var allModels []backend.ModelInfo

	for providerID, providerClient := range m.Providers {
		models, err := m.getModelsFromProvider(providerID, providerClient)
		if err != nil {
			// Log but don't fail - allow showing models from other providers
			if config.Debug {
				config.DebugLog.Printf("Warning: failed to fetch models from %s: %v", providerID, err)
			}
			continue
		}
		allModels = append(allModels, models...)
	}

	sort.Slice(allModels, func(i, j int) bool {
		return allModels[i].Name < allModels[j].Name
	})

	return allModels, nil
}

// FetchAllModels retrieves models from all configured providers
// showSelector: whether to auto-show model selector after fetch
func (m *Model) FetchAllModels(showSelector bool) tea.Cmd {
	return func() tea.Msg {
		models, err := m.AggregateAllModels()
		return ModelsListMsg{
			Models:       models,
			Err:          err,
			ShowSelector: showSelector,
		}
	}
}

// ClearModelCache clears the model cache for a specific provider or all providers
func (m *Model) ClearModelCache(providerID string) {
	if providerID == "" {
		m.ModelCache = make(map[string][]backend.ModelInfo)
		m.CacheExpiry = make(map[string]time.Time)
		return
	}

	delete(m.ModelCache, providerID)
	delete(m.CacheExpiry, providerID)
}

// CanSendMessage checks if the current conversation's provider is configured
func (m *Model) CanSendMessage() (bool, string) {
	if m.CurrentConversation == nil {
		return false, "No conversation loaded"
	}

	conversationProvider := m.CurrentConversation.Provider
	if conversationProvider == "" {
		conversationProvider = m.Config.DefaultProvider
	}

	if _, ok := m.Providers[conversationProvider]; !ok {
		return false, fmt.Sprintf(
			"This provider (%s) is not configured. You can view the conversation or switch to a model with an active provider.",
			conversationProvider,
		)
	}

	return true, ""
}

// SwitchModel switches the current conversation to a different model and provider.
// Updates conversation state, switches the active provider instance, and marks
// the conversation dirty for auto-save.
func (m *Model) SwitchModel(modelInfo backend.ModelInfo) tea.Cmd {
	if m.CurrentConversation != nil {
		m.CurrentConversation.Model = modelInfo.InternalName
		m.CurrentConversation.Provider = modelInfo.Provider
		m.ConversationDirty = true
	}

	provider, ok := m.Providers[modelInfo.Provider]
	if !ok {
		// Fallback: use current provider (should not happen in normal operation)
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[Model] WARNING: Provider '%s' not found for model '%s', using fallback",
				modelInfo.Provider, modelInfo.Name)
		}
		m.Provider.SetModel(modelInfo.InternalName)
		return nil
	}

	m.Provider = provider
	provider.SetModel(modelInfo.InternalName)

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[Model] Switched to model '%s' (provider: %s, internal: %s)",
			modelInfo.Name, modelInfo.Provider, modelInfo.InternalName)
	}

	return nil
}

// PingProvider checks reachability of the active provider
func (m *Model) PingProvider() tea.Cmd {
	client := m.Provider
	providerID := m.Config.DefaultProvider
	if m.CurrentConversation != nil && m.CurrentConversation.Provider != "" {
		providerID = m.CurrentConversation.Provider
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return PingResultMsg{
			Provider: providerID,
			Err:      client.Ping(ctx),
		}
	}
}
