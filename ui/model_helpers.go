package ui

import (
	"strings"

	"aster/backend"
	"aster/ollama"
)

// IsCurrentModel checks if a model matches the current model name.
// Handles the difference between display names and internal names across
// providers.
//
// For Ollama: Name == InternalName (e.g., "llama3.2:latest")
// For OpenRouter/others: Name is stripped, InternalName has full path
//   - Name: "llama-3.1-8b:free"
//   - InternalName: "meta-llama/llama-3.1-8b:free"
func IsCurrentModel(model backend.ModelInfo, currentModel string) bool {
	if model.InternalName == currentModel {
		return true
	}
	if model.Name == currentModel {
		return true
	}
	return false
}

// FindModelByName finds a model in a list by matching against the current
// model name. Returns the index and model info, or -1 and nil if not found.
func FindModelByName(models []backend.ModelInfo, modelName string) (int, *backend.ModelInfo) {
	for i, model := range models {
		if IsCurrentModel(model, modelName) {
			return i, &model
		}
	}
	return -1, nil
}

// ModelSupportsTools checks if a model supports tool calling. Provider-aware
// so the [🔧] indicator is consistent across the whole model list.
func ModelSupportsTools(model backend.ModelInfo) bool {
	switch model.Provider {
	case "ollama":
		return ollama.ModelSupportsToolCalling(model.Name)

	case "anthropic":
		// All Claude models support tools natively
		return true

	case "openai":
		modelLower := strings.ToLower(model.InternalName)

		toolSupportedPrefixes := []string{
			"gpt-4",
			"gpt-3.5-turbo",
		}

		for _, prefix := range toolSupportedPrefixes {
			if strings.HasPrefix(modelLower, prefix) {
				return true
			}
		}
		return false

	case "openrouter":
		modelLower := strings.ToLower(model.InternalName)

		// Models known NOT to support tools well
		noToolSupport := []string{
			"meta-llama/llama-3.2-1b",
			"meta-llama/llama-3.2-3b",
		}

		for _, prefix := range noToolSupport {
			if strings.Contains(modelLower, prefix) {
				return false
			}
		}

		return true

	case "relay":
		// The relay decides server-side which models get tools; assume yes so
		// the indicator does not hide capability the backend would accept
		return true

	default:
		return false
	}
}
