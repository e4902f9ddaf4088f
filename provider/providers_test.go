package provider

import (
	"testing"

	"aster/model"
)

// Compile-time checks that every provider implements the Provider interface.
func TestProvidersImplementInterface(t *testing.T) {
	var _ model.Provider = (*RelayProvider)(nil)
	var _ model.Provider = (*OllamaProvider)(nil)
	var _ model.Provider = (*OpenAIProvider)(nil)
	var _ model.Provider = (*OpenRouterProvider)(nil)
	var _ model.Provider = (*AnthropicProvider)(nil)
}
