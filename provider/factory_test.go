package provider

import (
	"testing"
)

func TestMapProviderIDToType(t *testing.T) {
	tests := []struct {
		id   string
		want ProviderType
	}{
		{"relay", ProviderTypeRelay},
		{"ollama", ProviderTypeOllama},
		{"openrouter", ProviderTypeOpenRouter},
		{"openai", ProviderTypeOpenAI},
		{"anthropic", ProviderTypeAnthropic},
		{"something-else", ProviderType("something-else")},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := MapProviderIDToType(tt.id); got != tt.want {
				t.Errorf("MapProviderIDToType(%q): got %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestNewProviderUnknownType(t *testing.T) {
	_, err := NewProvider(Config{Type: ProviderType("fax-machine")})
	if err == nil {
		t.Fatal("expected error for unknown provider type")
	}
}

func TestNewProviderRelay(t *testing.T) {
	p, err := NewProvider(Config{
		Type:    ProviderTypeRelay,
		BaseURL: "http://localhost:8080",
		Model:   "llama3.1:latest",
	})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.GetModel() != "llama3.1:latest" {
		t.Errorf("model: got %q", p.GetModel())
	}
}

func TestNewProviderRelayInvalidURL(t *testing.T) {
	_, err := NewProvider(Config{
		Type:    ProviderTypeRelay,
		BaseURL: "ftp://nope",
	})
	if err == nil {
		t.Fatal("expected error for invalid relay URL")
	}
}
