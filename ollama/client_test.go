package ollama

import (
	"testing"
)

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient("", "")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.GetModel() != "llama3.1:latest" {
		t.Errorf("default model: got %q", c.GetModel())
	}
	if c.baseURL != "http://localhost:11434" {
		t.Errorf("default base URL: got %q", c.baseURL)
	}
}

func TestSetModel(t *testing.T) {
	c, err := NewClient("http://localhost:11434", "llama3.1:latest")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.SetModel("qwen2.5:7b")
	if c.GetModel() != "qwen2.5:7b" {
		t.Errorf("model: got %q", c.GetModel())
	}
}

func TestModelSupportsToolCalling(t *testing.T) {
	tests := []struct {
		model string
		want  bool
	}{
		{"llama3.1:latest", true},
		{"llama3.2:3b", true},
		{"llama3.3:70b", true},
		{"qwen2.5:7b", true},
		{"mistral:7b", true},
		{"command-r:35b", true},
		{"llama3:8b", false},
		{"llama3-gradient:8b", false},
		{"phi3:mini", false},
		{"gemma2:9b", false},
		{"codellama:13b", false},
		{"totally-unknown-model", false},
		{"LLAMA3.1:LATEST", true}, // case-insensitive
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := ModelSupportsToolCalling(tt.model); got != tt.want {
				t.Errorf("ModelSupportsToolCalling(%q): got %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func TestSupportsToolCallingFollowsCurrentModel(t *testing.T) {
	c, err := NewClient("", "llama3.1:latest")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if !c.SupportsToolCalling() {
		t.Error("llama3.1 should support tools")
	}
	c.SetModel("gemma2:9b")
	if c.SupportsToolCalling() {
		t.Error("gemma2 should not support tools")
	}
}
