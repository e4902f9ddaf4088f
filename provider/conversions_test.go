package provider

import (
	"testing"
	"time"

	"github.com/ollama/ollama/api"

	"aster/model"
)

func TestConvertToOllamaMessages(t *testing.T) {
	tests := []struct {
		name     string
		input    []model.Message
		expected []api.Message
	}{
		{
			name:     "empty slice",
			input:    []model.Message{},
			expected: []api.Message{},
		},
		{
			name: "single message",
			input: []model.Message{
				{Role: "user", Content: "Hello"},
			},
			expected: []api.Message{
				{Role: "user", Content: "Hello"},
			},
		},
		{
			name: "multiple messages drop timestamps",
			input: []model.Message{
				{Role: "user", Content: "Hello", Timestamp: time.Now()},
				{Role: "assistant", Content: "Hi there", Timestamp: time.Now()},
				{Role: "user", Content: "How are you?", Timestamp: time.Now()},
			},
			expected: []api.Message{
				{Role: "user", Content: "Hello"},
				{Role: "assistant", Content: "Hi there"},
				{Role: "user", Content: "How are you?"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertToOllamaMessages(tt.input)

			if len(result) != len(tt.expected) {
				t.Fatalf("length mismatch: got %d, want %d", len(result), len(tt.expected))
			}

			for i, msg := range result {
				if msg.Role != tt.expected[i].Role {
					t.Errorf("message %d role: got %q, want %q", i, msg.Role, tt.expected[i].Role)
				}
				if msg.Content != tt.expected[i].Content {
					t.Errorf("message %d content: got %q, want %q", i, msg.Content, tt.expected[i].Content)
				}
			}
		})
	}
}

func TestConvertFromOllamaMessages(t *testing.T) {
	input := []api.Message{
		{Role: "assistant", Content: "Hello back"},
		{Role: "user", Content: "thanks"},
	}

	result := ConvertFromOllamaMessages(input)
	if len(result) != 2 {
		t.Fatalf("length: got %d, want 2", len(result))
	}
	for i, msg := range result {
		if msg.Role != input[i].Role || msg.Content != input[i].Content {
			t.Errorf("message %d: got %+v", i, msg)
		}
		if !msg.Timestamp.IsZero() {
			t.Errorf("message %d: timestamp should be zero", i)
		}
	}
}

func TestConvertToProviderToolCalls(t *testing.T) {
	if got := ConvertToProviderToolCalls(nil); got != nil {
		t.Errorf("nil input: got %v", got)
	}
	if got := ConvertToProviderToolCalls([]api.ToolCall{}); got != nil {
		t.Errorf("empty input: got %v", got)
	}

	input := []api.ToolCall{
		{Function: api.ToolCallFunction{Name: "read_file", Arguments: map[string]any{"path": "a.txt"}}},
		{Function: api.ToolCallFunction{Name: "search_files", Arguments: map[string]any{"pattern": "notes"}}},
	}

	result := ConvertToProviderToolCalls(input)
	if len(result) != 2 {
		t.Fatalf("length: got %d, want 2", len(result))
	}
	for i, call := range result {
		if call.ID == "" {
			t.Errorf("call %d: missing generated ID", i)
		}
		if call.Name != input[i].Function.Name {
			t.Errorf("call %d name: got %q", i, call.Name)
		}
	}
	if result[0].ID == result[1].ID {
		t.Error("generated IDs must be unique")
	}
	if result[0].Arguments["path"] != "a.txt" {
		t.Errorf("call 0 arguments: %v", result[0].Arguments)
	}
}

func TestConvertFromProviderToolCalls(t *testing.T) {
	if got := ConvertFromProviderToolCalls(nil); got != nil {
		t.Errorf("nil input: got %v", got)
	}

	input := []model.ToolCall{
		{ID: "tc-1", Name: "create_file", Arguments: map[string]any{"path": "out.txt", "content": "x"}},
	}
	result := ConvertFromProviderToolCalls(input)
	if len(result) != 1 {
		t.Fatalf("length: got %d", len(result))
	}
	if result[0].Function.Name != "create_file" {
		t.Errorf("name: got %q", result[0].Function.Name)
	}
	if result[0].Function.Arguments["path"] != "out.txt" {
		t.Errorf("arguments: %v", result[0].Function.Arguments)
	}
}

func TestParseToolArguments(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]any
	}{
		{"valid object", `{"path":"a.txt"}`, map[string]any{"path": "a.txt"}},
		{"invalid json", `not json`, map[string]any{}},
		{"empty string", ``, map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseToolArguments(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("key %q: got %v, want %v", k, got[k], v)
				}
			}
		})
	}
}
