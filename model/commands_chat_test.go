package model

import (
	"strings"
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"aster/config"
	"aster/storage"
)

func testModelWithConfig(cfg *config.Config) *Model {
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &Model{Config: cfg}
}

func TestBuildSystemPrompt(t *testing.T) {
	tests := []struct {
		name         string
		conversation *storage.Conversation
		defaultOne   string
		want         string
	}{
		{
			name:         "conversation prompt wins",
			conversation: &storage.Conversation{SystemPrompt: "per-conversation"},
			defaultOne:   "global default",
			want:         "per-conversation",
		},
		{
			name:         "falls back to default",
			conversation: &storage.Conversation{},
			defaultOne:   "global default",
			want:         "global default",
		},
		{
			name:       "no conversation",
			defaultOne: "global default",
			want:       "global default",
		},
		{
			name: "both empty",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testModelWithConfig(&config.Config{DefaultSystemPrompt: tt.defaultOne})
			m.CurrentConversation = tt.conversation
			if got := m.BuildSystemPrompt(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildAPIMessages(t *testing.T) {
	uiMessages := []Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
		{Role: "system", Content: "transient status note"},
		{Role: "user", Content: "continue"},
	}
	tools := []mcptypes.Tool{
		{Name: "read_file"},
		{Name: "search_files"},
	}

	messages := buildAPIMessages(uiMessages, "be concise", tools)

	// tool prompt, user system prompt, then the 3 chat messages
	if len(messages) != 5 {
		t.Fatalf("length: got %d, want 5", len(messages))
	}
	if messages[0].Role != "system" || !strings.Contains(messages[0].Content, "read_file, search_files") {
		t.Errorf("tool prompt: %+v", messages[0])
	}
	if messages[1].Role != "system" || messages[1].Content != "be concise" {
		t.Errorf("system prompt: %+v", messages[1])
	}
	if messages[2].Content != "hello" || messages[3].Content != "hi" || messages[4].Content != "continue" {
		t.Errorf("chat messages: %+v", messages[2:])
	}
	for _, msg := range messages[2:] {
		if msg.Role == "system" {
			t.Error("UI system messages must not be forwarded")
		}
	}
}

func TestBuildAPIMessagesWithoutTools(t *testing.T) {
	messages := buildAPIMessages([]Message{{Role: "user", Content: "hi"}}, "", nil)
	if len(messages) != 1 {
		t.Fatalf("length: got %d, want 1", len(messages))
	}
	if messages[0].Role != "user" {
		t.Errorf("role: got %q", messages[0].Role)
	}
}

func TestIsToolAllowed(t *testing.T) {
	m := testModelWithConfig(&config.Config{AllowedTools: []string{"read_file"}})
	m.CurrentConversation = &storage.Conversation{AllowedTools: []string{"search_files"}}

	if !m.IsToolAllowed("read_file") {
		t.Error("globally allowed tool should pass")
	}
	if !m.IsToolAllowed("search_files") {
		t.Error("conversation-allowed tool should pass")
	}
	if m.IsToolAllowed("create_file") {
		t.Error("unlisted tool should not pass")
	}

	m.CurrentConversation = nil
	if m.IsToolAllowed("search_files") {
		t.Error("conversation allowance should not survive without a conversation")
	}
}

func TestBuildToolDetails(t *testing.T) {
	m := testModelWithConfig(nil)

	details := m.BuildToolDetails(ToolCall{
		Name: "create_file",
		Arguments: map[string]any{
			"path":    "out.txt",
			"content": "hello",
			"depth":   3, // non-string, ignored arg name
		},
	})

	if details["path"] != "out.txt" || details["content"] != "hello" {
		t.Errorf("details: %v", details)
	}
	if _, ok := details["depth"]; ok {
		t.Error("unknown arg names should be skipped")
	}
}

func TestExtractPurpose(t *testing.T) {
	m := testModelWithConfig(nil)

	t.Run("nil call", func(t *testing.T) {
		if got := m.ExtractPurpose(nil, nil); got != "Processing response" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("short assistant reasoning", func(t *testing.T) {
		messages := []Message{{Role: "assistant", Content: "I'll check the notes file. Then I can answer."}}
		got := m.ExtractPurpose(messages, &ToolCall{Name: "read_file"})
		if got != "I'll check the notes file" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("falls back to arguments", func(t *testing.T) {
		call := &ToolCall{Name: "search_files", Arguments: map[string]any{"pattern": "report"}}
		got := m.ExtractPurpose(nil, call)
		if got != "Search for: report" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("falls back to tool name", func(t *testing.T) {
		call := &ToolCall{Name: "read_file"}
		got := m.ExtractPurpose(nil, call)
		if got != "Execute read_file" {
			t.Errorf("got %q", got)
		}
	})
}
