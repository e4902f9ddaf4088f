package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"aster/backend"
	"aster/model"
)

func newRelayTestServer(t *testing.T, got *backend.ChatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path: got %q, want /api/chat", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Write([]byte(`{"done":true,"done_reason":"stop"}` + "\n"))
	}))
}

func TestRelayChatSendsToolResultByID(t *testing.T) {
	var got backend.ChatRequest
	server := newRelayTestServer(t, &got)
	defer server.Close()

	p, err := NewRelayProvider(server.URL, "test-model")
	if err != nil {
		t.Fatalf("NewRelayProvider: %v", err)
	}
	p.SetConversation("conv-1")

	messages := []model.Message{
		{Role: "user", Content: "read notes.txt"},
		{Role: "assistant", Content: "Checking the file."},
		{Role: "tool", Content: "file contents here", ToolCallID: "call-abc"},
	}

	if err := p.ChatWithTools(context.Background(), messages, nil, nil); err != nil {
		t.Fatalf("ChatWithTools: %v", err)
	}

	if got.ToolResult == nil {
		t.Fatal("tool_result missing from continuation request")
	}
	if got.ToolResult.ID != "call-abc" {
		t.Errorf("tool_result id: got %q, want %q", got.ToolResult.ID, "call-abc")
	}
	if got.ToolResult.Content != "file contents here" {
		t.Errorf("tool_result content: got %q", got.ToolResult.Content)
	}
	if got.ToolResult.IsError {
		t.Error("successful result flagged as error")
	}
	// The result rides the dedicated field, not the message list
	if len(got.Messages) != 2 {
		t.Fatalf("messages: got %d, want 2", len(got.Messages))
	}
	for _, msg := range got.Messages {
		if msg.Role == "tool" {
			t.Errorf("tool message left inline: %+v", msg)
		}
	}
}

func TestRelayChatSendsErrorToolResult(t *testing.T) {
	var got backend.ChatRequest
	server := newRelayTestServer(t, &got)
	defer server.Close()

	p, err := NewRelayProvider(server.URL, "test-model")
	if err != nil {
		t.Fatalf("NewRelayProvider: %v", err)
	}
	p.SetConversation("conv-1")

	messages := []model.Message{
		{Role: "user", Content: "read gone.txt"},
		{Role: "tool", Content: "Error: permission denied: the user declined to run read_file", ToolCallID: "call-def"},
	}

	if err := p.ChatWithTools(context.Background(), messages, nil, nil); err != nil {
		t.Fatalf("ChatWithTools: %v", err)
	}

	if got.ToolResult == nil {
		t.Fatal("tool_result missing from continuation request")
	}
	if got.ToolResult.ID != "call-def" {
		t.Errorf("tool_result id: got %q, want %q", got.ToolResult.ID, "call-def")
	}
	if !got.ToolResult.IsError {
		t.Error("denied result not flagged as error")
	}
	if got.ToolResult.Content != "permission denied: the user declined to run read_file" {
		t.Errorf("tool_result content: got %q", got.ToolResult.Content)
	}
}

func TestRelayChatKeepsBatchedToolResultsInline(t *testing.T) {
	var got backend.ChatRequest
	server := newRelayTestServer(t, &got)
	defer server.Close()

	p, err := NewRelayProvider(server.URL, "test-model")
	if err != nil {
		t.Fatalf("NewRelayProvider: %v", err)
	}
	p.SetConversation("conv-1")

	messages := []model.Message{
		{Role: "user", Content: "read both files"},
		{Role: "tool", Content: "first", ToolCallID: "call-1"},
		{Role: "tool", Content: "second", ToolCallID: "call-2"},
	}

	if err := p.ChatWithTools(context.Background(), messages, nil, nil); err != nil {
		t.Fatalf("ChatWithTools: %v", err)
	}

	if got.ToolResult != nil {
		t.Errorf("batched results should stay inline, got tool_result %+v", got.ToolResult)
	}
	var ids []string
	for _, msg := range got.Messages {
		if msg.Role == "tool" {
			ids = append(ids, msg.ToolCallID)
		}
	}
	if len(ids) != 2 || ids[0] != "call-1" || ids[1] != "call-2" {
		t.Errorf("inline tool message ids: %v", ids)
	}
}

func TestSplitTrailingToolResult(t *testing.T) {
	tests := []struct {
		name     string
		messages []model.Message
		want     bool
	}{
		{name: "empty", want: false},
		{
			name:     "no tool message",
			messages: []model.Message{{Role: "user", Content: "hi"}},
			want:     false,
		},
		{
			name:     "tool message without id",
			messages: []model.Message{{Role: "tool", Content: "data"}},
			want:     false,
		},
		{
			name: "single trailing result",
			messages: []model.Message{
				{Role: "user", Content: "hi"},
				{Role: "tool", Content: "data", ToolCallID: "x"},
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, ok := splitTrailingToolResult(tt.messages)
			if ok != tt.want {
				t.Errorf("got %v, want %v", ok, tt.want)
			}
		})
	}
}
