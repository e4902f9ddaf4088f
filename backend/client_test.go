package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{"valid http", "http://localhost:8080", false},
		{"valid https", "https://relay.example.com", false},
		{"empty defaults to localhost", "", false},
		{"unsupported scheme", "ftp://relay.example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.baseURL, "llama3.1:latest")
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClient(%q): err = %v, wantErr %v", tt.baseURL, err, tt.wantErr)
			}
		})
	}
}

func TestNewClientTrimsTrailingSlash(t *testing.T) {
	c, err := NewClient("http://localhost:8080/", "m")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.baseURL != "http://localhost:8080" {
		t.Errorf("baseURL: got %q", c.baseURL)
	}
}

func TestChatStreamsDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path: got %q, want /api/chat", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type: got %q", ct)
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Conversation != "conv-1" {
			t.Errorf("conversation: got %q", req.Conversation)
		}
		if req.Model != "llama3.1:latest" {
			t.Errorf("model default not applied: got %q", req.Model)
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		io.WriteString(w, `{"delta":"Hi "}`+"\n")
		io.WriteString(w, `{"delta":"there"}`+"\n")
		io.WriteString(w, `{"done":true,"done_reason":"stop"}`+"\n")
	}))
	defer server.Close()

	c, _ := NewClient(server.URL, "llama3.1:latest")
	stream, err := c.Chat(context.Background(), ChatRequest{
		Conversation: "conv-1",
		Messages:     []Message{{Role: "user", Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	defer stream.Close()

	var got strings.Builder
	for {
		event, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		if event.Kind == EventDelta {
			got.WriteString(event.Delta)
		}
	}
	if got.String() != "Hi there" {
		t.Errorf("deltas: got %q", got.String())
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("empty message must not reach the relay")
	}))
	defer server.Close()

	c, _ := NewClient(server.URL, "m")

	tests := []struct {
		name     string
		messages []Message
	}{
		{"no messages", nil},
		{"blank user message", []Message{{Role: "user", Content: "   \n\t"}}},
		{"no user message", []Message{{Role: "system", Content: "prompt"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Chat(context.Background(), ChatRequest{
				Conversation: "conv-1",
				Messages:     tt.messages,
			})
			if !errors.Is(err, ErrEmptyMessage) {
				t.Errorf("got %v, want ErrEmptyMessage", err)
			}
		})
	}
}

func TestChatToolResultSkipsValidation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"done":true}`+"\n")
	}))
	defer server.Close()

	c, _ := NewClient(server.URL, "m")

	// Resuming after a tool call carries no fresh user message
	stream, err := c.ContinueWithToolResult(context.Background(), "conv-1",
		[]Message{{Role: "assistant", Content: "calling tool"}},
		nil,
		ToolResult{ID: "tc-1", Content: "file contents"},
	)
	if err != nil {
		t.Fatalf("ContinueWithToolResult: %v", err)
	}
	stream.Close()
}

func TestChatRequiresConversationID(t *testing.T) {
	c, _ := NewClient("http://localhost:8080", "m")
	_, err := c.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Error("expected error for missing conversation id")
	}
}

func TestChatNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c, _ := NewClient(server.URL, "m")
	_, err := c.Chat(context.Background(), ChatRequest{
		Conversation: "conv-1",
		Messages:     []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
	if !strings.Contains(err.Error(), "model overloaded") {
		t.Errorf("error should carry response body: %v", err)
	}
}

func TestChatUnreachableRelay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	c, _ := NewClient(server.URL, "m")
	_, err := c.Chat(context.Background(), ChatRequest{
		Conversation: "conv-1",
		Messages:     []Message{{Role: "user", Content: "hi"}},
	})
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("got %v, want ErrUnreachable", err)
	}
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/models" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		io.WriteString(w, `{"models":[
			{"name":"llama3.1:latest","size":4920753328},
			{"name":"gpt-4o","provider":"openai","internal_name":"gpt-4o-2024-08-06"}
		]}`)
	}))
	defer server.Close()

	c, _ := NewClient(server.URL, "m")
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("count: got %d, want 2", len(models))
	}
	if models[0].Provider != "relay" {
		t.Errorf("default provider: got %q, want relay", models[0].Provider)
	}
	if models[0].InternalName != "llama3.1:latest" {
		t.Errorf("default internal name: got %q", models[0].InternalName)
	}
	if models[1].Provider != "openai" || models[1].InternalName != "gpt-4o-2024-08-06" {
		t.Errorf("explicit fields overwritten: %+v", models[1])
	}
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c, _ := NewClient(server.URL, "m")
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestPingFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c, _ := NewClient(server.URL, "m")
	if err := c.Ping(context.Background()); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestSetModel(t *testing.T) {
	c, _ := NewClient("http://localhost:8080", "llama3.1:latest")
	c.SetModel("qwen2.5:7b")
	if c.GetModel() != "qwen2.5:7b" {
		t.Errorf("model: got %q", c.GetModel())
	}
}
