package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to one relay instance.
type Client struct {
	baseURL string
	model   string
	http    *http.Client
}

// NewClient validates the relay URL and returns a client bound to it.
func NewClient(baseURL, model string) (*Client, error) {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if model == "" {
		model = "llama3.1:latest"
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid relay URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid relay URL: unsupported scheme %q", parsed.Scheme)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		http:    http.DefaultClient,
	}, nil
}

// Chat starts one turn and returns its event stream. The last user message
// must be non-empty after trimming; empty input is rejected without any
// network traffic. The returned stream must be drained or closed.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*Stream, error) {
	if req.Conversation == "" {
		return nil, fmt.Errorf("conversation id is required")
	}
	if req.ToolResult == nil {
		if err := validateUserMessage(req.Messages); err != nil {
			return nil, err
		}
	}
	if req.Model == "" {
		req.Model = c.model
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if resp.StatusCode != http.StatusOK {
		detail := readErrorBody(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("relay returned %s%s", resp.Status, detail)
	}

	return newStream(ctx, resp.Body), nil
}

// ContinueWithToolResult resumes a paused turn by sending the outcome of a
// tool call; the relay answers with a fresh stream for the rest of the turn.
func (c *Client) ContinueWithToolResult(ctx context.Context, conversation string, messages []Message, tools []ToolDef, result ToolResult) (*Stream, error) {
	return c.Chat(ctx, ChatRequest{
		Conversation: conversation,
		Messages:     messages,
		Tools:        tools,
		ToolResult:   &result,
	})
}

// ListModels asks the relay which models it can serve.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build models request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relay returned %s", resp.Status)
	}

	var payload struct {
		Models []ModelInfo `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode models response: %w", err)
	}

	for i := range payload.Models {
		if payload.Models[i].Provider == "" {
			payload.Models[i].Provider = "relay"
		}
		if payload.Models[i].InternalName == "" {
			payload.Models[i].InternalName = payload.Models[i].Name
		}
	}

	return payload.Models, nil
}

// Ping checks if the relay is reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("relay returned %s", resp.Status)
	}
	return nil
}

// SetModel changes the default model for subsequent turns.
func (c *Client) SetModel(model string) {
	c.model = model
}

// GetModel returns the current default model.
func (c *Client) GetModel() string {
	return c.model
}

// validateUserMessage rejects turns whose final user message is blank.
func validateUserMessage(messages []Message) error {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			if strings.TrimSpace(messages[i].Content) == "" {
				return ErrEmptyMessage
			}
			return nil
		}
	}
	return ErrEmptyMessage
}

func readErrorBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return ""
	}
	return ": " + string(bytes.TrimSpace(data))
}
