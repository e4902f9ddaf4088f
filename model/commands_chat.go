package model

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"aster/backend"
	"aster/config"
)

// BuildSystemPrompt returns the system prompt for the current conversation or default
func (m *Model) BuildSystemPrompt() string {
	if m.CurrentConversation != nil && m.CurrentConversation.SystemPrompt != "" {
		return m.CurrentConversation.SystemPrompt
	}
	if m.Config.DefaultSystemPrompt != "" {
		return m.Config.DefaultSystemPrompt
	}
	return ""
}

// buildMinimalToolPrompt creates minimal tool instructions that work across
// model sizes. Only essential guidance: what tools exist, when to use them,
// and to execute silently.
func buildMinimalToolPrompt(tools []mcptypes.Tool) string {
	toolNames := []string{}
	for _, tool := range tools {
		toolNames = append(toolNames, tool.Name)
	}

	return fmt.Sprintf(
		"TOOLS: %s\n\n"+
			"If you need file contents or workspace state → use a tool.\n"+
			"Otherwise → answer directly.\n\n"+
			"Don't tell the user how you will use a tool. Just execute the tool call.",
		strings.Join(toolNames, ", "),
	)
}

// buildAPIMessages converts UI messages to provider messages.
//
// Layer 1: Minimal tool instructions (only if tools present)
// Layer 2: User's system prompt (behavioral context)
// Layer 3: Conversation messages (task)
func buildAPIMessages(uiMessages []Message, systemPrompt string, tools []mcptypes.Tool) []Message {
	var messages []Message

	if len(tools) > 0 {
		messages = append(messages, Message{
			Role:    "system",
			Content: buildMinimalToolPrompt(tools),
		})
	}

	if systemPrompt != "" {
		messages = append(messages, Message{
			Role:    "system",
			Content: systemPrompt,
		})
	}

	for _, msg := range uiMessages {
		if msg.Role == "user" || msg.Role == "assistant" {
			messages = append(messages, Message{
				Role:    msg.Role,
				Content: msg.Content,
			})
		}
	}

	return messages
}

// SendChat sends the current conversation to the active provider and
// collects the streamed response
func (m *Model) SendChat() tea.Cmd {
	currentConversation := m.CurrentConversation

	conversationProvider := m.Config.DefaultProvider
	if currentConversation != nil && currentConversation.Provider != "" {
		conversationProvider = currentConversation.Provider
	}

	client, ok := m.Providers[conversationProvider]
	if !ok {
		client = m.Provider
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[Model] WARNING: Conversation provider '%s' not found, using fallback", conversationProvider)
		}
	}

	if currentConversation != nil && currentConversation.Model != "" {
		client.SetModel(currentConversation.Model)
	}

	systemPrompt := m.BuildSystemPrompt()
	uiMessages := m.Messages
	toolRegistry := m.Tools

	return func() tea.Msg {
		// Reset turn state for a new user message
		m.CurrentTurn = 0

		// Reject blank input before any provider work
		if !hasNonEmptyUserMessage(uiMessages) {
			return StreamErrorMsg{Err: backend.ErrEmptyMessage}
		}

		if config.DebugLog != nil {
			config.DebugLog.Printf("sendChat goroutine started")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
		defer cancel()

		var mcpTools []mcptypes.Tool
		if toolRegistry != nil {
			mcpTools = toolRegistry.Definitions()
		}

		messages := buildAPIMessages(uiMessages, systemPrompt, mcpTools)

		var chunks []string
		var responseBuilder strings.Builder
		var detectedToolCalls []ToolCall
		startTime := time.Now()

		err := client.ChatWithTools(ctx, messages, mcpTools, func(chunk string, toolCalls []ToolCall) error {
			responseBuilder.WriteString(chunk)
			chunks = append(chunks, chunk)
			if len(toolCalls) > 0 && len(detectedToolCalls) == 0 {
				detectedToolCalls = toolCalls
			}
			return nil
		})

		elapsed := time.Since(startTime)

		if err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("Provider error after %v: %v (%d chars received)", elapsed, err, responseBuilder.Len())
			}
			// Deltas received before the failure stay with the message
			return StreamErrorMsg{Err: err, Partial: responseBuilder.String()}
		}

		response := responseBuilder.String()
		if config.DebugLog != nil {
			config.DebugLog.Printf("Response received after %v - %d chunks, %d chars", elapsed, len(chunks), len(response))
		}

		// If tool calls detected, return special message to trigger execution
		if len(detectedToolCalls) > 0 {
			if config.DebugLog != nil {
				config.DebugLog.Printf("Tool calls detected: %d", len(detectedToolCalls))
			}
			return ToolCallsDetectedMsg{
				ToolCalls:       detectedToolCalls,
				InitialResponse: response,
				ContextMessages: messages,
			}
		}

		// No tool calls - normal response
		return StreamChunksCollectedMsg{
			Chunks:       chunks,
			FullResponse: response,
		}
	}
}

// hasNonEmptyUserMessage reports whether the latest user message has content
// after trimming whitespace.
func hasNonEmptyUserMessage(messages []Message) bool {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return strings.TrimSpace(messages[i].Content) != ""
		}
	}
	return false
}

// IsToolAllowed checks if a tool is whitelisted (global config or conversation-specific)
func (m *Model) IsToolAllowed(toolName string) bool {
	for _, allowed := range m.Config.AllowedTools {
		if allowed == toolName {
			return true
		}
	}

	if m.CurrentConversation != nil {
		return m.CurrentConversation.IsToolAllowed(toolName)
	}

	return false
}

// BuildToolDetails extracts tool-specific information for display
func (m *Model) BuildToolDetails(toolCall ToolCall) map[string]string {
	details := make(map[string]string)

	args := toolCall.Arguments
	argNames := []string{"path", "pattern", "query", "content"}

	for _, argName := range argNames {
		if val, ok := args[argName]; ok {
			switch v := val.(type) {
			case string:
				details[argName] = v
			default:
				if jsonBytes, err := json.Marshal(v); err == nil {
					details[argName] = string(jsonBytes)
				}
			}
		}
	}

	return details
}

// buildPurposeFromArgs builds a purpose string from common tool argument patterns
func (m *Model) buildPurposeFromArgs(args map[string]any) string {
	if pattern, ok := args["pattern"].(string); ok {
		return fmt.Sprintf("Search for: %s", pattern)
	}

	if path, ok := args["path"].(string); ok {
		return fmt.Sprintf("Access file: %s", path)
	}

	return ""
}

// ExtractPurpose parses the model's reasoning from context messages to
// understand why it wants to use this tool
func (m *Model) ExtractPurpose(contextMessages []Message, toolCall *ToolCall) string {
	if toolCall == nil {
		return "Processing response"
	}

	// Short trailing assistant content is likely fresh reasoning for this call
	if len(contextMessages) > 0 {
		lastMsg := contextMessages[len(contextMessages)-1]
		if lastMsg.Role == "assistant" && lastMsg.Content != "" {
			content := strings.TrimSpace(lastMsg.Content)
			if len(content) < 150 {
				if idx := strings.Index(content, "."); idx > 0 && idx < 100 {
					return content[:idx]
				}
				return content
			}
		}
	}

	if purpose := m.buildPurposeFromArgs(toolCall.Arguments); purpose != "" {
		return purpose
	}

	return fmt.Sprintf("Execute %s", toolCall.Name)
}

// getDefaultEditor returns the user's preferred editor from environment variables
func getDefaultEditor() string {
	editor := os.Getenv("ASTER_EDITOR")
	if editor != "" {
		return editor
	}

	editor = os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor != "" {
		return editor
	}

	if runtime.GOOS == "windows" {
		return "notepad"
	}

	preferredEditors := []string{"nano", "nvim", "vim", "vi", "emacs"}
	for _, ed := range preferredEditors {
		if _, err := exec.LookPath(ed); err == nil {
			return ed
		}
	}

	// vi is POSIX standard
	return "vi"
}

// OpenExternalEditor opens the user's preferred text editor to compose a message
func (m *Model) OpenExternalEditor(currentContent string) tea.Cmd {
	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("aster-compose-%d.md", os.Getpid()))

	tmpFile, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return func() tea.Msg {
			return EditorErrorMsg{Err: err}
		}
	}

	if currentContent != "" {
		if _, err := tmpFile.WriteString(currentContent); err != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
			return func() tea.Msg {
				return EditorErrorMsg{Err: err}
			}
		}
	}
	tmpFile.Close()

	editor := getDefaultEditor()

	cmd := exec.Command(editor, tmpPath)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	// Suspend the TUI and run the editor
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		content, readErr := os.ReadFile(tmpPath)
		_ = os.Remove(tmpPath)

		if err != nil {
			return EditorErrorMsg{Err: err}
		}
		if readErr != nil {
			return EditorErrorMsg{Err: readErr}
		}

		return EditorContentMsg{Content: string(content)}
	})
}
