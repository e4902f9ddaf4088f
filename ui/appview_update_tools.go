package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"aster/config"
)

// handleToolMessage handles tool execution messages
func (a AppView) handleToolMessage(msg tea.Msg) (AppView, tea.Cmd) {
	switch msg := msg.(type) {
	case toolCallsDetectedMsg:
		if config.DebugLog != nil {
			config.DebugLog.Printf("Tool calls detected: %d calls", len(msg.ToolCalls))
		}

		if len(msg.ToolCalls) == 0 {
			return a, nil
		}

		// Remove "Waiting for response..." message
		a = a.removeLastNonPersistentSystemMessage()

		// Extract purpose and create step message
		firstToolCall := &msg.ToolCalls[0]
		purpose := a.dataModel.ExtractPurpose(msg.ContextMessages, firstToolCall)
		a.createStepMessage(purpose, a.dataModel.CurrentTurn+1)

		// Start tool execution
		a.startToolExecution(msg.ToolCalls[0].Name)

		return a, tea.Batch(
			a.toolExecutionSpinner.Tick,
			a.loadingSpinner.Tick,
			a.dataModel.ExecuteToolsAndContinue(msg),
		)

	case toolExecutionCompleteMsg:
		if config.DebugLog != nil {
			config.DebugLog.Printf("Tool execution complete - %d chunks", len(msg.Chunks))
		}

		// Clear tool execution state
		a.executingTool = ""

		// Ignore if user cancelled
		if !a.dataModel.Streaming {
			if config.DebugLog != nil {
				config.DebugLog.Printf("Ignoring toolExecutionCompleteMsg - cancelled")
			}
			return a, nil
		}

		// Complete the step message (checkmark, survives cleanup)
		a.completeStepMessage()

		// Store pending step info if the tool loop continues
		if msg.HasMoreSteps {
			a.pendingNextStep = true
			a.pendingToolCalls = msg.NextToolCalls
			a.pendingToolContext = msg.NextContext
		} else {
			a.pendingNextStep = false
			a.pendingToolCalls = nil
			a.pendingToolContext = nil
		}

		// Replay the response with the typewriter effect
		a.chunks = msg.Chunks
		a.chunkIndex = 0
		a.currentResp.Reset()

		return a, tea.Tick(300*time.Millisecond, func(time.Time) tea.Msg {
			return displayChunkTickMsg{}
		})

	case toolExecutionErrorMsg:
		if config.DebugLog != nil {
			config.DebugLog.Printf("Tool execution error: %v", msg.Err)
		}

		// Clear state, abandoning any call the gate still holds so a
		// resent call is admitted on retry
		a.executingTool = ""
		a.dataModel.Streaming = false
		a.dataModel.AbortToolTurn()
		a.currentResp.Reset()
		a.pendingNextStep = false
		a.pendingToolCalls = nil
		a.pendingToolContext = nil

		// Remove in-flight step message
		if len(a.dataModel.Messages) > 0 &&
			a.dataModel.Messages[len(a.dataModel.Messages)-1].Role == "system" &&
			strings.HasPrefix(a.dataModel.Messages[len(a.dataModel.Messages)-1].Content, "🔧 ") {
			a.dataModel.Messages = a.dataModel.Messages[:len(a.dataModel.Messages)-1]
		}

		// Keep whatever the model said before the failure, flagged
		if msg.Partial != "" {
			flagged := msg.Partial + "\n\n⚠️ Response interrupted"
			a.dataModel.Messages = append(a.dataModel.Messages, Message{
				Role:      "assistant",
				Content:   flagged,
				Rendered:  flagged,
				Timestamp: time.Now(),
			})
			a.dataModel.ConversationDirty = true
		}

		// Show error
		a.dataModel.Messages = append(a.dataModel.Messages, Message{
			Role:      "system",
			Content:   fmt.Sprintf("❌ Tool execution error: %v", msg.Err),
			Rendered:  fmt.Sprintf("❌ Tool execution error: %v", msg.Err),
			Timestamp: time.Now(),
		})

		a.updateViewportContent(true)
		return a, nil

	case toolPermissionRequestMsg:
		if config.DebugLog != nil {
			config.DebugLog.Printf("Permission request for tool: %s", msg.ToolName)
		}

		// Clear tool execution state (we're paused for permission)
		a.executingTool = ""

		// Remove "Waiting for response..." so the prompt sits at the bottom
		a = a.removeLastNonPersistentSystemMessage()

		// Build permission content
		details := a.dataModel.BuildToolDetails(msg.ToolCall)
		content := buildPermissionContent(msg.ToolName, msg.Purpose, details)

		// Add permission message to chat
		a.dataModel.Messages = append(a.dataModel.Messages, Message{
			Role:      "system",
			Content:   content,
			Rendered:  content,
			Timestamp: time.Now(),
		})

		// Set waiting state
		a.waitingForPermission = true
		a.pendingPermission = &msg

		a.updateViewportContent(true)
		return a, nil
	}

	return a, nil
}

// createStepMessage appends an in-progress step line to the chat.
// The spinner animates while the "..." suffix is present.
func (a *AppView) createStepMessage(purpose string, step int) {
	content := fmt.Sprintf("🔧 Step %d: %s...", step, purpose)
	a.dataModel.Messages = append(a.dataModel.Messages, Message{
		Role:      "system",
		Content:   content,
		Rendered:  content,
		Timestamp: time.Now(),
	})
	a.updateViewportContent(true)
}

// completeStepMessage rewrites the in-progress step line with a checkmark
// and marks it persistent so later cleanup leaves it in place.
func (a *AppView) completeStepMessage() {
	for i := len(a.dataModel.Messages) - 1; i >= 0; i-- {
		msg := a.dataModel.Messages[i]
		if msg.Role == "system" && strings.HasPrefix(msg.Content, "🔧 ") && strings.HasSuffix(msg.Content, "...") {
			done := "✓ " + strings.TrimSuffix(strings.TrimPrefix(msg.Content, "🔧 "), "...")
			a.dataModel.Messages[i].Content = done
			a.dataModel.Messages[i].Rendered = done
			a.dataModel.Messages[i].Persistent = true
			break
		}
	}
	a.updateViewportContent(true)
}

// startToolExecution sets the title bar indicator and resets its spinner
func (a *AppView) startToolExecution(toolName string) {
	a.executingTool = toolName
	a.toolExecutionSpinner = spinner.New()
	a.toolExecutionSpinner.Spinner = spinner.Dot
}

// removeLastSystemMessage removes the last system message from the chat (used to clean up permission prompts)
func (a AppView) removeLastSystemMessage() AppView {
	if len(a.dataModel.Messages) == 0 {
		return a
	}

	lastIdx := len(a.dataModel.Messages) - 1
	if a.dataModel.Messages[lastIdx].Role == "system" {
		a.dataModel.Messages = a.dataModel.Messages[:lastIdx]
		a.updateViewportContent(false) // Don't auto-scroll when removing
	}

	return a
}

// removeLastNonPersistentSystemMessage drops the trailing loading message
// while leaving completed step lines in place.
func (a AppView) removeLastNonPersistentSystemMessage() AppView {
	if len(a.dataModel.Messages) == 0 {
		return a
	}

	lastIdx := len(a.dataModel.Messages) - 1
	last := a.dataModel.Messages[lastIdx]
	if last.Role == "system" && !last.Persistent {
		a.dataModel.Messages = a.dataModel.Messages[:lastIdx]
	}

	return a
}
