package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"aster/config"
	"aster/gate"
)

// conversationGateID returns the gate key for the current conversation.
// Unsaved conversations share a scratch gate until they get an ID.
func (m *Model) conversationGateID() string {
	if m.CurrentConversation != nil && m.CurrentConversation.ID != "" {
		return m.CurrentConversation.ID
	}
	return "unsaved"
}

// ExecuteToolsAndContinue runs detected tool calls through the conversation's
// gate and sends results back to the model. Calls that need user approval
// interrupt the loop with a permission request instead of executing.
func (m *Model) ExecuteToolsAndContinue(msg ToolCallsDetectedMsg) tea.Cmd {
	g := m.Gates.Ensure(m.conversationGateID())
	client := m.Provider

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
		defer cancel()

		if config.DebugLog != nil {
			config.DebugLog.Printf("Executing %d tool calls", len(msg.ToolCalls))
		}

		// Check permissions before registering anything with the gate
		if m.Config.RequireApproval {
			for i, toolCall := range msg.ToolCalls {
				if m.IsToolAllowed(toolCall.Name) {
					continue
				}
				if g.Resolved(toolCall.ID) {
					continue
				}

				// Register the call so the gate holds it while the user decides
				err := g.Request(gate.PendingToolCall{
					ID:        toolCall.ID,
					Name:      toolCall.Name,
					Arguments: toolCall.Arguments,
				})
				if err != nil {
					return ToolExecutionErrorMsg{Err: err}
				}

				purpose := m.ExtractPurpose(msg.ContextMessages, &toolCall)

				if config.DebugLog != nil {
					config.DebugLog.Printf("Permission required for tool: %s (purpose: %s)", toolCall.Name, purpose)
				}

				return ToolPermissionRequestMsg{
					ToolName:        toolCall.Name,
					Purpose:         purpose,
					ToolCall:        toolCall,
					ContextMessages: msg.ContextMessages,
					InitialResponse: msg.InitialResponse,
					RemainingCalls:  msg.ToolCalls[i+1:],
				}
			}
		}

		results, err := m.runThroughGate(ctx, g, msg.ToolCalls)
		if err != nil {
			return ToolExecutionErrorMsg{Err: err}
		}

		return m.continueAfterTools(ctx, client, msg.ContextMessages, msg.InitialResponse, results)
	}
}

// ResolvePendingTool applies the user's decision to the gated call and
// resumes the tool loop. With always set, the tool is added to the
// conversation's allow list so later calls skip the prompt.
func (m *Model) ResolvePendingTool(msg ToolPermissionRequestMsg, approved bool, always bool) tea.Cmd {
	g := m.Gates.Ensure(m.conversationGateID())
	client := m.Provider

	if approved && always && m.CurrentConversation != nil {
		m.CurrentConversation.AllowTool(msg.ToolName)
		m.ConversationDirty = true
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
		defer cancel()

		var result gate.Result
		var err error
		if approved {
			result, err = g.Allow(ctx, msg.ToolCall.ID)
		} else {
			result, err = g.Deny(msg.ToolCall.ID)
		}
		if err != nil {
			return ToolExecutionErrorMsg{Err: err}
		}

		if config.DebugLog != nil {
			decision := "denied"
			if approved {
				decision = "allowed"
			}
			config.DebugLog.Printf("Tool %s %s (%d chars)", msg.ToolName, decision, len(result.Content))
		}

		results := []gate.Result{result}

		// A denial still resolves the turn; remaining calls only run after
		// an approval
		if approved && len(msg.RemainingCalls) > 0 {
			// Re-check permissions for the rest of the batch
			for i, toolCall := range msg.RemainingCalls {
				if m.Config.RequireApproval && !m.IsToolAllowed(toolCall.Name) && !g.Resolved(toolCall.ID) {
					err := g.Request(gate.PendingToolCall{
						ID:        toolCall.ID,
						Name:      toolCall.Name,
						Arguments: toolCall.Arguments,
					})
					if err != nil {
						return ToolExecutionErrorMsg{Err: err}
					}

					return ToolPermissionRequestMsg{
						ToolName:        toolCall.Name,
						Purpose:         m.ExtractPurpose(msg.ContextMessages, &toolCall),
						ToolCall:        toolCall,
						ContextMessages: msg.ContextMessages,
						InitialResponse: msg.InitialResponse,
						RemainingCalls:  msg.RemainingCalls[i+1:],
					}
				}

				rest, err := m.runThroughGate(ctx, g, msg.RemainingCalls[i:i+1])
				if err != nil {
					return ToolExecutionErrorMsg{Err: err}
				}
				results = append(results, rest...)
			}
		}

		return m.continueAfterTools(ctx, client, msg.ContextMessages, msg.InitialResponse, results)
	}
}

// AbortToolTurn clears turn state after a transport failure. The gate is
// force-reset without resolving the abandoned call, so a resent call with the
// same correlation id is admitted on the next attempt.
func (m *Model) AbortToolTurn() {
	m.CurrentTurn = 0
	if m.Gates != nil {
		m.Gates.Ensure(m.conversationGateID()).Reset()
	}
}

// runThroughGate registers and executes each call, collecting results.
// Already-resolved correlation IDs are skipped so a call never runs twice.
func (m *Model) runThroughGate(ctx context.Context, g *gate.Gate, calls []ToolCall) ([]gate.Result, error) {
	var results []gate.Result

	for i, toolCall := range calls {
		if g.Resolved(toolCall.ID) {
			if config.DebugLog != nil {
				config.DebugLog.Printf("Skipping already-resolved tool call %s", toolCall.ID)
			}
			continue
		}

		if config.DebugLog != nil {
			config.DebugLog.Printf("Executing tool call %d: %s", i+1, toolCall.Name)
		}

		err := g.Request(gate.PendingToolCall{
			ID:        toolCall.ID,
			Name:      toolCall.Name,
			Arguments: toolCall.Arguments,
		})
		if err != nil {
			if errors.Is(err, gate.ErrUnsupported) {
				results = append(results, gate.Result{
					ID:      toolCall.ID,
					Content: fmt.Sprintf("unknown tool: %s", toolCall.Name),
					IsError: true,
				})
				continue
			}
			if errors.Is(err, gate.ErrResolved) {
				continue
			}
			return nil, err
		}

		result, err := g.Allow(ctx, toolCall.ID)
		if err != nil {
			return nil, err
		}

		if config.DebugLog != nil {
			config.DebugLog.Printf("Tool %s result: %d chars", toolCall.Name, len(result.Content))
		}

		results = append(results, result)
	}

	return results, nil
}

// continueAfterTools feeds tool results back to the model and collects the
// next response. Tools are withheld once the turn limit is reached so the
// model has to answer.
func (m *Model) continueAfterTools(ctx context.Context, client Provider, contextMessages []Message, initialResponse string, results []gate.Result) tea.Msg {
	m.CurrentTurn++

	if config.DebugLog != nil {
		config.DebugLog.Printf("Starting tool turn %d", m.CurrentTurn)
	}

	var toolResultMsgs []Message
	for _, result := range results {
		content := result.Content
		if result.IsError {
			content = fmt.Sprintf("Error: %s", result.Content)
		}
		// The gate's correlation id travels with the result so the
		// provider can match it to the call it answers
		toolResultMsgs = append(toolResultMsgs, Message{
			Role:       "tool",
			Content:    content,
			ToolCallID: result.ID,
		})
	}

	fullMessages := contextMessages
	if initialResponse != "" {
		fullMessages = append(fullMessages, Message{
			Role:    "assistant",
			Content: initialResponse,
		})
	}
	fullMessages = append(fullMessages, toolResultMsgs...)

	var nextTools []mcptypes.Tool
	if m.Tools != nil && m.CurrentTurn < m.MaxToolTurns {
		nextTools = m.Tools.Definitions()
	} else if config.DebugLog != nil {
		config.DebugLog.Printf("Max tool turns (%d) reached, withholding tools", m.MaxToolTurns)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("Sending %d messages back to the model (including %d tool results)",
			len(fullMessages), len(toolResultMsgs))
	}

	var chunks []string
	var responseBuilder strings.Builder
	var detectedToolCalls []ToolCall

	err := client.ChatWithTools(ctx, fullMessages, nextTools, func(chunk string, toolCalls []ToolCall) error {
		responseBuilder.WriteString(chunk)
		chunks = append(chunks, chunk)
		if len(toolCalls) > 0 && len(detectedToolCalls) == 0 {
			detectedToolCalls = toolCalls
		}
		return nil
	})

	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("Error getting response after tools: %v", err)
		}
		m.AbortToolTurn()
		return ToolExecutionErrorMsg{Err: err, Partial: responseBuilder.String()}
	}

	finalResponse := responseBuilder.String()

	if len(detectedToolCalls) > 0 && m.CurrentTurn < m.MaxToolTurns {
		if config.DebugLog != nil {
			config.DebugLog.Printf("Next turn will be %d: %d tool calls detected",
				m.CurrentTurn+1, len(detectedToolCalls))
		}

		// The response travels separately as InitialResponse on the next
		// round, so it is not folded into the context here
		nextContext := fullMessages

		return ToolExecutionCompleteMsg{
			Chunks:        chunks,
			FullResponse:  finalResponse,
			HasMoreSteps:  true,
			NextToolCalls: detectedToolCalls,
			NextContext:   nextContext,
		}
	}

	m.CurrentTurn = 0

	return ToolExecutionCompleteMsg{
		Chunks:       chunks,
		FullResponse: finalResponse,
	}
}
