package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"aster/config"
)

// handleConversationMessage handles conversation-related messages
func (a AppView) handleConversationMessage(msg tea.Msg) (AppView, tea.Cmd) {
	switch msg := msg.(type) {
	case conversationLoadedMsg:
		if msg.Err != nil {
			// Check if error is due to conversation being locked
			if msg.Err.Error() == "conversation_locked" {
				a.showAcknowledgeModal = true
				a.acknowledgeModalTitle = "Conversation In Use"
				a.acknowledgeModalMsg = "This conversation is currently being used in another aster instance.\n\n" +
					"Only one instance can use a conversation at a time.\n\n" +
					"Options:\n" +
					"• Close the other aster instance\n" +
					"• Use a different conversation\n" +
					"• Run aster in a container for isolated instances"
				a.acknowledgeModalType = ModalTypeWarning
				return a, nil
			}

			if config.DebugLog != nil {
				config.DebugLog.Printf("Error loading conversation: %v", msg.Err)
			}
			return a, nil
		}

		// Unlock old conversation before switching
		if a.dataModel.CurrentConversation != nil && a.dataModel.Store != nil {
			_ = a.dataModel.Store.UnlockConversation(a.dataModel.CurrentConversation.ID)
		}

		// Load conversation into UI and repin the relay conversation ID
		a.setCurrentConversation(msg.Conversation)

		a.dataModel.ConversationDirty = false
		a.showConversationManager = false

		// Save as current conversation so it's restored on next launch
		if a.dataModel.Store != nil && msg.Conversation != nil {
			a.dataModel.Store.SaveCurrentConversationID(msg.Conversation.ID)
		}

		// Convert storage messages to UI messages
		a.dataModel.Messages = []Message{}
		for _, sMsg := range msg.Conversation.Messages {
			// Use cached rendering if available, otherwise use content
			rendered := sMsg.Rendered
			if rendered == "" {
				rendered = sMsg.Content
			}
			a.dataModel.Messages = append(a.dataModel.Messages, Message{
				Role:      sMsg.Role,
				Content:   sMsg.Content,
				Rendered:  rendered,
				Timestamp: sMsg.Timestamp,
			})
		}

		// Set model and provider from the conversation
		if msg.Conversation.Model != "" {
			conversationProvider := msg.Conversation.Provider
			if conversationProvider == "" {
				conversationProvider = a.dataModel.Config.DefaultProvider // Config default for migrated conversations
			}

			// Switch to the conversation's provider
			providerClient, ok := a.dataModel.Providers[conversationProvider]
			if !ok {
				// Fallback to current provider if the conversation's provider is not available
				if config.Debug && config.DebugLog != nil {
					config.DebugLog.Printf("[UI] WARNING: Conversation provider '%s' not found, using fallback", conversationProvider)
				}
				a.dataModel.Provider.SetModel(msg.Conversation.Model)
			} else {
				a.dataModel.Provider = providerClient
				providerClient.SetModel(msg.Conversation.Model)
				a.syncRelayConversation()
				if config.Debug && config.DebugLog != nil {
					config.DebugLog.Printf("[UI] Loaded conversation with provider '%s', model '%s'", conversationProvider, msg.Conversation.Model)
				}
			}
		}

		if config.DebugLog != nil {
			config.DebugLog.Printf("Loaded conversation %s with %d messages", msg.Conversation.ID, len(msg.Conversation.Messages))
		}

		// Check if we need to scroll to a specific message
		if a.pendingScrollToMessageIdx >= 0 && a.pendingScrollToMessageIdx < len(a.dataModel.Messages) {
			messageIdx := a.pendingScrollToMessageIdx
			a.pendingScrollToMessageIdx = -1

			var offsetContent strings.Builder
			for i := range messageIdx {
				msg := a.dataModel.Messages[i]

				timestamp := DimStyle.Render(msg.Timestamp.Format("[15:04]"))

				var roleStyle = DimStyle
				var roleName string
				switch msg.Role {
				case "user":
					roleStyle = UserStyle
					roleName = "You"
				case "assistant":
					roleStyle = AssistantStyle
					roleName = "Assistant"
				default:
					roleStyle = DimStyle
					roleName = "System"
				}

				role := roleStyle.Render(roleName)
				renderedContent := msg.Rendered

				if msg.Role == "user" {
					greenBold := "\x1b[32;1m"
					reset := "\x1b[0m"
					bar := greenBold + "┃" + reset

					lines := strings.Split(renderedContent, "\n")
					offsetContent.WriteString(fmt.Sprintf("%s %s %s\n", bar, timestamp, role))
					for _, line := range lines {
						offsetContent.WriteString(fmt.Sprintf("%s %s\n", bar, line))
					}
					offsetContent.WriteString("\n")
				} else {
					offsetContent.WriteString(fmt.Sprintf("%s %s\n%s\n\n", timestamp, role, renderedContent))
				}
			}

			actualOffset := strings.Count(offsetContent.String(), "\n")
			viewportHeight := a.viewport.Height
			centerOffset := actualOffset - (viewportHeight / 2)
			centerOffset = max(centerOffset, 0)

			a.highlightedMessageIdx = messageIdx
			a.highlightFlashCount = 1
			a.updateViewportContent(false)

			totalLines := a.viewport.TotalLineCount()
			if centerOffset > totalLines-viewportHeight {
				centerOffset = totalLines - viewportHeight
			}

			a.viewport.SetYOffset(centerOffset)

			// Trigger flash animation
			var renderCmds []tea.Cmd
			renderCmds = append(renderCmds, tea.Tick(300*time.Millisecond, func(time.Time) tea.Msg {
				return flashTickMsg{}
			}))

			// Trigger markdown rendering for user and assistant messages that need it
			// Render in REVERSE order (newest first) since viewport shows bottom
			for i := len(a.dataModel.Messages) - 1; i >= 0; i-- {
				if a.dataModel.Messages[i].Role == "assistant" || a.dataModel.Messages[i].Role == "user" {
					// Skip if already rendered (cached from disk)
					if a.dataModel.Messages[i].Rendered != "" && a.dataModel.Messages[i].Rendered != a.dataModel.Messages[i].Content {
						continue
					}
					renderCmds = append(renderCmds, a.renderMarkdownAsync(i, a.dataModel.Messages[i].Content))
				}
			}

			return a, tea.Batch(renderCmds...)
		}

		// No pending scroll, go to bottom as usual
		a.updateViewportContent(true)

		// Trigger markdown rendering for user and assistant messages that need it
		// Render in REVERSE order (newest first) since viewport shows bottom
		var renderCmds []tea.Cmd
		for i := len(a.dataModel.Messages) - 1; i >= 0; i-- {
			if a.dataModel.Messages[i].Role == "assistant" || a.dataModel.Messages[i].Role == "user" {
				// Skip if already rendered (cached from disk)
				if a.dataModel.Messages[i].Rendered != "" && a.dataModel.Messages[i].Rendered != a.dataModel.Messages[i].Content {
					continue
				}
				renderCmds = append(renderCmds, a.renderMarkdownAsync(i, a.dataModel.Messages[i].Content))
			}
		}

		return a, tea.Batch(renderCmds...)

	case conversationSavedMsg:
		if msg.Err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("Error saving conversation: %v", msg.Err)
			}
			return a, nil
		}

		a.dataModel.ConversationDirty = false

		if config.DebugLog != nil {
			config.DebugLog.Printf("Conversation saved successfully")
		}

		return a, nil

	case conversationRenamedMsg:
		if msg.Err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("Error renaming conversation: %v", msg.Err)
			}
			return a, nil
		}

		if config.DebugLog != nil {
			config.DebugLog.Printf("Conversation renamed successfully")
		}

		return a, nil

	case conversationExportedMsg:
		if msg.Cancelled {
			// Export was cancelled - check if partial file exists
			a.exportingConversation = false
			a.exportCancelCtx = nil
			a.exportCancelFunc = nil

			// Check if partial file was created
			if fileExists(a.exportTargetPath) {
				// Start cleanup phase
				a.exportCleaningUp = true
				return a, tea.Batch(
					a.exportSpinner.Tick,
					a.dataModel.CleanupPartialFileCmd(a.exportTargetPath),
				)
			}
			// No partial file - just close modal
			a.conversationExportMode = false
			a.exportTargetPath = ""
			return a, nil
		}

		if msg.Err != nil {
			// Export failed - close modal with error
			a.exportingConversation = false
			a.exportCancelCtx = nil
			a.exportCancelFunc = nil
			a.conversationExportMode = false
			a.exportTargetPath = ""
			if config.DebugLog != nil {
				config.DebugLog.Printf("Export error: %v", msg.Err)
			}
			return a, nil
		}

		// Success - show success modal
		a.exportingConversation = false
		a.exportCancelCtx = nil
		a.exportCancelFunc = nil
		a.conversationExportSuccess = msg.Path
		a.exportTargetPath = ""
		if config.DebugLog != nil {
			config.DebugLog.Printf("Conversation exported successfully to: %s", msg.Path)
		}
		return a, nil

	case conversationImportedMsg:
		a.conversationImportPicker.Processing = false
		a.conversationImportPicker.CleaningUp = false
		a.conversationImportCancelCtx = nil
		a.conversationImportCancelFunc = nil

		if msg.Cancelled {
			a.conversationImportPicker.Reset()
			return a, nil
		}

		if msg.Err != nil {
			// Import failed - close modal with error
			a.conversationImportPicker.Reset()
			if config.DebugLog != nil {
				config.DebugLog.Printf("Import error: %v", msg.Err)
			}
			return a, nil
		}

		// Success - show success modal and refresh conversation list
		successMsg := fmt.Sprintf("Imported: %s\nMessages: %d\nModel: %s",
			msg.Conversation.Name, len(msg.Conversation.Messages), msg.Conversation.Model)
		a.conversationImportPicker.Success = &successMsg
		a.conversationImportSuccess = msg.Conversation
		if config.DebugLog != nil {
			config.DebugLog.Printf("Conversation imported successfully: %s", msg.Conversation.Name)
		}

		// Refresh conversation list in background
		return a, a.dataModel.FetchConversationList()

	case exportCleanupDoneMsg:
		// Cleanup finished - return to conversation manager
		a.exportCleaningUp = false
		a.conversationExportMode = false
		a.exportTargetPath = ""
		return a, nil
	}

	return a, nil
}
