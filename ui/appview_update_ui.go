package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"aster/config"
)

// handleUIMessage handles UI-related messages (flash, markdown, models, conversations, editor, data export)
func (a AppView) handleUIMessage(msg tea.Msg) (AppView, tea.Cmd) {
	switch msg := msg.(type) {
	case flashTickMsg:
		if a.highlightFlashCount > 0 && a.highlightFlashCount < 6 {
			a.highlightFlashCount++
			a.updateViewportContent(false)
			return a, tea.Tick(300*time.Millisecond, func(time.Time) tea.Msg {
				return flashTickMsg{}
			})
		}
		a.highlightedMessageIdx = -1
		a.highlightFlashCount = 0
		a.updateViewportContent(false)
		return a, nil

	case markdownRenderedMsg:
		if config.DebugLog != nil {
			config.DebugLog.Printf("markdownRenderedMsg received for message %d", msg.MessageIndex)
		}

		if msg.MessageIndex >= 0 && msg.MessageIndex < len(a.dataModel.Messages) {
			a.dataModel.Messages[msg.MessageIndex].Rendered = msg.Rendered

			gotoBottom := a.highlightedMessageIdx < 0
			a.updateViewportContent(gotoBottom)
			if config.DebugLog != nil {
				config.DebugLog.Printf("Viewport updated with rendered markdown (gotoBottom=%v)", gotoBottom)
			}
		}
		return a, nil

	case modelsListMsg:
		if msg.Err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("Error fetching models: %v", msg.Err)
			}
			// Optionally show error to user
			return a, nil
		}

		a.modelList = msg.Models
		a.modelListCached = true

		if config.DebugLog != nil {
			config.DebugLog.Printf("Fetched %d models", len(msg.Models))
		}

		// Only auto-show selector if explicitly requested (user-initiated fetch)
		// Background fetches don't interrupt UX
		if a.showSettings && msg.ShowSelector {
			a.showModelSelector = true
			// Pre-select current model if in list
			currentModel := a.settingsFields[2].Value
			for i, model := range a.modelList {
				if model.Name == currentModel {
					a.selectedModelIdx = i
					break
				}
			}
		}

		return a, nil

	case conversationsListMsg:
		if msg.Err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("Error fetching conversations: %v", msg.Err)
			}
			return a, nil
		}

		a.conversationList = msg.Conversations
		a.selectedConversationIdx = 0

		// Select current conversation if the manager is open
		if a.showConversationManager && a.dataModel.CurrentConversation != nil {
			for i, conv := range msg.Conversations {
				if conv.ID == a.dataModel.CurrentConversation.ID {
					a.selectedConversationIdx = i
					break
				}
			}
		}

		if config.DebugLog != nil {
			config.DebugLog.Printf("Fetched %d conversations", len(msg.Conversations))
		}

		// Check if we just deleted the current conversation
		if a.dataModel.CurrentConversation == nil {
			if len(msg.Conversations) > 0 {
				// Load the first conversation in the list
				if config.DebugLog != nil {
					config.DebugLog.Printf("Current conversation deleted, loading first available: %s", msg.Conversations[0].ID)
				}
				return a, a.dataModel.LoadConversation(msg.Conversations[0].ID)
			}
			// No conversations left - close modal and show empty state
			if config.DebugLog != nil {
				config.DebugLog.Printf("No conversations left after deletion, showing empty state")
			}
			a.showConversationManager = false
		}

		return a, nil

	case indexSearchMsg:
		// Cross-conversation search results from the index
		if msg.Err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("Index search error: %v", msg.Err)
			}
			return a, nil
		}

		// Stale results from an earlier keystroke are dropped
		if !a.showGlobalSearch || msg.Query != a.globalSearchInput.Value() {
			return a, nil
		}

		a.globalSearchResults = msg.Matches
		a.selectedGlobalIdx = 0
		a.globalSearchScrollIdx = 0
		return a, nil

	case editorContentMsg:
		// Load edited content into textarea
		a.textarea.SetValue(msg.Content)
		a.textarea.Focus()

		// Load content and wait for user to press Enter (user can review/edit before sending)
		return a, nil

	case editorErrorMsg:
		// Show error modal
		a.showInfoModal = true
		a.infoModalTitle = "⚠️  Editor Error"
		a.infoModalMsg = fmt.Sprintf("Failed to open external editor:\n\n%v\n\nPlease check that your $EDITOR or $ASTER_EDITOR environment variable is set correctly.", msg.Err)
		return a, nil

	case pingResultMsg:
		if msg.Err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("Ping failed for provider %s: %v", msg.Provider, msg.Err)
			}
			a.showAcknowledgeModal = true
			a.acknowledgeModalTitle = "Backend Unreachable"
			a.acknowledgeModalMsg = fmt.Sprintf("Could not reach the %s backend:\n\n%v\n\nYou can keep browsing conversations, but sending messages will fail until the backend is available.", msg.Provider, msg.Err)
			a.acknowledgeModalType = ModalTypeWarning
		}
		return a, nil

	case dataExportedMsg:
		if msg.Cancelled {
			// Data export was cancelled - check if partial file exists
			a.exportingDataDir = false
			a.dataExportCancelCtx = nil
			a.dataExportCancelFunc = nil

			if fileExists(a.dataExportTargetPath) {
				// Start cleanup phase
				a.dataExportCleaningUp = true
				return a, tea.Batch(
					a.dataExportSpinner.Tick,
					a.cleanupPartialDataExportCmd(a.dataExportTargetPath),
				)
			}
			// No partial file - just close modal
			a.dataExportMode = false
			a.dataExportTargetPath = ""
			return a, nil
		}

		if msg.Err != nil {
			// Data export failed - close modal with error
			a.exportingDataDir = false
			a.dataExportCancelCtx = nil
			a.dataExportCancelFunc = nil
			a.dataExportMode = false
			a.dataExportTargetPath = ""
			if config.DebugLog != nil {
				config.DebugLog.Printf("Data export error: %v", msg.Err)
			}
			return a, nil
		}

		// Success - show success modal
		a.exportingDataDir = false
		a.dataExportCancelCtx = nil
		a.dataExportCancelFunc = nil
		a.dataExportSuccess = msg.Path
		a.dataExportTargetPath = ""
		if config.DebugLog != nil {
			config.DebugLog.Printf("Data directory exported successfully to: %s", msg.Path)
		}
		return a, nil

	case dataExportCleanupDoneMsg:
		// Data export cleanup finished - return to settings
		a.dataExportCleaningUp = false
		a.dataExportMode = false
		a.dataExportTargetPath = ""
		return a, nil
	}

	return a, nil
}
