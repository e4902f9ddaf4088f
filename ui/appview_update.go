package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"aster/config"
	"aster/storage"
)

func (a AppView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	// Update spinner FIRST to handle TickMsg before anything else
	if a.dataModel.Streaming && len(a.dataModel.Messages) > 0 && a.dataModel.Messages[len(a.dataModel.Messages)-1].Role == "system" {
		a.loadingSpinner, cmd = a.loadingSpinner.Update(msg)
		cmds = append(cmds, cmd)
		// Update viewport to show animated spinner
		a.updateViewportContent(true)
	}

	// Update import spinner if processing or cleaning up
	if a.conversationImportPicker.Processing || a.conversationImportPicker.CleaningUp {
		a.conversationImportPicker.Spinner, cmd = a.conversationImportPicker.Spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	if a.exportingConversation || a.exportCleaningUp {
		a.exportSpinner, cmd = a.exportSpinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	// Update data export spinner if exporting or cleaning up
	if a.exportingDataDir || a.dataExportCleaningUp {
		a.dataExportSpinner, cmd = a.dataExportSpinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	// Update tool execution spinner if executing tools
	if a.executingTool != "" {
		a.toolExecutionSpinner, cmd = a.toolExecutionSpinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	// Update file picker if active (needs to receive ALL message types EXCEPT KeyMsg)
	// KeyMsg is handled in handleConversationImportMode to check DidSelectFile before updating
	if a.conversationImportPicker.Active && !a.conversationImportPicker.Processing && !a.conversationImportPicker.CleaningUp {
		switch msg.(type) {
		case tea.KeyMsg:
			// Skip - handled in handleConversationImportMode
		default:
			// Forward non-KeyMsg (like readDirMsg)
			a.conversationImportPicker.Picker, cmd = a.conversationImportPicker.Picker.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

		// Reserve space for title (1 line), separator (1 line), textarea (3 lines), and status bar (1 line)
		viewportHeight := a.height - 6
		a.viewport.Width = a.width
		a.viewport.Height = viewportHeight
		a.textarea.SetWidth(a.width)

		a.ready = true
		a.updateViewportContent(true)

		// Trigger initial rendering if needed (after we have width)
		if a.dataModel.NeedsInitialRender {
			a.dataModel.NeedsInitialRender = false
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
		}

		return a, nil

	case tea.KeyMsg:
		// PRIORITY 0: Always-global quit
		if msg.String() == "alt+q" {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[UI] Alt+Q pressed - quitting")
			}
			if a.dataModel.CurrentConversation != nil && a.dataModel.Store != nil {
				_ = a.dataModel.Store.UnlockConversation(a.dataModel.CurrentConversation.ID)
			}
			return a, tea.Quit
		}

		// PRIORITY 1: Modal toggle shortcuts (close current modal, open new one)
		switch msg.String() {
		case "alt+h":
			a.showHelp = !a.showHelp
			return a, nil

		case "alt+n":
			a.closeAllModals()

			// Unlock current conversation before clearing
			if a.dataModel.CurrentConversation != nil && a.dataModel.Store != nil {
				_ = a.dataModel.Store.UnlockConversation(a.dataModel.CurrentConversation.ID)
			}

			// Create and save new conversation (shared implementation)
			newConversation, err := a.dataModel.CreateAndSaveNewConversation("New Conversation", "", []string{})
			if err != nil {
				if config.DebugLog != nil {
					config.DebugLog.Printf("Failed to create new conversation: %v", err)
				}
				return a, nil
			}

			// Clear UI and repin the relay conversation ID
			a.dataModel.Messages = []Message{}
			a.setCurrentConversation(newConversation)
			a.dataModel.ConversationDirty = false
			a.textarea.Reset()
			a.updateViewportContent(true)
			return a, nil

		case "alt+s":
			wasOpen := a.showConversationManager
			a.closeAllModals()
			a.showConversationManager = !wasOpen
			if a.showConversationManager {
				return a, a.dataModel.FetchConversationList()
			}
			return a, nil

		case "alt+e":
			// Only allow editing if we have a current conversation
			if a.dataModel.CurrentConversation != nil {
				a.closeAllModals()

				// Lazy init inputs (consistent with "e" key handler)
				if a.newConversationNameInput.Width == 0 {
					a.newConversationNameInput = textinput.New()
					a.newConversationNameInput.Width = 60
					a.newConversationNameInput.CharLimit = 100
					a.newConversationNameInput.Placeholder = "Enter conversation name (optional)"
				}
				if a.newConversationPromptInput.Width() == 0 {
					a.newConversationPromptInput = textarea.New()
					a.newConversationPromptInput.SetWidth(60)
					a.newConversationPromptInput.SetHeight(5)
					a.newConversationPromptInput.CharLimit = 0
					a.newConversationPromptInput.Placeholder = "Enter system prompt (optional)"
				}

				a.showEditConversationModal = true
				a.editConversationID = a.dataModel.CurrentConversation.ID
				a.newConversationFocusedField = 0
				a.editConversationToolIdx = 0
				a.editConversationAllowedTools = make([]string, len(a.dataModel.CurrentConversation.AllowedTools))
				copy(a.editConversationAllowedTools, a.dataModel.CurrentConversation.AllowedTools)
				a.newConversationNameInput.SetValue(a.dataModel.CurrentConversation.Name)
				a.newConversationPromptInput.SetValue(a.dataModel.CurrentConversation.SystemPrompt)
				a.newConversationNameInput.Focus()
				a.newConversationPromptInput.Blur()
				return a, textinput.Blink
			}
			return a, nil

		case "alt+m":
			wasOpen := a.showModelSelector
			a.closeAllModals()
			a.showModelSelector = !wasOpen
			if a.showModelSelector {
				currentModel := a.dataModel.Provider.GetModel()
				for i, model := range a.modelList {
					if model.Name == currentModel {
						a.selectedModelIdx = i
						break
					}
				}
				if !a.modelListCached {
					return a, a.dataModel.FetchAllModels(false)
				}
			}
			return a, nil

		case "alt+f":
			wasOpen := a.showMessageSearch
			a.closeAllModals()
			a.showMessageSearch = !wasOpen
			if a.showMessageSearch {
				a.messageSearchInput.Focus()
				a.messageSearchInput.SetValue("")
				a.messageSearchResults = []storage.MessageMatch{}
				a.selectedSearchIdx = 0
				return a, textinput.Blink
			}
			return a, nil

		case "alt+F":
			wasOpen := a.showGlobalSearch
			a.closeAllModals()
			a.showGlobalSearch = !wasOpen
			if a.showGlobalSearch {
				a.globalSearchInput.Focus()
				a.globalSearchInput.SetValue("")
				a.globalSearchResults = []storage.IndexedMessage{}
				a.selectedGlobalIdx = 0
				return a, textinput.Blink
			}
			return a, nil

		case "alt+S":
			wasOpen := a.showSettings
			a.closeAllModals()
			a.showSettings = !wasOpen
			if a.showSettings {
				a.settingsFields = []SettingField{
					{
						Label:        "Data Directory",
						Value:        a.dataModel.Config.DataDirectory,
						DefaultValue: "~/.local/share/aster",
						Type:         SettingTypeDataDir,
						Validation:   FieldValidationNone,
					},
					{
						Label:        "Backend URL",
						Value:        a.dataModel.Config.RelayURL,
						DefaultValue: "http://localhost:8080",
						Type:         SettingTypeBackendURL,
						Validation:   FieldValidationNone,
					},
					{
						Label:        "Default Model",
						Value:        a.dataModel.Config.DefaultModel,
						DefaultValue: "llama3.1:latest",
						Type:         SettingTypeModel,
						Validation:   FieldValidationNone,
					},
					{
						Label:        "System Prompt",
						Value:        a.dataModel.Config.DefaultSystemPrompt,
						DefaultValue: "",
						Type:         SettingTypeSystemPrompt,
						Validation:   FieldValidationNone,
					},
					{
						Label:        "Workspace Directory",
						Value:        a.dataModel.Config.WorkspaceDirectory,
						DefaultValue: "~",
						Type:         SettingTypeWorkspaceDir,
						Validation:   FieldValidationNone,
					},
				}
				a.selectedSettingIdx = 0
				a.settingsEditMode = false
				a.settingsHasChanges = false
				a.settingsConfirmExit = false
				a.settingsLoadedInfo = ""

				a.settingsEditInput = textinput.New()
				a.settingsEditInput.Width = 50
				a.settingsEditInput.CharLimit = 200
			}
			return a, nil

		case "alt+A":
			wasOpen := a.showAbout
			a.closeAllModals()
			a.showAbout = !wasOpen
			return a, nil
		}

		// PRIORITY 2: Modal-specific key handling (order matches View rendering)
		// Info modal (highest priority - close on any key)
		if a.showInfoModal {
			a.showInfoModal = false
			a.infoModalTitle = ""
			a.infoModalMsg = ""
			return a, nil
		}

		if a.showPassphraseForDataDir {
			return a.handlePassphraseForDataDir(msg)
		}

		if a.showAcknowledgeModal {
			if msg.String() == "enter" {
				a.showAcknowledgeModal = false
				return a, nil
			}
			return a, nil
		}

		if a.showHelp {
			if msg.String() == "esc" {
				a.showHelp = false
			}
			return a, nil
		}

		if a.showModelSelector {
			return a.handleModelSelectorUpdate(msg)
		}

		if a.showToolWarningModal {
			return a.handleToolWarningModalUpdate(msg)
		}

		if a.showSettings {
			return a.handleSettingsUpdate(msg)
		}

		// Check child modals BEFORE parent (New/Edit conversation before Conversation Manager)
		if a.showNewConversationModal {
			return a.handleNewConversationModalUpdate(msg)
		}

		if a.showEditConversationModal {
			return a.handleEditConversationModalUpdate(msg)
		}

		if a.showConversationManager {
			return a.handleConversationManagerUpdate(msg)
		}

		if a.showGlobalSearch {
			return a.handleGlobalSearchUpdate(msg)
		}

		if a.showMessageSearch {
			return a.handleMessageSearchUpdate(msg)
		}

		if a.showAbout {
			return a.handleAboutUpdate(msg)
		}

		// PRIORITY 3: Pending tool permission decision
		if a.waitingForPermission && a.pendingPermission != nil {
			switch msg.String() {
			case "y", "Y":
				return a.resolvePermission(true, false)
			case "a", "A":
				return a.resolvePermission(true, true)
			case "n", "N", "esc":
				return a.resolvePermission(false, false)
			}
			// Swallow everything else while the prompt is up
			return a, nil
		}

		// PRIORITY 4: Tab handling (chat input)
		if msg.String() == "tab" && !a.dataModel.Streaming {
			a.textarea.InsertString("   ")
			return a, nil
		}

		// PRIORITY 5: Streaming cancellation (only if no modal open)
		if msg.String() == "esc" && a.dataModel.Streaming {
			a.dataModel.Streaming = false

			partialResp := a.currentResp.String()

			if len(a.dataModel.Messages) > 0 && a.dataModel.Messages[len(a.dataModel.Messages)-1].Role == "system" {
				a.dataModel.Messages = a.dataModel.Messages[:len(a.dataModel.Messages)-1]
			}

			if partialResp != "" {
				a.dataModel.Messages = append(a.dataModel.Messages, Message{
					Role:      "assistant",
					Content:   partialResp + "\n\n⚠️ Response cancelled",
					Rendered:  partialResp + "\n\n⚠️ Response cancelled",
					Timestamp: time.Now(),
				})
			} else {
				a.dataModel.Messages = append(a.dataModel.Messages, Message{
					Role:      "system",
					Content:   "⚠️ Request cancelled",
					Rendered:  "⚠️ Request cancelled",
					Timestamp: time.Now(),
				})
			}

			a.chunks = nil
			a.chunkIndex = 0
			a.currentResp.Reset()
			a.executingTool = ""
			a.pendingNextStep = false

			a.updateViewportContent(true)
			return a, nil
		}

		// Handle Enter for sending messages - DON'T let textarea process it
		// But allow Alt+Enter to pass through for newlines
		if msg.Type == tea.KeyEnter && !msg.Alt && !a.dataModel.Streaming {
			if strings.TrimSpace(a.textarea.Value()) != "" {
				// Bail early when the conversation's provider has no credentials
				if ok, reason := a.dataModel.CanSendMessage(); !ok {
					a.showAcknowledgeModal = true
					a.acknowledgeModalTitle = "Provider Not Configured"
					a.acknowledgeModalMsg = reason
					a.acknowledgeModalType = ModalTypeWarning
					return a, nil
				}

				userMsg := a.textarea.Value()
				a.textarea.Reset()

				if config.DebugLog != nil {
					config.DebugLog.Printf("Enter pressed - sending message: %s", userMsg)
				}

				// Add user message
				a.dataModel.Messages = append(a.dataModel.Messages, Message{
					Role:      "user",
					Content:   userMsg,
					Rendered:  userMsg, // Start with plain text, will be rendered async
					Timestamp: time.Now(),
				})

				// Trigger markdown rendering for user message
				userMessageIndex := len(a.dataModel.Messages) - 1

				// Initialize and start spinner
				a.loadingSpinner = spinner.New()
				a.loadingSpinner.Spinner = spinner.Dot
				a.loadingSpinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("15")) // Bright white

				// Add loading message (will be updated with spinner in updateViewportContent)
				loadingMsg := "Waiting for response..."
				a.dataModel.Messages = append(a.dataModel.Messages, Message{
					Role:      "system",
					Content:   loadingMsg,
					Rendered:  loadingMsg,
					Timestamp: time.Now(),
				})

				a.dataModel.Streaming = true
				a.updateViewportContent(true)

				if config.DebugLog != nil {
					config.DebugLog.Printf("Firing SendChat() Cmd")
				}

				// Start streaming response, spinner animation, and render user message markdown
				return a, tea.Batch(
					a.renderMarkdownAsync(userMessageIndex, userMsg),
					a.dataModel.SendChat(),
					a.loadingSpinner.Tick,
				)
			}
			// Don't pass Enter to textarea - we handled it
			return a, nil
		}

		switch msg.String() {
		case "alt+o":
			// Open external editor (only if not streaming)
			if !a.dataModel.Streaming {
				return a, a.dataModel.OpenExternalEditor(a.textarea.Value())
			}
			return a, nil

		case "alt+y":
			// Copy last assistant message
			for i := len(a.dataModel.Messages) - 1; i >= 0; i-- {
				if a.dataModel.Messages[i].Role == "assistant" {
					clipboard.WriteAll(a.dataModel.Messages[i].Content)
					return a, nil
				}
			}
			return a, nil

		case "alt+c":
			// Copy all messages
			var allText strings.Builder
			for _, msg := range a.dataModel.Messages {
				role := msg.Role
				switch role {
				case "user":
					role = "You"
				case "assistant":
					role = "Assistant"
				}
				allText.WriteString(fmt.Sprintf("[%s] %s:\n%s\n\n",
					msg.Timestamp.Format("15:04"),
					role,
					msg.Content))
			}
			clipboard.WriteAll(allText.String())
			return a, nil

		case "alt+j", "alt+down":
			a.viewport.HalfPageDown()
			return a, nil

		case "alt+k", "alt+up":
			a.viewport.HalfPageUp()
			return a, nil

		case "alt+J", "pgdown":
			a.viewport.PageDown()
			return a, nil

		case "alt+K", "pgup":
			a.viewport.PageUp()
			return a, nil

		case "alt+g":
			a.viewport.GotoTop()
			return a, nil

		case "alt+G":
			a.viewport.GotoBottom()
			return a, nil
		}

	case streamChunksCollectedMsg, displayChunkTickMsg, streamChunkMsg, streamErrorMsg:
		next, cmd := a.handleStreamingMessage(msg)
		cmds = append(cmds, cmd)
		return next, tea.Batch(cmds...)

	case toolCallsDetectedMsg, toolExecutionCompleteMsg, toolExecutionErrorMsg, toolPermissionRequestMsg:
		next, cmd := a.handleToolMessage(msg)
		cmds = append(cmds, cmd)
		return next, tea.Batch(cmds...)

	case conversationLoadedMsg, conversationSavedMsg, conversationRenamedMsg, conversationExportedMsg, conversationImportedMsg, exportCleanupDoneMsg:
		next, cmd := a.handleConversationMessage(msg)
		cmds = append(cmds, cmd)
		return next, tea.Batch(cmds...)

	case flashTickMsg, markdownRenderedMsg, modelsListMsg, conversationsListMsg, indexSearchMsg, editorContentMsg, editorErrorMsg, pingResultMsg, dataExportedMsg, dataExportCleanupDoneMsg:
		next, cmd := a.handleUIMessage(msg)
		cmds = append(cmds, cmd)
		return next, tea.Batch(cmds...)

	// Settings modal custom messages
	case backendValidationMsg, dataDirectoryLoadedMsg, settingsSaveMsg:
		if a.showSettings {
			return a.handleSettingsInput(msg)
		}
		return a, nil
	}

	// Update textarea only if not streaming
	if !a.dataModel.Streaming {
		a.textarea, cmd = a.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}

	return a, tea.Batch(cmds...)
}

// resolvePermission applies the user's y/a/n decision to the pending gated
// tool call and resumes the tool loop.
func (a AppView) resolvePermission(approved, always bool) (tea.Model, tea.Cmd) {
	perm := *a.pendingPermission
	a.waitingForPermission = false
	a.pendingPermission = nil

	// Remove the permission prompt from the chat
	a = a.removeLastSystemMessage()

	if config.DebugLog != nil {
		config.DebugLog.Printf("Permission decision for %s: approved=%v always=%v", perm.ToolName, approved, always)
	}

	if approved {
		a.startToolExecution(perm.ToolName)
		return a, tea.Batch(
			a.toolExecutionSpinner.Tick,
			a.dataModel.ResolvePendingTool(perm, approved, always),
		)
	}

	// A denial is reported back to the model, which answers without the tool.
	// Keep the loading message so the user sees something is still happening.
	a.dataModel.Messages = append(a.dataModel.Messages, Message{
		Role:      "system",
		Content:   "Waiting for response...",
		Rendered:  "Waiting for response...",
		Timestamp: time.Now(),
	})
	a.updateViewportContent(true)

	return a, tea.Batch(
		a.loadingSpinner.Tick,
		a.dataModel.ResolvePendingTool(perm, approved, always),
	)
}
