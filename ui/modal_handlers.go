package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"aster/backend"
	"aster/config"
	"aster/storage"
)

func (a AppView) handleConversationManagerUpdate(msg tea.KeyMsg) (AppView, tea.Cmd) {
	// Handle delete confirmation
	if a.confirmDeleteConversation != nil {
		switch msg.String() {
		case "y":
			conversationID := a.confirmDeleteConversation.ID
			isDeletingCurrent := a.dataModel.CurrentConversation != nil && a.dataModel.CurrentConversation.ID == conversationID

			// Block deletion if the open conversation is streaming
			if isDeletingCurrent && a.dataModel.Streaming {
				a.confirmDeleteConversation = nil
				a.showAcknowledgeModal = true
				a.acknowledgeModalTitle = "Cannot Delete Conversation"
				a.acknowledgeModalMsg = "Conversation has an active response.\nCancel the response before deleting."
				a.acknowledgeModalType = ModalTypeWarning
				return a, nil
			}

			a.confirmDeleteConversation = nil

			if isDeletingCurrent {
				// Unlock before deleting
				if a.dataModel.Store != nil {
					_ = a.dataModel.Store.UnlockConversation(conversationID)
				}

				a.dataModel.Messages = []Message{}
				a.setCurrentConversation(nil)

				a.dataModel.ConversationDirty = false
				a.textarea.Reset()
				a.updateViewportContent(true)
			}

			return a, a.dataModel.DeleteConversationCmd(conversationID)
		case "n", "esc":
			a.confirmDeleteConversation = nil
			return a, nil
		}
		return a, nil
	}

	if a.conversationRenameMode {
		model, cmd := a.handleConversationRenameMode(msg)
		return model.(AppView), cmd
	}

	if a.conversationImportPicker.Active {
		if msg.String() == "esc" && a.conversationImportPicker.Processing && !a.conversationImportPicker.CleaningUp {
			if a.conversationImportCancelFunc != nil {
				a.conversationImportCancelFunc()
			}
			return a, nil
		}
		model, cmd := a.handleConversationImportMode(msg)
		return model.(AppView), cmd
	}

	if a.conversationExportMode {
		if msg.String() == "esc" && a.exportingConversation && !a.exportCleaningUp {
			if a.exportCancelFunc != nil {
				a.exportCancelFunc()
			}
			return a, nil
		}
		model, cmd := a.handleConversationExportMode(msg)
		return model.(AppView), cmd
	}

	if a.conversationFilterMode {
		switch msg.String() {
		case "esc":
			a.conversationFilterMode = false
			a.conversationFilterInput.Blur()
			a.conversationFilterInput.SetValue("")
			a.filteredConversationList = []storage.ConversationMetadata{}
			a.selectedConversationIdx = 0
			return a, nil

		case "enter":
			list := a.getConversationList()
			if a.selectedConversationIdx >= 0 && a.selectedConversationIdx < len(list) {
				selected := list[a.selectedConversationIdx]
				a.showConversationManager = false
				a.conversationFilterMode = false
				return a, a.dataModel.LoadConversation(selected.ID)
			}
			return a, nil

		case "alt+j", "alt+down", "down":
			list := a.getConversationList()
			if a.selectedConversationIdx < len(list)-1 {
				a.selectedConversationIdx++
			}
			return a, nil

		case "alt+k", "alt+up", "up":
			if a.selectedConversationIdx > 0 {
				a.selectedConversationIdx--
			}
			return a, nil
		}

		var cmd tea.Cmd
		a.conversationFilterInput, cmd = a.conversationFilterInput.Update(msg)

		filterValue := a.conversationFilterInput.Value()
		if filterValue == "" {
			a.filteredConversationList = a.conversationList
		} else {
			targets := make([]string, len(a.conversationList))
			for i, c := range a.conversationList {
				targets[i] = c.Name
			}

			matches := fuzzy.Find(filterValue, targets)
			a.filteredConversationList = make([]storage.ConversationMetadata, len(matches))
			for i, match := range matches {
				a.filteredConversationList[i] = a.conversationList[match.Index]
			}
		}

		list := a.getConversationList()
		if a.selectedConversationIdx >= len(list) && len(list) > 0 {
			a.selectedConversationIdx = len(list) - 1
		}

		return a, cmd
	}

	switch msg.String() {
	case "/":
		if !a.conversationFilterMode {
			a.conversationFilterMode = true
			a.conversationFilterInput.Focus()
			a.conversationFilterInput.SetValue("")
			a.filteredConversationList = a.conversationList
			return a, textinput.Blink
		}
	case "esc":
		a.showConversationManager = false
		return a, nil
	case "j", "down":
		list := a.getConversationList()
		if a.selectedConversationIdx < len(list)-1 {
			a.selectedConversationIdx++
		}
		return a, nil
	case "k", "up":
		if a.selectedConversationIdx > 0 {
			a.selectedConversationIdx--
		}
		return a, nil
	case "enter":
		list := a.getConversationList()
		if a.selectedConversationIdx >= 0 && a.selectedConversationIdx < len(list) {
			selected := list[a.selectedConversationIdx]
			return a, a.dataModel.LoadConversation(selected.ID)
		}
		return a, nil
	case "n":
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
		a.showNewConversationModal = true
		a.newConversationFocusedField = 0
		a.newConversationToolIdx = 0
		a.newConversationAllowedTools = []string{}
		a.newConversationNameInput.SetValue("")
		a.newConversationPromptInput.SetValue("")
		a.newConversationNameInput.Focus()
		a.newConversationPromptInput.Blur()
		return a, textinput.Blink
	case "i":
		a.conversationImportPicker.Activate()
		return a, a.conversationImportPicker.Picker.Init()
	case "r":
		list := a.getConversationList()
		if a.selectedConversationIdx >= 0 && a.selectedConversationIdx < len(list) {
			if a.conversationRenameInput.Width == 0 {
				a.conversationRenameInput = textinput.New()
				a.conversationRenameInput.Width = 50
				a.conversationRenameInput.CharLimit = 100
			}
			a.conversationRenameMode = true
			a.conversationRenameInput.SetValue(list[a.selectedConversationIdx].Name)
			a.conversationRenameInput.Focus()
			return a, textinput.Blink
		}
		return a, nil
	case "e":
		list := a.getConversationList()
		if a.selectedConversationIdx >= 0 && a.selectedConversationIdx < len(list) {
			meta := list[a.selectedConversationIdx]

			// Lazy init inputs (same pattern as "n" key)
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

			// Set edit mode with current values
			a.showEditConversationModal = true
			a.editConversationID = meta.ID
			a.newConversationFocusedField = 0
			a.editConversationToolIdx = 0

			// Load full conversation to get the allowed tool list
			fullConversation, err := a.dataModel.Store.Load(meta.ID)
			if err == nil && fullConversation != nil {
				a.editConversationAllowedTools = make([]string, len(fullConversation.AllowedTools))
				copy(a.editConversationAllowedTools, fullConversation.AllowedTools)
			} else {
				a.editConversationAllowedTools = []string{}
			}

			a.newConversationNameInput.SetValue(meta.Name)
			a.newConversationPromptInput.SetValue(meta.SystemPrompt)
			a.newConversationNameInput.Focus()
			a.newConversationPromptInput.Blur()
			return a, textinput.Blink
		}
		return a, nil
	case "x":
		list := a.getConversationList()
		if a.selectedConversationIdx >= 0 && a.selectedConversationIdx < len(list) {
			if a.conversationExportInput.Width == 0 {
				a.conversationExportInput = textinput.New()
				a.conversationExportInput.Width = 70
				a.conversationExportInput.CharLimit = 500
			}
			conversationName := list[a.selectedConversationIdx].Name
			defaultPath := storage.GenerateExportPath(conversationName)
			a.conversationExportMode = true
			a.conversationExportInput.SetValue(defaultPath)
			a.conversationExportInput.Focus()
			return a, textinput.Blink
		}
		return a, nil
	case "d":
		list := a.getConversationList()
		if a.selectedConversationIdx >= 0 && a.selectedConversationIdx < len(list) {
			meta := list[a.selectedConversationIdx]
			a.confirmDeleteConversation = &meta
		}
		return a, nil
	}
	return a, nil
}

func (a AppView) handleNewConversationModalUpdate(msg tea.KeyMsg) (AppView, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.showNewConversationModal = false
		a.newConversationNameInput.Blur()
		a.newConversationPromptInput.Blur()
		a.newConversationToolIdx = 0
		a.newConversationAllowedTools = []string{}
		return a, nil

	case "tab":
		// Cycle through fields: 0=name, 1=prompt, 2=tools
		switch a.newConversationFocusedField {
		case 0:
			a.newConversationFocusedField = 1
			a.newConversationNameInput.Blur()
			a.newConversationPromptInput.Focus()
		case 1:
			a.newConversationFocusedField = 2
			a.newConversationPromptInput.Blur()
		default:
			// From tools back to name
			a.newConversationFocusedField = 0
			a.newConversationNameInput.Focus()
		}
		return a, textarea.Blink

	case "shift+tab":
		// Cycle backward through fields: 0=name, 2=tools, 1=prompt
		switch a.newConversationFocusedField {
		case 0:
			a.newConversationFocusedField = 2
			a.newConversationNameInput.Blur()
		case 1:
			a.newConversationFocusedField = 0
			a.newConversationPromptInput.Blur()
			a.newConversationNameInput.Focus()
		default:
			// From tools back to prompt
			a.newConversationFocusedField = 1
			a.newConversationPromptInput.Focus()
		}
		return a, textarea.Blink

	case "j", "down":
		// Navigate tools if in tool section
		if a.newConversationFocusedField == 2 {
			if a.newConversationToolIdx < len(a.availableToolNames())-1 {
				a.newConversationToolIdx++
			}
			return a, nil
		}
		// Fall through to update input fields

	case "k", "up":
		// Navigate tools if in tool section
		if a.newConversationFocusedField == 2 {
			if a.newConversationToolIdx > 0 {
				a.newConversationToolIdx--
			}
			return a, nil
		}
		// Fall through to update input fields

	case "e":
		// Mark selected tool as always allowed
		if a.newConversationFocusedField == 2 {
			available := a.availableToolNames()
			if a.newConversationToolIdx >= 0 && a.newConversationToolIdx < len(available) {
				a.newConversationAllowedTools = addToolName(a.newConversationAllowedTools, available[a.newConversationToolIdx])
			}
			return a, nil
		}
		// Fall through to update input fields

	case "d":
		// Put selected tool back to ask-first
		if a.newConversationFocusedField == 2 {
			available := a.availableToolNames()
			if a.newConversationToolIdx >= 0 && a.newConversationToolIdx < len(available) {
				a.newConversationAllowedTools = removeToolName(a.newConversationAllowedTools, available[a.newConversationToolIdx])
			}
			return a, nil
		}
		// Fall through to update input fields

	case "enter":
		if a.newConversationFocusedField == 1 {
			var cmd tea.Cmd
			a.newConversationPromptInput, cmd = a.newConversationPromptInput.Update(msg)
			return a, cmd
		}

		// Only create the conversation if not in the tool navigation field
		if a.newConversationFocusedField != 2 {
			return a.createConversationFromModal()
		}

	case "alt+enter":
		// Save from any field
		return a.createConversationFromModal()
	}

	// Update focused input field with the key (for fields 0 and 1)
	// This allows normal typing in name and system prompt fields
	var cmd tea.Cmd
	switch a.newConversationFocusedField {
	case 0:
		a.newConversationNameInput, cmd = a.newConversationNameInput.Update(msg)
	case 1:
		a.newConversationPromptInput, cmd = a.newConversationPromptInput.Update(msg)
	}
	// Field 2 (tools) doesn't have an input component to update

	return a, cmd
}

// createConversationFromModal creates and opens a conversation from the new
// conversation modal's current values
func (a AppView) createConversationFromModal() (AppView, tea.Cmd) {
	name := strings.TrimSpace(a.newConversationNameInput.Value())
	systemPrompt := strings.TrimSpace(a.newConversationPromptInput.Value())

	newConversation, err := a.dataModel.CreateAndSaveNewConversation(name, systemPrompt, a.newConversationAllowedTools)

	a.showNewConversationModal = false
	a.newConversationNameInput.Blur()
	a.newConversationPromptInput.Blur()
	a.newConversationToolIdx = 0
	a.newConversationAllowedTools = []string{}

	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("Failed to create new conversation: %v", err)
		}
		return a, nil
	}

	a.dataModel.Messages = []Message{}
	a.setCurrentConversation(newConversation)

	a.dataModel.ConversationDirty = false
	a.showConversationManager = false
	a.textarea.Reset()
	a.updateViewportContent(true)
	return a, nil
}

func addToolName(list []string, name string) []string {
	for _, n := range list {
		if n == name {
			return list
		}
	}
	return append(list, name)
}

func removeToolName(list []string, name string) []string {
	out := []string{}
	for _, n := range list {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

func (a AppView) handleModelSelectorUpdate(msg tea.KeyMsg) (AppView, tea.Cmd) {
	// Handle model filter mode
	if a.modelFilterMode {
		switch msg.String() {
		case "esc":
			a.modelFilterMode = false
			a.modelFilterInput.Blur()
			a.modelFilterInput.SetValue("")
			a.filteredModelList = []backend.ModelInfo{}
			a.selectedModelIdx = 0
			return a, nil

		case "enter":
			list := a.getModelList()
			if a.selectedModelIdx >= 0 && a.selectedModelIdx < len(list) {
				selectedModelInfo := list[a.selectedModelIdx]
				a.modelFilterMode = false
				return a.selectModel(selectedModelInfo)
			}
			return a, nil

		case "alt+j", "alt+down", "down":
			list := a.getModelList()
			if a.selectedModelIdx < len(list)-1 {
				a.selectedModelIdx++
			}
			return a, nil

		case "alt+k", "alt+up", "up":
			if a.selectedModelIdx > 0 {
				a.selectedModelIdx--
			}
			return a, nil
		}

		var cmd tea.Cmd
		a.modelFilterInput, cmd = a.modelFilterInput.Update(msg)

		filterValue := a.modelFilterInput.Value()
		if filterValue == "" {
			a.filteredModelList = a.modelList
		} else {
			targets := make([]string, len(a.modelList))
			for i, mdl := range a.modelList {
				targets[i] = mdl.Name
			}

			matches := fuzzy.Find(filterValue, targets)
			a.filteredModelList = make([]backend.ModelInfo, len(matches))
			for i, match := range matches {
				a.filteredModelList[i] = a.modelList[match.Index]
			}
		}

		list := a.getModelList()
		if a.selectedModelIdx >= len(list) && len(list) > 0 {
			a.selectedModelIdx = len(list) - 1
		}

		return a, cmd
	}

	// Normal model selector mode
	switch msg.String() {
	case "/":
		if !a.modelFilterMode {
			a.modelFilterMode = true
			a.modelFilterInput.Focus()
			a.modelFilterInput.SetValue("")
			a.filteredModelList = a.modelList
			return a, textinput.Blink
		}
	case "esc", "alt+m":
		a.showModelSelector = false
		return a, nil
	case "alt+r":
		// Refresh model list (user-initiated, keep selector open)
		return a, a.dataModel.FetchAllModels(true)
	case "j", "down":
		list := a.getModelList()
		if a.selectedModelIdx < len(list)-1 {
			a.selectedModelIdx++
		}
		return a, nil
	case "k", "up":
		if a.selectedModelIdx > 0 {
			a.selectedModelIdx--
		}
		return a, nil
	case "enter":
		// Select model and close modal
		list := a.getModelList()
		if a.selectedModelIdx >= 0 && a.selectedModelIdx < len(list) {
			return a.selectModel(list[a.selectedModelIdx])
		}
		return a, nil
	}
	return a, nil
}

// selectModel applies a model choice from the selector. In settings mode it
// only updates the default-model field; otherwise it switches the active
// provider, warning first when the conversation always-allows tools the
// model cannot call.
func (a AppView) selectModel(selectedModelInfo backend.ModelInfo) (AppView, tea.Cmd) {
	if a.showSettings {
		a.settingsFields[2].Value = selectedModelInfo.Name
		a.settingsHasChanges = true
		a.showModelSelector = false
		return a, nil
	}

	hasAllowedTools := a.dataModel.CurrentConversation != nil && len(a.dataModel.CurrentConversation.AllowedTools) > 0

	if hasAllowedTools && !ModelSupportsTools(selectedModelInfo) {
		a.pendingModelSwitch = selectedModelInfo.Name
		a.toolWarningToolList = append([]string{}, a.dataModel.CurrentConversation.AllowedTools...)
		a.showToolWarningModal = true
		a.showModelSelector = false
		return a, nil
	}

	a.showModelSelector = false
	return a, a.dataModel.SwitchModel(selectedModelInfo)
}

func (a AppView) handleAboutUpdate(msg tea.KeyMsg) (AppView, tea.Cmd) {
	if msg.String() == "esc" || msg.String() == "alt+A" {
		a.showAbout = false
		return a, nil
	}
	return a, nil
}

func (a AppView) handleSettingsUpdate(msg tea.KeyMsg) (AppView, tea.Cmd) {
	model, cmd := a.handleSettingsInput(msg)
	return model.(AppView), cmd
}

func (a AppView) handleMessageSearchUpdate(msg tea.KeyMsg) (AppView, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.showMessageSearch = false
		return a, nil
	case "up", "alt+k":
		if a.selectedSearchIdx > 0 {
			a.selectedSearchIdx--
		}
		return a, nil
	case "down", "alt+j":
		if a.selectedSearchIdx < len(a.messageSearchResults)-1 {
			a.selectedSearchIdx++
		}
		return a, nil
	case "enter":
		if a.selectedSearchIdx >= 0 && a.selectedSearchIdx < len(a.messageSearchResults) {
			match := a.messageSearchResults[a.selectedSearchIdx]
			messageIdx := match.MessageIndex

			a.highlightedMessageIdx = messageIdx
			a.highlightFlashCount = 1
			a.showMessageSearch = false
			a.updateViewportContent(false)

			// Re-render the content above the match to find its line offset
			var offsetContent strings.Builder
			for i := 0; i < messageIdx; i++ {
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
			if centerOffset < 0 {
				centerOffset = 0
			}
			totalLines := a.viewport.TotalLineCount()
			if centerOffset > totalLines-viewportHeight {
				centerOffset = totalLines - viewportHeight
			}
			a.viewport.SetYOffset(centerOffset)

			return a, tea.Tick(300*time.Millisecond, func(time.Time) tea.Msg {
				return flashTickMsg{}
			})
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.messageSearchInput, cmd = a.messageSearchInput.Update(msg)
	query := a.messageSearchInput.Value()
	if query != "" {
		// Convert []Message to []storage.Message
		storageMessages := make([]storage.Message, len(a.dataModel.Messages))
		for i, msg := range a.dataModel.Messages {
			storageMessages[i] = storage.Message{
				Role:      msg.Role,
				Content:   msg.Content,
				Rendered:  msg.Rendered,
				Timestamp: msg.Timestamp,
			}
		}
		a.messageSearchResults = storage.SearchMessages(storageMessages, query)
		a.selectedSearchIdx = 0
	} else {
		a.messageSearchResults = []storage.MessageMatch{}
	}
	return a, cmd
}

func (a AppView) handleGlobalSearchUpdate(msg tea.KeyMsg) (AppView, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.showGlobalSearch = false
		return a, nil
	case "up", "alt+k":
		if a.selectedGlobalIdx > 0 {
			a.selectedGlobalIdx--
		}
		return a, nil
	case "down", "alt+j":
		if a.selectedGlobalIdx < len(a.globalSearchResults)-1 {
			a.selectedGlobalIdx++
		}
		return a, nil
	case "enter":
		if a.selectedGlobalIdx >= 0 && a.selectedGlobalIdx < len(a.globalSearchResults) {
			selectedMatch := a.globalSearchResults[a.selectedGlobalIdx]
			a.showGlobalSearch = false
			a.pendingScrollToMessageIdx = selectedMatch.MessageIndex
			return a, a.dataModel.LoadConversation(selectedMatch.ConversationID)
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.globalSearchInput, cmd = a.globalSearchInput.Update(msg)
	query := a.globalSearchInput.Value()
	if query == "" {
		a.globalSearchResults = []storage.IndexedMessage{}
		return a, cmd
	}

	// Query the index off the Update loop, results come back as indexSearchMsg
	return a, tea.Batch(cmd, a.dataModel.SearchAllConversations(query))
}

func (a AppView) handleEditConversationModalUpdate(msg tea.KeyMsg) (AppView, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.showEditConversationModal = false
		a.newConversationNameInput.Blur()
		a.newConversationPromptInput.Blur()
		a.editConversationID = ""
		return a, nil

	case "tab":
		// Cycle through fields: 0=name, 1=prompt, 2=tools
		switch a.newConversationFocusedField {
		case 0:
			a.newConversationFocusedField = 1
			a.newConversationNameInput.Blur()
			a.newConversationPromptInput.Focus()
		case 1:
			a.newConversationFocusedField = 2
			a.newConversationPromptInput.Blur()
		default:
			// From tools back to name
			a.newConversationFocusedField = 0
			a.newConversationNameInput.Focus()
		}
		return a, textarea.Blink

	case "shift+tab":
		// Cycle backward through fields: 0=name, 2=tools, 1=prompt
		switch a.newConversationFocusedField {
		case 0:
			a.newConversationFocusedField = 2
			a.newConversationNameInput.Blur()
		case 1:
			a.newConversationFocusedField = 0
			a.newConversationPromptInput.Blur()
			a.newConversationNameInput.Focus()
		default:
			// From tools back to prompt
			a.newConversationFocusedField = 1
			a.newConversationPromptInput.Focus()
		}
		return a, textarea.Blink

	case "j", "down":
		// Navigate tools if in tool section
		if a.newConversationFocusedField == 2 {
			if a.editConversationToolIdx < len(a.availableToolNames())-1 {
				a.editConversationToolIdx++
			}
			return a, nil
		}
		// Fall through to update input fields

	case "k", "up":
		// Navigate tools if in tool section
		if a.newConversationFocusedField == 2 {
			if a.editConversationToolIdx > 0 {
				a.editConversationToolIdx--
			}
			return a, nil
		}
		// Fall through to update input fields

	case "e":
		// Mark selected tool as always allowed
		if a.newConversationFocusedField == 2 {
			available := a.availableToolNames()
			if a.editConversationToolIdx >= 0 && a.editConversationToolIdx < len(available) {
				a.editConversationAllowedTools = addToolName(a.editConversationAllowedTools, available[a.editConversationToolIdx])
			}
			return a, nil
		}
		// Fall through to update input fields

	case "d":
		// Put selected tool back to ask-first
		if a.newConversationFocusedField == 2 {
			available := a.availableToolNames()
			if a.editConversationToolIdx >= 0 && a.editConversationToolIdx < len(available) {
				a.editConversationAllowedTools = removeToolName(a.editConversationAllowedTools, available[a.editConversationToolIdx])
			}
			return a, nil
		}
		// Fall through to update input fields

	case "alt+u":
		// Clear the focused field
		switch a.newConversationFocusedField {
		case 0: // Name field
			a.newConversationNameInput.SetValue("")
		case 1: // Prompt field
			a.newConversationPromptInput.SetValue("")
		}
		return a, nil

	case "alt+enter":
		// Save from any field
		newName := strings.TrimSpace(a.newConversationNameInput.Value())
		newSystemPrompt := strings.TrimSpace(a.newConversationPromptInput.Value())
		allowedTools := a.editConversationAllowedTools

		conversationID := a.editConversationID
		a.showEditConversationModal = false
		a.newConversationNameInput.Blur()
		a.newConversationPromptInput.Blur()
		a.editConversationID = ""

		return a, a.dataModel.UpdateConversationPropertiesCmd(conversationID, newName, newSystemPrompt, allowedTools)
	}

	// Update focused input field with the key (for fields 0 and 1)
	// This allows normal typing in name and system prompt fields
	var cmd tea.Cmd
	switch a.newConversationFocusedField {
	case 0:
		a.newConversationNameInput, cmd = a.newConversationNameInput.Update(msg)
	case 1:
		a.newConversationPromptInput, cmd = a.newConversationPromptInput.Update(msg)
	}
	// Field 2 (tools) doesn't have an input component to update

	return a, cmd
}

func (a AppView) handleToolWarningModalUpdate(msg tea.KeyMsg) (AppView, tea.Cmd) {
	switch msg.String() {
	case "enter", "y":
		// User confirmed, proceed with the model switch
		_, found := FindModelByName(a.modelList, a.pendingModelSwitch)

		a.showToolWarningModal = false
		a.pendingModelSwitch = ""
		a.toolWarningToolList = nil

		if found == nil {
			return a, nil
		}
		return a, a.dataModel.SwitchModel(*found)

	case "esc":
		// User cancelled, keep the current model
		a.showToolWarningModal = false
		a.pendingModelSwitch = ""
		a.toolWarningToolList = nil
		return a, nil
	}

	return a, nil
}
