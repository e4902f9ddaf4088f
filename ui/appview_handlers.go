package ui

import (
	"context"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"aster/config"
)

func (a AppView) handleConversationRenameMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "esc":
		a.conversationRenameMode = false
		a.conversationRenameInput.Blur()
		return a, nil

	case "enter":
		newName := strings.TrimSpace(a.conversationRenameInput.Value())
		if newName == "" {
			return a, nil
		}

		conversationID := a.conversationList[a.selectedConversationIdx].ID
		a.conversationRenameMode = false
		a.conversationRenameInput.Blur()

		// Keep the title bar in sync when the open conversation is renamed
		if a.dataModel.CurrentConversation != nil && a.dataModel.CurrentConversation.ID == conversationID {
			a.dataModel.CurrentConversation.Name = newName
		}

		return a, a.dataModel.RenameConversationCmd(conversationID, newName)

	case "alt+u":
		a.conversationRenameInput.SetValue("")
		return a, nil
	}

	a.conversationRenameInput, cmd = a.conversationRenameInput.Update(msg)
	return a, cmd
}

func (a AppView) handlePassphraseForDataDir(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			// Cancel passphrase entry
			a.showPassphraseForDataDir = false
			a.passphraseForDataDir.SetValue("")
			a.passphraseForDataDir.Blur()
			a.passphraseRetryDataDir = ""
			a.passphraseError = ""
			a.settingsSaveError = "Data directory switch cancelled (passphrase required)"
			return a, nil

		case "enter":
			passphrase := a.passphraseForDataDir.Value()
			if passphrase == "" {
				a.passphraseError = "Passphrase cannot be empty"
				return a, nil
			}

			// Retry the data directory switch with the passphrase
			if err := a.applyDataDirSwitch(a.passphraseRetryDataDir, passphrase); err != nil {
				// Still failed - wrong passphrase or other error
				a.passphraseError = "Incorrect passphrase, please try again"
				a.passphraseForDataDir.SetValue("")
				return a, textinput.Blink
			}

			// Success - close passphrase modal
			a.showPassphraseForDataDir = false
			a.passphraseForDataDir.SetValue("")
			a.passphraseForDataDir.Blur()
			a.passphraseError = ""
			a.passphraseRetryDataDir = ""

			// Re-initialize providers against the new data directory
			providerRefreshCmd := a.refreshProvidersAndModels()

			// Refresh UI
			a.resetUIStateForDataDirSwitch()

			return a, tea.Batch(
				a.dataModel.FetchConversationList(),
				providerRefreshCmd,
			)
		}

		// Update passphrase input
		a.passphraseForDataDir, cmd = a.passphraseForDataDir.Update(msg)
		return a, cmd
	}

	return a, nil
}

func (a AppView) handleConversationExportMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	// If processing or cleaning up, only handle escape
	if a.exportingConversation || a.exportCleaningUp {
		if msg.String() == "esc" && a.exportingConversation && !a.exportCleaningUp {
			if a.exportCancelFunc != nil {
				a.exportCancelFunc()
			}
		}
		return a, nil
	}

	switch msg.String() {
	case "esc":
		a.conversationExportMode = false
		a.conversationExportInput.Blur()
		return a, nil

	case "enter":
		exportPath := strings.TrimSpace(a.conversationExportInput.Value())
		if exportPath == "" {
			return a, nil
		}

		conversationID := a.conversationList[a.selectedConversationIdx].ID

		// Expand path immediately to track it
		a.exportTargetPath = config.ExpandPath(exportPath)

		// Create cancellation context
		ctx, cancel := context.WithCancel(context.Background())
		a.exportCancelCtx = ctx
		a.exportCancelFunc = cancel

		// Initialize export spinner (reuse chat spinner style)
		a.exportSpinner = spinner.New()
		a.exportSpinner.Spinner = spinner.Dot
		a.exportSpinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))

		// Set exporting state
		a.exportingConversation = true
		a.conversationExportInput.Blur()

		// Start export with context and spinner tick
		return a, tea.Batch(
			a.dataModel.ExportConversationCmd(ctx, conversationID, a.exportTargetPath),
			a.exportSpinner.Tick,
		)

	case "alt+u":
		a.conversationExportInput.SetValue("")
		return a, nil
	}

	a.conversationExportInput, cmd = a.conversationExportInput.Update(msg)
	return a, cmd
}

func (a AppView) handleConversationImportMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	// Handle success acknowledgment
	if a.conversationImportPicker.Success != nil {
		if msg.String() == "enter" || msg.String() == "esc" {
			a.conversationImportSuccess = nil
			a.conversationImportPicker.Reset()
			return a, nil
		}
		return a, nil
	}

	// If processing, only handle escape
	if a.conversationImportPicker.Processing || a.conversationImportPicker.CleaningUp {
		if msg.String() == "esc" {
			if a.conversationImportCancelFunc != nil {
				a.conversationImportCancelFunc()
			}
		}
		return a, nil
	}

	switch msg.String() {
	case "esc":
		a.conversationImportPicker.Reset()
		return a, nil
	}

	// Update picker with the KeyMsg FIRST
	a.conversationImportPicker.Picker, cmd = a.conversationImportPicker.Picker.Update(msg)

	// Check if Path was set and it's a FILE (not directory)
	if a.conversationImportPicker.Picker.Path != "" {
		// Verify it's actually a file, not a directory
		if info, err := os.Stat(a.conversationImportPicker.Picker.Path); err == nil && !info.IsDir() {
			path := a.conversationImportPicker.Picker.Path

			if config.DebugLog != nil {
				config.DebugLog.Printf("Import file selected: %s", path)
			}

			// Create cancellation context
			ctx, cancel := context.WithCancel(context.Background())
			a.conversationImportCancelCtx = ctx
			a.conversationImportCancelFunc = cancel

			// Start import
			a.conversationImportPicker.Processing = true

			return a, tea.Batch(
				a.dataModel.ImportConversationCmd(ctx, path),
				a.conversationImportPicker.Spinner.Tick,
			)
		}
		// If it's a directory, clear Path so we don't trigger again
		a.conversationImportPicker.Picker.Path = ""
	}

	return a, cmd
}
