package ui

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"aster/backend"
	"aster/config"
	"aster/gate"
	"aster/provider"
	"aster/storage"
	"aster/tools"
)

type backendValidationMsg struct {
	success bool
	err     error
}

type dataDirectoryLoadedMsg struct {
	normalizedPath string
	configLoaded   bool
	backendURL     string
	defaultModel   string
	systemPrompt   string
	workspaceDir   string
	err            error
}

type settingsSaveMsg struct {
	success bool
	err     error
}

type dataDirectoryNotFoundMsg struct {
	path string
}

type dataExportedMsg struct {
	Path      string
	Err       error
	Cancelled bool
}

type dataExportCleanupDoneMsg struct{}

// errPassphraseRequired signals that the new data directory's credential
// store is encrypted with a passphrase-protected SSH key.
var errPassphraseRequired = errors.New("ssh key passphrase required")

func (a AppView) handleSettingsInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dataDirectoryNotFoundMsg:
		// Data directory doesn't exist - show confirmation modal
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Settings] Showing new data dir confirmation for: %s", msg.path)
		}
		a.settingsDataDirNotFound = true
		a.settingsNewDataDirPath = msg.path
		return a, nil

	case dataDirectoryLoadedMsg:
		if msg.err != nil {
			// Show error and clear dependent fields
			a.settingsFields[0].Validation = FieldValidationError
			a.settingsFields[0].ErrorMsg = msg.err.Error()
			a.settingsFields[1].Value = ""
			a.settingsFields[2].Value = ""
			a.settingsFields[3].Value = ""
			a.settingsFields[4].Value = ""
			a.settingsLoadedInfo = ""
			return a, nil
		}

		a.settingsFields[0].Value = msg.normalizedPath
		a.settingsFields[0].Validation = FieldValidationNone

		if msg.configLoaded {
			// Update ALL fields from new data directory config
			a.settingsFields[1].Value = msg.backendURL
			a.settingsFields[2].Value = msg.defaultModel
			a.settingsFields[3].Value = msg.systemPrompt
			a.settingsFields[4].Value = msg.workspaceDir
			a.settingsLoadedInfo = "ℹ Loaded config from data directory"
			a.settingsHasChanges = true
			// Trigger validation of the new backend URL
			a.settingsFields[1].Validation = FieldValidationPending
			return a, validateBackendURLCmd(msg.backendURL)
		}

		// No config found - clear all dependent fields
		a.settingsFields[1].Value = ""
		a.settingsFields[2].Value = ""
		a.settingsFields[3].Value = ""
		a.settingsFields[4].Value = ""
		a.settingsLoadedInfo = ""
		return a, nil

	case backendValidationMsg:
		if msg.success {
			a.settingsFields[1].Validation = FieldValidationSuccess
			a.settingsFields[1].ErrorMsg = ""
		} else {
			a.settingsFields[1].Validation = FieldValidationError
			a.settingsFields[1].ErrorMsg = msg.err.Error()
		}
		return a, nil

	case settingsSaveMsg:
		if !msg.success {
			// Show error inline in settings modal
			a.settingsSaveError = msg.err.Error()
			return a, nil
		}
		return a.applySavedSettings()

	case tea.KeyMsg:
		// Handle confirmation modal
		if a.settingsConfirmExit {
			switch msg.String() {
			case "y", "Y":
				a.settingsConfirmExit = false
				a.settingsHasChanges = false
				a.showSettings = false
				return a, nil
			case "n", "N", "esc":
				a.settingsConfirmExit = false
				return a, nil
			}
			return a, nil
		}

		// Handle data export mode
		if a.dataExportMode {
			// Handle Esc cancellation during export
			if msg.String() == "esc" && a.exportingDataDir && !a.dataExportCleaningUp {
				if a.dataExportCancelFunc != nil {
					a.dataExportCancelFunc()
				}
				return a, nil
			}
			return a.handleDataExportMode(msg)
		}

		// Handle edit mode
		if a.settingsEditMode {
			return a.handleSettingsEditMode(msg)
		}

		// Handle navigation mode
		return a.handleSettingsNavigationMode(msg)
	}

	return a, nil
}

// applySavedSettings runs after the settings file has been written: it
// reloads the config and re-wires storage, tools and providers as needed.
func (a AppView) applySavedSettings() (tea.Model, tea.Cmd) {
	oldDataDir := a.dataModel.Config.DataDir()
	oldBackendURL := a.dataModel.Config.RelayURL
	oldWorkspaceDir := a.dataModel.Config.WorkspaceDir()

	// Reload config immediately after a successful save to pick up fresh
	// values. The data dir case reloads again inside applyDataDirSwitch.
	cfg, err := config.Load()
	if cfg == nil {
		a.showAcknowledgeModal = true
		a.acknowledgeModalTitle = "⚠️  Settings Save Error"
		a.acknowledgeModalMsg = fmt.Sprintf("Settings were saved to disk but failed to reload:\n\n%v\n\nPlease restart aster to ensure changes take effect.", err)
		a.acknowledgeModalType = ModalTypeError
		return a, nil
	}

	newDataDir := cfg.DataDir()

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Settings Save] oldDataDir=%s newDataDir=%s", oldDataDir, newDataDir)
	}

	// Data directory change rebuilds the whole stack against the new dir
	if newDataDir != oldDataDir {
		a.showSettings = false
		a.settingsHasChanges = false
		a.settingsSaveError = ""

		if err := a.applyDataDirSwitch(newDataDir, ""); err != nil {
			if errors.Is(err, errPassphraseRequired) {
				// New data dir is SSH-encrypted, ask for the passphrase
				a.showPassphraseForDataDir = true
				a.passphraseForDataDir = NewPassphraseInput("Enter passphrase")
				a.passphraseForDataDir.Focus()
				a.passphraseRetryDataDir = newDataDir
				a.passphraseError = ""
				return a, textinput.Blink
			}

			a.showAcknowledgeModal = true
			a.acknowledgeModalTitle = "⚠️  Data Directory Error"
			a.acknowledgeModalMsg = fmt.Sprintf("Failed to switch data directory:\n\n%v", err)
			a.acknowledgeModalType = ModalTypeError
			return a, nil
		}

		providerRefreshCmd := a.refreshProvidersAndModels()
		a.resetUIStateForDataDirSwitch()
		return a, tea.Batch(
			a.dataModel.FetchConversationList(),
			providerRefreshCmd,
		)
	}

	// Same data dir - swap config in place
	cfg.CredentialStore = a.dataModel.Config.CredentialStore
	a.dataModel.Config = cfg

	var cmds []tea.Cmd

	// Workspace change re-roots the tool sandbox
	if cfg.WorkspaceDir() != oldWorkspaceDir {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Settings] Workspace directory changed: %s -> %s", oldWorkspaceDir, cfg.WorkspaceDir())
		}
		reg := tools.NewRegistry(cfg.WorkspaceDir(), cfg.SearchResultLimit)
		a.dataModel.Tools = reg
		a.dataModel.Gates = gate.NewRegistry(reg)
	}

	// Backend URL change rebuilds the providers
	if cfg.RelayURL != oldBackendURL {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Settings] Backend URL changed: %s -> %s", oldBackendURL, cfg.RelayURL)
		}
		cmds = append(cmds, a.refreshProvidersAndModels())
	} else if a.dataModel.Provider != nil && cfg.DefaultModel != "" {
		a.dataModel.Provider.SetModel(cfg.DefaultModel)
	}

	a.showSettings = false
	a.settingsHasChanges = false
	a.settingsSaveError = ""
	cmds = append(cmds, a.dataModel.FetchConversationList())
	return a, tea.Batch(cmds...)
}

// applyDataDirSwitch points the whole application at a different data
// directory: config, credentials, conversation storage, search index,
// instance lock, tools and providers.
//
// Returns errPassphraseRequired when the target directory's credential
// store uses a passphrase-protected SSH key and no passphrase was given.
func (a *AppView) applyDataDirSwitch(newDataDir, passphrase string) error {
	// The system config already points at newDataDir (saved before this
	// call), so a full reload picks up the new directory's user config.
	cfg, err := config.Load()
	if err != nil {
		if cfg == nil {
			return err
		}

		// Credential load failure - maybe an encrypted SSH key
		if cfg.CredentialStore != nil && cfg.CredentialStore.GetMethod() == config.SecuritySSHKey {
			if passphrase == "" {
				a.passphraseSSHKeyPath = cfg.CredentialStore.SSHKeyPath()
				return errPassphraseRequired
			}
			cfg.CredentialStore.SetPassphrase(passphrase)
			if err := cfg.CredentialStore.Load(cfg.DataDir()); err != nil {
				return err
			}
		} else {
			return err
		}
	}

	// Release locks held against the old data directory
	if a.dataModel.Store != nil {
		if a.dataModel.CurrentConversation != nil {
			_ = a.dataModel.Store.UnlockConversation(a.dataModel.CurrentConversation.ID)
		}
		_ = a.dataModel.Store.UnlockInstance()
	}

	newStore, err := storage.NewConversationStorage(cfg.DataDir())
	if err != nil {
		return fmt.Errorf("failed to open conversation storage: %w", err)
	}

	newIndex, err := storage.NewSearchIndex(cfg.DataDir())
	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Settings] Search index unavailable in new data dir: %v", err)
		}
		newIndex = nil
	}

	if err := newStore.LockInstance(); err != nil && config.DebugLog != nil {
		config.DebugLog.Printf("[Settings] Could not lock instance in new data dir: %v", err)
	}

	reg := tools.NewRegistry(cfg.WorkspaceDir(), cfg.SearchResultLimit)

	a.dataModel.Config = cfg
	a.dataModel.Store = newStore
	a.dataModel.SearchIndex = newIndex
	a.dataModel.Tools = reg
	a.dataModel.Gates = gate.NewRegistry(reg)
	a.dataModel.CurrentConversation = nil
	a.dataModel.Messages = []Message{}
	a.dataModel.ConversationDirty = false

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Settings] Data directory switched to: %s", cfg.DataDir())
	}

	return nil
}

// refreshProvidersAndModels re-initializes all providers from the current
// config and kicks off a background model fetch.
func (a *AppView) refreshProvidersAndModels() tea.Cmd {
	cfg := a.dataModel.Config
	a.dataModel.Providers = provider.InitializeProviders(cfg)

	if p, ok := a.dataModel.Providers[cfg.DefaultProvider]; ok {
		a.dataModel.Provider = p
	} else if p, ok := a.dataModel.Providers["relay"]; ok {
		a.dataModel.Provider = p
	}
	if a.dataModel.Provider != nil && cfg.DefaultModel != "" {
		a.dataModel.Provider.SetModel(cfg.DefaultModel)
	}
	a.syncRelayConversation()

	for id := range a.dataModel.Providers {
		a.dataModel.ClearModelCache(id)
	}
	a.modelList = nil
	a.modelListCached = false

	return tea.Batch(
		a.dataModel.FetchAllModels(false),
		a.dataModel.PingProvider(),
	)
}

// resetUIStateForDataDirSwitch clears conversation-bound UI state after the
// data directory changed underneath it.
func (a *AppView) resetUIStateForDataDirSwitch() {
	a.dataModel.Messages = []Message{}
	a.textarea.Reset()
	a.conversationList = nil
	a.filteredConversationList = nil
	a.selectedConversationIdx = 0
	a.highlightedMessageIdx = -1
	a.highlightFlashCount = 0
	a.updateViewportContent(true)
}

func (a AppView) handleSettingsNavigationMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle new data directory confirmation modal (y/n)
	if a.settingsDataDirNotFound {
		switch msg.String() {
		case "y", "Y":
			// User confirmed - create the new data directory via restart
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Settings] User confirmed new data dir creation: %s", a.settingsNewDataDirPath)
			}

			a.settingsDataDirNotFound = false
			a.showSettings = false

			// Write system config with new data dir
			systemCfg := &config.SystemConfig{
				DataDirectory: a.settingsNewDataDirPath,
			}
			if err := config.SaveSystemConfig(systemCfg); err != nil {
				a.showAcknowledgeModal = true
				a.acknowledgeModalTitle = "⚠️  Error"
				a.acknowledgeModalMsg = fmt.Sprintf("Failed to save config:\n\n%v", err)
				a.acknowledgeModalType = ModalTypeError
				return a, nil
			}

			// Restart so startup runs first-launch setup in the new dir
			a.RestartAfterQuit = true
			a.dataModel.Quitting = true

			a.ReleaseLocks()
			return a, tea.Quit

		case "n", "N", "esc":
			// User cancelled - return to Settings
			a.settingsDataDirNotFound = false
			return a, nil
		}
		return a, nil
	}

	// If showing save error, Enter/Esc clears it
	if a.settingsSaveError != "" {
		if msg.String() == "enter" || msg.String() == "esc" {
			a.settingsSaveError = ""
			return a, nil
		}
		return a, nil
	}

	switch msg.String() {
	case "q":
		a.showSettings = false
		return a, nil

	case "esc":
		if a.settingsHasChanges {
			a.settingsConfirmExit = true
			return a, nil
		}
		a.showSettings = false
		return a, nil

	case "j", "down":
		if a.selectedSettingIdx < len(a.settingsFields)-1 {
			a.selectedSettingIdx++
		}
		return a, nil

	case "k", "up":
		if a.selectedSettingIdx > 0 {
			a.selectedSettingIdx--
		}
		return a, nil

	case "enter":
		// Model field opens the model selector instead of a text input
		if a.settingsFields[a.selectedSettingIdx].Type == SettingTypeModel {
			return a, a.dataModel.FetchAllModels(true)
		}

		// Enter edit mode for other fields
		a.settingsEditMode = true
		a.settingsEditInput.SetValue(a.settingsFields[a.selectedSettingIdx].Value)
		a.settingsEditInput.Focus()
		return a, textinput.Blink

	case "r":
		// Reset to default
		a.settingsFields[a.selectedSettingIdx].Value = a.settingsFields[a.selectedSettingIdx].DefaultValue
		a.settingsFields[a.selectedSettingIdx].Validation = FieldValidationNone
		a.settingsFields[a.selectedSettingIdx].ErrorMsg = ""
		a.settingsHasChanges = true
		return a, nil

	case "x":
		// Open data export modal
		a.dataExportMode = true

		// Lazy init textinput
		if a.dataExportInput.Width == 0 {
			a.dataExportInput = textinput.New()
			a.dataExportInput.Width = 70
			a.dataExportInput.CharLimit = 500
		}

		// Generate default filename
		now := time.Now()
		defaultFilename := fmt.Sprintf("~/Downloads/aster-data-%s.tar.gz",
			now.Format("010206-1504")) // MMDDYY-HHMM

		a.dataExportInput.SetValue(defaultFilename)
		a.dataExportInput.Focus()
		return a, textinput.Blink

	case "alt+enter":
		// Save settings
		return a, a.saveSettingsCmd()
	}

	return a, nil
}

func (a AppView) handleDataExportMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	// Handle success acknowledgment
	if a.dataExportSuccess != "" {
		if msg.String() == "enter" || msg.String() == "esc" {
			a.dataExportSuccess = ""
			a.dataExportMode = false
			return a, nil
		}
		return a, nil
	}

	switch msg.String() {
	case "esc":
		a.dataExportMode = false
		a.dataExportInput.Blur()
		return a, nil

	case "enter":
		exportPath := strings.TrimSpace(a.dataExportInput.Value())
		if exportPath == "" {
			return a, nil
		}

		// Get data directory from config (already loaded at launch)
		dataDir := a.dataModel.Config.DataDir()

		// Expand export path
		a.dataExportTargetPath = config.ExpandPath(exportPath)

		// Create cancellation context
		ctx, cancel := context.WithCancel(context.Background())
		a.dataExportCancelCtx = ctx
		a.dataExportCancelFunc = cancel

		// Initialize spinner
		a.dataExportSpinner = spinner.New()
		a.dataExportSpinner.Spinner = spinner.Dot
		a.dataExportSpinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))

		// Set exporting state
		a.exportingDataDir = true
		a.dataExportInput.Blur()

		// Start export
		return a, tea.Batch(
			a.exportDataDirCmd(ctx, dataDir, a.dataExportTargetPath),
			a.dataExportSpinner.Tick,
		)

	case "alt+u":
		a.dataExportInput.SetValue("")
		return a, nil
	}

	a.dataExportInput, cmd = a.dataExportInput.Update(msg)
	return a, cmd
}

func (a AppView) handleSettingsEditMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "esc":
		// Cancel edit
		a.settingsEditMode = false
		a.settingsEditInput.Blur()
		return a, nil

	case "enter":
		// Save edited value
		newValue := a.settingsEditInput.Value()
		if newValue != a.settingsFields[a.selectedSettingIdx].Value {
			a.settingsFields[a.selectedSettingIdx].Value = newValue
			a.settingsHasChanges = true

			// Handle specific field logic
			switch a.settingsFields[a.selectedSettingIdx].Type {
			case SettingTypeDataDir:
				a.settingsEditMode = false
				a.settingsEditInput.Blur()
				return a, a.handleDataDirectoryChangeCmd(newValue)

			case SettingTypeBackendURL:
				a.settingsFields[a.selectedSettingIdx].Validation = FieldValidationPending
				a.settingsEditMode = false
				a.settingsEditInput.Blur()
				return a, validateBackendURLCmd(newValue)
			}
		}

		a.settingsEditMode = false
		a.settingsEditInput.Blur()
		return a, nil

	case "alt+u":
		// Clear input
		a.settingsEditInput.SetValue("")
		return a, nil
	}

	a.settingsEditInput, cmd = a.settingsEditInput.Update(msg)
	return a, cmd
}

// normalizeDataDirectory expands and absolutizes a data directory path
func normalizeDataDirectory(path string) (string, error) {
	expanded := config.ExpandPath(strings.TrimSpace(path))
	if expanded == "" {
		return "", fmt.Errorf("data directory cannot be empty")
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	return filepath.Clean(abs), nil
}

func (a AppView) handleDataDirectoryChangeCmd(newPath string) tea.Cmd {
	return func() tea.Msg {
		normalized, err := normalizeDataDirectory(newPath)
		if err != nil {
			return dataDirectoryLoadedMsg{err: err}
		}

		// Check if config.toml exists in that directory
		configPath := filepath.Join(normalized, "config.toml")
		if !config.FileExists(configPath) {
			// No existing config
			return dataDirectoryLoadedMsg{
				normalizedPath: normalized,
				configLoaded:   false,
			}
		}

		userCfg, err := config.LoadUserConfig(normalized)
		if err != nil {
			return dataDirectoryLoadedMsg{
				normalizedPath: normalized,
				err:            fmt.Errorf("failed to load config: %w", err),
			}
		}

		return dataDirectoryLoadedMsg{
			normalizedPath: normalized,
			configLoaded:   true,
			backendURL:     userCfg.Relay.URL,
			defaultModel:   userCfg.Relay.DefaultModel,
			systemPrompt:   userCfg.DefaultSystemPrompt,
			workspaceDir:   userCfg.Tools.WorkspaceDirectory,
		}
	}
}

func validateBackendURLCmd(url string) tea.Cmd {
	return func() tea.Msg {
		if url == "" {
			return backendValidationMsg{success: false, err: fmt.Errorf("URL cannot be empty")}
		}

		client, err := backend.NewClient(url, "")
		if err != nil {
			return backendValidationMsg{success: false, err: err}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := client.Ping(ctx); err != nil {
			return backendValidationMsg{success: false, err: fmt.Errorf("failed to connect: %w", err)}
		}

		return backendValidationMsg{success: true}
	}
}

func (a AppView) saveSettingsCmd() tea.Cmd {
	return func() tea.Msg {
		// Normalize and check if data directory exists
		dataDir, err := normalizeDataDirectory(a.settingsFields[0].Value)
		if err != nil {
			return settingsSaveMsg{success: false, err: fmt.Errorf("invalid data directory: %w", err)}
		}

		if !fileExists(dataDir) {
			// Directory doesn't exist - prompt user to create a new one
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Settings] Data directory doesn't exist: %s", dataDir)
			}
			return dataDirectoryNotFoundMsg{path: dataDir}
		}

		// Save system config
		systemCfg := &config.SystemConfig{
			DataDirectory: a.settingsFields[0].Value,
		}
		if err := config.SaveSystemConfig(systemCfg); err != nil {
			return settingsSaveMsg{success: false, err: fmt.Errorf("failed to save system config: %w", err)}
		}

		// Load existing config to preserve provider and security settings
		existingCfg, err := config.LoadUserConfig(dataDir)
		if err != nil {
			return settingsSaveMsg{success: false, err: fmt.Errorf("failed to load existing config: %w", err)}
		}

		// Update ONLY the fields exposed in the Settings UI
		existingCfg.Relay.URL = a.settingsFields[1].Value
		existingCfg.Relay.DefaultModel = a.settingsFields[2].Value
		existingCfg.DefaultSystemPrompt = a.settingsFields[3].Value
		existingCfg.Tools.WorkspaceDirectory = a.settingsFields[4].Value

		// Save updated config (preserves DefaultProvider, Providers, Security)
		if err := config.SaveUserConfig(existingCfg, dataDir); err != nil {
			return settingsSaveMsg{success: false, err: fmt.Errorf("failed to save user config: %w", err)}
		}

		return settingsSaveMsg{success: true}
	}
}

func renderDataExportModal(exportInput textinput.Model, exporting bool, cleaningUp bool, exportSpinner spinner.Model, successPath string, width, height int) string {
	// Check for success state first
	if successPath != "" {
		return renderExportSuccess(successPath, "✓ Data Export Successful", width, height)
	}

	modalWidth := width - 10
	if modalWidth > 80 {
		modalWidth = 80
	}

	borderStyle := lipgloss.NewStyle().
		Foreground(dimColor).
		Width(modalWidth)

	topBorder := borderStyle.Render("┌" + strings.Repeat("─", modalWidth-2) + "┐")
	middleBorder := borderStyle.Render("├" + strings.Repeat("─", modalWidth-2) + "┤")
	bottomBorder := borderStyle.Render("└" + strings.Repeat("─", modalWidth-2) + "┘")
	emptyLine := "│" + strings.Repeat(" ", modalWidth-2) + "│"

	var content strings.Builder
	content.WriteString(topBorder + "\n")

	if cleaningUp {
		// State 3: Cleaning up
		content.WriteString(emptyLine + "\n")

		cleanupLine := fmt.Sprintf("%s Cleaning up...", exportSpinner.View())
		styledCleanup := lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Bold(true).
			Align(lipgloss.Center).
			Width(modalWidth - 2).
			Render(cleanupLine)

		content.WriteString("│" + styledCleanup + "│\n")
		content.WriteString(emptyLine + "\n")

	} else if exporting {
		// State 2: Exporting with spinner
		content.WriteString(emptyLine + "\n")

		exportLine := fmt.Sprintf("%s Exporting data directory...", exportSpinner.View())
		styledExport := lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Bold(true).
			Align(lipgloss.Center).
			Width(modalWidth - 2).
			Render(exportLine)

		content.WriteString("│" + styledExport + "│\n")
		content.WriteString(emptyLine + "\n")
		content.WriteString(middleBorder + "\n")

		cancelHint := lipgloss.NewStyle().
			Foreground(dimColor).
			Align(lipgloss.Center).
			Width(modalWidth - 2).
			Render("Press Esc to cancel")

		content.WriteString("│" + cancelHint + "│\n")

	} else {
		// State 1: Input mode
		title := lipgloss.NewStyle().
			Bold(true).
			Align(lipgloss.Center).
			Width(modalWidth).
			Render("Export Data Directory")

		content.WriteString("│" + title + "│\n")
		content.WriteString(middleBorder + "\n")
		content.WriteString(emptyLine + "\n")

		prompt := lipgloss.NewStyle().
			Width(modalWidth - 6).
			Render("Export to:")

		inputLine := lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true).
			Width(modalWidth - 6).
			Render(exportInput.View())

		content.WriteString("│  " + prompt + "  │\n")
		content.WriteString("│  " + inputLine + "  │\n")
		content.WriteString(emptyLine + "\n")
		content.WriteString(middleBorder + "\n")

		footer := lipgloss.NewStyle().
			Foreground(dimColor).
			Align(lipgloss.Center).
			Width(modalWidth - 2).
			Render("Esc Cancel  Enter Export  Alt+U Clear")

		content.WriteString("│" + footer + "│\n")
	}

	content.WriteString(bottomBorder)

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		content.String(),
	)
}

func renderSettings(a AppView, fields []SettingField, selectedIdx int, editMode bool, editInput textinput.Model, hasChanges bool, confirmExit bool, loadedInfo string, saveError string, dataExportMode bool, dataExportInput textinput.Model, exportingDataDir bool, dataExportCleaningUp bool, dataExportSpinner spinner.Model, dataExportSuccess string, dataDirNotFound bool, newDataDirPath string, width, height int) string {
	// Check for new data directory confirmation modal first
	if dataDirNotFound {
		return renderDataDirNotFoundModal(newDataDirPath, width, height)
	}

	// Check for data export modal
	if dataExportMode {
		return renderDataExportModal(dataExportInput, exportingDataDir, dataExportCleaningUp, dataExportSpinner, dataExportSuccess, width, height)
	}

	if confirmExit {
		return RenderUnsavedChangesModal(width, height)
	}

	if saveError != "" {
		return renderSettingsSaveError(saveError, width, height)
	}

	if width < 20 || height < 10 {
		return "Terminal too small"
	}

	modalWidth := width - 10
	if modalWidth > 80 {
		modalWidth = 80
	}
	if modalWidth < 40 {
		modalWidth = 40
	}

	// Title section (centered, no borders)
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(accentColor).
		Align(lipgloss.Center).
		Width(modalWidth).
		Render("Settings (Alt+S)")

	// Separator (simple horizontal line)
	separator := lipgloss.NewStyle().
		Foreground(dimColor).
		Render(strings.Repeat("─", modalWidth))

	// Settings list
	var settingsLines []string
	for i, field := range fields {
		var line string

		if editMode && i == selectedIdx {
			// Show edit input
			label := field.Label
			labelPadding := strings.Repeat(" ", 22-len(label))
			inputBox := lipgloss.NewStyle().
				Foreground(accentColor).
				Bold(true).
				Width(modalWidth - 26).
				Render(editInput.View())
			line = fmt.Sprintf("  %s%s%s", label, labelPadding, inputBox)
		} else {
			// Show value
			indicator := "  "
			if i == selectedIdx {
				indicator = "▶ "
			}

			// Format value with validation indicator
			value := field.Value
			validationIndicator := ""
			switch field.Validation {
			case FieldValidationPending:
				validationIndicator = "  ⏳"
			case FieldValidationSuccess:
				validationIndicator = "  ✓"
			case FieldValidationError:
				validationIndicator = "  ✗"
			}

			// Calculate spacing
			label := fmt.Sprintf("%s%s", indicator, field.Label)
			maxLabelWidth := 22
			if len(label) < maxLabelWidth {
				label = label + strings.Repeat(" ", maxLabelWidth-len(label))
			}

			valueWithIndicator := value + validationIndicator
			maxValueWidth := modalWidth - maxLabelWidth - 4
			if len(valueWithIndicator) > maxValueWidth {
				valueWithIndicator = valueWithIndicator[:maxValueWidth-3] + "..."
			}

			line = label + valueWithIndicator

			// Style the line
			lineStyle := lipgloss.NewStyle()
			if i == selectedIdx {
				lineStyle = lineStyle.Foreground(successColor).Bold(true)
			}

			line = lineStyle.Render(line)
		}

		paddedLine := lipgloss.NewStyle().
			Width(modalWidth).
			Render(line)
		settingsLines = append(settingsLines, paddedLine)
	}

	// Footer
	var footerText string
	if editMode {
		footerText = FormatFooter("Enter", "Save", "Alt+U", "Clear", "Esc", "Cancel")
	} else if hasChanges {
		footerText = FormatFooter("Alt+Enter", "Save", "x", "Export Data", "r", "Reset", "Esc", "Cancel")
	} else {
		footerText = FormatFooter("j/k", "Navigate", "Enter", "Edit", "x", "Export Data", "r", "Reset", "Esc", "Close")
	}
	footer := lipgloss.NewStyle().
		Foreground(dimColor).
		Align(lipgloss.Center).
		Width(modalWidth).
		Render(footerText)

	// Info line
	var infoLine string
	if loadedInfo != "" {
		infoLine = lipgloss.NewStyle().
			Width(modalWidth).
			Foreground(accentColor).
			Render("  "+loadedInfo) + "\n"
	}

	// Combine all parts (Title/Separator/Content/Separator/Footer pattern)
	var content strings.Builder
	content.WriteString(title + "\n")
	content.WriteString(separator + "\n")
	content.WriteString(strings.Repeat(" ", modalWidth) + "\n") // Top padding
	for _, line := range settingsLines {
		content.WriteString(line + "\n")
	}
	content.WriteString(strings.Repeat(" ", modalWidth) + "\n") // Bottom padding
	if infoLine != "" {
		content.WriteString(infoLine)
	}
	content.WriteString(separator + "\n")
	content.WriteString(footer)

	// Center the modal
	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		content.String(),
	)
}

func renderSettingsSaveError(errorMsg string, width, height int) string {
	return RenderAcknowledgeModal(
		"Error Saving Settings",
		errorMsg,
		ModalTypeError,
		width,
		height,
	)
}

func RenderUnsavedChangesModal(width, height int) string {
	var messageLines []string
	modalWidth := 50
	if width < modalWidth+10 {
		modalWidth = width - 10
	}

	messageStyle := lipgloss.NewStyle().
		Width(modalWidth).
		Align(lipgloss.Center)

	messageLines = append(messageLines, strings.Repeat(" ", modalWidth))
	messageLines = append(messageLines, messageStyle.Render("You have unsaved changes."))
	messageLines = append(messageLines, strings.Repeat(" ", modalWidth))
	messageLines = append(messageLines, messageStyle.Render("Discard them and close Settings?"))

	footer := FormatFooter("y", "Discard", "n", "Keep editing")
	return RenderThreeSectionModal(
		"⚠️  Unsaved Changes",
		messageLines,
		footer,
		ModalTypeWarning,
		modalWidth,
		width,
		height,
	)
}

func renderDataDirNotFoundModal(path string, width, height int) string {
	modalWidth := 60
	if width < modalWidth+10 {
		modalWidth = width - 10
	}

	// Build message lines
	var messageLines []string
	messageLines = append(messageLines, strings.Repeat(" ", modalWidth))

	messageStyle := lipgloss.NewStyle().
		Width(modalWidth).
		Align(lipgloss.Center)

	messageLines = append(messageLines, messageStyle.Render("The directory does not exist:"))
	messageLines = append(messageLines, strings.Repeat(" ", modalWidth))
	messageLines = append(messageLines, messageStyle.Render(path))
	messageLines = append(messageLines, strings.Repeat(" ", modalWidth))
	messageLines = append(messageLines, messageStyle.Render("Would you like to create a new data directory here?"))
	messageLines = append(messageLines, strings.Repeat(" ", modalWidth))
	messageLines = append(messageLines, messageStyle.Render("(aster will restart and launch the setup wizard)"))

	footer := FormatFooter("y", "Yes, create new data directory", "n", "No, return to Settings")
	return RenderThreeSectionModal(
		"⚠️  Data Directory Not Found",
		messageLines,
		footer,
		ModalTypeWarning,
		modalWidth,
		width,
		height,
	)
}

func (a AppView) exportDataDirCmd(ctx context.Context, dataDir, exportPath string) tea.Cmd {
	return func() tea.Msg {
		// Cancellation point 1: Before starting
		select {
		case <-ctx.Done():
			return dataExportedMsg{Cancelled: true}
		default:
		}

		// Check if data directory exists
		if _, err := os.Stat(dataDir); os.IsNotExist(err) {
			return dataExportedMsg{Err: fmt.Errorf("data directory does not exist: %s", dataDir)}
		}

		// Create parent directory for export (0700 - user-only access)
		exportDir := filepath.Dir(exportPath)
		if err := os.MkdirAll(exportDir, 0700); err != nil {
			return dataExportedMsg{Err: fmt.Errorf("failed to create export directory: %w", err)}
		}

		// Cancellation point 2: Before creating tar file
		select {
		case <-ctx.Done():
			return dataExportedMsg{Cancelled: true}
		default:
		}

		// Create tar.gz file (0600 - data exports contain all conversation data)
		outFile, err := os.OpenFile(exportPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
		if err != nil {
			return dataExportedMsg{Err: fmt.Errorf("failed to create tar file: %w", err)}
		}
		defer outFile.Close()

		gzWriter := gzip.NewWriter(outFile)
		defer gzWriter.Close()

		tarWriter := tar.NewWriter(gzWriter)
		defer tarWriter.Close()

		// Walk the data directory and add files to tar
		err = filepath.Walk(dataDir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Check for cancellation during walk
			select {
			case <-ctx.Done():
				return fmt.Errorf("cancelled")
			default:
			}

			header, err := tar.FileInfoHeader(info, "")
			if err != nil {
				return err
			}

			// Header name is relative to the data dir with an "aster/" prefix
			relPath, err := filepath.Rel(dataDir, path)
			if err != nil {
				return err
			}
			header.Name = filepath.Join("aster", relPath)

			if err := tarWriter.WriteHeader(header); err != nil {
				return err
			}

			if !info.IsDir() {
				file, err := os.Open(path)
				if err != nil {
					return err
				}
				defer file.Close()

				if _, err := io.Copy(tarWriter, file); err != nil {
					return err
				}
			}

			return nil
		})

		if err != nil {
			if err.Error() == "cancelled" {
				return dataExportedMsg{Cancelled: true}
			}
			return dataExportedMsg{Err: fmt.Errorf("failed to create archive: %w", err)}
		}

		return dataExportedMsg{Path: exportPath}
	}
}

// cleanupPartialDataExportCmd removes a partially written export archive
// after a cancelled export.
func (a AppView) cleanupPartialDataExportCmd(path string) tea.Cmd {
	return func() tea.Msg {
		if err := os.Remove(path); err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("Failed to remove partial data export: %v", err)
		}

		// Brief pause so the cleanup state is visible
		time.Sleep(500 * time.Millisecond)

		return dataExportCleanupDoneMsg{}
	}
}
