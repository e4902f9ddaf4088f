package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"aster/backend"
	appmodel "aster/model"
	"aster/provider"
	"aster/storage"
)

type AppView struct {
	// Reference to core data model
	dataModel *appmodel.Model

	// UI Components
	viewport viewport.Model
	textarea textarea.Model

	// Window state
	width  int
	height int
	ready  bool

	// Streaming UI state
	currentResp *strings.Builder // Pointer to avoid copy panic
	showHelp    bool

	// Typewriter effect fields
	chunks     []string // Chunks to display with typewriter effect
	chunkIndex int      // Current chunk being displayed

	// Loading spinner (bubbles/spinner)
	loadingSpinner spinner.Model

	// Model selector
	showModelSelector    bool
	modelList            []backend.ModelInfo
	selectedModelIdx     int
	modelListCached      bool
	modelFilterMode      bool
	modelFilterInput     textinput.Model
	filteredModelList    []backend.ModelInfo
	showToolWarningModal bool
	pendingModelSwitch   string
	toolWarningToolList  []string

	// Conversation management UI
	showConversationManager   bool
	conversationList          []storage.ConversationMetadata
	selectedConversationIdx   int
	conversationRenameMode    bool
	conversationRenameInput   textinput.Model
	conversationFilterMode    bool
	conversationFilterInput   textinput.Model
	filteredConversationList  []storage.ConversationMetadata
	conversationExportMode    bool
	conversationExportInput   textinput.Model
	conversationExportSuccess string // Contains export path if successful, empty otherwise

	// Import conversation state
	conversationImportPicker     FilePickerState
	conversationImportSuccess    *storage.Conversation
	conversationImportCancelCtx  context.Context
	conversationImportCancelFunc context.CancelFunc

	// Export state
	exportingConversation bool
	exportSpinner         spinner.Model
	exportCancelCtx       context.Context
	exportCancelFunc      context.CancelFunc
	exportTargetPath      string
	exportCleaningUp      bool

	// About modal
	showAbout bool

	// Settings modal
	showSettings            bool
	settingsFields          []SettingField
	selectedSettingIdx      int
	settingsEditMode        bool
	settingsEditInput       textinput.Model
	settingsHasChanges      bool
	settingsConfirmExit     bool
	settingsLoadedInfo      string
	settingsSaveError       string
	settingsDataDirNotFound bool   // Show confirmation for creating new data directory
	settingsNewDataDirPath  string // Path of new data directory to create

	// Data export state
	dataExportMode       bool
	dataExportInput      textinput.Model
	exportingDataDir     bool
	dataExportSpinner    spinner.Model
	dataExportCancelCtx  context.Context
	dataExportCancelFunc context.CancelFunc
	dataExportTargetPath string
	dataExportCleaningUp bool
	dataExportSuccess    string // Contains export path if successful, empty otherwise

	// Delete confirmation state
	confirmDeleteConversation *storage.ConversationMetadata

	// Info modal state (for simple notifications/errors)
	showInfoModal  bool
	infoModalTitle string
	infoModalMsg   string

	// Acknowledge modal (for warnings/errors requiring only acknowledgement)
	showAcknowledgeModal  bool
	acknowledgeModalTitle string
	acknowledgeModalMsg   string
	acknowledgeModalType  ModalType

	// SSH passphrase modal for data dir switch (uses shared modal helper)
	showPassphraseForDataDir bool
	passphraseForDataDir     textinput.Model
	passphraseSSHKeyPath     string
	passphraseError          string
	passphraseRetryDataDir   string // Data dir to retry after passphrase entered

	// New conversation modal
	showNewConversationModal    bool
	newConversationNameInput    textinput.Model
	newConversationPromptInput  textarea.Model
	newConversationFocusedField int
	newConversationToolIdx      int      // Selected tool in the list
	newConversationAllowedTools []string // Always-allowed tools for new conversation

	// Edit conversation modal (reuses newConversation inputs)
	showEditConversationModal    bool
	editConversationID           string
	editConversationToolIdx      int      // Selected tool in the list
	editConversationAllowedTools []string // Temporary storage for allowed tools during edit

	showMessageSearch      bool
	messageSearchInput     textinput.Model
	messageSearchResults   []storage.MessageMatch
	selectedSearchIdx      int
	messageSearchScrollIdx int

	showGlobalSearch      bool
	globalSearchInput     textinput.Model
	globalSearchResults   []storage.IndexedMessage
	selectedGlobalIdx     int
	globalSearchScrollIdx int

	highlightedMessageIdx     int
	highlightFlashCount       int
	pendingScrollToMessageIdx int

	// RestartAfterQuit indicates aster should restart after quit completes
	// Used for creating new data directories from Settings
	RestartAfterQuit bool

	// Tool execution state
	executingTool        string        // Tool name currently executing (e.g., "read_file")
	toolExecutionSpinner spinner.Model // Spinner for tool execution indicator

	// Permission system state
	waitingForPermission bool
	pendingPermission    *appmodel.ToolPermissionRequestMsg

	// Multi-turn tool loop state
	pendingNextStep    bool // Continue after typewriter?
	pendingToolCalls   []appmodel.ToolCall
	pendingToolContext []Message
}

func NewAppView(dataModel *appmodel.Model) AppView {
	ta := textarea.New()
	ta.Placeholder = "Type your message here or press Alt+O to use your favorite text editor..."
	ta.Focus()
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.SetWidth(80)

	// Custom KeyMap: Alt+Enter for newline, Enter alone does nothing (handled separately)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))

	// Set dynamic prompt: "> " for first line, "| " for subsequent lines
	ta.SetPromptFunc(2, func(lineIdx int) string {
		if lineIdx == 0 {
			return "> "
		}
		return "| "
	})

	vp := viewport.New(0, 0)

	conversationImportPicker := NewFilePickerState(FilePickerConfig{
		Title:          "Import Conversation",
		Mode:           FilePickerModeOpen,
		AllowedTypes:   []string{".json"},
		StartDirectory: "",
		ShowHidden:     true,
		OperationType:  "Import",
	})

	conversationFilterInput := textinput.New()
	conversationFilterInput.Prompt = "Filter: "
	conversationFilterInput.CharLimit = 64

	modelFilterInput := textinput.New()
	modelFilterInput.Prompt = "Filter: "
	modelFilterInput.CharLimit = 64

	messageSearchInput := textinput.New()
	messageSearchInput.Prompt = "Search: "
	messageSearchInput.CharLimit = 100

	globalSearchInput := textinput.New()
	globalSearchInput.Prompt = "Search all: "
	globalSearchInput.CharLimit = 100

	// Initialize passphrase input for data dir switch (reuses shared helper)
	passphraseForDataDir := NewPassphraseInput("Enter passphrase for SSH key")

	// Create initial conversation if none exists (e.g., after welcome wizard)
	if dataModel.CurrentConversation == nil {
		newConversation, _ := dataModel.CreateAndSaveNewConversation("New Conversation", "", []string{})
		dataModel.CurrentConversation = newConversation
	}

	a := AppView{
		dataModel:                 dataModel,
		textarea:                  ta,
		viewport:                  vp,
		currentResp:               &strings.Builder{},
		ready:                     false,
		showHelp:                  false,
		showAbout:                 false,
		conversationImportPicker:  conversationImportPicker,
		conversationFilterMode:    false,
		conversationFilterInput:   conversationFilterInput,
		filteredConversationList:  []storage.ConversationMetadata{},
		modelFilterMode:           false,
		modelFilterInput:          modelFilterInput,
		filteredModelList:         []backend.ModelInfo{},
		showToolWarningModal:      false,
		pendingModelSwitch:        "",
		toolWarningToolList:       nil,
		messageSearchInput:        messageSearchInput,
		globalSearchInput:         globalSearchInput,
		highlightedMessageIdx:     -1,
		pendingScrollToMessageIdx: -1,
		passphraseForDataDir:      passphraseForDataDir,
	}

	// Pin the relay conversation ID so the backend threads context correctly
	a.syncRelayConversation()

	return a
}

func (a AppView) Init() tea.Cmd {
	// Don't render markdown here - wait for WindowSizeMsg to get correct width
	// The NeedsInitialRender flag is set in NewModel() if messages were loaded
	return tea.Batch(
		textarea.Blink,
		a.dataModel.FetchAllModels(false), // Background fetch on startup, don't show selector
		a.dataModel.PingProvider(),
	)
}

func (a AppView) View() string {
	if !a.ready {
		return "Loading aster..."
	}

	// Modal rendering order (top to bottom layers):
	// 1. Info/acknowledge modals
	// 2. Help (can peek while in other modals)
	// 3. Model selector
	// 4. Settings
	// 5. Conversation manager and its sub-modals
	// 6. Search modals
	// 7. About

	// Show passphrase modal for data dir switch (uses shared modal helper)
	if a.showPassphraseForDataDir {
		return a.renderPassphraseForDataDirModal()
	}

	// Show info modal if active (highest priority)
	if a.showInfoModal {
		return RenderConfirmationModal(ConfirmationState{
			Active:  true,
			Title:   a.infoModalTitle,
			Message: a.infoModalMsg,
		}, a.width, a.height)
	}

	// Show acknowledge modal if active (warnings/errors requiring only acknowledgement)
	if a.showAcknowledgeModal {
		return RenderAcknowledgeModal(
			a.acknowledgeModalTitle,
			a.acknowledgeModalMsg,
			a.acknowledgeModalType,
			a.width,
			a.height,
		)
	}

	// Show help modal if toggled (top layer - can appear over other modals)
	if a.showHelp {
		return a.renderHelpModal(a.width, a.height)
	}

	// Show model selector if toggled
	if a.showModelSelector {
		multiProvider := len(a.dataModel.Providers) > 1
		return renderModelSelector(a.modelList, a.selectedModelIdx, a.dataModel.Provider.GetModel(), a.modelFilterMode, a.modelFilterInput, a.filteredModelList, multiProvider, a.width, a.height)
	}

	// Show settings modal if toggled
	if a.showSettings {
		return renderSettings(a, a.settingsFields, a.selectedSettingIdx, a.settingsEditMode, a.settingsEditInput, a.settingsHasChanges, a.settingsConfirmExit, a.settingsLoadedInfo, a.settingsSaveError, a.dataExportMode, a.dataExportInput, a.exportingDataDir, a.dataExportCleaningUp, a.dataExportSpinner, a.dataExportSuccess, a.settingsDataDirNotFound, a.settingsNewDataDirPath, a.width, a.height)
	}

	// Show new conversation modal (must be before conversation manager)
	if a.showNewConversationModal {
		return renderConversationModal("New conversation", a.newConversationNameInput, a.newConversationPromptInput, a.newConversationFocusedField, a.width, a.height, a.availableToolNames(), a.newConversationAllowedTools, a.newConversationToolIdx)
	}

	// Show edit conversation modal (must be before conversation manager)
	if a.showEditConversationModal {
		return renderConversationModal("Edit conversation", a.newConversationNameInput, a.newConversationPromptInput, a.newConversationFocusedField, a.width, a.height, a.availableToolNames(), a.editConversationAllowedTools, a.editConversationToolIdx)
	}

	// Show conversation manager if toggled
	if a.showConversationManager {
		currentConversationID := ""
		if a.dataModel.CurrentConversation != nil {
			currentConversationID = a.dataModel.CurrentConversation.ID
		}
		return renderConversationManager(a.conversationList, a.selectedConversationIdx, currentConversationID, a.conversationRenameMode, a.conversationRenameInput, a.conversationExportMode, a.conversationExportInput, a.exportingConversation, a.exportCleaningUp, a.exportSpinner, a.conversationExportSuccess, a.conversationImportPicker, a.conversationImportSuccess, a.confirmDeleteConversation, a.conversationFilterMode, a.conversationFilterInput, a.filteredConversationList, a.width, a.height)
	}

	if a.showGlobalSearch {
		return renderGlobalSearch(a, a.globalSearchInput, a.globalSearchResults, a.selectedGlobalIdx, a.globalSearchScrollIdx, a.width, a.height)
	}

	if a.showMessageSearch {
		return renderMessageSearch(a, a.messageSearchInput, a.messageSearchResults, a.selectedSearchIdx, a.messageSearchScrollIdx, a.width, a.height)
	}

	// Show about modal if toggled
	if a.showAbout {
		return renderAboutModal(a, a.width, a.height, a.dataModel.Version, "MIT")
	}

	// Show tool warning modal if triggered
	if a.showToolWarningModal {
		return RenderToolWarningModal(a.pendingModelSwitch, a.toolWarningToolList, a.width, a.height)
	}

	// Title bar - "aster - Model - Conversation Name | 🔧 tools"
	asterText := AssistantStyle.Render("aster")
	modelText := TitleStyle.Render(fmt.Sprintf(" - %s", a.dataModel.Provider.GetDisplayName()))
	conversationName := "New Conversation"
	if a.dataModel.CurrentConversation != nil && a.dataModel.CurrentConversation.Name != "" {
		conversationName = a.dataModel.CurrentConversation.Name
	}
	conversationText := UserStyle.Render(fmt.Sprintf(" - %s", conversationName))

	// Add indicator for the conversation's always-allowed tools
	toolText := ""
	if a.dataModel.CurrentConversation != nil {
		allowedNames := a.dataModel.CurrentConversation.AllowedTools
		if len(allowedNames) > 0 {
			toolIndicator := " | 🔧 "
			if len(allowedNames) == 1 {
				toolIndicator += allowedNames[0]
			} else if len(allowedNames) == 2 {
				toolIndicator += allowedNames[0] + ", " + allowedNames[1]
			} else {
				// 3+ tools: show first 2 and count
				toolIndicator += allowedNames[0] + ", " + allowedNames[1] + fmt.Sprintf(", ... (%d)", len(allowedNames))
			}
			toolText = DimStyle.Render(toolIndicator)
		}
	}

	title := asterText + modelText + conversationText + toolText

	// Add tool execution indicator
	if a.executingTool != "" {
		toolIndicator := fmt.Sprintf(" | ⚙ %s %s", a.executingTool, a.toolExecutionSpinner.View())
		title += TitleStyle.Render(toolIndicator)
	}

	// Separator with bottom margin for header (empty line forces spacing)
	separator := ""

	// Viewport with messages
	viewportView := a.viewport.View()

	// Input area
	inputView := a.textarea.View()

	// Status bar with bold user green descriptions (main chat uses user green)
	descStyle := lipgloss.NewStyle().Foreground(successColor).Bold(true)
	statusBar := fmt.Sprintf("Alt+Q %s  Alt+E %s  Alt+S %s  Alt+M %s  Alt+F %s  Alt+Enter %s  Enter %s  Alt+Y %s",
		descStyle.Render("Quit"),
		descStyle.Render("Edit conversation"),
		descStyle.Render("Conversations"),
		descStyle.Render("Models"),
		descStyle.Render("Search"),
		descStyle.Render("New Line"),
		descStyle.Render("Send"),
		descStyle.Render("Copy"),
	)
	statusBar = StatusStyle.Render(statusBar)

	// Combine all parts
	return lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		separator,
		viewportView,
		inputView,
		statusBar,
	)
}

func (a AppView) getConversationList() []storage.ConversationMetadata {
	if a.conversationFilterMode && len(a.filteredConversationList) > 0 {
		return a.filteredConversationList
	}
	return a.conversationList
}

func (a AppView) getModelList() []backend.ModelInfo {
	if a.modelFilterMode && len(a.filteredModelList) > 0 {
		return a.filteredModelList
	}
	return a.modelList
}

// availableToolNames lists the workspace tools that can be whitelisted
// per conversation.
func (a AppView) availableToolNames() []string {
	if a.dataModel.Tools == nil {
		return nil
	}
	defs := a.dataModel.Tools.Definitions()
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		names = append(names, def.Name)
	}
	return names
}

// setCurrentConversation sets the current conversation and repins the relay
// backend's conversation ID so server-side context follows the switch.
func (a *AppView) setCurrentConversation(conversation *storage.Conversation) {
	a.dataModel.CurrentConversation = conversation
	a.syncRelayConversation()
}

func (a *AppView) syncRelayConversation() {
	if a.dataModel.CurrentConversation == nil {
		return
	}
	if rp, ok := a.dataModel.Provider.(*provider.RelayProvider); ok {
		rp.SetConversation(a.dataModel.CurrentConversation.ID)
	}
}

func (a *AppView) closeAllModals() {
	a.showInfoModal = false
	a.showHelp = false
	a.showConversationManager = false
	a.showModelSelector = false
	a.showToolWarningModal = false
	a.showMessageSearch = false
	a.showGlobalSearch = false
	a.showSettings = false
	a.showAbout = false

	a.conversationRenameMode = false
	a.conversationExportMode = false
	a.conversationFilterMode = false
	a.confirmDeleteConversation = nil
	a.conversationImportPicker.Active = false

	a.modelFilterMode = false

	a.settingsEditMode = false
	a.settingsConfirmExit = false

	a.dataExportMode = false

	if a.conversationRenameInput.Focused() {
		a.conversationRenameInput.Blur()
	}
	if a.conversationExportInput.Focused() {
		a.conversationExportInput.Blur()
	}
	if a.conversationFilterInput.Focused() {
		a.conversationFilterInput.Blur()
	}
	if a.modelFilterInput.Focused() {
		a.modelFilterInput.Blur()
	}
	if a.messageSearchInput.Focused() {
		a.messageSearchInput.Blur()
	}
	if a.globalSearchInput.Focused() {
		a.globalSearchInput.Blur()
	}
	if a.settingsEditInput.Focused() {
		a.settingsEditInput.Blur()
	}
	if a.dataExportInput.Focused() {
		a.dataExportInput.Blur()
	}
}

func (a AppView) renderPassphraseForDataDirModal() string {
	return RenderPassphraseModal(
		"SSH Key Passphrase Required",
		a.passphraseSSHKeyPath,
		a.passphraseForDataDir,
		a.passphraseError,
		a.width,
		a.height,
	)
}

// ReleaseLocks unlocks the current conversation and the instance lock in the
// current data directory. Called on application exit, and safe to call with
// nil storage.
//
// Used by main.go defer to unlock the CURRENT data directory, which may differ
// from the initial data directory if the user switched directories mid-run.
func (a *AppView) ReleaseLocks() error {
	if a.dataModel == nil || a.dataModel.Store == nil {
		return nil
	}
	if a.dataModel.CurrentConversation != nil {
		_ = a.dataModel.Store.UnlockConversation(a.dataModel.CurrentConversation.ID)
	}
	return a.dataModel.Store.UnlockInstance()
}
