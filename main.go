package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"aster/config"
	"aster/model"
	"aster/provider"
	"aster/storage"
	"aster/tools"
	"aster/ui"
)

const Version = "v0.1.0"

func main() {
	// Validate environment variables first
	if config.HasAnyEnvVar() && !config.HasAllEnvVars() {
		missingVar := config.GetMissingEnvVar()
		errorMsg := fmt.Sprintf("Missing environment variable: %s\n\n"+
			"When using environment variables, all 3 must be set:\n"+
			"  • ASTER_BACKEND_URL\n"+
			"  • ASTER_MODEL\n"+
			"  • ASTER_DATA_DIR\n\n"+
			"Set the missing variable(s) before launching aster.",
			missingVar)

		errorModal := ui.NewErrorModal("Configuration Error", errorMsg)
		p := tea.NewProgram(
			errorModal,
			tea.WithAltScreen(),
		)

		if _, err := p.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(0)
	}

	for {
		restart, err := run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if !restart {
			return
		}
		// Settings changed the data directory; relaunch with the new config
	}
}

func run() (bool, error) {
	isFirstRun := !config.FileExists(config.GetSettingsFilePath())

	// Skip welcome wizard if all env vars are set
	if config.HasAllEnvVars() {
		isFirstRun = false
	}

	if isFirstRun {
		welcomeModel := ui.NewWelcomeModel()
		p := tea.NewProgram(
			welcomeModel,
			tea.WithAltScreen(),
		)

		finalModel, err := p.Run()
		if err != nil {
			return false, fmt.Errorf("welcome wizard: %w", err)
		}

		if wm, ok := finalModel.(ui.WelcomeModel); ok && !wm.IsComplete() {
			return false, nil
		}
	}

	cfg, err := config.Load()
	if cfg == nil {
		return false, fmt.Errorf("failed to load config: %w", err)
	}
	if err != nil && cfg.CredentialStore != nil && cfg.CredentialStore.GetMethod() == config.SecuritySSHKey {
		// Credentials are SSH-key encrypted; prompt for the passphrase
		// before launching the main program
		if !promptForPassphrase(cfg) {
			return false, nil
		}
	}

	// Initialize debug logging after config is loaded
	config.InitDebugLog(cfg.DataDir())

	store, err := storage.NewConversationStorage(cfg.DataDir())
	if err != nil {
		return false, fmt.Errorf("failed to initialize conversation storage: %w", err)
	}

	// Check if another aster instance is already running
	isLocked, runningPID, err := store.CheckInstanceLock()
	if err != nil {
		return false, fmt.Errorf("failed to check instance lock: %w", err)
	}
	if isLocked {
		lockModal := ui.NewInstanceLockedModal(runningPID)
		p := tea.NewProgram(
			lockModal,
			tea.WithAltScreen(),
		)

		finalModel, err := p.Run()
		if err != nil {
			return false, fmt.Errorf("instance lock prompt: %w", err)
		}
		lm, ok := finalModel.(ui.InstanceLockedModal)
		if !ok || !lm.ForceDelete() {
			return false, nil
		}
		// User chose to take over the stale lock
		if err := store.UnlockInstance(); err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("Warning: failed to remove stale instance lock: %v", err)
		}
	}

	if err := store.LockInstance(); err != nil {
		return false, fmt.Errorf("failed to lock aster instance: %w", err)
	}

	searchIndex, err := storage.NewSearchIndex(cfg.DataDir())
	if err != nil {
		// Search index failures degrade global search but nothing else
		if config.DebugLog != nil {
			config.DebugLog.Printf("Warning: failed to open search index: %v", err)
		}
		searchIndex = nil
	}

	toolRegistry := tools.NewRegistry(cfg.WorkspaceDir(), cfg.SearchResultLimit)
	providers := provider.InitializeProviders(cfg)

	// Resume the last conversation unless another instance holds its lock
	var lastConversation *storage.Conversation
	if lastID, idErr := store.LoadCurrentConversationID(); idErr == nil && lastID != "" {
		convLocked, lockErr := store.CheckConversationLock(lastID)
		if lockErr == nil && !convLocked {
			if conv, loadErr := store.Load(lastID); loadErr == nil {
				_ = store.LockConversation(lastID)
				lastConversation = conv
			}
		}
		// If locked: lastConversation stays nil and a new one is created
	}

	dataModel := model.NewModel(cfg, providers, store, lastConversation, searchIndex, toolRegistry, Version)

	p := tea.NewProgram(
		ui.NewAppView(dataModel),
		tea.WithAltScreen(),
	)

	finalModel, err := p.Run()
	if err != nil {
		releaseErr := store.UnlockInstance()
		if releaseErr != nil && config.DebugLog != nil {
			config.DebugLog.Printf("Warning: failed to unlock instance after error: %v", releaseErr)
		}
		return false, fmt.Errorf("error running aster: %w", err)
	}

	restart := false
	if av, ok := finalModel.(ui.AppView); ok {
		restart = av.RestartAfterQuit
		if releaseErr := av.ReleaseLocks(); releaseErr != nil && config.DebugLog != nil {
			config.DebugLog.Printf("Warning: failed to release locks on exit: %v", releaseErr)
		}
	}
	return restart, nil
}

func promptForPassphrase(cfg *config.Config) bool {
	keyPath := cfg.CredentialStore.SSHKeyPath()
	for {
		passphraseModal := ui.NewPassphraseModal(keyPath)
		p := tea.NewProgram(
			passphraseModal,
			tea.WithAltScreen(),
		)

		finalModel, err := p.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return false
		}

		pm, ok := finalModel.(ui.PassphraseModal)
		if !ok || pm.IsCancelled() {
			return false
		}

		if err := ui.LoadCredentialsWithPassphrase(cfg, pm.GetPassphrase()); err == nil {
			return true
		}
		// Wrong passphrase; prompt again
	}
}
