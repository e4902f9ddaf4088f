package model

import (
	"time"

	"aster/backend"
	"aster/config"
	"aster/gate"
	"aster/storage"
	"aster/tools"
)

// Model holds the core application data and business logic state
type Model struct {
	// Core dependencies
	Config      *config.Config
	Provider    Provider            // Active provider for the current conversation
	Providers   map[string]Provider // All configured providers keyed by ID
	Store       *storage.ConversationStorage
	SearchIndex *storage.SearchIndex
	Tools       *tools.Registry
	Gates       *gate.Registry

	// Application data
	Messages            []Message
	CurrentConversation *storage.Conversation

	// Model list cache for cloud providers
	ModelCache  map[string][]backend.ModelInfo
	CacheExpiry map[string]time.Time

	// Tool turn tracking for the current user message
	CurrentTurn  int
	MaxToolTurns int

	// Runtime state (not UI)
	Streaming          bool
	ConversationDirty  bool
	NeedsInitialRender bool
	Quitting           bool

	// Application metadata
	Version string
}

// NewModel creates a new Model with the given configuration
func NewModel(cfg *config.Config, providers map[string]Provider, store *storage.ConversationStorage, lastConversation *storage.Conversation, searchIndex *storage.SearchIndex, toolRegistry *tools.Registry, version string) *Model {
	// Pick the active provider, preferring the last conversation's choice
	active := providers[cfg.DefaultProvider]
	if lastConversation != nil && lastConversation.Provider != "" {
		if p, ok := providers[lastConversation.Provider]; ok {
			active = p
		}
	}
	if active == nil {
		for _, p := range providers {
			active = p
			break
		}
	}

	if active != nil && lastConversation != nil && lastConversation.Model != "" {
		active.SetModel(lastConversation.Model)
	}

	// Load messages from the last conversation if available
	var messages []Message
	needsRender := false
	if lastConversation != nil {
		for _, sMsg := range lastConversation.Messages {
			messages = append(messages, Message{
				Role:      sMsg.Role,
				Content:   sMsg.Content,
				Rendered:  sMsg.Rendered,
				Timestamp: sMsg.Timestamp,
			})
		}
		needsRender = len(messages) > 0
	}

	maxTurns := cfg.MaxToolTurns
	if maxTurns <= 0 {
		maxTurns = 10
	}

	m := &Model{
		Config:              cfg,
		Provider:            active,
		Providers:           providers,
		Store:               store,
		SearchIndex:         searchIndex,
		Tools:               toolRegistry,
		Gates:               gate.NewRegistry(toolRegistry),
		Messages:            messages,
		CurrentConversation: lastConversation,
		ModelCache:          make(map[string][]backend.ModelInfo),
		CacheExpiry:         make(map[string]time.Time),
		MaxToolTurns:        maxTurns,
		NeedsInitialRender:  needsRender,
		Version:             version,
	}

	if config.DebugLog != nil && lastConversation != nil {
		config.DebugLog.Printf("[Model] NewModel: Resumed conversation '%s' (%d messages)",
			lastConversation.Name, len(messages))
	}

	return m
}

// SwitchToDefaultProvider switches the active provider to the configured default.
// Called when creating new conversations so the active provider matches the
// conversation's provider.
func (m *Model) SwitchToDefaultProvider() {
	provider, ok := m.Providers[m.Config.DefaultProvider]
	if !ok {
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[Model] WARNING: Default provider '%s' not found, using fallback",
				m.Config.DefaultProvider)
		}
		if m.Provider != nil {
			m.Provider.SetModel(m.Config.DefaultModel)
		}
		return
	}

	m.Provider = provider
	m.Provider.SetModel(m.Config.DefaultModel)

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[Model] Switched to default provider '%s' with model '%s'",
			m.Config.DefaultProvider, m.Config.DefaultModel)
	}
}
