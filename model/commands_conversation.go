package model

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"aster/config"
	"aster/storage"
)

// FetchConversationList retrieves the list of saved conversations
func (m *Model) FetchConversationList() tea.Cmd {
	if m.Store == nil {
		return nil
	}
	store := m.Store
	return func() tea.Msg {
		conversations, err := store.List()
		return ConversationsListMsg{
			Conversations: conversations,
			Err:           err,
		}
	}
}

// LoadConversation loads a conversation by ID
func (m *Model) LoadConversation(id string) tea.Cmd {
	if m.Store == nil {
		return nil
	}

	// Already loaded, no need to check our own lock
	if m.CurrentConversation != nil && m.CurrentConversation.ID == id {
		return func() tea.Msg {
			return ConversationLoadedMsg{
				Conversation: m.CurrentConversation,
				Err:          nil,
			}
		}
	}

	store := m.Store
	return func() tea.Msg {
		isLocked, err := store.CheckConversationLock(id)
		if err != nil {
			return ConversationLoadedMsg{Conversation: nil, Err: err}
		}
		if isLocked {
			return ConversationLoadedMsg{Conversation: nil, Err: fmt.Errorf("conversation_locked")}
		}

		conv, err := store.Load(id)
		if err != nil {
			return ConversationLoadedMsg{Conversation: nil, Err: err}
		}

		_ = store.LockConversation(id)

		return ConversationLoadedMsg{
			Conversation: conv,
			Err:          err,
		}
	}
}

// SaveCurrentConversation saves the current conversation to storage and
// refreshes the search index
func (m *Model) SaveCurrentConversation() tea.Cmd {
	if m.Store == nil || m.CurrentConversation == nil {
		return nil
	}

	var convMessages []storage.Message
	for _, msg := range m.Messages {
		if msg.Role == "user" || msg.Role == "assistant" {
			convMessages = append(convMessages, storage.Message{
				Role:      msg.Role,
				Content:   msg.Content,
				Rendered:  msg.Rendered,
				Timestamp: msg.Timestamp,
			})
		}
	}

	m.CurrentConversation.Messages = convMessages
	m.CurrentConversation.UpdatedAt = time.Now()
	if m.Provider != nil {
		m.CurrentConversation.Model = m.Provider.GetModel()
	}

	conv := m.CurrentConversation
	store := m.Store
	index := m.SearchIndex

	return func() tea.Msg {
		err := store.Save(conv)
		if err == nil {
			store.SaveCurrentConversationID(conv.ID)
			if index != nil {
				if ierr := index.IndexConversation(conv); ierr != nil && config.DebugLog != nil {
					config.DebugLog.Printf("Failed to index conversation: %v", ierr)
				}
			}
		}
		return ConversationSavedMsg{Err: err}
	}
}

// AutoSaveConversation saves the current conversation, creating one with an
// auto-generated name if needed
func (m *Model) AutoSaveConversation() tea.Cmd {
	if m.Store == nil {
		return nil
	}

	if m.CurrentConversation == nil {
		var firstUserMsg string
		for _, msg := range m.Messages {
			if msg.Role == "user" {
				firstUserMsg = msg.Content
				break
			}
		}

		m.CurrentConversation = &storage.Conversation{
			ID:           "", // Let Save() generate UUID
			Name:         storage.GenerateConversationName(firstUserMsg),
			Model:        m.Config.DefaultModel,
			Provider:     m.Config.DefaultProvider,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
			AllowedTools: []string{},
		}

		m.SwitchToDefaultProvider()
	} else if m.CurrentConversation.Name == "New Conversation" && len(m.Messages) > 0 {
		// Auto-rename once there is content
		var firstUserMsg string
		for _, msg := range m.Messages {
			if msg.Role == "user" {
				firstUserMsg = msg.Content
				break
			}
		}

		if firstUserMsg != "" {
			m.CurrentConversation.Name = storage.GenerateConversationName(firstUserMsg)
		}
	}

	return m.SaveCurrentConversation()
}

// CreateAndSaveNewConversation creates a new conversation with the given
// properties and saves it to storage.
func (m *Model) CreateAndSaveNewConversation(name, systemPrompt string, allowedTools []string) (*storage.Conversation, error) {
	if name == "" {
		name = "New Conversation"
	}

	conv := &storage.Conversation{
		ID:           "", // Let Save() generate UUID automatically
		Name:         name,
		Model:        m.Config.DefaultModel,
		Provider:     m.Config.DefaultProvider,
		Messages:     []storage.Message{},
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
		AllowedTools: allowedTools,
		SystemPrompt: systemPrompt,
	}

	m.SwitchToDefaultProvider()

	if m.Store != nil {
		if err := m.Store.Save(conv); err != nil {
			return nil, fmt.Errorf("failed to save new conversation: %w", err)
		}
		if err := m.Store.SaveCurrentConversationID(conv.ID); err != nil {
			return nil, fmt.Errorf("failed to save current conversation ID: %w", err)
		}
	}

	return conv, nil
}

// RenameConversationCmd renames a conversation and refreshes the list
func (m *Model) RenameConversationCmd(id, newName string) tea.Cmd {
	return func() tea.Msg {
		if m.Store == nil {
			return ConversationRenamedMsg{Err: fmt.Errorf("conversation storage not initialized")}
		}

		if err := m.Store.Rename(id, newName); err != nil {
			return ConversationRenamedMsg{Err: err}
		}

		conversations, err := m.Store.List()
		if err != nil {
			return ConversationRenamedMsg{Err: err}
		}

		return ConversationsListMsg{Conversations: conversations, Err: nil}
	}
}

// DeleteConversationCmd deletes a conversation, drops its index rows and gate,
// and refreshes the list
func (m *Model) DeleteConversationCmd(id string) tea.Cmd {
	return func() tea.Msg {
		if m.Store == nil {
			return ConversationsListMsg{Err: fmt.Errorf("conversation storage not initialized")}
		}

		if err := m.Store.Delete(id); err != nil {
			return ConversationsListMsg{Err: err}
		}

		if m.SearchIndex != nil {
			_ = m.SearchIndex.RemoveConversation(id)
		}
		if m.Gates != nil {
			m.Gates.Remove(id)
		}

		conversations, err := m.Store.List()
		return ConversationsListMsg{Conversations: conversations, Err: err}
	}
}

// UpdateConversationPropertiesCmd updates conversation properties and
// refreshes the list
func (m *Model) UpdateConversationPropertiesCmd(id, newName, newSystemPrompt string, allowedTools []string) tea.Cmd {
	return func() tea.Msg {
		if m.Store == nil {
			return ConversationsListMsg{Err: fmt.Errorf("conversation storage not initialized")}
		}

		conv, err := m.Store.Load(id)
		if err != nil {
			return ConversationsListMsg{Err: err}
		}

		conv.Name = newName
		conv.SystemPrompt = newSystemPrompt
		conv.AllowedTools = allowedTools

		if err := m.Store.Save(conv); err != nil {
			return ConversationsListMsg{Err: err}
		}

		// Update in-memory conversation if it's the one being edited
		if m.CurrentConversation != nil && m.CurrentConversation.ID == id {
			m.CurrentConversation.Name = newName
			m.CurrentConversation.SystemPrompt = newSystemPrompt
			m.CurrentConversation.AllowedTools = allowedTools
		}

		conversations, err := m.Store.List()
		if err != nil {
			return ConversationsListMsg{Err: err}
		}

		return ConversationsListMsg{Conversations: conversations, Err: nil}
	}
}

// ExportConversationCmd exports a conversation to a JSON file
func (m *Model) ExportConversationCmd(ctx context.Context, id, exportPath string) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return ConversationExportedMsg{Cancelled: true}
		default:
		}

		if m.Store == nil {
			return ConversationExportedMsg{Err: fmt.Errorf("conversation storage not initialized")}
		}

		conv, err := m.Store.Load(id)
		if err != nil {
			return ConversationExportedMsg{Err: err}
		}

		select {
		case <-ctx.Done():
			return ConversationExportedMsg{Cancelled: true}
		default:
		}

		data, err := json.MarshalIndent(conv, "", "  ")
		if err != nil {
			return ConversationExportedMsg{Err: err}
		}

		// 0700 - user-only access
		dir := filepath.Dir(exportPath)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return ConversationExportedMsg{Err: err}
		}

		select {
		case <-ctx.Done():
			return ConversationExportedMsg{Cancelled: true}
		default:
		}

		// 0600 - exports contain sensitive chat history
		if err := os.WriteFile(exportPath, data, 0600); err != nil {
			return ConversationExportedMsg{Err: err}
		}

		return ConversationExportedMsg{Path: exportPath}
	}
}

// ImportConversationCmd imports a conversation from a JSON file
func (m *Model) ImportConversationCmd(ctx context.Context, filePath string) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return ConversationImportedMsg{Cancelled: true}
		default:
		}

		if m.Store == nil {
			return ConversationImportedMsg{Err: fmt.Errorf("conversation storage not initialized")}
		}

		expandedPath := config.ExpandPath(filePath)

		data, err := os.ReadFile(expandedPath)
		if err != nil {
			return ConversationImportedMsg{Err: fmt.Errorf("failed to read file: %w", err)}
		}

		select {
		case <-ctx.Done():
			return ConversationImportedMsg{Cancelled: true}
		default:
		}

		var conv storage.Conversation
		if err := json.Unmarshal(data, &conv); err != nil {
			return ConversationImportedMsg{Err: fmt.Errorf("invalid conversation file: %w", err)}
		}

		if conv.Name == "" {
			return ConversationImportedMsg{Err: fmt.Errorf("invalid conversation: missing name")}
		}
		if len(conv.Messages) == 0 {
			return ConversationImportedMsg{Err: fmt.Errorf("invalid conversation: no messages")}
		}

		// Imported copies get a fresh identity
		conv.ID = uuid.New().String()
		conv.CreatedAt = time.Now()
		conv.UpdatedAt = time.Now()

		select {
		case <-ctx.Done():
			return ConversationImportedMsg{Cancelled: true}
		default:
		}

		if err := m.Store.Save(&conv); err != nil {
			return ConversationImportedMsg{Err: fmt.Errorf("failed to save conversation: %w", err)}
		}

		return ConversationImportedMsg{Conversation: &conv}
	}
}

// SearchAllConversations queries the cross-conversation index
func (m *Model) SearchAllConversations(query string) tea.Cmd {
	index := m.SearchIndex
	limit := m.Config.SearchResultLimit
	return func() tea.Msg {
		if index == nil {
			return IndexSearchMsg{Query: query, Err: fmt.Errorf("search index not initialized")}
		}
		matches, err := index.Search(query, limit)
		return IndexSearchMsg{Query: query, Matches: matches, Err: err}
	}
}

// CleanupPartialFileCmd removes a partial export file
func (m *Model) CleanupPartialFileCmd(filePath string) tea.Cmd {
	return func() tea.Msg {
		if err := os.Remove(filePath); err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("Failed to cleanup partial file: %v", err)
			}
		}
		return ExportCleanupDoneMsg{}
	}
}
