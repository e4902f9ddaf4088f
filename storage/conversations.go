package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message represents a chat message
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Rendered  string    `json:"rendered,omitempty"` // Cached markdown rendering
	Timestamp time.Time `json:"timestamp"`
}

// Conversation represents a chat conversation
type Conversation struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Messages     []Message `json:"messages"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	AllowedTools []string  `json:"allowed_tools,omitempty"`
}

// ConversationMetadata is a lightweight version of Conversation for listing
type ConversationMetadata struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	AllowedTools []string  `json:"allowed_tools,omitempty"`
}

// ConversationStorage handles conversation persistence
type ConversationStorage struct {
	conversationsDir string
}

// NewConversationStorage creates a new conversation storage
func NewConversationStorage(dataDir string) (*ConversationStorage, error) {
	conversationsDir := filepath.Join(dataDir, "conversations")

	// 0700 - user-only access
	if err := os.MkdirAll(conversationsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create conversations directory: %w", err)
	}

	return &ConversationStorage{
		conversationsDir: conversationsDir,
	}, nil
}

// Save saves a conversation to disk
func (s *ConversationStorage) Save(conv *Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}

	conv.UpdatedAt = time.Now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = conv.UpdatedAt
	}

	filename := fmt.Sprintf("%s.json", conv.ID)
	filepath := filepath.Join(s.conversationsDir, filename)

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}

	// 0600 - conversation files contain sensitive chat history
	if err := os.WriteFile(filepath, data, 0600); err != nil {
		return fmt.Errorf("failed to write conversation file: %w", err)
	}

	return nil
}

// Load loads a conversation from disk
func (s *ConversationStorage) Load(id string) (*Conversation, error) {
	filename := fmt.Sprintf("%s.json", id)
	filepath := filepath.Join(s.conversationsDir, filename)

	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation file: %w", err)
	}

	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}

	return &conv, nil
}

// List returns metadata for all conversations, sorted by update time (newest first)
func (s *ConversationStorage) List() ([]ConversationMetadata, error) {
	entries, err := os.ReadDir(s.conversationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read conversations directory: %w", err)
	}

	var conversations []ConversationMetadata

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		filepath := filepath.Join(s.conversationsDir, entry.Name())
		data, err := os.ReadFile(filepath)
		if err != nil {
			continue // Skip corrupted files
		}

		var conv Conversation
		if err := json.Unmarshal(data, &conv); err != nil {
			continue // Skip corrupted files
		}

		conversations = append(conversations, ConversationMetadata{
			ID:           conv.ID,
			Name:         conv.Name,
			Provider:     conv.Provider,
			Model:        conv.Model,
			CreatedAt:    conv.CreatedAt,
			UpdatedAt:    conv.UpdatedAt,
			MessageCount: len(conv.Messages),
			SystemPrompt: conv.SystemPrompt,
			AllowedTools: conv.AllowedTools,
		})
	}

	// Sort by UpdatedAt (newest first)
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})

	return conversations, nil
}

// Delete deletes a conversation from disk
func (s *ConversationStorage) Delete(id string) error {
	filename := fmt.Sprintf("%s.json", id)
	filepath := filepath.Join(s.conversationsDir, filename)

	if err := os.Remove(filepath); err != nil {
		return fmt.Errorf("failed to delete conversation file: %w", err)
	}

	return nil
}

// SaveCurrentConversationID saves the ID of the current conversation
func (s *ConversationStorage) SaveCurrentConversationID(id string) error {
	filepath := filepath.Join(filepath.Dir(s.conversationsDir), "current_conversation.id")
	return os.WriteFile(filepath, []byte(id), 0600)
}

// LoadCurrentConversationID loads the ID of the last active conversation
func (s *ConversationStorage) LoadCurrentConversationID() (string, error) {
	filepath := filepath.Join(filepath.Dir(s.conversationsDir), "current_conversation.id")
	data, err := os.ReadFile(filepath)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Rename updates the name of a conversation
func (s *ConversationStorage) Rename(id string, newName string) error {
	conv, err := s.Load(id)
	if err != nil {
		return fmt.Errorf("failed to load conversation: %w", err)
	}

	conv.Name = newName

	if err := s.Save(conv); err != nil {
		return fmt.Errorf("failed to save renamed conversation: %w", err)
	}

	return nil
}

// SanitizeFilename removes or replaces characters that are invalid in filenames
func SanitizeFilename(name string) string {
	// Replace problematic characters with hyphens
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "\\", "-")
	name = strings.ReplaceAll(name, ":", "-")
	name = strings.ReplaceAll(name, "*", "-")
	name = strings.ReplaceAll(name, "?", "-")
	name = strings.ReplaceAll(name, "\"", "-")
	name = strings.ReplaceAll(name, "<", "-")
	name = strings.ReplaceAll(name, ">", "-")
	name = strings.ReplaceAll(name, "|", "-")
	name = strings.ReplaceAll(name, " ", "-")
	name = strings.ReplaceAll(name, "\n", "-")
	name = strings.ReplaceAll(name, "\r", "-")

	// Remove leading/trailing hyphens and dots
	name = strings.Trim(name, "-.")

	// Limit length
	if len(name) > 50 {
		name = name[:50]
	}

	// If empty after sanitization, use generic name
	if name == "" {
		name = "conversation"
	}

	return name
}

// GenerateExportPath generates a default export path for a conversation
func GenerateExportPath(conversationName string) string {
	// Get Downloads directory (platform-specific)
	homeDir := os.Getenv("HOME")
	if homeDir == "" {
		homeDir = os.Getenv("USERPROFILE") // Windows fallback
	}

	downloadsDir := filepath.Join(homeDir, "Downloads")

	sanitized := SanitizeFilename(conversationName)
	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("aster-conversation-%s-%s.json", sanitized, timestamp)

	return filepath.Join(downloadsDir, filename)
}

// ExportToJSON exports a conversation to a JSON file at the specified path
func (s *ConversationStorage) ExportToJSON(id string, exportPath string) error {
	conv, err := s.Load(id)
	if err != nil {
		return fmt.Errorf("failed to load conversation: %w", err)
	}

	// Marshal with indentation for readability
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}

	// 0700 - user-only access
	dir := filepath.Dir(exportPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// 0600 - exports contain sensitive chat history
	if err := os.WriteFile(exportPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// GenerateConversationName generates a conversation name from the first user message
func GenerateConversationName(firstMessage string) string {
	if firstMessage == "" {
		return fmt.Sprintf("Conversation %s", time.Now().Format("Jan 2, 3:04 PM"))
	}

	// Take first 30 characters
	name := firstMessage
	if len(name) > 30 {
		name = name[:30] + "..."
	}

	// Remove newlines
	name = strings.ReplaceAll(name, "\n", " ")
	name = strings.ReplaceAll(name, "\r", " ")

	name = strings.TrimSpace(name)

	if name == "" {
		return fmt.Sprintf("Conversation %s", time.Now().Format("Jan 2, 3:04 PM"))
	}

	return name
}

// MessageMatch represents a search result within a conversation
type MessageMatch struct {
	MessageIndex int
	Role         string
	Content      string
	Preview      string
	Timestamp    time.Time
}

// SearchMessages searches messages in the current conversation
func SearchMessages(messages []Message, query string) []MessageMatch {
	if query == "" {
		return []MessageMatch{}
	}

	queryLower := strings.ToLower(query)
	var matches []MessageMatch

	for i, msg := range messages {
		if msg.Role == "system" {
			continue
		}

		if strings.Contains(strings.ToLower(msg.Content), queryLower) {
			preview := msg.Content
			if len(preview) > 100 {
				preview = preview[:100] + "..."
			}

			matches = append(matches, MessageMatch{
				MessageIndex: i,
				Role:         msg.Role,
				Content:      msg.Content,
				Preview:      preview,
				Timestamp:    msg.Timestamp,
			})
		}
	}

	return matches
}

// AllowTool adds a tool to the conversation's always-allow list
func (c *Conversation) AllowTool(name string) {
	if c.AllowedTools == nil {
		c.AllowedTools = []string{}
	}

	for _, t := range c.AllowedTools {
		if t == name {
			return
		}
	}

	c.AllowedTools = append(c.AllowedTools, name)
}

// DisallowTool removes a tool from the conversation's always-allow list
func (c *Conversation) DisallowTool(name string) {
	if c.AllowedTools == nil {
		return
	}

	filtered := []string{}
	for _, t := range c.AllowedTools {
		if t != name {
			filtered = append(filtered, t)
		}
	}
	c.AllowedTools = filtered
}

// IsToolAllowed reports whether a tool is on the always-allow list
func (c *Conversation) IsToolAllowed(name string) bool {
	for _, t := range c.AllowedTools {
		if t == name {
			return true
		}
	}
	return false
}

// LockConversation creates a lock file for a conversation to indicate it's in use
// Lock file format: <data_dir>/conversations/{conversation-id}.lock
// Content: PID of the instance using this conversation
func (s *ConversationStorage) LockConversation(id string) error {
	lockPath := filepath.Join(s.conversationsDir, id+".lock")
	pid := os.Getpid()

	return os.WriteFile(lockPath, []byte(fmt.Sprintf("%d", pid)), 0600)
}

// UnlockConversation removes the lock file for a conversation
func (s *ConversationStorage) UnlockConversation(id string) error {
	lockPath := filepath.Join(s.conversationsDir, id+".lock")

	err := os.Remove(lockPath)
	if os.IsNotExist(err) {
		return nil
	}

	return err
}

// CheckConversationLock checks if a conversation is locked by another instance
func (s *ConversationStorage) CheckConversationLock(id string) (bool, error) {
	lockPath := filepath.Join(s.conversationsDir, id+".lock")

	data, err := os.ReadFile(lockPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read lock file: %w", err)
	}

	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		// Invalid lock file, clean it up
		_ = os.Remove(lockPath)
		return false, nil
	}

	// os.FindProcess() always succeeds on Unix, but we use it as a basic check
	// For cross-platform compatibility, we trust FindProcess() without signaling
	_, err = os.FindProcess(pid)
	if err != nil {
		// Process not found (Windows), clean up stale lock
		_ = os.Remove(lockPath)
		return false, nil
	}

	return true, nil
}

func (s *ConversationStorage) instanceLockPath() string {
	dataDir := filepath.Dir(s.conversationsDir)
	return filepath.Join(dataDir, "aster.lock")
}

// LockInstance creates a global lock so only one aster instance runs per data
// directory. Lock file: <data_dir>/aster.lock, content: PID.
func (s *ConversationStorage) LockInstance() error {
	return os.WriteFile(s.instanceLockPath(), []byte(fmt.Sprintf("%d", os.Getpid())), 0600)
}

// UnlockInstance removes the global instance lock
func (s *ConversationStorage) UnlockInstance() error {
	err := os.Remove(s.instanceLockPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// CheckInstanceLock reports whether another aster instance is running.
// Returns (isLocked, runningPID, err).
func (s *ConversationStorage) CheckInstanceLock() (bool, int, error) {
	data, err := os.ReadFile(s.instanceLockPath())
	if os.IsNotExist(err) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to read lock file: %w", err)
	}

	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		// Invalid lock file, clean it up
		_ = os.Remove(s.instanceLockPath())
		return false, 0, nil
	}

	_, err = os.FindProcess(pid)
	if err != nil {
		_ = os.Remove(s.instanceLockPath())
		return false, 0, nil
	}

	return true, pid, nil
}
