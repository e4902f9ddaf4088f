package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// IndexedMessage is a search hit from the cross-conversation index
type IndexedMessage struct {
	ConversationID   string
	ConversationName string
	MessageIndex     int
	Role             string
	Content          string
	Preview          string
	Timestamp        time.Time
}

// SearchIndex is a sqlite-backed index over all conversation messages,
// kept so cross-conversation search does not reparse every JSON file.
type SearchIndex struct {
	db *sql.DB
}

func NewSearchIndex(dataDir string) (*SearchIndex, error) {
	dbPath := filepath.Join(dataDir, "index.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	index := &SearchIndex{db: db}

	if err := index.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return index, nil
}

func (si *SearchIndex) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		conversation_id TEXT NOT NULL,
		conversation_name TEXT NOT NULL,
		message_index INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		PRIMARY KEY (conversation_id, message_index)
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
	`

	_, err := si.db.Exec(schema)
	return err
}

// IndexConversation replaces the index rows for a conversation with its
// current messages. System messages are not indexed.
func (si *SearchIndex) IndexConversation(conv *Conversation) error {
	tx, err := si.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ?`, conv.ID); err != nil {
		return fmt.Errorf("failed to clear conversation rows: %w", err)
	}

	insert := `
	INSERT INTO messages (conversation_id, conversation_name, message_index, role, content, timestamp)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	for i, msg := range conv.Messages {
		if msg.Role == "system" {
			continue
		}
		if _, err := tx.Exec(insert, conv.ID, conv.Name, i, msg.Role, msg.Content, msg.Timestamp); err != nil {
			return fmt.Errorf("failed to index message: %w", err)
		}
	}

	return tx.Commit()
}

// RemoveConversation drops a conversation's rows from the index
func (si *SearchIndex) RemoveConversation(id string) error {
	_, err := si.db.Exec(`DELETE FROM messages WHERE conversation_id = ?`, id)
	return err
}

// Search finds messages across all indexed conversations matching the
// query, newest first
func (si *SearchIndex) Search(query string, limit int) ([]IndexedMessage, error) {
	if query == "" {
		return []IndexedMessage{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := si.db.Query(`
	SELECT conversation_id, conversation_name, message_index, role, content, timestamp
	FROM messages
	WHERE content LIKE '%' || ? || '%'
	ORDER BY timestamp DESC
	LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}
	defer rows.Close()

	var matches []IndexedMessage
	for rows.Next() {
		var m IndexedMessage
		err := rows.Scan(
			&m.ConversationID,
			&m.ConversationName,
			&m.MessageIndex,
			&m.Role,
			&m.Content,
			&m.Timestamp,
		)
		if err != nil {
			continue
		}

		m.Preview = m.Content
		if len(m.Preview) > 100 {
			m.Preview = m.Preview[:100] + "..."
		}

		matches = append(matches, m)
	}

	return matches, rows.Err()
}

// Rebuild reindexes every conversation in storage
func (si *SearchIndex) Rebuild(storage *ConversationStorage) error {
	metas, err := storage.List()
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	for _, meta := range metas {
		conv, err := storage.Load(meta.ID)
		if err != nil {
			continue // Skip corrupted files
		}
		if err := si.IndexConversation(conv); err != nil {
			return err
		}
	}

	return nil
}

func (si *SearchIndex) Close() error {
	if si.db != nil {
		return si.db.Close()
	}
	return nil
}
