package store

import (
	"database/sql"
	"time"
)

// SaveChatMetadata upserts the serialized metadata object for a chat.
func (db *DB) SaveChatMetadata(chatID string, data []byte) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO chat_metadata (chat_id, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		chatID, string(data), now)
	return err
}

// LoadChatMetadata returns the serialized metadata for a chat, or nil when
// none was ever persisted.
func (db *DB) LoadChatMetadata(chatID string) ([]byte, error) {
	var data string
	err := db.QueryRow(`SELECT data FROM chat_metadata WHERE chat_id = ?`, chatID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}
