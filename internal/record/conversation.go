package record

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/planvite/chatsync/internal/push"
)

// CreateConversation inserts a conversation row. Used by the backfill path
// and by test fixtures; conversations are never created from the chat view.
func (db *DB) CreateConversation(ctx context.Context, c *Conversation) error {
	now := time.Now().UnixMilli()
	_, err := db.ExecContext(ctx, `
		INSERT INTO conversations (id, client_id, provider_id, pinned, hidden, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		c.ID, c.ClientID, c.ProviderID, c.Pinned, c.Hidden, now, now)
	return err
}

// ListConversations returns every conversation the user participates in,
// hidden ones included, with the last-message preview and the authoritative
// unread count (messages from the other participant not yet read).
func (db *DB) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT c.id, c.client_id, c.provider_id, c.pinned, c.hidden,
			(SELECT COUNT(*) FROM messages m
				WHERE m.conversation_id = c.id AND m.sender_id != ? AND m.read_at = 0) AS unread,
			lm.id, lm.sender_id, lm.content, lm.created_at
		FROM conversations c
		LEFT JOIN messages lm ON lm.id = (
			SELECT id FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC LIMIT 1)
		WHERE c.client_id = ? OR c.provider_id = ?
		ORDER BY lm.created_at DESC`,
		userID, userID, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var convs []Conversation
	for rows.Next() {
		var c Conversation
		var msgID, senderID, content sql.NullString
		var createdAt sql.NullInt64
		if err := rows.Scan(&c.ID, &c.ClientID, &c.ProviderID, &c.Pinned, &c.Hidden,
			&c.UnreadCount, &msgID, &senderID, &content, &createdAt); err != nil {
			return nil, err
		}
		if msgID.Valid {
			c.LastMessage = &MessagePreview{
				MessageID: msgID.String,
				SenderID:  senderID.String,
				Content:   content.String,
				CreatedAt: createdAt.Int64,
			}
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// SetConversationPinned updates the pinned flag.
func (db *DB) SetConversationPinned(ctx context.Context, conversationID string, pinned bool) error {
	return db.setConversationFlag(ctx, conversationID, "pinned", pinned)
}

// SetConversationHidden updates the hidden flag.
func (db *DB) SetConversationHidden(ctx context.Context, conversationID string, hidden bool) error {
	return db.setConversationFlag(ctx, conversationID, "hidden", hidden)
}

func (db *DB) setConversationFlag(ctx context.Context, conversationID, column string, value bool) error {
	now := time.Now().UnixMilli()
	res, err := db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE conversations SET %s = ?, updated_at = ? WHERE id = ?`, column),
		value, now, conversationID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		if err != nil {
			return err
		}
		return fmt.Errorf("conversation %q not found", conversationID)
	}

	var row push.ConversationRow
	if err := db.QueryRowContext(ctx, `
		SELECT id, client_id, provider_id, pinned, hidden
		FROM conversations WHERE id = ?`, conversationID).
		Scan(&row.ID, &row.ClientID, &row.ProviderID, &row.Pinned, &row.Hidden); err != nil {
		return nil
	}
	db.publish("conversations", "update", row)
	return nil
}
