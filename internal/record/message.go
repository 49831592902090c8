package record

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/planvite/chatsync/internal/push"
)

// InsertMessage creates a message with a server-assigned id and a created_at
// strictly greater than any existing message in the conversation, so ordering
// by created_at is total within a conversation.
func (db *DB) InsertMessage(ctx context.Context, conversationID, senderID, content string) (*Message, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var last sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(created_at) FROM messages WHERE conversation_id = ?`, conversationID).
		Scan(&last); err != nil {
		return nil, fmt.Errorf("max created_at: %w", err)
	}
	createdAt := time.Now().UnixMilli()
	if last.Valid && last.Int64 >= createdAt {
		createdAt = last.Int64 + 1
	}

	m := &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      createdAt,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, content, created_at, read_at)
		VALUES (?, ?, ?, ?, ?, 0)`,
		m.ID, m.ConversationID, m.SenderID, m.Content, m.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	db.publish("messages", "insert", push.MessageRow{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	})
	return m, nil
}

// ListMessages returns messages for a conversation using keyset pagination
// by created_at descending.
func (db *DB) ListMessages(ctx context.Context, conversationID string, beforeCreatedAt int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 20
	}
	if beforeCreatedAt <= 0 {
		// Open cursor. created_at can run ahead of the wall clock after
		// same-millisecond inserts, so "now" is not a safe upper bound.
		beforeCreatedAt = int64(1) << 62
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, conversation_id, sender_id, content, created_at, read_at
		FROM messages
		WHERE conversation_id = ? AND created_at < ?
		ORDER BY created_at DESC
		LIMIT ?`, conversationID, beforeCreatedAt, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt, &m.ReadAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MarkMessageRead sets read_at on a message if it is still unread. Marking an
// already-read or unknown message is a no-op, keeping the transition one-way.
func (db *DB) MarkMessageRead(ctx context.Context, messageID string, readAt int64) error {
	res, err := db.ExecContext(ctx,
		`UPDATE messages SET read_at = ? WHERE id = ? AND read_at = 0`, readAt, messageID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil || n == 0 {
		return err
	}

	var row push.MessageRow
	if err := db.QueryRowContext(ctx, `
		SELECT id, conversation_id, sender_id, content, created_at, read_at
		FROM messages WHERE id = ?`, messageID).
		Scan(&row.ID, &row.ConversationID, &row.SenderID, &row.Content, &row.CreatedAt, &row.ReadAt); err != nil {
		return nil
	}
	db.publish("messages", "update", row)
	return nil
}

// MarkConversationRead marks every unread message from the other participant
// as read. Read receipts are published per affected message.
func (db *DB) MarkConversationRead(ctx context.Context, conversationID, userID string, readAt int64) error {
	rows, err := db.QueryContext(ctx, `
		SELECT id FROM messages
		WHERE conversation_id = ? AND sender_id != ? AND read_at = 0`,
		conversationID, userID)
	if err != nil {
		return err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range ids {
		if err := db.MarkMessageRead(ctx, id, readAt); err != nil {
			return err
		}
	}
	return nil
}
