package send

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/planvite/chatsync/internal/cache"
	"github.com/planvite/chatsync/internal/push"
	"github.com/planvite/chatsync/internal/record"
)

// ErrEmptyMessage is returned when the content is empty after trimming.
var ErrEmptyMessage = errors.New("message is empty")

// ErrMessageTooLong is returned when the content exceeds the length bound.
var ErrMessageTooLong = errors.New("message exceeds maximum length")

// Sender submits user-composed messages to the record store and merges the
// confirmed result into the message cache. The merge is id-keyed, so it is
// correct whether the push echo for the same write lands before or after the
// store's response. There is no outbox: a failed send stays failed and the
// user re-types.
type Sender struct {
	store   record.Store
	drafts  *cache.Drafts
	channel *push.Channel
	logger  *zap.Logger
	userID  string
	maxLen  int
}

// NewSender creates a send pipeline for the given user.
func NewSender(store record.Store, drafts *cache.Drafts, channel *push.Channel, logger *zap.Logger, userID string, maxLen int) *Sender {
	if maxLen <= 0 {
		maxLen = 2000
	}
	return &Sender{
		store:   store,
		drafts:  drafts,
		channel: channel,
		logger:  logger,
		userID:  userID,
		maxLen:  maxLen,
	}
}

// Send validates and submits content to the given conversation's cache.
// The draft is cleared before the network round-trip and is not restored on
// failure; the caller surfaces the returned error.
func (s *Sender) Send(ctx context.Context, msgs *cache.Messages, content string) (*record.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if len(content) > s.maxLen {
		return nil, ErrMessageTooLong
	}
	conversationID := msgs.ConversationID()

	// Cleared exactly once, before submission.
	s.drafts.Clear(conversationID)

	m, err := s.store.InsertMessage(ctx, conversationID, s.userID, content)
	if err != nil {
		s.logger.Error("send failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
		s.channel.RaiseNotice("send", conversationID, err)
		return nil, err
	}

	// Merge by id: a no-op if the push echo of this write was applied first.
	msgs.Prepend(*m)

	s.logger.Info("message sent",
		zap.String("conversation_id", conversationID), zap.String("message_id", m.ID))
	s.channel.Publish(push.Event{
		Kind:      push.MessageSent,
		Topic:     push.ConversationTopic(conversationID),
		Timestamp: time.Now(),
		Payload: push.MessageRow{
			ID:             m.ID,
			ConversationID: m.ConversationID,
			SenderID:       m.SenderID,
			Content:        m.Content,
			CreatedAt:      m.CreatedAt,
		},
	})
	return m, nil
}
