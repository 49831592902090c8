package bridge

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/planvite/chatsync/internal/cache"
	"github.com/planvite/chatsync/internal/push"
	"github.com/planvite/chatsync/internal/record"
)

// Conversation translates push events for a single open conversation into
// message cache mutations. Its lifetime is owned by the screen viewing the
// conversation: Start on open, Stop on close. A leaked subscription would
// double-handle future events, so Stop must always be called.
type Conversation struct {
	store   record.Store
	channel *push.Channel
	logger  *zap.Logger
	cache   *cache.Messages
	userID  string
	cancel  context.CancelFunc
}

// NewConversation creates a bridge feeding the given message cache.
func NewConversation(store record.Store, channel *push.Channel, logger *zap.Logger, msgs *cache.Messages, userID string) *Conversation {
	return &Conversation{
		store:   store,
		channel: channel,
		logger:  logger,
		cache:   msgs,
		userID:  userID,
	}
}

// Start subscribes to the conversation's topic and to channel lifecycle
// events, processing both until Stop.
func (b *Conversation) Start(ctx context.Context) {
	ctx, b.cancel = context.WithCancel(ctx)
	events, unsubEvents := b.channel.Subscribe(push.ConversationTopic(b.cache.ConversationID()), 256)
	state, unsubState := b.channel.Subscribe(push.TopicChannel, 16)

	go func() {
		defer unsubEvents()
		defer unsubState()
		for {
			select {
			case evt := <-events:
				b.handleEvent(ctx, evt)
			case evt := <-state:
				if evt.Kind == push.ChannelResumed {
					b.resync(ctx)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop tears down the subscriptions. Safe to call more than once.
func (b *Conversation) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
}

func (b *Conversation) handleEvent(ctx context.Context, evt push.Event) {
	switch evt.Kind {
	case push.MessageInserted:
		row, ok := evt.Payload.(push.MessageRow)
		if !ok {
			return
		}
		// Own messages are applied by the send pipeline's success path.
		if row.SenderID == b.userID {
			return
		}
		b.applyInsert(ctx, row)
	case push.MessageUpdated:
		row, ok := evt.Payload.(push.MessageRow)
		if !ok {
			return
		}
		// Read-receipt propagation: patch read_at only, never content.
		b.cache.PatchReadAt(row.ID, row.ReadAt)
	}
}

func (b *Conversation) applyInsert(ctx context.Context, row push.MessageRow) {
	msg := record.Message{
		ID:             row.ID,
		ConversationID: row.ConversationID,
		SenderID:       row.SenderID,
		Content:        row.Content,
		CreatedAt:      row.CreatedAt,
		ReadAt:         row.ReadAt,
	}
	// Sender metadata is decoration: a failed lookup still applies the message.
	profile, err := b.store.GetProfile(ctx, row.SenderID)
	if err != nil {
		b.logger.Warn("sender profile lookup failed",
			zap.String("sender_id", row.SenderID), zap.Error(err))
	} else if profile != nil {
		msg.SenderName = profile.DisplayName
		msg.SenderAvatar = profile.AvatarURL
	}

	if b.cache.Prepend(msg) {
		// The conversation is on screen, so the message is read immediately.
		b.markRead(ctx, msg.ID)
	}
}

func (b *Conversation) markRead(ctx context.Context, messageID string) {
	if err := b.store.MarkMessageRead(ctx, messageID, time.Now().UnixMilli()); err != nil {
		// Passive failure: not surfaced, the receipt is retried on resync.
		b.logger.Warn("mark read failed", zap.String("message_id", messageID), zap.Error(err))
	}
}

// resync re-fetches the newest page after a connectivity gap and reconciles
// by id; messages from the other participant gained this way are marked read.
func (b *Conversation) resync(ctx context.Context) {
	added, err := b.cache.Resync(ctx)
	if err != nil {
		b.logger.Warn("resync failed",
			zap.String("conversation_id", b.cache.ConversationID()), zap.Error(err))
		return
	}
	for _, msg := range added {
		if msg.SenderID != b.userID && msg.ReadAt == 0 {
			b.markRead(ctx, msg.ID)
		}
	}
	if len(added) > 0 {
		b.logger.Info("resync applied missed messages",
			zap.String("conversation_id", b.cache.ConversationID()), zap.Int("count", len(added)))
	}
}
