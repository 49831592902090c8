package inbox

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/planvite/chatsync/internal/push"
	"github.com/planvite/chatsync/internal/record"
)

// Inbox maintains the aggregated conversation list for the current user.
// Unread counts and previews are authoritative from the record store and are
// refreshed by re-query, never guessed locally; only pin/hide and an explicit
// mark-all-read mutate local state ahead of server confirmation.
type Inbox struct {
	store   record.Store
	channel *push.Channel
	logger  *zap.Logger
	userID  string

	mu            sync.Mutex
	conversations []record.Conversation
}

// New creates an empty inbox for the given user.
func New(store record.Store, channel *push.Channel, logger *zap.Logger, userID string) *Inbox {
	return &Inbox{
		store:   store,
		channel: channel,
		logger:  logger,
		userID:  userID,
	}
}

// Refresh re-derives the conversation list from the record store.
func (i *Inbox) Refresh(ctx context.Context) error {
	convs, err := i.store.ListConversations(ctx, i.userID)
	if err != nil {
		return err
	}
	i.mu.Lock()
	i.conversations = convs
	i.mu.Unlock()
	return nil
}

// List returns the visible conversations: hidden ones filtered out, pinned
// conversations first, each group ordered by most-recent activity.
func (i *Inbox) List() []record.Conversation {
	i.mu.Lock()
	var out []record.Conversation
	for _, c := range i.conversations {
		if !c.Hidden {
			out = append(out, c)
		}
	}
	i.mu.Unlock()

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Pinned != out[b].Pinned {
			return out[a].Pinned
		}
		return out[a].LastActivity() > out[b].LastActivity()
	})
	return out
}

// Get returns the conversation with the given id, hidden ones included.
func (i *Inbox) Get(conversationID string) (record.Conversation, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, c := range i.conversations {
		if c.ID == conversationID {
			return c, true
		}
	}
	return record.Conversation{}, false
}

// SetPinned toggles the pinned flag optimistically and issues the server
// write in the background. A failed write reverts the toggle and raises a
// one-shot notice.
func (i *Inbox) SetPinned(conversationID string, pinned bool) {
	if !i.setPinnedLocal(conversationID, pinned) {
		return
	}
	go func() {
		// Detached from the caller's lifetime: the toggle is fire-and-forget.
		if err := i.store.SetConversationPinned(context.Background(), conversationID, pinned); err != nil {
			i.logger.Warn("pin write failed, reverting",
				zap.String("conversation_id", conversationID), zap.Error(err))
			i.setPinnedLocal(conversationID, !pinned)
			i.channel.RaiseNotice("pin", conversationID, err)
		}
	}()
}

// Hide hides a conversation optimistically; the underlying data is never
// deleted. A failed server write reverts the flag and raises a notice.
func (i *Inbox) Hide(conversationID string) {
	if !i.setHiddenLocal(conversationID, true) {
		return
	}
	go func() {
		if err := i.store.SetConversationHidden(context.Background(), conversationID, true); err != nil {
			i.logger.Warn("hide write failed, reverting",
				zap.String("conversation_id", conversationID), zap.Error(err))
			i.setHiddenLocal(conversationID, false)
			i.channel.RaiseNotice("hide", conversationID, err)
		}
	}()
}

// MarkAllRead zeroes the local unread count and asks the record store to mark
// every unread message read. On failure the authoritative count is restored
// by re-query and the error surfaces to the caller.
func (i *Inbox) MarkAllRead(ctx context.Context, conversationID string) error {
	i.setUnreadLocal(conversationID, 0)
	if err := i.store.MarkConversationRead(ctx, conversationID, i.userID, time.Now().UnixMilli()); err != nil {
		if rerr := i.Refresh(ctx); rerr != nil {
			i.logger.Warn("refresh after failed mark-all-read", zap.Error(rerr))
		}
		i.channel.RaiseNotice("mark_read", conversationID, err)
		return err
	}
	return nil
}

func (i *Inbox) setPinnedLocal(conversationID string, pinned bool) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	for idx := range i.conversations {
		if i.conversations[idx].ID == conversationID {
			i.conversations[idx].Pinned = pinned
			return true
		}
	}
	return false
}

func (i *Inbox) setHiddenLocal(conversationID string, hidden bool) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	for idx := range i.conversations {
		if i.conversations[idx].ID == conversationID {
			i.conversations[idx].Hidden = hidden
			return true
		}
	}
	return false
}

func (i *Inbox) setUnreadLocal(conversationID string, count int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for idx := range i.conversations {
		if i.conversations[idx].ID == conversationID {
			i.conversations[idx].UnreadCount = count
			return
		}
	}
}
