package engine

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/planvite/chatsync/internal/booking"
	"github.com/planvite/chatsync/internal/bridge"
	"github.com/planvite/chatsync/internal/cache"
	"github.com/planvite/chatsync/internal/inbox"
	"github.com/planvite/chatsync/internal/push"
	"github.com/planvite/chatsync/internal/record"
	"github.com/planvite/chatsync/internal/send"
)

// ErrUnknownConversation is returned when a conversation id is not part of
// the current user's conversation set.
var ErrUnknownConversation = errors.New("unknown conversation")

// Engine is the surface screens consume. It hands out conversation handles
// that own their push subscription: opening starts it, closing tears it down.
type Engine struct {
	store    record.Store
	channel  *push.Channel
	logger   *zap.Logger
	drafts   *cache.Drafts
	inbox    *inbox.Inbox
	sender   *send.Sender
	userID   string
	pageSize int
}

// New assembles an engine from its collaborators.
func New(store record.Store, channel *push.Channel, logger *zap.Logger, drafts *cache.Drafts, ib *inbox.Inbox, sender *send.Sender, userID string, pageSize int) *Engine {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Engine{
		store:    store,
		channel:  channel,
		logger:   logger,
		drafts:   drafts,
		inbox:    ib,
		sender:   sender,
		userID:   userID,
		pageSize: pageSize,
	}
}

// Inbox returns the aggregated conversation list.
func (e *Engine) Inbox() *inbox.Inbox {
	return e.inbox
}

// OpenConversation loads the newest page of a conversation, starts its push
// bridge and booking sidecar, and returns the owning handle. The caller must
// Close the handle when the conversation leaves the screen.
func (e *Engine) OpenConversation(ctx context.Context, conversationID string) (*Conversation, error) {
	conv, ok := e.inbox.Get(conversationID)
	if !ok {
		if err := e.inbox.Refresh(ctx); err != nil {
			return nil, err
		}
		if conv, ok = e.inbox.Get(conversationID); !ok {
			return nil, ErrUnknownConversation
		}
	}

	msgs := cache.NewMessages(e.store, conversationID, e.pageSize)
	if err := msgs.LoadInitial(ctx); err != nil {
		return nil, err
	}

	br := bridge.NewConversation(e.store, e.channel, e.logger, msgs, e.userID)
	br.Start(ctx)

	sc := booking.NewSidecar(e.store, e.channel, e.logger, conv, e.userID)
	if err := sc.Load(ctx); err != nil {
		// The chat still works without the booking card.
		e.logger.Warn("booking lookup failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
	}

	return &Conversation{
		id:      conversationID,
		engine:  e,
		msgs:    msgs,
		bridge:  br,
		sidecar: sc,
	}, nil
}
