package bridge

import (
	"context"

	"go.uber.org/zap"

	"github.com/planvite/chatsync/internal/inbox"
	"github.com/planvite/chatsync/internal/push"
)

// Global keeps the inbox current independently of which conversation, if any,
// is open. It never patches previews or unread counts incrementally: every
// relevant event triggers a full re-aggregation so drift cannot compound.
type Global struct {
	inbox   *inbox.Inbox
	channel *push.Channel
	logger  *zap.Logger
	userID  string
	cancel  context.CancelFunc
}

// NewGlobal creates the app-wide badge bridge.
func NewGlobal(ib *inbox.Inbox, channel *push.Channel, logger *zap.Logger, userID string) *Global {
	return &Global{
		inbox:   ib,
		channel: channel,
		logger:  logger,
		userID:  userID,
	}
}

// Start subscribes to all conversation topics and channel lifecycle events.
func (g *Global) Start(ctx context.Context) {
	ctx, g.cancel = context.WithCancel(ctx)
	events, unsubEvents := g.channel.Subscribe(push.TopicAllConversations, 256)
	state, unsubState := g.channel.Subscribe(push.TopicChannel, 16)

	go func() {
		defer unsubEvents()
		defer unsubState()
		for {
			select {
			case evt := <-events:
				g.handleEvent(ctx, evt)
			case evt := <-state:
				if evt.Kind == push.ChannelResumed {
					g.refresh(ctx)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop tears down the subscriptions. Safe to call more than once.
func (g *Global) Stop() {
	if g.cancel != nil {
		g.cancel()
	}
}

func (g *Global) handleEvent(ctx context.Context, evt push.Event) {
	switch evt.Kind {
	case push.MessageInserted:
		row, ok := evt.Payload.(push.MessageRow)
		if !ok || row.SenderID == g.userID {
			return
		}
		g.refresh(ctx)
	case push.ConversationChanged:
		g.refresh(ctx)
	}
}

func (g *Global) refresh(ctx context.Context) {
	if err := g.inbox.Refresh(ctx); err != nil {
		// Passive failure: the badge goes stale until the next event.
		g.logger.Warn("inbox refresh failed", zap.Error(err))
	}
}
