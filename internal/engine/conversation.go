package engine

import (
	"context"

	"github.com/planvite/chatsync/internal/booking"
	"github.com/planvite/chatsync/internal/bridge"
	"github.com/planvite/chatsync/internal/cache"
	"github.com/planvite/chatsync/internal/record"
)

// Conversation is an open conversation handle. It owns the per-conversation
// push subscription and must be closed when dismissed.
type Conversation struct {
	id      string
	engine  *Engine
	msgs    *cache.Messages
	bridge  *bridge.Conversation
	sidecar *booking.Sidecar
}

// ID returns the conversation id.
func (c *Conversation) ID() string {
	return c.id
}

// Messages returns the loaded messages, newest first.
func (c *Conversation) Messages() []record.Message {
	return c.msgs.Snapshot()
}

// HasMore reports whether older pages may still exist.
func (c *Conversation) HasMore() bool {
	return c.msgs.HasMore()
}

// LoadOlder fetches the next older page; a no-op when exhausted or already
// loading.
func (c *Conversation) LoadOlder(ctx context.Context) error {
	return c.msgs.LoadOlder(ctx)
}

// Send submits composed content through the send pipeline.
func (c *Conversation) Send(ctx context.Context, content string) (*record.Message, error) {
	return c.engine.sender.Send(ctx, c.msgs, content)
}

// Draft returns the in-progress draft text.
func (c *Conversation) Draft() string {
	return c.engine.drafts.Get(c.id)
}

// SetDraft stores the in-progress draft text.
func (c *Conversation) SetDraft(text string) {
	c.engine.drafts.Set(c.id, text)
}

// MarkRead marks the whole conversation read.
func (c *Conversation) MarkRead(ctx context.Context) error {
	return c.engine.inbox.MarkAllRead(ctx, c.id)
}

// Booking returns the booking sidecar for this conversation.
func (c *Conversation) Booking() *booking.Sidecar {
	return c.sidecar
}

// Close tears down the push subscription. Safe to call more than once.
func (c *Conversation) Close() {
	c.bridge.Stop()
}
