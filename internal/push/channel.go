package push

import (
	"strings"
	"sync"
	"time"
)

// Channel is an in-process publish/subscribe channel with topic-prefix
// filtering. It stands in for the backend's realtime feed: the record store
// publishes row changes into it and bridges subscribe per conversation or
// globally.
type Channel struct {
	mu   sync.RWMutex
	subs map[int]*subscription
	next int
}

type subscription struct {
	topic string
	ch    chan Event
}

// New creates a new push channel.
func New() *Channel {
	return &Channel{
		subs: make(map[int]*subscription),
	}
}

// Publish sends an event to all subscribers whose topic is a prefix of event.Topic.
func (c *Channel) Publish(evt Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, sub := range c.subs {
		if strings.HasPrefix(evt.Topic, sub.topic) {
			select {
			case sub.ch <- evt:
			default:
				// Drop event if subscriber is full (non-blocking).
			}
		}
	}
}

// RaiseNotice publishes a one-shot user-visible failure notice for an
// explicit user action. Passive sync failures never call this.
func (c *Channel) RaiseNotice(op, conversationID string, err error) {
	c.Publish(Event{
		Kind:      NoticeRaised,
		Topic:     TopicNotice,
		Timestamp: time.Now(),
		Payload: Notice{
			Op:             op,
			ConversationID: conversationID,
			Err:            err.Error(),
		},
	})
}

// Subscribe returns a channel that receives events matching the given topic prefix.
// bufSize controls the channel buffer. Returns the channel and an unsubscribe
// function that is safe to call more than once.
func (c *Channel) Subscribe(topic string, bufSize int) (<-chan Event, func()) {
	ch := make(chan Event, bufSize)
	c.mu.Lock()
	id := c.next
	c.next++
	c.subs[id] = &subscription{topic: topic, ch: ch}
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}
