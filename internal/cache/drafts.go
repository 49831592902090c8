package cache

import "sync"

// Drafts holds in-progress unsent text keyed by conversation id. It is
// process-wide and never persisted; a restart loses drafts.
type Drafts struct {
	mu             sync.RWMutex
	byConversation map[string]string
}

// NewDrafts creates an empty draft store.
func NewDrafts() *Drafts {
	return &Drafts{byConversation: make(map[string]string)}
}

// Set stores the current draft text for a conversation.
func (d *Drafts) Set(conversationID, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byConversation[conversationID] = text
}

// Get returns the draft text for a conversation, or "" if none.
func (d *Drafts) Get(conversationID string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.byConversation[conversationID]
}

// Clear removes the draft for a conversation.
func (d *Drafts) Clear(conversationID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.byConversation, conversationID)
}
