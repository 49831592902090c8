package cache

import (
	"context"
	"sort"
	"sync"

	"github.com/planvite/chatsync/internal/record"
)

// Messages is the paginated, reverse-chronological message cache for a single
// open conversation. Pages are appended at the tail (older end) by LoadOlder
// and new messages enter at the head via Prepend. All merges are keyed by
// message id, so replayed or duplicate deliveries are absorbed as no-ops.
type Messages struct {
	mu             sync.Mutex
	store          record.Store
	conversationID string
	pageSize       int

	pages   [][]record.Message
	ids     map[string]struct{}
	hasMore bool
	loading bool
}

// NewMessages creates an empty cache for a conversation.
func NewMessages(store record.Store, conversationID string, pageSize int) *Messages {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Messages{
		store:          store,
		conversationID: conversationID,
		pageSize:       pageSize,
		ids:            make(map[string]struct{}),
		hasMore:        true,
	}
}

// ConversationID returns the conversation this cache belongs to.
func (m *Messages) ConversationID() string {
	return m.conversationID
}

// LoadInitial fetches the newest page, replacing any loaded state.
func (m *Messages) LoadInitial(ctx context.Context) error {
	m.mu.Lock()
	if m.loading {
		m.mu.Unlock()
		return nil
	}
	m.loading = true
	m.mu.Unlock()

	page, err := m.store.ListMessages(ctx, m.conversationID, 0, m.pageSize)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = false
	if err != nil {
		return err
	}
	m.pages = nil
	m.ids = make(map[string]struct{})
	if len(page) > 0 {
		m.pages = append(m.pages, page)
		for _, msg := range page {
			m.ids[msg.ID] = struct{}{}
		}
	}
	m.hasMore = len(page) == m.pageSize
	return nil
}

// LoadOlder fetches the page strictly older than the oldest loaded message.
// It is a no-op when no further pages exist or a load is already in flight.
func (m *Messages) LoadOlder(ctx context.Context) error {
	m.mu.Lock()
	if !m.hasMore || m.loading {
		m.mu.Unlock()
		return nil
	}
	m.loading = true
	before := m.oldestLocked()
	m.mu.Unlock()

	page, err := m.store.ListMessages(ctx, m.conversationID, before, m.pageSize)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = false
	if err != nil {
		return err
	}
	m.hasMore = len(page) == m.pageSize
	// Keyset pagination cannot return loaded ids, but a concurrent prepend
	// race is cheap to guard against.
	var fresh []record.Message
	for _, msg := range page {
		if _, ok := m.ids[msg.ID]; ok {
			continue
		}
		m.ids[msg.ID] = struct{}{}
		fresh = append(fresh, msg)
	}
	if len(fresh) > 0 {
		m.pages = append(m.pages, fresh)
	}
	return nil
}

// oldestLocked returns the created_at of the oldest loaded message, or 0 when
// nothing is loaded yet. Caller must hold mu.
func (m *Messages) oldestLocked() int64 {
	if len(m.pages) == 0 {
		return 0
	}
	last := m.pages[len(m.pages)-1]
	return last[len(last)-1].CreatedAt
}

// Prepend merges a new message into the head page. A message whose id is
// already loaded is discarded; returns whether the message was applied.
func (m *Messages) Prepend(msg record.Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ids[msg.ID]; ok {
		return false
	}
	m.ids[msg.ID] = struct{}{}
	if len(m.pages) == 0 {
		m.pages = append(m.pages, []record.Message{msg})
		return true
	}
	// Insert at the position keeping the head page in descending created_at.
	head := m.pages[0]
	i := sort.Search(len(head), func(i int) bool {
		return head[i].CreatedAt <= msg.CreatedAt
	})
	head = append(head, record.Message{})
	copy(head[i+1:], head[i:])
	head[i] = msg
	m.pages[0] = head
	return true
}

// PatchReadAt applies a read receipt to a loaded message. The transition is
// monotonic: a message already marked read keeps its original read_at.
// Returns whether a message was patched.
func (m *Messages) PatchReadAt(messageID string, readAt int64) bool {
	if readAt <= 0 {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for pi, page := range m.pages {
		for mi, msg := range page {
			if msg.ID != messageID {
				continue
			}
			if msg.ReadAt != 0 {
				return false
			}
			m.pages[pi][mi].ReadAt = readAt
			return true
		}
	}
	return false
}

// Resync re-fetches the newest page and reconciles it by id: read receipts
// are patched onto loaded messages and messages missed while disconnected are
// prepended. CreatedAt is server-assigned and monotonic per conversation, so
// anything missed is newer than the loaded head. Returns the messages added.
func (m *Messages) Resync(ctx context.Context) ([]record.Message, error) {
	page, err := m.store.ListMessages(ctx, m.conversationID, 0, m.pageSize)
	if err != nil {
		return nil, err
	}

	var missed []record.Message
	for _, msg := range page {
		m.mu.Lock()
		_, known := m.ids[msg.ID]
		m.mu.Unlock()
		if known {
			m.PatchReadAt(msg.ID, msg.ReadAt)
		} else {
			missed = append(missed, msg)
		}
	}

	// Oldest first so repeated prepends land in order.
	sort.Slice(missed, func(i, j int) bool {
		return missed[i].CreatedAt < missed[j].CreatedAt
	})
	var added []record.Message
	for _, msg := range missed {
		if m.Prepend(msg) {
			added = append(added, msg)
		}
	}
	return added, nil
}

// Snapshot returns the flattening of all loaded pages, newest first.
func (m *Messages) Snapshot() []record.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []record.Message
	for _, page := range m.pages {
		out = append(out, page...)
	}
	return out
}

// HasMore reports whether older pages may still exist.
func (m *Messages) HasMore() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasMore
}
