package push

import "time"

// EventKind identifies one of the closed set of event kinds carried by the channel.
type EventKind string

const (
	// MessageInserted is published when a new message row is created.
	MessageInserted EventKind = "message.inserted"
	// MessageUpdated is published when a message row changes (read receipts).
	MessageUpdated EventKind = "message.updated"
	// ConversationChanged is published when a conversation row changes (pin/hide).
	ConversationChanged EventKind = "conversation.changed"
	// MessageSent is published by the send pipeline after a confirmed send.
	MessageSent EventKind = "message.sent"
	// ChannelStatusChanged is published on every runtime state transition.
	ChannelStatusChanged EventKind = "channel.status_changed"
	// ChannelResumed is published when connectivity returns after a gap.
	// Subscribers are expected to resync by re-fetching and reconciling by id.
	ChannelResumed EventKind = "channel.resumed"
	// NoticeRaised is a one-shot user-visible failure notification.
	NoticeRaised EventKind = "notice.raised"
)

// Event is a change notification delivered to subscribers.
type Event struct {
	Kind      EventKind
	Topic     string
	Timestamp time.Time
	Payload   any
}

// MessageRow is the wire representation of a message row change.
type MessageRow struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	Content        string `json:"content"`
	CreatedAt      int64  `json:"created_at"`
	ReadAt         int64  `json:"read_at"`
}

// ConversationRow is the wire representation of a conversation row change.
type ConversationRow struct {
	ID         string `json:"id"`
	ClientID   string `json:"client_id"`
	ProviderID string `json:"provider_id"`
	Pinned     bool   `json:"pinned"`
	Hidden     bool   `json:"hidden"`
}

// Notice is the payload for NoticeRaised events. Screens surface it once
// and discard it; passive sync failures never produce one.
type Notice struct {
	Op             string
	ConversationID string
	Err            string
}

// TopicChannel carries channel lifecycle events.
const TopicChannel = "channel"

// TopicNotice carries one-shot user-visible failure notices.
const TopicNotice = "notice"

// TopicAllConversations is the prefix matching every conversation topic,
// used by the global badge subscription.
const TopicAllConversations = "conversation/"

// ConversationTopic returns the topic for a single conversation.
func ConversationTopic(conversationID string) string {
	return TopicAllConversations + conversationID
}
