package record

// Conversation represents a client/provider conversation as aggregated for
// the inbox. Hidden conversations stay in the result set with the flag set;
// hiding is a flag, never a deletion.
type Conversation struct {
	ID          string
	ClientID    string
	ProviderID  string
	LastMessage *MessagePreview
	UnreadCount int
	Pinned      bool
	Hidden      bool
}

// LastActivity returns the timestamp of the most recent message, or 0 for a
// conversation with no messages yet.
func (c *Conversation) LastActivity() int64 {
	if c.LastMessage == nil {
		return 0
	}
	return c.LastMessage.CreatedAt
}

// MessagePreview is the last-message summary shown in the conversation list.
type MessagePreview struct {
	MessageID string
	SenderID  string
	Content   string
	CreatedAt int64
}

// Message is a single chat message. CreatedAt is server-assigned and
// monotonic per conversation. ReadAt is 0 until the recipient marks the
// message read; it transitions exactly once and never reverts.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	SenderName     string
	SenderAvatar   string
	Content        string
	CreatedAt      int64
	ReadAt         int64
}

// Profile is a user profile summary used to decorate incoming messages.
type Profile struct {
	ID          string
	DisplayName string
	AvatarURL   string
}

// BookingStatus is the lifecycle status of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// Booking is a negotiable booking between a client and a provider.
type Booking struct {
	ID            string
	ClientID      string
	ProviderID    string
	ServiceRef    string
	Status        BookingStatus
	ScheduledDate string
	ScheduledTime string
	CreatedAt     int64
	UpdatedAt     int64
}
