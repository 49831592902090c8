package record

import "context"

// Store is the contract the sync engine depends on from the source-of-truth
// data service. Lookups return (nil, nil) when the entity does not exist.
type Store interface {
	// ListMessages returns up to limit messages for a conversation ordered by
	// created_at descending, strictly older than beforeCreatedAt.
	// beforeCreatedAt <= 0 means "newest first page".
	ListMessages(ctx context.Context, conversationID string, beforeCreatedAt int64, limit int) ([]Message, error)

	// InsertMessage creates a message and returns it with the server-assigned
	// id and created_at.
	InsertMessage(ctx context.Context, conversationID, senderID, content string) (*Message, error)

	// MarkMessageRead sets read_at on a message. The transition is one-way:
	// a message already marked read is left untouched.
	MarkMessageRead(ctx context.Context, messageID string, readAt int64) error

	// GetProfile returns a user profile summary by id.
	GetProfile(ctx context.Context, userID string) (*Profile, error)

	// ListConversations returns every conversation the user participates in,
	// including hidden ones, with authoritative unread counts and last-message
	// previews.
	ListConversations(ctx context.Context, userID string) ([]Conversation, error)

	// SetConversationPinned updates the pinned flag on a conversation.
	SetConversationPinned(ctx context.Context, conversationID string, pinned bool) error

	// SetConversationHidden updates the hidden flag on a conversation.
	SetConversationHidden(ctx context.Context, conversationID string, hidden bool) error

	// MarkConversationRead marks every unread message from the other
	// participant as read.
	MarkConversationRead(ctx context.Context, conversationID, userID string, readAt int64) error

	// GetBooking returns a booking by id.
	GetBooking(ctx context.Context, bookingID string) (*Booking, error)

	// LatestPendingBooking returns the most recently created pending booking
	// for the ordered client/provider pair.
	LatestPendingBooking(ctx context.Context, clientID, providerID string) (*Booking, error)

	// SetBookingStatus updates a booking's status and updated_at.
	SetBookingStatus(ctx context.Context, bookingID string, status BookingStatus) error
}
