package record

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retrying wraps a Store with a small fixed number of automatic retries on
// transient failures. Errors surviving the retry budget surface to the caller;
// nothing is silently dropped.
type Retrying struct {
	inner    Store
	attempts uint64
}

// WithRetry wraps a store so each operation is retried up to attempts times
// with short exponential backoff.
func WithRetry(inner Store, attempts int) *Retrying {
	if attempts < 0 {
		attempts = 0
	}
	return &Retrying{inner: inner, attempts: uint64(attempts)}
}

func (r *Retrying) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return backoff.WithContext(backoff.WithMaxRetries(b, r.attempts), ctx)
}

func (r *Retrying) ListMessages(ctx context.Context, conversationID string, beforeCreatedAt int64, limit int) ([]Message, error) {
	return backoff.RetryWithData(func() ([]Message, error) {
		return r.inner.ListMessages(ctx, conversationID, beforeCreatedAt, limit)
	}, r.policy(ctx))
}

func (r *Retrying) InsertMessage(ctx context.Context, conversationID, senderID, content string) (*Message, error) {
	return backoff.RetryWithData(func() (*Message, error) {
		return r.inner.InsertMessage(ctx, conversationID, senderID, content)
	}, r.policy(ctx))
}

func (r *Retrying) MarkMessageRead(ctx context.Context, messageID string, readAt int64) error {
	return backoff.Retry(func() error {
		return r.inner.MarkMessageRead(ctx, messageID, readAt)
	}, r.policy(ctx))
}

func (r *Retrying) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	return backoff.RetryWithData(func() (*Profile, error) {
		return r.inner.GetProfile(ctx, userID)
	}, r.policy(ctx))
}

func (r *Retrying) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	return backoff.RetryWithData(func() ([]Conversation, error) {
		return r.inner.ListConversations(ctx, userID)
	}, r.policy(ctx))
}

func (r *Retrying) SetConversationPinned(ctx context.Context, conversationID string, pinned bool) error {
	return backoff.Retry(func() error {
		return r.inner.SetConversationPinned(ctx, conversationID, pinned)
	}, r.policy(ctx))
}

func (r *Retrying) SetConversationHidden(ctx context.Context, conversationID string, hidden bool) error {
	return backoff.Retry(func() error {
		return r.inner.SetConversationHidden(ctx, conversationID, hidden)
	}, r.policy(ctx))
}

func (r *Retrying) MarkConversationRead(ctx context.Context, conversationID, userID string, readAt int64) error {
	return backoff.Retry(func() error {
		return r.inner.MarkConversationRead(ctx, conversationID, userID, readAt)
	}, r.policy(ctx))
}

func (r *Retrying) GetBooking(ctx context.Context, bookingID string) (*Booking, error) {
	return backoff.RetryWithData(func() (*Booking, error) {
		return r.inner.GetBooking(ctx, bookingID)
	}, r.policy(ctx))
}

func (r *Retrying) LatestPendingBooking(ctx context.Context, clientID, providerID string) (*Booking, error) {
	return backoff.RetryWithData(func() (*Booking, error) {
		return r.inner.LatestPendingBooking(ctx, clientID, providerID)
	}, r.policy(ctx))
}

func (r *Retrying) SetBookingStatus(ctx context.Context, bookingID string, status BookingStatus) error {
	return backoff.Retry(func() error {
		return r.inner.SetBookingStatus(ctx, bookingID, status)
	}, r.policy(ctx))
}
