package booking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/planvite/chatsync/internal/push"
	"github.com/planvite/chatsync/internal/record"
)

// ErrNotProvider is returned when a non-provider participant attempts a
// booking transition.
var ErrNotProvider = errors.New("only the provider can accept or decline")

// ErrNoPendingBooking is returned when there is no pending booking to act on.
var ErrNoPendingBooking = errors.New("no pending booking")

// validTransitions defines the transitions the sidecar may initiate.
// Confirmed and cancelled are terminal here; completed happens outside the
// chat view.
var validTransitions = map[record.BookingStatus][]record.BookingStatus{
	record.BookingPending: {record.BookingConfirmed, record.BookingCancelled},
}

// Sidecar surfaces the single outstanding negotiable booking for a
// conversation's participant pair. Transitions are never optimistic: after a
// server write the local representation is invalidated and re-fetched, since
// accept/decline is high-consequence and low-frequency.
type Sidecar struct {
	store      record.Store
	channel    *push.Channel
	logger     *zap.Logger
	clientID   string
	providerID string
	viewerID   string

	mu      sync.Mutex
	current *record.Booking
}

// NewSidecar creates a sidecar for the conversation's participant pair,
// viewed by viewerID.
func NewSidecar(store record.Store, channel *push.Channel, logger *zap.Logger, conv record.Conversation, viewerID string) *Sidecar {
	return &Sidecar{
		store:      store,
		channel:    channel,
		logger:     logger,
		clientID:   conv.ClientID,
		providerID: conv.ProviderID,
		viewerID:   viewerID,
	}
}

// Load fetches the most recently created pending booking for the pair.
// Earlier pending bookings are not surfaced; the most recent wins.
func (s *Sidecar) Load(ctx context.Context) error {
	b, err := s.store.LatestPendingBooking(ctx, s.clientID, s.providerID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = b
	s.mu.Unlock()
	return nil
}

// Current returns the surfaced booking, or nil when there is none. An action
// card is shown only while the status is pending.
func (s *Sidecar) Current() *record.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	b := *s.current
	return &b
}

// Accept confirms the pending booking. Provider-side only.
func (s *Sidecar) Accept(ctx context.Context) error {
	return s.transition(ctx, record.BookingConfirmed)
}

// Decline cancels the pending booking. Provider-side only.
func (s *Sidecar) Decline(ctx context.Context) error {
	return s.transition(ctx, record.BookingCancelled)
}

func (s *Sidecar) transition(ctx context.Context, to record.BookingStatus) error {
	if s.viewerID != s.providerID {
		return ErrNotProvider
	}
	s.mu.Lock()
	b := s.current
	s.mu.Unlock()
	if b == nil {
		return ErrNoPendingBooking
	}
	if !slices.Contains(validTransitions[b.Status], to) {
		return fmt.Errorf("invalid transition from %s to %s", b.Status, to)
	}

	if err := s.store.SetBookingStatus(ctx, b.ID, to); err != nil {
		s.logger.Error("booking transition failed",
			zap.String("booking_id", b.ID), zap.String("to", string(to)), zap.Error(err))
		s.channel.RaiseNotice("booking_"+string(to), "", err)
		return err
	}

	// Invalidate and re-fetch rather than patching locally.
	refreshed, err := s.store.GetBooking(ctx, b.ID)
	if err != nil {
		s.logger.Warn("booking re-fetch failed", zap.String("booking_id", b.ID), zap.Error(err))
		refreshed = nil
	}
	s.mu.Lock()
	s.current = refreshed
	s.mu.Unlock()

	s.logger.Info("booking transitioned",
		zap.String("booking_id", b.ID), zap.String("status", string(to)))
	return nil
}
