package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/planvite/chatsync/internal/push"
)

// State represents the engine's connectivity state.
type State string

const (
	Booting      State = "BOOTING"
	Live         State = "LIVE"
	Reconnecting State = "RECONNECTING"
	Degraded     State = "DEGRADED"
	Error        State = "ERROR"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Booting:      {Live, Error},
	Live:         {Reconnecting, Degraded, Error},
	Reconnecting: {Live, Degraded, Error},
	Degraded:     {Reconnecting, Live, Error},
	Error:        {Booting},
}

// Machine tracks and enforces engine connectivity state transitions.
// Transitions are announced on the push channel; the Reconnecting→Live edge
// additionally publishes ChannelResumed, which drives resync in subscribers.
type Machine struct {
	mu      sync.RWMutex
	current State
	channel *push.Channel
}

// NewMachine creates a new state machine starting in Booting state.
func NewMachine(channel *push.Channel) *Machine {
	return &Machine{
		current: Booting,
		channel: channel,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.channel != nil {
		m.channel.Publish(push.Event{
			Kind:      push.ChannelStatusChanged,
			Topic:     push.TopicChannel,
			Timestamp: time.Now(),
			Payload: StatusChange{
				From: from,
				To:   to,
			},
		})
		if from == Reconnecting && to == Live {
			m.channel.Publish(push.Event{
				Kind:      push.ChannelResumed,
				Topic:     push.TopicChannel,
				Timestamp: time.Now(),
			})
		}
	}
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
