package status

import (
	"testing"
	"time"

	"github.com/planvite/chatsync/internal/push"
)

func TestTransitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []State
		wantErr bool
	}{
		{"boot to live", []State{Live}, false},
		{"boot straight to error", []State{Error}, false},
		{"full reconnect cycle", []State{Live, Reconnecting, Live}, false},
		{"degrade and recover", []State{Live, Degraded, Live}, false},
		{"boot to reconnecting", []State{Reconnecting}, true},
		{"error to live", []State{Error, Live}, true},
		{"live to booting", []State{Live, Booting}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine(nil)
			var err error
			for _, s := range tt.path {
				if err = m.Transition(s); err != nil {
					break
				}
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInvalidTransitionKeepsState(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(Degraded); err == nil {
		t.Fatal("Transition(Degraded) from Booting expected error")
	}
	if got := m.Current(); got != Booting {
		t.Errorf("Current() = %s, want Booting", got)
	}
}

func TestTransitionPublishesStatusChange(t *testing.T) {
	channel := push.New()
	events, unsub := channel.Subscribe(push.TopicChannel, 10)
	defer unsub()

	m := NewMachine(channel)
	if err := m.Transition(Live); err != nil {
		t.Fatal(err)
	}

	select {
	case evt := <-events:
		if evt.Kind != push.ChannelStatusChanged {
			t.Errorf("kind = %q, want %q", evt.Kind, push.ChannelStatusChanged)
		}
		sc := evt.Payload.(StatusChange)
		if sc.From != Booting || sc.To != Live {
			t.Errorf("change = %+v, want Booting->Live", sc)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for status event")
	}
}

func TestResumePublishedOnReconnectingToLive(t *testing.T) {
	channel := push.New()
	m := NewMachine(channel)
	if err := m.Transition(Live); err != nil {
		t.Fatal(err)
	}
	if err := m.Transition(Reconnecting); err != nil {
		t.Fatal(err)
	}

	events, unsub := channel.Subscribe(push.TopicChannel, 10)
	defer unsub()
	if err := m.Transition(Live); err != nil {
		t.Fatal(err)
	}

	var kinds []push.EventKind
	for range 2 {
		select {
		case evt := <-events:
			kinds = append(kinds, evt.Kind)
		case <-time.After(time.Second):
			t.Fatalf("timeout, got kinds %v", kinds)
		}
	}
	if kinds[0] != push.ChannelStatusChanged || kinds[1] != push.ChannelResumed {
		t.Errorf("kinds = %v, want status change then resume", kinds)
	}
}

func TestPlainLiveTransitionDoesNotResume(t *testing.T) {
	channel := push.New()
	events, unsub := channel.Subscribe(push.TopicChannel, 10)
	defer unsub()

	m := NewMachine(channel)
	if err := m.Transition(Live); err != nil {
		t.Fatal(err)
	}

	<-events // the status change itself
	select {
	case evt := <-events:
		t.Errorf("unexpected extra event %q", evt.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}
