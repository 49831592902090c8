package bridge

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/planvite/chatsync/internal/cache"
	"github.com/planvite/chatsync/internal/push"
	"github.com/planvite/chatsync/internal/record"
)

func testDB(t *testing.T, channel *push.Channel) *record.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := record.Open(path, channel)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedConversation(t *testing.T, db *record.DB, id string) {
	t.Helper()
	err := db.CreateConversation(context.Background(), &record.Conversation{
		ID: id, ClientID: "client", ProviderID: "provider",
	})
	if err != nil {
		t.Fatal(err)
	}
}

func openBridge(t *testing.T, db *record.DB, channel *push.Channel, conversationID, userID string) (*Conversation, *cache.Messages) {
	t.Helper()
	msgs := cache.NewMessages(db, conversationID, 20)
	if err := msgs.LoadInitial(context.Background()); err != nil {
		t.Fatal(err)
	}
	b := NewConversation(db, channel, zap.NewNop(), msgs, userID)
	b.Start(context.Background())
	t.Cleanup(b.Stop)
	return b, msgs
}

func TestInsertEventAppliesAndMarksRead(t *testing.T) {
	channel := push.New()
	db := testDB(t, channel)
	seedConversation(t, db, "c1")
	ctx := context.Background()

	if err := db.UpsertProfile(ctx, &record.Profile{ID: "provider", DisplayName: "Ana"}); err != nil {
		t.Fatal(err)
	}
	_, msgs := openBridge(t, db, channel, "c1", "client")

	m, err := db.InsertMessage(ctx, "c1", "provider", "hello")
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	snap := msgs.Snapshot()
	if len(snap) != 1 || snap[0].ID != m.ID {
		t.Fatalf("snapshot = %+v, want the inserted message", snap)
	}
	if snap[0].SenderName != "Ana" {
		t.Errorf("sender name = %q, want Ana", snap[0].SenderName)
	}

	// The conversation is open, so the incoming message was marked read.
	stored, err := db.ListMessages(ctx, "c1", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if stored[0].ReadAt == 0 {
		t.Error("incoming message not marked read")
	}
}

func TestInsertWithoutProfileStillApplies(t *testing.T) {
	channel := push.New()
	db := testDB(t, channel)
	seedConversation(t, db, "c1")
	_, msgs := openBridge(t, db, channel, "c1", "client")

	if _, err := db.InsertMessage(context.Background(), "c1", "provider", "hello"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	snap := msgs.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("got %d messages, want 1", len(snap))
	}
	if snap[0].SenderName != "" {
		t.Errorf("sender name = %q, want empty", snap[0].SenderName)
	}
}

func TestDuplicateEventReplayAbsorbed(t *testing.T) {
	channel := push.New()
	db := testDB(t, channel)
	seedConversation(t, db, "c1")
	_, msgs := openBridge(t, db, channel, "c1", "client")

	evt := push.Event{
		Kind:      push.MessageInserted,
		Topic:     push.ConversationTopic("c1"),
		Timestamp: time.Now(),
		Payload:   push.MessageRow{ID: "m1", ConversationID: "c1", SenderID: "provider", Content: "hi", CreatedAt: 1000},
	}
	channel.Publish(evt)
	channel.Publish(evt)
	time.Sleep(100 * time.Millisecond)

	if got := len(msgs.Snapshot()); got != 1 {
		t.Errorf("got %d messages after replay, want 1", got)
	}
}

func TestOwnInsertEventsIgnored(t *testing.T) {
	channel := push.New()
	db := testDB(t, channel)
	seedConversation(t, db, "c1")
	_, msgs := openBridge(t, db, channel, "c1", "client")

	// The send pipeline merges own messages; the push echo must not.
	if _, err := db.InsertMessage(context.Background(), "c1", "client", "mine"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	if got := len(msgs.Snapshot()); got != 0 {
		t.Errorf("got %d messages, want 0", got)
	}
}

func TestUpdateEventPatchesReadAt(t *testing.T) {
	channel := push.New()
	db := testDB(t, channel)
	seedConversation(t, db, "c1")
	ctx := context.Background()

	m, err := db.InsertMessage(ctx, "c1", "client", "mine")
	if err != nil {
		t.Fatal(err)
	}
	_, msgs := openBridge(t, db, channel, "c1", "client")

	// The other participant reads our message.
	if err := db.MarkMessageRead(ctx, m.ID, 5000); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	snap := msgs.Snapshot()
	if len(snap) != 1 || snap[0].ReadAt != 5000 {
		t.Errorf("snapshot = %+v, want read_at=5000", snap)
	}
}

func TestChannelResumedTriggersResync(t *testing.T) {
	channel := push.New()
	db := testDB(t, channel)
	seedConversation(t, db, "c1")
	ctx := context.Background()

	// Messages land before the bridge subscribes: their events go nowhere,
	// exactly like a connectivity gap.
	if _, err := db.InsertMessage(ctx, "c1", "provider", "missed one"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.InsertMessage(ctx, "c1", "provider", "missed two"); err != nil {
		t.Fatal(err)
	}

	msgs := cache.NewMessages(db, "c1", 20)
	b := NewConversation(db, channel, zap.NewNop(), msgs, "client")
	b.Start(context.Background())
	defer b.Stop()

	channel.Publish(push.Event{Kind: push.ChannelResumed, Topic: push.TopicChannel, Timestamp: time.Now()})
	time.Sleep(100 * time.Millisecond)

	snap := msgs.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("got %d messages after resync, want 2", len(snap))
	}
	if snap[0].Content != "missed two" {
		t.Errorf("head = %q, want the newer missed message", snap[0].Content)
	}

	// Messages gained by resync are marked read like live arrivals.
	stored, err := db.ListMessages(ctx, "c1", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range stored {
		if m.ReadAt == 0 {
			t.Errorf("message %q still unread after resync", m.Content)
		}
	}
}

func TestStopEndsDelivery(t *testing.T) {
	channel := push.New()
	db := testDB(t, channel)
	seedConversation(t, db, "c1")
	b, msgs := openBridge(t, db, channel, "c1", "client")

	b.Stop()
	b.Stop() // safe to repeat
	time.Sleep(50 * time.Millisecond)

	if _, err := db.InsertMessage(context.Background(), "c1", "provider", "late"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	if got := len(msgs.Snapshot()); got != 0 {
		t.Errorf("got %d messages after Stop, want 0", got)
	}
}
