package inbox

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

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
		ID: id, ClientID: "client", ProviderID: "provider-" + id,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func testInbox(t *testing.T, store record.Store, channel *push.Channel) *Inbox {
	t.Helper()
	ib := New(store, channel, zap.NewNop(), "client")
	if err := ib.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	return ib
}

// failingStore fails selected write operations on top of a real store.
type failingStore struct {
	record.Store
	failPin  bool
	failHide bool
	failRead bool
}

var errStore = errors.New("record store unavailable")

func (f *failingStore) SetConversationPinned(ctx context.Context, id string, pinned bool) error {
	if f.failPin {
		return errStore
	}
	return f.Store.SetConversationPinned(ctx, id, pinned)
}

func (f *failingStore) SetConversationHidden(ctx context.Context, id string, hidden bool) error {
	if f.failHide {
		return errStore
	}
	return f.Store.SetConversationHidden(ctx, id, hidden)
}

func (f *failingStore) MarkConversationRead(ctx context.Context, id, userID string, readAt int64) error {
	if f.failRead {
		return errStore
	}
	return f.Store.MarkConversationRead(ctx, id, userID, readAt)
}

func TestListOrdersPinnedFirstThenActivity(t *testing.T) {
	db := testDB(t, nil)
	ctx := context.Background()
	for _, id := range []string{"c1", "c2", "c3"} {
		seedConversation(t, db, id)
	}
	// c1 oldest activity, c3 newest.
	for _, id := range []string{"c1", "c2", "c3"} {
		if _, err := db.InsertMessage(ctx, id, "provider-"+id, "hi"); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.SetConversationPinned(ctx, "c1", true); err != nil {
		t.Fatal(err)
	}

	ib := testInbox(t, db, push.New())
	convs := ib.List()
	if len(convs) != 3 {
		t.Fatalf("got %d conversations, want 3", len(convs))
	}
	if convs[0].ID != "c1" {
		t.Errorf("first = %s, want pinned c1", convs[0].ID)
	}
	if convs[1].ID != "c3" || convs[2].ID != "c2" {
		t.Errorf("order = %s, %s, want c3 then c2 by activity", convs[1].ID, convs[2].ID)
	}
}

func TestListFiltersHidden(t *testing.T) {
	db := testDB(t, nil)
	seedConversation(t, db, "c1")
	seedConversation(t, db, "c2")
	if err := db.SetConversationHidden(context.Background(), "c2", true); err != nil {
		t.Fatal(err)
	}

	ib := testInbox(t, db, push.New())
	convs := ib.List()
	if len(convs) != 1 || convs[0].ID != "c1" {
		t.Errorf("convs = %+v, want only c1", convs)
	}
	// Get still resolves hidden conversations.
	if _, ok := ib.Get("c2"); !ok {
		t.Error("Get(c2) = false, want hidden conversation found")
	}
}

func TestSetPinnedAppliesImmediately(t *testing.T) {
	db := testDB(t, nil)
	seedConversation(t, db, "c1")
	ib := testInbox(t, db, push.New())

	ib.SetPinned("c1", true)

	c, ok := ib.Get("c1")
	if !ok || !c.Pinned {
		t.Error("pin not applied locally before server confirmation")
	}

	time.Sleep(100 * time.Millisecond)
	convs, err := db.ListConversations(context.Background(), "client")
	if err != nil {
		t.Fatal(err)
	}
	if !convs[0].Pinned {
		t.Error("pin not written to the record store")
	}
}

func TestSetPinnedRevertsOnFailure(t *testing.T) {
	db := testDB(t, nil)
	seedConversation(t, db, "c1")
	channel := push.New()
	notices, unsub := channel.Subscribe(push.TopicNotice, 10)
	defer unsub()

	ib := testInbox(t, &failingStore{Store: db, failPin: true}, channel)
	ib.SetPinned("c1", true)
	time.Sleep(100 * time.Millisecond)

	c, _ := ib.Get("c1")
	if c.Pinned {
		t.Error("pin not reverted after failed write")
	}

	select {
	case evt := <-notices:
		n := evt.Payload.(push.Notice)
		if n.Op != "pin" || n.ConversationID != "c1" {
			t.Errorf("notice = %+v", n)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for notice")
	}
}

func TestHideRevertsOnFailure(t *testing.T) {
	db := testDB(t, nil)
	seedConversation(t, db, "c1")
	channel := push.New()
	notices, unsub := channel.Subscribe(push.TopicNotice, 10)
	defer unsub()

	ib := testInbox(t, &failingStore{Store: db, failHide: true}, channel)
	ib.Hide("c1")

	// Hidden immediately, optimistically.
	if len(ib.List()) != 0 {
		t.Error("conversation still listed right after Hide")
	}

	time.Sleep(100 * time.Millisecond)
	if len(ib.List()) != 1 {
		t.Error("hide not reverted after failed write")
	}

	select {
	case evt := <-notices:
		if n := evt.Payload.(push.Notice); n.Op != "hide" {
			t.Errorf("notice = %+v", n)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for notice")
	}
}

func TestMarkAllRead(t *testing.T) {
	db := testDB(t, nil)
	seedConversation(t, db, "c1")
	ctx := context.Background()
	for range 3 {
		if _, err := db.InsertMessage(ctx, "c1", "provider-c1", "hi"); err != nil {
			t.Fatal(err)
		}
	}

	ib := testInbox(t, db, push.New())
	if c, _ := ib.Get("c1"); c.UnreadCount != 3 {
		t.Fatalf("unread = %d, want 3", c.UnreadCount)
	}

	if err := ib.MarkAllRead(ctx, "c1"); err != nil {
		t.Fatal(err)
	}
	if c, _ := ib.Get("c1"); c.UnreadCount != 0 {
		t.Errorf("unread = %d, want 0", c.UnreadCount)
	}

	// The store agrees after re-query.
	if err := ib.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if c, _ := ib.Get("c1"); c.UnreadCount != 0 {
		t.Errorf("unread after refresh = %d, want 0", c.UnreadCount)
	}
}

func TestMarkAllReadFailureRestoresCount(t *testing.T) {
	db := testDB(t, nil)
	seedConversation(t, db, "c1")
	ctx := context.Background()
	if _, err := db.InsertMessage(ctx, "c1", "provider-c1", "hi"); err != nil {
		t.Fatal(err)
	}

	channel := push.New()
	notices, unsub := channel.Subscribe(push.TopicNotice, 10)
	defer unsub()

	ib := testInbox(t, &failingStore{Store: db, failRead: true}, channel)
	if err := ib.MarkAllRead(ctx, "c1"); err == nil {
		t.Fatal("MarkAllRead() expected error")
	}

	// The authoritative count came back via re-query.
	if c, _ := ib.Get("c1"); c.UnreadCount != 1 {
		t.Errorf("unread = %d, want 1 restored", c.UnreadCount)
	}

	select {
	case evt := <-notices:
		if n := evt.Payload.(push.Notice); n.Op != "mark_read" {
			t.Errorf("notice = %+v", n)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for notice")
	}
}
