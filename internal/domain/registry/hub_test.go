package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/devconnect/realtime-service/internal/domain/event"
	"github.com/devconnect/realtime-service/internal/domain/registry"
)

func newConn(principalID int64, username string) *registry.Conn {
	return registry.NewConn(context.Background(), principalID, username, 16)
}

func recvEvent(t *testing.T, c *registry.Conn) event.Eventer {
	t.Helper()
	select {
	case ev := <-c.Recv():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func assertNoEvent(t *testing.T, c *registry.Conn) {
	t.Helper()
	select {
	case ev := <-c.Recv():
		t.Fatalf("unexpected event %q delivered", ev.GetKind())
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBroadcastReachesEverySession(t *testing.T) {
	hub := registry.NewHub()
	defer hub.Shutdown()

	alicePhone := newConn(1, "alice")
	aliceLaptop := newConn(1, "alice")
	bob := newConn(2, "bob")
	for _, c := range []*registry.Conn{alicePhone, aliceLaptop, bob} {
		hub.Admit(c)
	}

	hub.Deliver(event.NewChatCleared(), event.All())

	for _, c := range []*registry.Conn{alicePhone, aliceLaptop, bob} {
		if got := recvEvent(t, c).GetKind(); got != event.ChatCleared {
			t.Errorf("got event %q, want %q", got, event.ChatCleared)
		}
	}
}

func TestAllExceptSkipsOnlyTheSender(t *testing.T) {
	hub := registry.NewHub()
	defer hub.Shutdown()

	sender := newConn(1, "alice")
	senderOther := newConn(1, "alice")
	bob := newConn(2, "bob")
	for _, c := range []*registry.Conn{sender, senderOther, bob} {
		hub.Admit(c)
	}

	hub.Deliver(event.NewUserTyping("alice"), event.AllExcept(sender.GetID()))

	// The sender's other device still gets the event; only the originating
	// connection is skipped.
	recvEvent(t, senderOther)
	recvEvent(t, bob)
	assertNoEvent(t, sender)
}

func TestRoomScopeOnlyReachesMembers(t *testing.T) {
	hub := registry.NewHub()
	defer hub.Shutdown()

	inFeed := newConn(1, "alice")
	outside := newConn(2, "bob")
	hub.Admit(inFeed)
	hub.Admit(outside)

	if !hub.JoinRoom(inFeed.GetID(), registry.RoomFeed) {
		t.Fatal("JoinRoom refused an admitted connection")
	}

	hub.Deliver(event.NewPostDeleted(7), event.InRoom(registry.RoomFeed))

	recvEvent(t, inFeed)
	assertNoEvent(t, outside)
}

func TestPrincipalsScopeTargetsBothParties(t *testing.T) {
	hub := registry.NewHub()
	defer hub.Shutdown()

	alice := newConn(1, "alice")
	bob := newConn(2, "bob")
	carol := newConn(3, "carol")
	for _, c := range []*registry.Conn{alice, bob, carol} {
		hub.Admit(c)
	}

	hub.Deliver(event.NewChatCleared(), event.ToPrincipals(1, 2))

	recvEvent(t, alice)
	recvEvent(t, bob)
	assertNoEvent(t, carol)
}

func TestPresenceDeduplicatesAndSorts(t *testing.T) {
	hub := registry.NewHub()
	defer hub.Shutdown()

	hub.Admit(newConn(2, "zoe"))
	hub.Admit(newConn(1, "alice"))
	hub.Admit(newConn(1, "alice")) // second device

	entries := hub.Presence()
	if len(entries) != 2 {
		t.Fatalf("got %d presence entries, want 2", len(entries))
	}
	if entries[0].Username != "alice" || entries[1].Username != "zoe" {
		t.Errorf("presence not sorted by username: %+v", entries)
	}
}

func TestRemoveCleansEveryIndex(t *testing.T) {
	hub := registry.NewHub()
	defer hub.Shutdown()

	conn := newConn(1, "alice")
	hub.Admit(conn)
	hub.JoinRoom(conn.GetID(), registry.RoomFeed)

	hub.Remove(conn.GetID())
	hub.Remove(conn.GetID()) // idempotent

	if got := hub.ConnectionsFor(1); len(got) != 0 {
		t.Errorf("principal still has %d connections after remove", len(got))
	}
	if hub.JoinRoom(conn.GetID(), registry.RoomFeed) {
		t.Error("JoinRoom accepted a removed connection")
	}

	stats := hub.Stats()
	if stats.TotalConnections != 0 || stats.TotalPrincipals != 0 {
		t.Errorf("stats still count removed state: %+v", stats)
	}
	if stats.Rooms[registry.RoomFeed] != 0 {
		t.Errorf("feed room still has %d members", stats.Rooms[registry.RoomFeed])
	}

	select {
	case <-conn.Done():
	case <-time.After(time.Second):
		t.Error("removed connection was not closed")
	}
}

func TestDisconnectPrincipalClosesAllSessions(t *testing.T) {
	hub := registry.NewHub()
	defer hub.Shutdown()

	phone := newConn(1, "alice")
	laptop := newConn(1, "alice")
	bystander := newConn(2, "bob")
	for _, c := range []*registry.Conn{phone, laptop, bystander} {
		hub.Admit(c)
	}

	hub.DisconnectPrincipal(1)

	for _, c := range []*registry.Conn{phone, laptop} {
		select {
		case <-c.Done():
		case <-time.After(time.Second):
			t.Fatal("banned principal's session still open")
		}
	}

	select {
	case <-bystander.Done():
		t.Error("bystander session was closed")
	default:
	}
}

func TestPerConnectionOrderIsPreserved(t *testing.T) {
	hub := registry.NewHub()
	defer hub.Shutdown()

	conn := newConn(1, "alice")
	hub.Admit(conn)

	first := event.NewChatCleared()
	second := event.NewChatMessageDeleted(1)
	third := event.NewChatMessageDeleted(2)
	for _, ev := range []*event.Event{first, second, third} {
		hub.Deliver(ev, event.All())
	}

	for _, want := range []string{first.GetID(), second.GetID(), third.GetID()} {
		if got := recvEvent(t, conn).GetID(); got != want {
			t.Fatalf("got event id %s, want %s", got, want)
		}
	}
}

func TestDeliverToUnknownRoomIsANoOp(t *testing.T) {
	hub := registry.NewHub()
	defer hub.Shutdown()

	conn := newConn(1, "alice")
	hub.Admit(conn)

	hub.Deliver(event.NewChatCleared(), event.InRoom("nonexistent"))
	assertNoEvent(t, conn)
}

func TestLowPriorityEventsAreShedUnderBackpressure(t *testing.T) {
	conn := registry.NewConn(context.Background(), 1, "alice", 1)
	defer conn.Close()

	if !conn.Send(event.NewChatMessageDeleted(1), 10*time.Millisecond) {
		t.Fatal("send into empty buffer failed")
	}
	// Buffer full: a typing indicator must be dropped, not queued.
	if conn.Send(event.NewUserTyping("bob"), 10*time.Millisecond) {
		t.Error("low-priority event accepted into a full buffer")
	}
	if conn.Dropped() == 0 {
		t.Error("drop counter not incremented")
	}
}

func TestFullBufferKeepsQueuedOrder(t *testing.T) {
	conn := registry.NewConn(context.Background(), 1, "alice", 2)
	defer conn.Close()

	first := event.NewChatCleared()
	second := event.NewChatMessageDeleted(1)
	for _, ev := range []*event.Event{first, second} {
		if !conn.Send(ev, 10*time.Millisecond) {
			t.Fatal("send into non-full buffer failed")
		}
	}

	// Buffer full: an equal-priority event is shed, never swapped into the
	// middle of the queue.
	if conn.Send(event.NewChatMessageDeleted(2), 10*time.Millisecond) {
		t.Error("normal-priority event accepted into a full buffer")
	}

	for _, want := range []string{first.GetID(), second.GetID()} {
		if got := recvEvent(t, conn).GetID(); got != want {
			t.Fatalf("got event id %s, want %s", got, want)
		}
	}
}

func TestEvictionShedsOldestWithoutReordering(t *testing.T) {
	conn := registry.NewConn(context.Background(), 1, "alice", 2)
	defer conn.Close()

	first := event.NewChatCleared()
	second := event.NewChatMessageDeleted(1)
	for _, ev := range []*event.Event{first, second} {
		if !conn.Send(ev, 10*time.Millisecond) {
			t.Fatal("send into non-full buffer failed")
		}
	}

	urgent := event.NewChatHistory(nil)
	if !conn.Send(urgent, 10*time.Millisecond) {
		t.Fatal("high-priority event rejected despite eviction")
	}
	if conn.Dropped() != 1 {
		t.Errorf("dropped %d events, want 1", conn.Dropped())
	}

	// The oldest event is gone; the survivors arrive in their original order.
	for _, want := range []string{second.GetID(), urgent.GetID()} {
		if got := recvEvent(t, conn).GetID(); got != want {
			t.Fatalf("got event id %s, want %s", got, want)
		}
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	conn := newConn(1, "alice")
	conn.Close()

	if conn.Send(event.NewChatCleared(), 10*time.Millisecond) {
		t.Error("send succeeded on a closed connection")
	}
}

func TestScopeUUIDNilExceptMatchesNothing(t *testing.T) {
	hub := registry.NewHub()
	defer hub.Shutdown()

	conn := newConn(1, "alice")
	hub.Admit(conn)

	hub.Deliver(event.NewChatCleared(), event.AllExcept(uuid.Nil))
	recvEvent(t, conn)
}
