package event_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/devconnect/realtime-service/internal/domain/event"
	"github.com/devconnect/realtime-service/internal/domain/model"
)

func TestEncodeDecodeChatMessage(t *testing.T) {
	msg := &model.ChatMessage{ID: 42, AuthorID: 1, Author: "alice", Text: "hello", SentAt: 1700000000000}
	ev := event.NewChatMessage(msg)

	data, err := event.Encode(ev, event.All())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, scope, err := event.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.GetID() != ev.GetID() || decoded.GetKind() != event.ChatMessage {
		t.Errorf("identity lost in roundtrip: %+v", decoded)
	}
	if scope.Kind != event.ScopeAll {
		t.Errorf("got scope kind %q, want %q", scope.Kind, event.ScopeAll)
	}

	got, ok := decoded.GetPayload().(*model.ChatMessage)
	if !ok {
		t.Fatalf("payload decoded as %T, want *model.ChatMessage", decoded.GetPayload())
	}
	if got.ID != msg.ID || got.Text != msg.Text || got.Author != msg.Author {
		t.Errorf("payload mismatch: got %+v, want %+v", got, msg)
	}
}

func TestEncodeDecodePreservesScopeDetails(t *testing.T) {
	connID := uuid.New()
	ev := event.NewUserTyping("alice")

	data, err := event.Encode(ev, event.AllExcept(connID))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	_, scope, err := event.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if scope.Kind != event.ScopeAllExcept || scope.ExceptConn != connID {
		t.Errorf("except scope lost: %+v", scope)
	}

	data, err = event.Encode(event.NewChatCleared(), event.ToPrincipals(3, 5))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	_, scope, err = event.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if scope.Kind != event.ScopePrincipals || len(scope.Principals) != 2 {
		t.Errorf("principal scope lost: %+v", scope)
	}
}

func TestDecodeSlicePayloads(t *testing.T) {
	history := event.NewChatHistory([]model.ChatMessage{
		{ID: 1, Author: "alice", Text: "first"},
		{ID: 2, Author: "bob", Text: "second"},
	})

	data, err := event.Encode(history, event.All())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, _, err := event.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	msgs, ok := decoded.GetPayload().([]model.ChatMessage)
	if !ok {
		t.Fatalf("payload decoded as %T, want []model.ChatMessage", decoded.GetPayload())
	}
	if len(msgs) != 2 || msgs[0].ID != 1 || msgs[1].ID != 2 {
		t.Errorf("history order lost: %+v", msgs)
	}
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	if _, _, err := event.Decode([]byte(`{"kind":"nope","payload":{}}`)); err == nil {
		t.Error("Decode accepted an unknown event kind")
	}
	if _, _, err := event.Decode([]byte(`not json`)); err == nil {
		t.Error("Decode accepted garbage")
	}
}

func TestPriorityRanking(t *testing.T) {
	if got := event.NewUserTyping("x").GetPriority(); got != event.PriorityLow {
		t.Errorf("typing priority = %d, want low", got)
	}
	if got := event.NewChatMessage(&model.ChatMessage{}).GetPriority(); got != event.PriorityHigh {
		t.Errorf("chat message priority = %d, want high", got)
	}
	if got := event.NewPostCreated(&model.Post{}).GetPriority(); got != event.PriorityNormal {
		t.Errorf("post created priority = %d, want normal", got)
	}
}
