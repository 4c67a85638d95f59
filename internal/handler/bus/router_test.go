package bus_test

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/devconnect/realtime-service/internal/domain/event"
	"github.com/devconnect/realtime-service/internal/domain/model"
	"github.com/devconnect/realtime-service/internal/domain/registry"
	"github.com/devconnect/realtime-service/internal/handler/bus"
)

type captureHub struct {
	delivered []capturedDelivery
}

type capturedDelivery struct {
	ev    event.Eventer
	scope event.Scope
}

func (h *captureHub) Admit(*registry.Conn)             {}
func (h *captureHub) Remove(uuid.UUID)                 {}
func (h *captureHub) JoinRoom(uuid.UUID, string) bool  { return true }
func (h *captureHub) ConnectionsFor(int64) []uuid.UUID { return nil }
func (h *captureHub) DisconnectPrincipal(int64)        {}
func (h *captureHub) Presence() []model.PresenceEntry  { return nil }
func (h *captureHub) Stats() model.HubStats            { return model.HubStats{} }
func (h *captureHub) Shutdown()                        {}

func (h *captureHub) Deliver(ev event.Eventer, scope event.Scope) {
	h.delivered = append(h.delivered, capturedDelivery{ev: ev, scope: scope})
}

func newMessage(t *testing.T, ev event.Eventer, scope event.Scope) *message.Message {
	t.Helper()
	payload, err := event.Encode(ev, scope)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return message.NewMessage(watermill.NewUUID(), payload)
}

func TestOnDomainEventDeliversWithCachedWireForm(t *testing.T) {
	hub := &captureHub{}
	handler := bus.NewEventHandler(hub, slog.New(slog.DiscardHandler))

	src := event.NewChatMessage(&model.ChatMessage{ID: 1, Author: "alice", Text: "hi"})
	if err := handler.OnDomainEvent(newMessage(t, src, event.All())); err != nil {
		t.Fatalf("OnDomainEvent failed: %v", err)
	}

	if len(hub.delivered) != 1 {
		t.Fatalf("delivered %d events, want 1", len(hub.delivered))
	}
	got := hub.delivered[0]
	if got.ev.GetID() != src.GetID() || got.scope.Kind != event.ScopeAll {
		t.Errorf("delivered %+v", got)
	}

	// The wire form is marshaled exactly once, before fanout.
	cached := got.ev.GetCached()
	if cached == nil {
		t.Fatal("wire form not cached")
	}
	var wire struct {
		Event string `json:"event"`
		ID    string `json:"id"`
	}
	if err := json.Unmarshal(cached, &wire); err != nil {
		t.Fatalf("cached form not valid JSON: %v", err)
	}
	if wire.Event != string(event.ChatMessage) || wire.ID != src.GetID() {
		t.Errorf("wire form = %+v", wire)
	}
}

func TestOnDomainEventAcksPoisonMessages(t *testing.T) {
	hub := &captureHub{}
	handler := bus.NewEventHandler(hub, slog.New(slog.DiscardHandler))

	msg := message.NewMessage(watermill.NewUUID(), []byte("not an envelope"))
	if err := handler.OnDomainEvent(msg); err != nil {
		t.Errorf("poison message returned %v, want nil (ack)", err)
	}
	if len(hub.delivered) != 0 {
		t.Error("poison message reached the hub")
	}
}

func TestOnDomainEventPreservesScopeKinds(t *testing.T) {
	hub := &captureHub{}
	handler := bus.NewEventHandler(hub, slog.New(slog.DiscardHandler))

	connID := uuid.New()
	_ = handler.OnDomainEvent(newMessage(t, event.NewUserTyping("alice"), event.AllExcept(connID)))
	_ = handler.OnDomainEvent(newMessage(t, event.NewChatCleared(), event.ToPrincipals(4, 8)))

	if len(hub.delivered) != 2 {
		t.Fatalf("delivered %d events, want 2", len(hub.delivered))
	}
	if s := hub.delivered[0].scope; s.Kind != event.ScopeAllExcept || s.ExceptConn != connID {
		t.Errorf("first scope = %+v", s)
	}
	if s := hub.delivered[1].scope; s.Kind != event.ScopePrincipals || len(s.Principals) != 2 {
		t.Errorf("second scope = %+v", s)
	}
}
